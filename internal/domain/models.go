package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Resource is one media item as described by a remote listing
type Resource struct {
	PublicID string  `json:"public_id"`
	Format   string  `json:"format"`
	Version  Version `json:"version"`
	Type     string  `json:"type"`
}

// Version is the cache-busting version of a resource.
// The listing endpoint returns it as a number; hand-written fixtures often
// quote it, so both forms are accepted.
type Version string

// UnmarshalJSON accepts a JSON number or a JSON string
func (v *Version) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Version(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("version must be a number or string: %w", err)
	}
	*v = Version(n.String())
	return nil
}

// Listing is the decoded response of one category tag
type Listing struct {
	Resources []Resource `json:"resources"`
}

// listingShape is used to tell a missing resources key from an empty one
type listingShape struct {
	Resources *[]Resource `json:"resources"`
}

// DecodeListing decodes a raw listing body.
// A body without a resources array is rejected.
func DecodeListing(data []byte) (*Listing, error) {
	var shape listingShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, err
	}
	if shape.Resources == nil {
		return nil, ErrMissingResources
	}
	return &Listing{Resources: *shape.Resources}, nil
}

// Size is a responsive rendition preset
type Size struct {
	Name    string
	Width   int
	Quality int
}

// Size presets
var (
	SizeLarge  = Size{Name: "large", Width: 1024, Quality: 100}
	SizeMedium = Size{Name: "medium", Width: 640, Quality: 100}
	SizeSmall  = Size{Name: "small", Width: 320, Quality: 100}
)

// Sizes returns the presets in manifest order
func Sizes() []Size {
	return []Size{SizeLarge, SizeMedium, SizeSmall}
}

// Variant is one size-specific rendering of a resource
type Variant struct {
	Src      string `json:"src"`
	Width    int    `json:"width"`
	Category string `json:"category"`
}

// Bundle holds the three variants derived from a single resource
type Bundle struct {
	Large  Variant `json:"large"`
	Medium Variant `json:"medium"`
	Small  Variant `json:"small"`
}

// Category returns the category shared by the bundle's variants
func (b Bundle) Category() string {
	return b.Large.Category
}

// Variants returns the variants in size order
func (b Bundle) Variants() []Variant {
	return []Variant{b.Large, b.Medium, b.Small}
}

// Set stores v in the slot for size
func (b *Bundle) Set(size Size, v Variant) {
	switch size.Name {
	case SizeLarge.Name:
		b.Large = v
	case SizeMedium.Name:
		b.Medium = v
	case SizeSmall.Name:
		b.Small = v
	}
}

// Response represents an HTTP response
type Response struct {
	StatusCode  int
	Body        []byte
	Headers     http.Header
	ContentType string
	URL         string
	FromCache   bool
}
