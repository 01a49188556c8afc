// Package cloudinary builds the URLs used to talk to the Cloudinary CDN:
// signed resource-list URLs for fetching a tag's listing, and delivery URLs
// carrying the on-the-fly transformation for each responsive size.
package cloudinary

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/asset"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// DefaultBaseURL is the Cloudinary delivery host
const DefaultBaseURL = "https://res.cloudinary.com"

// listDelivery is the delivery type serving tag listings as JSON
const listDelivery api.DeliveryType = "list"

// Credentials identify a Cloudinary account
type Credentials struct {
	CloudName string
	APIKey    string
	APISecret string
}

// URLBuilder constructs listing and delivery URLs for one account.
// Listings may be served from another host (a proxy or a test server);
// delivery URLs always point at DefaultBaseURL.
type URLBuilder struct {
	list     *config.Configuration
	delivery *config.Configuration
}

// NewURLBuilder creates a URLBuilder fetching listings from baseURL.
// An empty baseURL uses DefaultBaseURL. Only the scheme and host of
// baseURL are used.
func NewURLBuilder(baseURL string, creds Credentials) (*URLBuilder, error) {
	list, err := newConfig(creds)
	if err != nil {
		return nil, err
	}
	list.URL.SignURL = true
	if err := setHost(list, baseURL); err != nil {
		return nil, err
	}

	delivery, err := newConfig(creds)
	if err != nil {
		return nil, err
	}

	return &URLBuilder{list: list, delivery: delivery}, nil
}

func newConfig(creds Credentials) (*config.Configuration, error) {
	conf, err := config.NewFromParams(creds.CloudName, creds.APIKey, creds.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	conf.URL.Analytics = false
	return conf, nil
}

// setHost points the URLs generated from conf at the host of baseURL
func setHost(conf *config.Configuration, baseURL string) error {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" || baseURL == DefaultBaseURL {
		return nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Host == "" || u.Path != "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid base url %q: want scheme://host[:port]", baseURL)
	}

	conf.URL.Secure = u.Scheme == "https"
	if conf.URL.Secure {
		conf.URL.SecureCName = u.Host
	} else {
		conf.URL.CName = u.Host
	}
	return nil
}

// ListURL returns the signed resource-list URL for a tag:
//
//	<base>/<cloud>/image/list/s--<signature>--/<tag>.json
func (b *URLBuilder) ListURL(tag string) (string, error) {
	list, err := asset.Image(tag+".json", b.list)
	if err != nil {
		return "", err
	}
	list.DeliveryType = listDelivery

	u, err := list.String()
	if err != nil {
		return "", fmt.Errorf("failed to build list url for tag %s: %w", tag, err)
	}
	return u, nil
}

// DeliveryURL returns the transformation URL of a resource rendered at size
func (b *URLBuilder) DeliveryURL(res domain.Resource, size domain.Size) (string, error) {
	version, err := parseVersion(res.Version)
	if err != nil {
		return "", fmt.Errorf("%s: %w", res.PublicID, err)
	}

	image, err := asset.Image(res.PublicID+"."+res.Format, b.delivery)
	if err != nil {
		return "", err
	}
	image.DeliveryType = api.DeliveryType(res.Type)
	image.Transformation = fmt.Sprintf("f_auto,q_%d,w_%d", size.Quality, size.Width)
	image.Version = version

	u, err := image.String()
	if err != nil {
		return "", fmt.Errorf("failed to build delivery url for %s: %w", res.PublicID, err)
	}
	return u, nil
}

func parseVersion(v domain.Version) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(string(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidVersion, string(v))
	}
	return n, nil
}

// categoryPattern captures the segment after the last Photos/ directory
var categoryPattern = regexp.MustCompile(`(?i)^(?:.*/)?Photos/(\w+)/`)

// ExtractCategory returns the category segment of a public id such as
// "Photos/birds/sparrow01". Ids without the segment yield an
// *domain.ExtractionError wrapping domain.ErrNoCategory.
func ExtractCategory(publicID string) (string, error) {
	m := categoryPattern.FindStringSubmatch(publicID)
	if m == nil {
		return "", &domain.ExtractionError{PublicID: publicID, Err: domain.ErrNoCategory}
	}
	return m[1], nil
}

// NewBundle derives the three size variants of res.
func (b *URLBuilder) NewBundle(res domain.Resource) (domain.Bundle, error) {
	category, err := ExtractCategory(res.PublicID)
	if err != nil {
		return domain.Bundle{}, err
	}

	var bundle domain.Bundle
	for _, size := range domain.Sizes() {
		src, err := b.DeliveryURL(res, size)
		if err != nil {
			return domain.Bundle{}, err
		}
		bundle.Set(size, domain.Variant{
			Src:      src,
			Width:    size.Width,
			Category: category,
		})
	}
	return bundle, nil
}
