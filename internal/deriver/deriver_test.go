package deriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avjpl/gallery-assets-json-generation/internal/cloudinary"
	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testURLs(t *testing.T) *cloudinary.URLBuilder {
	t.Helper()
	urls, err := cloudinary.NewURLBuilder("", cloudinary.Credentials{CloudName: "avjpl", APIKey: "key", APISecret: "shh"})
	require.NoError(t, err)
	return urls
}

func writeListing(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func resourceJSON(publicID string, version int) string {
	return fmt.Sprintf(`{"public_id":%q,"format":"jpg","version":%d,"type":"upload"}`, publicID, version)
}

func listingJSON(resources ...string) string {
	return `{"resources":[` + strings.Join(resources, ",") + `]}`
}

// galleryDir lays out listings the way the fetch stage leaves them
func galleryDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeListing(t, dir, "birds.json", listingJSON(
		resourceJSON("Photos/birds/sparrow01", 1700000000),
		resourceJSON("Photos/birds/robin", 1700000001),
	))
	writeListing(t, dir, "insects.json", listingJSON(
		resourceJSON("Website/Photos/insects/beetle", 1700000002),
	))
	writeListing(t, dir, "reptiles.json", listingJSON())
	return dir
}

func newTestDeriver(t *testing.T, strict bool, workers int) *Deriver {
	return NewDeriver(Options{URLs: testURLs(t), Strict: strict, Workers: workers})
}

func TestDeriver_Derive(t *testing.T) {
	dir := galleryDir(t)

	result, err := newTestDeriver(t, true, 4).Derive(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Listings)
	assert.Equal(t, 3, result.Resources)
	assert.Empty(t, result.Skipped)

	m := result.Manifest
	assert.Equal(t, []string{"birds", "insects"}, m.Category)
	require.Len(t, m.Data, 3)

	assert.Equal(t, domain.Variant{
		Src:      "https://res.cloudinary.com/avjpl/image/upload/f_auto,q_100,w_1024/v1700000000/Photos/birds/sparrow01.jpg",
		Width:    1024,
		Category: "birds",
	}, m.Data[0].Large)
	assert.Contains(t, m.Data[1].Small.Src, "Photos/birds/robin.jpg")
	assert.Equal(t, "insects", m.Data[2].Category())

	assert.NoError(t, m.Validate())
}

func TestDeriver_Derive_Properties(t *testing.T) {
	dir := galleryDir(t)
	result, err := newTestDeriver(t, true, 2).Derive(context.Background(), dir)
	require.NoError(t, err)
	m := result.Manifest

	t.Run("one bundle per resource", func(t *testing.T) {
		assert.Len(t, m.Data, result.Resources)
	})

	t.Run("three widths at full quality sharing a category", func(t *testing.T) {
		for _, b := range m.Data {
			variants := b.Variants()
			require.Len(t, variants, 3)
			for i, size := range domain.Sizes() {
				v := variants[i]
				assert.Equal(t, size.Width, v.Width)
				assert.Contains(t, v.Src, fmt.Sprintf("f_auto,q_100,w_%d/", size.Width))
				assert.Equal(t, b.Category(), v.Category)
			}
		}
	})

	t.Run("categories are unique and all used", func(t *testing.T) {
		seen := map[string]bool{}
		for _, c := range m.Category {
			assert.False(t, seen[c], "duplicate %q", c)
			seen[c] = true
		}
		for _, b := range m.Data {
			assert.True(t, seen[b.Category()])
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		again, err := newTestDeriver(t, true, 1).Derive(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, m, again.Manifest)
	})
}

func TestDeriver_Derive_FileOrder(t *testing.T) {
	dir := t.TempDir()
	// written out of order; derivation follows file names
	writeListing(t, dir, "reptiles.json", listingJSON(resourceJSON("Photos/reptiles/gecko", 3)))
	writeListing(t, dir, "amphibians.json", listingJSON(resourceJSON("Photos/amphibians/newt", 1)))
	writeListing(t, dir, "birds.json", listingJSON(resourceJSON("Photos/birds/wren", 2)))

	for _, workers := range []int{1, 8} {
		result, err := newTestDeriver(t, true, workers).Derive(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"amphibians", "birds", "reptiles"}, result.Manifest.Category)
	}
}

func TestDeriver_Derive_Errors(t *testing.T) {
	t.Run("invalid json is a parse error", func(t *testing.T) {
		dir := galleryDir(t)
		writeListing(t, dir, "locations.json", `{"resources": [`)

		_, err := newTestDeriver(t, true, 2).Derive(context.Background(), dir)
		var parseErr *domain.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, filepath.Join(dir, "locations.json"), parseErr.Path)
	})

	t.Run("missing resources is a parse error", func(t *testing.T) {
		dir := t.TempDir()
		writeListing(t, dir, "birds.json", `{"error":{"message":"Resource not found"}}`)

		_, err := newTestDeriver(t, true, 1).Derive(context.Background(), dir)
		assert.ErrorIs(t, err, domain.ErrMissingResources)
		var parseErr *domain.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("strict mode aborts naming the resource", func(t *testing.T) {
		dir := galleryDir(t)
		writeListing(t, dir, "locations.json", listingJSON(
			resourceJSON("Photos/locations/coast", 1),
			resourceJSON("uploads/IMG_0001", 2),
		))

		_, err := newTestDeriver(t, true, 4).Derive(context.Background(), dir)
		assert.ErrorIs(t, err, domain.ErrNoCategory)

		var extractErr *domain.ExtractionError
		require.ErrorAs(t, err, &extractErr)
		assert.Equal(t, "uploads/IMG_0001", extractErr.PublicID)
	})

	t.Run("first failing file in name order wins", func(t *testing.T) {
		dir := t.TempDir()
		writeListing(t, dir, "a.json", listingJSON(resourceJSON("bad/one", 1)))
		writeListing(t, dir, "b.json", listingJSON(resourceJSON("bad/two", 1)))

		_, err := newTestDeriver(t, true, 2).Derive(context.Background(), dir)
		var extractErr *domain.ExtractionError
		require.ErrorAs(t, err, &extractErr)
		assert.Equal(t, "bad/one", extractErr.PublicID)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := newTestDeriver(t, true, 1).Derive(context.Background(), filepath.Join(t.TempDir(), "json"))
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestDeriver(t, true, 1).Derive(ctx, galleryDir(t))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDeriver_Derive_Lenient(t *testing.T) {
	dir := galleryDir(t)
	writeListing(t, dir, "locations.json", listingJSON(
		resourceJSON("uploads/IMG_0001", 1),
		resourceJSON("Photos/locations/coast", 2),
	))

	result, err := newTestDeriver(t, false, 4).Derive(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Resources)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "uploads/IMG_0001", result.Skipped[0].PublicID)

	assert.Len(t, result.Manifest.Data, 4)
	assert.Equal(t, []string{"birds", "insects", "locations"}, result.Manifest.Category)
	assert.NoError(t, result.Manifest.Validate())
}

func TestDeriver_Derive_EmptyDirectory(t *testing.T) {
	result, err := newTestDeriver(t, true, 1).Derive(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Listings)
	assert.Empty(t, result.Manifest.Category)
	assert.NotNil(t, result.Manifest.Data)
}

func TestListingFiles(t *testing.T) {
	dir := t.TempDir()
	writeListing(t, dir, "birds.json", "{}")
	writeListing(t, dir, "Insects.JSON", "{}")
	writeListing(t, dir, "notes.txt", "")
	writeListing(t, dir, ".birds.json.123.tmp", "")
	writeListing(t, dir, ".hidden.json", "{}")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0755))

	paths, err := ListingFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "Insects.JSON"),
		filepath.Join(dir, "birds.json"),
	}, paths)
}
