package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Version
		wantErr bool
	}{
		{name: "number", input: `1700000000`, want: "1700000000"},
		{name: "string", input: `"1700000000"`, want: "1700000000"},
		{name: "null", input: `null`, want: ""},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Version
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestDecodeListing(t *testing.T) {
	t.Run("listing with extra fields", func(t *testing.T) {
		body := `{
			"resources": [
				{"public_id": "Photos/birds/sparrow01", "format": "jpg", "version": 1700000000, "type": "upload", "width": 4000},
				{"public_id": "Photos/birds/robin", "format": "png", "version": "1700000001", "type": "upload"}
			],
			"updated_at": "2024-01-01T00:00:00Z"
		}`

		listing, err := DecodeListing([]byte(body))
		require.NoError(t, err)
		require.Len(t, listing.Resources, 2)
		assert.Equal(t, Resource{PublicID: "Photos/birds/sparrow01", Format: "jpg", Version: "1700000000", Type: "upload"}, listing.Resources[0])
		assert.Equal(t, Version("1700000001"), listing.Resources[1].Version)
	})

	t.Run("empty resources", func(t *testing.T) {
		listing, err := DecodeListing([]byte(`{"resources": []}`))
		require.NoError(t, err)
		assert.Empty(t, listing.Resources)
	})

	t.Run("missing resources", func(t *testing.T) {
		_, err := DecodeListing([]byte(`{"error": {"message": "Resource not found"}}`))
		assert.ErrorIs(t, err, ErrMissingResources)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeListing([]byte(`{"resources": [`))
		assert.Error(t, err)
	})
}

func TestSizes(t *testing.T) {
	sizes := Sizes()
	require.Len(t, sizes, 3)

	assert.Equal(t, "large", sizes[0].Name)
	assert.Equal(t, 1024, sizes[0].Width)
	assert.Equal(t, "medium", sizes[1].Name)
	assert.Equal(t, 640, sizes[1].Width)
	assert.Equal(t, "small", sizes[2].Name)
	assert.Equal(t, 320, sizes[2].Width)

	for _, s := range sizes {
		assert.Equal(t, 100, s.Quality)
	}
}

func TestBundle(t *testing.T) {
	var b Bundle
	for _, size := range Sizes() {
		b.Set(size, Variant{Src: size.Name, Width: size.Width, Category: "birds"})
	}

	assert.Equal(t, "large", b.Large.Src)
	assert.Equal(t, "medium", b.Medium.Src)
	assert.Equal(t, "small", b.Small.Src)
	assert.Equal(t, "birds", b.Category())
	assert.Len(t, b.Variants(), 3)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t,
		`{"large":{"src":"large","width":1024,"category":"birds"},"medium":{"src":"medium","width":640,"category":"birds"},"small":{"src":"small","width":320,"category":"birds"}}`,
		string(data))
}

func TestParseFetchPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    FetchPolicy
		wantErr bool
	}{
		{"fail-fast", FetchFailFast, false},
		{"", FetchFailFast, false},
		{"Best-Effort", FetchBestEffort, false},
		{" best-effort ", FetchBestEffort, false},
		{"retry", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFetchPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
