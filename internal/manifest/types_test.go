package manifest

import (
	"encoding/json"
	"testing"

	"github.com/avjpl/gallery-assets-json-generation/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bundle(category, name string) domain.Bundle {
	var b domain.Bundle
	for _, size := range domain.Sizes() {
		b.Set(size, domain.Variant{
			Src:      "https://res.cloudinary.com/avjpl/image/upload/w_" + size.Name + "/" + name + ".jpg",
			Width:    size.Width,
			Category: category,
		})
	}
	return b
}

func TestNew(t *testing.T) {
	m := New()
	assert.NotNil(t, m.Category)
	assert.NotNil(t, m.Data)
	assert.Equal(t, 0, m.Len())

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":[],"data":[]}`, string(data))
}

func TestManifest_Add(t *testing.T) {
	m := New()
	m.Add(bundle("birds", "sparrow"))
	m.Add(bundle("insects", "beetle"))
	m.Add(bundle("birds", "robin"))

	assert.Equal(t, []string{"birds", "insects"}, m.Category)
	require.Equal(t, 3, m.Len())
	assert.Contains(t, m.Data[0].Large.Src, "sparrow")
	assert.Contains(t, m.Data[1].Large.Src, "beetle")
	assert.Contains(t, m.Data[2].Large.Src, "robin")
	assert.NoError(t, m.Validate())
}

func TestManifest_Merge(t *testing.T) {
	first := New()
	first.Add(bundle("birds", "sparrow"))
	first.Add(bundle("reptiles", "gecko"))

	second := New()
	second.Add(bundle("insects", "beetle"))
	second.Add(bundle("birds", "robin"))

	m := New()
	m.Merge(first)
	m.Merge(second)
	m.Merge(nil)

	assert.Equal(t, []string{"birds", "reptiles", "insects"}, m.Category)
	require.Equal(t, 4, m.Len())
	assert.Contains(t, m.Data[3].Large.Src, "robin")

	// merging equals adding in order
	direct := New()
	for _, b := range append(append([]domain.Bundle{}, first.Data...), second.Data...) {
		direct.Add(b)
	}
	assert.Equal(t, direct, m)
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Manifest
		wantErr error
	}{
		{
			name:  "empty manifest",
			build: New,
		},
		{
			name: "duplicate category",
			build: func() *Manifest {
				m := New()
				m.Category = []string{"birds", "birds"}
				return m
			},
			wantErr: ErrDuplicateCategory,
		},
		{
			name: "unlisted category",
			build: func() *Manifest {
				m := New()
				m.Data = append(m.Data, bundle("birds", "sparrow"))
				return m
			},
			wantErr: ErrUnlistedCategory,
		},
		{
			name: "wrong width",
			build: func() *Manifest {
				m := New()
				b := bundle("birds", "sparrow")
				b.Medium.Width = 800
				m.Add(b)
				return m
			},
			wantErr: ErrInconsistentBundle,
		},
		{
			name: "mixed categories in one bundle",
			build: func() *Manifest {
				m := New()
				b := bundle("birds", "sparrow")
				b.Small.Category = "insects"
				m.Add(b)
				return m
			},
			wantErr: ErrInconsistentBundle,
		},
		{
			name: "missing src",
			build: func() *Manifest {
				m := New()
				b := bundle("birds", "sparrow")
				b.Large.Src = ""
				m.Add(b)
				return m
			},
			wantErr: ErrInconsistentBundle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
