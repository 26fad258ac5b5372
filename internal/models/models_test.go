package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single word", "Fashion", "fashion"},
		{"spaces", "Thời trang nam", "thời-trang-nam"},
		{"collapses runs", "Home   and\tKitchen", "home-and-kitchen"},
		{"trims edges", "  Gadgets  ", "gadgets"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestProduct_HasMedia(t *testing.T) {
	assert.False(t, (&Product{}).HasMedia())
	assert.False(t, (&Product{VideoURL: "   "}).HasMedia())
	assert.True(t, (&Product{Images: []string{"a.jpg"}}).HasMedia())
	assert.True(t, (&Product{VideoURL: "https://cdn.example.com/v.mp4"}).HasMedia())
}

func TestProduct_TemplateFor(t *testing.T) {
	p := &Product{PostingTemplates: []PostingTemplate{
		{Name: "Image", Content: "Ảnh đẹp", ImageLayout: LayoutCarousel},
		{Name: "video", Content: "   ", ImageLayout: LayoutSingle},
	}}

	got, ok := p.TemplateFor(TemplateImagePost)
	assert.True(t, ok)
	assert.Equal(t, "Ảnh đẹp", got)

	_, ok = p.TemplateFor(TemplateVideoPost)
	assert.False(t, ok, "blank template content should not count as an override")
}

func TestCategoryRef_JSON(t *testing.T) {
	p := Product{
		ID: "p1",
		Categories: []CategoryRef{
			CategoryID("c1"),
			PopulatedCategory(Category{ID: "c2", Name: "Shoes", Slug: "shoes"}),
		},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw struct {
		Categories []json.RawMessage `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Categories, 2)
	assert.JSONEq(t, `"c1"`, string(raw.Categories[0]))
	assert.Contains(t, string(raw.Categories[1]), `"slug":"shoes"`)

	var decoded struct {
		Categories []CategoryRef `json:"categories"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"categories":["a","b"]}`), &decoded))
	assert.Equal(t, CategoryRefID, decoded.Categories[0].Kind())
	assert.Equal(t, "b", decoded.Categories[1].ID())

	err = json.Unmarshal([]byte(`{"categories":[{"id":"x"}]}`), &decoded)
	assert.Error(t, err)
}

func TestCategoryRef_Category(t *testing.T) {
	_, ok := CategoryID("c1").Category()
	assert.False(t, ok)

	c, ok := PopulatedCategory(Category{ID: "c2", Name: "Bags"}).Category()
	require.True(t, ok)
	assert.Equal(t, "Bags", c.Name)
}
