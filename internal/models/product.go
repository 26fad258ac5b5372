// Package models holds the catalog and publish-history types shared across the service.
package models

import (
	"strings"
	"time"
)

// Posting template names recognised as per-post-type caption overrides
const (
	TemplateImagePost = "image"
	TemplateVideoPost = "video"
)

// Image layouts accepted on a posting template (must match the admin form options)
const (
	LayoutSingle   = "single"
	LayoutCarousel = "carousel"
	LayoutCollage  = "collage"
)

// PostingTemplate is a caption override attached to a product
type PostingTemplate struct {
	Name        string `json:"name" validate:"required"`
	Content     string `json:"content" validate:"required"`
	ImageLayout string `json:"imageLayout" validate:"required,oneof=single carousel collage"`
}

// Product is a catalog entry registered from a marketplace listing
type Product struct {
	ID               string            `json:"id"`
	AffiliateURL     string            `json:"affiliateUrl"`
	ProductName      string            `json:"productName"`
	Description      string            `json:"description,omitempty"`
	Price            *int64            `json:"price,omitempty"` // VND, no minor unit
	Images           []string          `json:"images"`
	FeaturedImage    string            `json:"featuredImage,omitempty"`
	VideoURL         string            `json:"videoUrl,omitempty"`
	Categories       []CategoryRef     `json:"categories"`
	PostingTemplates []PostingTemplate `json:"postingTemplates"`
	History          []PostHistory     `json:"postedHistory,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	LastPostedAt     *time.Time        `json:"lastPosted,omitempty"`
}

// HasVideo reports whether a non-blank video URL is set
func (p *Product) HasVideo() bool {
	return strings.TrimSpace(p.VideoURL) != ""
}

// HasMedia reports whether the product carries any image or video at all
func (p *Product) HasMedia() bool {
	return len(p.Images) > 0 || p.HasVideo()
}

// TemplateFor returns the caption override for a post type, if one is set.
// Matching on the template name is case-insensitive.
func (p *Product) TemplateFor(postType string) (string, bool) {
	for _, t := range p.PostingTemplates {
		if strings.EqualFold(strings.TrimSpace(t.Name), postType) && strings.TrimSpace(t.Content) != "" {
			return t.Content, true
		}
	}
	return "", false
}

// CategoryIDs returns the ids of all category references, in order
func (p *Product) CategoryIDs() []string {
	ids := make([]string, 0, len(p.Categories))
	for _, ref := range p.Categories {
		ids = append(ids, ref.ID())
	}
	return ids
}
