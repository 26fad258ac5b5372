package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lltshop/shoppost/internal/models"
	"github.com/lltshop/shoppost/internal/services"
)

// DescriptionRewriter reformats a marketplace description
type DescriptionRewriter interface {
	Rewrite(ctx context.Context, description string) (string, error)
}

// CaptionsHandler serves caption previews and description rewrites
type CaptionsHandler struct {
	captions services.CaptionGenerator
	rewriter DescriptionRewriter
}

// NewCaptionsHandler creates a captions handler. rewriter may be nil when no text backend is configured.
func NewCaptionsHandler(captions services.CaptionGenerator, rewriter DescriptionRewriter) *CaptionsHandler {
	return &CaptionsHandler{captions: captions, rewriter: rewriter}
}

// PreviewRequest is the product subset a caption is built from
type PreviewRequest struct {
	AffiliateURL string `json:"affiliateUrl" validate:"omitempty,url"`
	ProductName  string `json:"productName" validate:"required,max=500"`
	Description  string `json:"description" validate:"max=20000"`
	Price        *int64 `json:"price" validate:"omitnil,min=0"`
}

// CaptionPreview is the data of a caption preview response
type CaptionPreview struct {
	Caption string `json:"caption"`
}

// DescriptionRequest is the payload of a description rewrite
type DescriptionRequest struct {
	Description string `json:"description" validate:"required,max=20000"`
}

// RewrittenDescription is the data of a description rewrite response
type RewrittenDescription struct {
	Description string `json:"description"`
}

// Preview handles POST /api/captions/preview. Nothing is stored or published.
func (h *CaptionsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	p := &models.Product{
		AffiliateURL: strings.TrimSpace(req.AffiliateURL),
		ProductName:  strings.TrimSpace(req.ProductName),
		Description:  strings.TrimSpace(req.Description),
		Price:        req.Price,
	}
	caption, err := h.captions.Generate(r.Context(), p)
	if err != nil || strings.TrimSpace(caption) == "" {
		caption = services.FallbackCaption(p)
	}
	writeData(w, http.StatusOK, CaptionPreview{Caption: caption}, "")
}

// RewriteDescription handles POST /api/ai/description
func (h *CaptionsHandler) RewriteDescription(w http.ResponseWriter, r *http.Request) {
	if h.rewriter == nil {
		writeError(w, http.StatusServiceUnavailable, "no text generation backend configured")
		return
	}

	var req DescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	text, err := h.rewriter.Rewrite(r.Context(), req.Description)
	switch {
	case errors.Is(err, services.ErrDescriptionTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotVietnamese):
		writeError(w, http.StatusBadGateway, err.Error())
	case err != nil:
		writeServerError(w, "failed to rewrite description", err)
	default:
		writeData(w, http.StatusOK, RewrittenDescription{Description: text}, "")
	}
}
