package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lltshop/shoppost/internal/database"
	"github.com/lltshop/shoppost/internal/models"
	"github.com/lltshop/shoppost/internal/orchestrator"
	"github.com/lltshop/shoppost/internal/services"
)

// =============================================================================
// Products Handler
// Catalog CRUD plus the create-and-publish entry point
// =============================================================================

// ProductStore defines the product persistence the handlers need
type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	ListProducts(ctx context.Context, f database.ProductFilter) (*database.ProductPage, error)
	UpdateProduct(ctx context.Context, productID string, u database.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	AddCategory(ctx context.Context, productID, categoryID string) (*models.Product, error)
	RemoveCategory(ctx context.Context, productID, categoryID string) (*models.Product, error)
}

// HistoryLister reads the post history of a product
type HistoryLister interface {
	ListByProduct(ctx context.Context, productID string) ([]models.PostHistory, error)
}

// PublishPipeline runs the product-publish workflow
type PublishPipeline interface {
	Publish(ctx context.Context, p *models.Product) (*orchestrator.Result, error)
	Republish(ctx context.Context, productID string) (*orchestrator.Result, error)
}

// ProductsHandler handles products API endpoints
type ProductsHandler struct {
	store    ProductStore
	history  HistoryLister
	pipeline PublishPipeline
}

// NewProductsHandler creates a new products handler
func NewProductsHandler(store ProductStore, history HistoryLister, pipeline PublishPipeline) *ProductsHandler {
	return &ProductsHandler{
		store:    store,
		history:  history,
		pipeline: pipeline,
	}
}

// =============================================================================
// Request Types
// =============================================================================

// ProductRequest is the inbound product payload for create
type ProductRequest struct {
	AffiliateURL     string                   `json:"affiliateUrl" validate:"required,url"`
	ProductName      string                   `json:"productName" validate:"required,max=500"`
	Description      string                   `json:"description" validate:"max=20000"`
	Price            *int64                   `json:"price" validate:"omitnil,min=0"`
	Images           []string                 `json:"images" validate:"max=50,dive,url"`
	FeaturedImage    string                   `json:"featuredImage" validate:"omitempty,url"`
	VideoURL         string                   `json:"videoUrl" validate:"omitempty,url"`
	PostingTemplates []models.PostingTemplate `json:"postingTemplates" validate:"dive"`
	Categories       []string                 `json:"categories" validate:"dive,uuid"`
}

// toModel validates the media rule and builds the product to store
func (req *ProductRequest) toModel() (*models.Product, error) {
	p := &models.Product{
		AffiliateURL:     strings.TrimSpace(req.AffiliateURL),
		ProductName:      strings.TrimSpace(req.ProductName),
		Description:      strings.TrimSpace(req.Description),
		Price:            req.Price,
		Images:           trimAll(req.Images),
		FeaturedImage:    strings.TrimSpace(req.FeaturedImage),
		VideoURL:         strings.TrimSpace(req.VideoURL),
		PostingTemplates: req.PostingTemplates,
	}
	for _, id := range req.Categories {
		p.Categories = append(p.Categories, models.CategoryID(id))
	}
	if p.PostingTemplates == nil {
		p.PostingTemplates = []models.PostingTemplate{}
	}
	if len(p.Images) == 0 {
		return nil, newValidationError("at least one image is required")
	}
	return p, nil
}

// ProductPatch is the inbound payload for a partial update; absent fields are left unchanged
type ProductPatch struct {
	AffiliateURL     *string                   `json:"affiliateUrl" validate:"omitnil,url"`
	ProductName      *string                   `json:"productName" validate:"omitnil,min=1,max=500"`
	Description      *string                   `json:"description" validate:"omitnil,max=20000"`
	Price            *int64                    `json:"price" validate:"omitnil,min=0"`
	ClearPrice       bool                      `json:"clearPrice"`
	Images           *[]string                 `json:"images" validate:"omitnil,max=50,dive,url"`
	FeaturedImage    *string                   `json:"featuredImage" validate:"omitnil,omitempty,url"`
	VideoURL         *string                   `json:"videoUrl" validate:"omitnil,omitempty,url"`
	PostingTemplates *[]models.PostingTemplate `json:"postingTemplates" validate:"omitnil,dive"`
	Categories       *[]string                 `json:"categories" validate:"omitnil,dive,uuid"`
}

func (req *ProductPatch) toUpdate() database.ProductUpdate {
	u := database.ProductUpdate{
		AffiliateURL:     trimPtr(req.AffiliateURL),
		ProductName:      trimPtr(req.ProductName),
		Description:      trimPtr(req.Description),
		Price:            req.Price,
		ClearPrice:       req.ClearPrice && req.Price == nil,
		FeaturedImage:    trimPtr(req.FeaturedImage),
		VideoURL:         trimPtr(req.VideoURL),
		PostingTemplates: req.PostingTemplates,
		CategoryIDs:      req.Categories,
	}
	if req.Images != nil {
		images := trimAll(*req.Images)
		u.Images = &images
	}
	return u
}

// CategoryAction is the payload of PUT /api/products/{id}/categories
type CategoryAction struct {
	CategoryID string `json:"categoryId" validate:"required,uuid"`
	Action     string `json:"action" validate:"required,oneof=add remove"`
}

// ProductList is the data of a product listing response
type ProductList struct {
	Products   []*models.Product `json:"products"`
	Pagination Pagination        `json:"pagination"`
}

// Pagination describes the page returned by a listing
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// =============================================================================
// Handlers
// =============================================================================

// Create handles POST /api/products: store the product, then publish it synchronously
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	product, err := req.toModel()
	if err != nil {
		writeRequestError(w, err)
		return
	}

	created, err := h.store.CreateProduct(r.Context(), product)
	if err != nil {
		h.writeStoreError(w, "failed to create product", err)
		return
	}

	result, err := h.pipeline.Publish(r.Context(), created)
	if err != nil {
		h.writePublishError(w, created.ID, err)
		return
	}

	writeData(w, http.StatusCreated, result, "Product created and published")
}

// List handles GET /api/products?category=slug&search=q&page=1&limit=8&populate=categories
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := queryInt(q.Get("limit"), database.DefaultProductPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	result, err := h.store.ListProducts(r.Context(), database.ProductFilter{
		CategorySlug:       q.Get("category"),
		Search:             q.Get("search"),
		Page:               page,
		Limit:              limit,
		PopulateCategories: q.Get("populate") == "categories",
	})
	if err != nil {
		writeServerError(w, "failed to list products", err)
		return
	}

	writeData(w, http.StatusOK, ProductList{
		Products: result.Products,
		Pagination: Pagination{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	}, "")
}

// Get handles GET /api/products/{id}
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.store.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, "failed to get product", err)
		return
	}
	history, err := h.history.ListByProduct(r.Context(), product.ID)
	if err != nil {
		writeServerError(w, "failed to load post history", err)
		return
	}
	product.History = history
	writeData(w, http.StatusOK, product, "")
}

// Update handles PUT /api/products/{id}
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ProductPatch
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), r.PathValue("id"), req.toUpdate())
	if err != nil {
		h.writeStoreError(w, "failed to update product", err)
		return
	}
	writeData(w, http.StatusOK, product, "Product updated")
}

// Delete handles DELETE /api/products/{id}
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, "failed to delete product", err)
		return
	}
	writeData(w, http.StatusOK, nil, "Product deleted")
}

// Republish handles POST /api/products/{id}/republish
func (h *ProductsHandler) Republish(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := h.pipeline.Republish(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writePublishError(w, id, err)
		return
	}
	writeData(w, http.StatusOK, result, "Product published")
}

// History handles GET /api/products/{id}/history
func (h *ProductsHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.ListByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServerError(w, "failed to list post history", err)
		return
	}
	writeData(w, http.StatusOK, entries, "")
}

// UpdateCategories handles PUT /api/products/{id}/categories
func (h *ProductsHandler) UpdateCategories(w http.ResponseWriter, r *http.Request) {
	var req CategoryAction
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	var (
		product *models.Product
		err     error
	)
	if req.Action == "add" {
		product, err = h.store.AddCategory(r.Context(), r.PathValue("id"), req.CategoryID)
	} else {
		product, err = h.store.RemoveCategory(r.Context(), r.PathValue("id"), req.CategoryID)
	}
	if err != nil {
		h.writeStoreError(w, "failed to update product categories", err)
		return
	}
	writeData(w, http.StatusOK, product, "Product categories updated")
}

// =============================================================================
// Helpers
// =============================================================================

func (h *ProductsHandler) writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, database.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, database.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, database.ErrUnknownCategoryRef):
		writeError(w, http.StatusBadRequest, "product references an unknown category")
	case errors.Is(err, database.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeServerError(w, message, err)
	}
}

// writePublishError reports a publish failure. The product stays stored and can be republished.
func (h *ProductsHandler) writePublishError(w http.ResponseWriter, productID string, err error) {
	if errors.Is(err, orchestrator.ErrNotPublishable) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeServerError(w, fmt.Sprintf("product %s saved but not published: %s", productID, publishFailureReason(err)), err)
}

// publishFailureReason names the pipeline step that failed without leaking internals
func publishFailureReason(err error) string {
	var pubErr *services.PublishError
	var persistErr *orchestrator.PersistenceError
	switch {
	case errors.Is(err, orchestrator.ErrNoMediaUploaded):
		return "no images could be uploaded"
	case errors.As(err, &pubErr):
		return fmt.Sprintf("%s post failed: %v", pubErr.PostType, pubErr.Cause)
	case errors.As(err, &persistErr):
		return fmt.Sprintf("post created but recording it failed during %s", persistErr.Op)
	case errors.Is(err, context.DeadlineExceeded):
		return "publishing timed out"
	default:
		return "publish failed"
	}
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid positive integer %q", raw)
	}
	return n, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
