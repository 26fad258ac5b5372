package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lltshop/shoppost/internal/database"
	"github.com/lltshop/shoppost/internal/models"
)

// CategoryStore defines the category persistence the handlers need
type CategoryStore interface {
	CreateCategory(ctx context.Context, in database.CategoryInput) (*models.Category, error)
	GetCategory(ctx context.Context, categoryID string) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	UpdateCategory(ctx context.Context, categoryID string, in database.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) (int64, error)
}

// CategoriesHandler handles category API endpoints
type CategoriesHandler struct {
	store CategoryStore
}

// NewCategoriesHandler creates a new categories handler
func NewCategoriesHandler(store CategoryStore) *CategoriesHandler {
	return &CategoriesHandler{store: store}
}

// CategoryRequest is the payload for creating or replacing a category
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Image       string `json:"image" validate:"omitempty,url"`
}

func (req *CategoryRequest) toInput() (database.CategoryInput, error) {
	in := database.CategoryInput{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
	}
	if models.Slugify(in.Name) == "" {
		return in, newValidationError("name is required")
	}
	return in, nil
}

// CategoryDeleted is the data of a category delete response
type CategoryDeleted struct {
	DetachedProducts int64 `json:"detachedProducts"`
}

// List handles GET /api/categories
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeServerError(w, "failed to list categories", err)
		return
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	writeData(w, http.StatusOK, categories, "")
}

// Get handles GET /api/categories/{id}
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.store.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeCategoryError(w, "failed to get category", err)
		return
	}
	writeData(w, http.StatusOK, category, "")
}

// GetBySlug handles GET /api/categories/slug/{slug}
func (h *CategoriesHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	category, err := h.store.GetCategoryBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeCategoryError(w, "failed to get category", err)
		return
	}
	writeData(w, http.StatusOK, category, "")
}

// Create handles POST /api/categories
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeRequestError(w, err)
		return
	}

	category, err := h.store.CreateCategory(r.Context(), in)
	if err != nil {
		writeCategoryError(w, "failed to create category", err)
		return
	}
	writeData(w, http.StatusCreated, category, "Category created")
}

// Update handles PUT /api/categories/{id}
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeRequestError(w, err)
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeCategoryError(w, "failed to update category", err)
		return
	}
	writeData(w, http.StatusOK, category, "Category updated")
}

// Delete handles DELETE /api/categories/{id}; products keep existing without the category
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	detached, err := h.store.DeleteCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeCategoryError(w, "failed to delete category", err)
		return
	}
	writeData(w, http.StatusOK, CategoryDeleted{DetachedProducts: detached}, "Category deleted")
}

func writeCategoryError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, database.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, database.ErrDuplicateCategory):
		writeError(w, http.StatusBadRequest, "category name or slug already exists")
	case errors.Is(err, database.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeServerError(w, message, err)
	}
}
