package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lltshop/shoppost/internal/database"
	"github.com/lltshop/shoppost/internal/models"
)

func createCategory(t *testing.T, h *CategoriesHandler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Create(rr, jsonRequest(t, http.MethodPost, "/api/categories", body))
	return rr
}

func TestCreateCategory_DerivesSlug(t *testing.T) {
	h := NewCategoriesHandler(NewMockCategoryStore())

	rr := createCategory(t, h, map[string]string{"name": "  Đồ gia dụng  ", "description": "Bếp"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	_, data, _ := envelope(t, rr)
	var c models.Category
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("Failed to decode category: %v", err)
	}
	if c.Name != "Đồ gia dụng" || c.Slug != "đồ-gia-dụng" {
		t.Errorf("Expected trimmed name and derived slug, got %q / %q", c.Name, c.Slug)
	}
}

func TestCreateCategory_Rejections(t *testing.T) {
	h := NewCategoriesHandler(NewMockCategoryStore())
	if rr := createCategory(t, h, map[string]string{"name": "Fashion"}); rr.Code != http.StatusCreated {
		t.Fatalf("Expected first create to succeed, got %d", rr.Code)
	}

	testCases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"duplicate slug", map[string]string{"name": "fashion"}, http.StatusBadRequest},
		{"missing name", map[string]string{"description": "x"}, http.StatusBadRequest},
		{"blank name", map[string]string{"name": "   "}, http.StatusBadRequest},
		{"bad image url", map[string]string{"name": "Shoes", "image": "not-a-url"}, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if rr := createCategory(t, h, tc.body); rr.Code != tc.want {
				t.Errorf("Expected status %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestGetCategory_ByIDAndSlug(t *testing.T) {
	store := NewMockCategoryStore()
	h := NewCategoriesHandler(store)
	c, _ := store.CreateCategory(context.Background(), database.CategoryInput{Name: "Thời trang"})

	req := httptest.NewRequest(http.MethodGet, "/api/categories/"+c.ID, nil)
	req.SetPathValue("id", c.ID)
	rr := httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200 by id, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/categories/slug/x", nil)
	req.SetPathValue("slug", c.Slug)
	rr = httptest.NewRecorder()
	h.GetBySlug(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200 by slug, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/categories/slug/shoes", nil)
	req.SetPathValue("slug", "shoes")
	rr = httptest.NewRecorder()
	h.GetBySlug(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown slug, got %d", rr.Code)
	}
}

func TestListCategories_EmptyIsArray(t *testing.T) {
	h := NewCategoriesHandler(NewMockCategoryStore())

	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	_, data, _ := envelope(t, rr)
	if string(data) != "[]" {
		t.Errorf("Expected empty JSON array, got %s", data)
	}
}

func TestUpdateCategory(t *testing.T) {
	store := NewMockCategoryStore()
	h := NewCategoriesHandler(store)
	ctx := context.Background()
	a, _ := store.CreateCategory(ctx, database.CategoryInput{Name: "Shoes"})
	store.CreateCategory(ctx, database.CategoryInput{Name: "Bags"})

	update := func(id, name string) *httptest.ResponseRecorder {
		req := jsonRequest(t, http.MethodPut, "/api/categories/"+id, map[string]string{"name": name})
		req.SetPathValue("id", id)
		rr := httptest.NewRecorder()
		h.Update(rr, req)
		return rr
	}

	if rr := update(a.ID, "Running Shoes"); rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got, _ := store.GetCategory(ctx, a.ID)
	if got.Slug != "running-shoes" {
		t.Errorf("Expected slug to follow the new name, got %q", got.Slug)
	}

	if rr := update(a.ID, "bags"); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for slug collision, got %d", rr.Code)
	}
	if rr := update("missing", "Hats"); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestDeleteCategory_DetachesProducts(t *testing.T) {
	categories := NewMockCategoryStore()
	products := NewMockProductStore(categories)
	h := NewCategoriesHandler(categories)
	ctx := context.Background()

	c, _ := categories.CreateCategory(ctx, database.CategoryInput{Name: "Shoes"})
	keep, _ := categories.CreateCategory(ctx, database.CategoryInput{Name: "Sale"})
	for i := 0; i < 3; i++ {
		ids := []string{c.ID}
		if i == 0 {
			ids = append(ids, keep.ID)
		}
		_, err := products.CreateProduct(ctx, &models.Product{
			ProductName: "Giày",
			Images:      []string{"https://cdn.example.com/g.jpg"},
			Categories:  idRefs(ids),
		})
		if err != nil {
			t.Fatalf("CreateProduct: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/categories/"+c.ID, nil)
	req.SetPathValue("id", c.ID)
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	_, data, _ := envelope(t, rr)
	var deleted CategoryDeleted
	json.Unmarshal(data, &deleted)
	if deleted.DetachedProducts != 3 {
		t.Errorf("Expected 3 detached products, got %d", deleted.DetachedProducts)
	}

	page, _ := products.ListProducts(ctx, database.ProductFilter{})
	if page.Total != 3 {
		t.Errorf("Expected products to survive category delete, got %d", page.Total)
	}
	for _, p := range page.Products {
		for _, id := range p.CategoryIDs() {
			if id == c.ID {
				t.Errorf("Expected category %s to be detached from %s", c.ID, p.ID)
			}
		}
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on second delete, got %d", rr.Code)
	}
}
