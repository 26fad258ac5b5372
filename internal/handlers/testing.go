package handlers

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lltshop/shoppost/internal/database"
	"github.com/lltshop/shoppost/internal/models"
	"github.com/lltshop/shoppost/internal/orchestrator"
)

// In-memory implementations of the handler dependencies.
// Exported for use in handler tests and router tests.

// =============================================================================
// MockCategoryStore
// =============================================================================

// MockCategoryStore is an in-memory implementation of CategoryStore
type MockCategoryStore struct {
	mu         sync.Mutex
	categories map[string]*models.Category
	order      []string

	// products is notified on delete so references are retracted
	products *MockProductStore
}

// NewMockCategoryStore creates a new mock category store
func NewMockCategoryStore() *MockCategoryStore {
	return &MockCategoryStore{categories: make(map[string]*models.Category)}
}

// CreateCategory stores a category, rejecting duplicate names or slugs
func (m *MockCategoryStore) CreateCategory(ctx context.Context, in database.CategoryInput) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slug := models.Slugify(in.Name)
	if slug == "" {
		return nil, database.ErrInvalidCategory
	}
	for _, c := range m.categories {
		if c.Slug == slug || c.Name == in.Name {
			return nil, database.ErrDuplicateCategory
		}
	}

	now := time.Now().UTC()
	c := &models.Category{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.categories[c.ID] = c
	m.order = append(m.order, c.ID)
	copied := *c
	return &copied, nil
}

// GetCategory returns a category by id
func (m *MockCategoryStore) GetCategory(ctx context.Context, categoryID string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[categoryID]
	if !ok {
		return nil, database.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

// GetCategoryBySlug returns a category by slug
func (m *MockCategoryStore) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.categories {
		if c.Slug == slug {
			copied := *c
			return &copied, nil
		}
	}
	return nil, database.ErrCategoryNotFound
}

// ListCategories returns all categories in creation order
func (m *MockCategoryStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*models.Category, 0, len(m.order))
	for _, id := range m.order {
		copied := *m.categories[id]
		result = append(result, &copied)
	}
	return result, nil
}

// UpdateCategory replaces a category's fields and re-derives its slug
func (m *MockCategoryStore) UpdateCategory(ctx context.Context, categoryID string, in database.CategoryInput) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[categoryID]
	if !ok {
		return nil, database.ErrCategoryNotFound
	}
	slug := models.Slugify(in.Name)
	for id, other := range m.categories {
		if id != categoryID && (other.Slug == slug || other.Name == in.Name) {
			return nil, database.ErrDuplicateCategory
		}
	}

	c.Name = in.Name
	c.Slug = slug
	c.Description = in.Description
	c.Image = in.Image
	c.UpdatedAt = time.Now().UTC()
	copied := *c
	return &copied, nil
}

// DeleteCategory removes a category and detaches it from every product
func (m *MockCategoryStore) DeleteCategory(ctx context.Context, categoryID string) (int64, error) {
	m.mu.Lock()
	if _, ok := m.categories[categoryID]; !ok {
		m.mu.Unlock()
		return 0, database.ErrCategoryNotFound
	}
	delete(m.categories, categoryID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == categoryID })
	products := m.products
	m.mu.Unlock()

	if products == nil {
		return 0, nil
	}
	return products.detachCategory(categoryID), nil
}

func (m *MockCategoryStore) lookup(categoryID string) (*models.Category, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.categories[categoryID]
	if !ok {
		return nil, false
	}
	copied := *c
	return &copied, true
}

// =============================================================================
// MockProductStore
// =============================================================================

// MockProductStore is an in-memory implementation of ProductStore and orchestrator.ProductStore
type MockProductStore struct {
	mu       sync.Mutex
	products map[string]*models.Product
	order    []string

	categories *MockCategoryStore

	// CreateErr, when set, fails every CreateProduct call
	CreateErr error
}

// NewMockProductStore creates a product store. Category references are checked against categories.
func NewMockProductStore(categories *MockCategoryStore) *MockProductStore {
	m := &MockProductStore{
		products:   make(map[string]*models.Product),
		categories: categories,
	}
	if categories != nil {
		categories.products = m
	}
	return m
}

// CreateProduct stores a copy of p with a fresh id and timestamps
func (m *MockProductStore) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if err := m.checkRefs(p.CategoryIDs()); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	stored := *p
	stored.ID = uuid.New().String()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Categories = idRefs(p.CategoryIDs())
	m.products[stored.ID] = &stored
	m.order = append(m.order, stored.ID)

	copied := stored
	return &copied, nil
}

// GetProduct returns a product with its categories populated
func (m *MockProductStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	m.mu.Lock()
	p, ok := m.products[productID]
	var copied models.Product
	if ok {
		copied = *p
	}
	m.mu.Unlock()

	if !ok {
		return nil, database.ErrProductNotFound
	}
	copied.Categories = m.populate(copied.CategoryIDs())
	return &copied, nil
}

// ListProducts filters, newest first, and pages the stored products
func (m *MockProductStore) ListProducts(ctx context.Context, f database.ProductFilter) (*database.ProductPage, error) {
	categoryID := ""
	if f.CategorySlug != "" {
		if m.categories == nil {
			return &database.ProductPage{Products: []*models.Product{}, Page: 1, Limit: f.Limit}, nil
		}
		c, err := m.categories.GetCategoryBySlug(ctx, f.CategorySlug)
		if err != nil {
			return &database.ProductPage{Products: []*models.Product{}, Page: max(f.Page, 1), Limit: f.Limit}, nil
		}
		categoryID = c.ID
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = database.DefaultProductPageSize
	}
	f.Limit = min(f.Limit, database.MaxProductPageSize)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	m.mu.Lock()
	var matched []models.Product
	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.products[m.order[i]]
		if categoryID != "" && !slices.Contains(p.CategoryIDs(), categoryID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.ProductName), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		matched = append(matched, *p)
	}
	m.mu.Unlock()

	page := &database.ProductPage{
		Products:   []*models.Product{},
		Total:      len(matched),
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: (len(matched) + f.Limit - 1) / f.Limit,
	}
	start := (f.Page - 1) * f.Limit
	for i := start; i < len(matched) && i < start+f.Limit; i++ {
		p := matched[i]
		if f.PopulateCategories {
			p.Categories = m.populate(p.CategoryIDs())
		}
		page.Products = append(page.Products, &p)
	}
	return page, nil
}

// UpdateProduct applies the non-nil fields of u
func (m *MockProductStore) UpdateProduct(ctx context.Context, productID string, u database.ProductUpdate) (*models.Product, error) {
	if u.CategoryIDs != nil {
		if err := m.checkRefs(*u.CategoryIDs); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	p, ok := m.products[productID]
	if !ok {
		m.mu.Unlock()
		return nil, database.ErrProductNotFound
	}
	if u.AffiliateURL != nil {
		p.AffiliateURL = *u.AffiliateURL
	}
	if u.ProductName != nil {
		p.ProductName = *u.ProductName
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		price := *u.Price
		p.Price = &price
	} else if u.ClearPrice {
		p.Price = nil
	}
	if u.Images != nil {
		p.Images = slices.Clone(*u.Images)
	}
	if u.FeaturedImage != nil {
		p.FeaturedImage = *u.FeaturedImage
	}
	if u.VideoURL != nil {
		p.VideoURL = *u.VideoURL
	}
	if u.PostingTemplates != nil {
		p.PostingTemplates = slices.Clone(*u.PostingTemplates)
	}
	if u.CategoryIDs != nil {
		p.Categories = idRefs(*u.CategoryIDs)
	}
	p.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()

	return m.GetProduct(ctx, productID)
}

// DeleteProduct removes a product
func (m *MockProductStore) DeleteProduct(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[productID]; !ok {
		return database.ErrProductNotFound
	}
	delete(m.products, productID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == productID })
	return nil
}

// AddCategory links a category; adding an existing link is a no-op
func (m *MockProductStore) AddCategory(ctx context.Context, productID, categoryID string) (*models.Product, error) {
	if m.categories != nil {
		if _, ok := m.categories.lookup(categoryID); !ok {
			return nil, database.ErrCategoryNotFound
		}
	}

	m.mu.Lock()
	p, ok := m.products[productID]
	if !ok {
		m.mu.Unlock()
		return nil, database.ErrProductNotFound
	}
	if !slices.Contains(p.CategoryIDs(), categoryID) {
		p.Categories = append(p.Categories, models.CategoryID(categoryID))
		p.UpdatedAt = time.Now().UTC()
	}
	m.mu.Unlock()

	return m.GetProduct(ctx, productID)
}

// RemoveCategory unlinks a category
func (m *MockProductStore) RemoveCategory(ctx context.Context, productID, categoryID string) (*models.Product, error) {
	m.mu.Lock()
	p, ok := m.products[productID]
	if !ok {
		m.mu.Unlock()
		return nil, database.ErrProductNotFound
	}
	p.Categories = idRefs(slices.DeleteFunc(p.CategoryIDs(), func(id string) bool { return id == categoryID }))
	p.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()

	return m.GetProduct(ctx, productID)
}

// MarkPosted stamps the last-posted time when the product is unchanged since it was read
func (m *MockProductStore) MarkPosted(ctx context.Context, productID string, postedAt, expectedUpdatedAt time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return time.Time{}, database.ErrProductNotFound
	}
	if !p.UpdatedAt.Equal(expectedUpdatedAt) {
		return time.Time{}, database.ErrConcurrentUpdate
	}
	p.LastPostedAt = &postedAt
	p.UpdatedAt = time.Now().UTC()
	return p.UpdatedAt, nil
}

func (m *MockProductStore) checkRefs(ids []string) error {
	if m.categories == nil {
		return nil
	}
	for _, id := range ids {
		if _, ok := m.categories.lookup(id); !ok {
			return database.ErrUnknownCategoryRef
		}
	}
	return nil
}

func (m *MockProductStore) populate(ids []string) []models.CategoryRef {
	refs := make([]models.CategoryRef, 0, len(ids))
	for _, id := range ids {
		if m.categories != nil {
			if c, ok := m.categories.lookup(id); ok {
				refs = append(refs, models.PopulatedCategory(*c))
				continue
			}
		}
		refs = append(refs, models.CategoryID(id))
	}
	return refs
}

func (m *MockProductStore) detachCategory(categoryID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var detached int64
	for _, p := range m.products {
		ids := p.CategoryIDs()
		if !slices.Contains(ids, categoryID) {
			continue
		}
		p.Categories = idRefs(slices.DeleteFunc(ids, func(id string) bool { return id == categoryID }))
		detached++
	}
	return detached
}

func idRefs(ids []string) []models.CategoryRef {
	refs := make([]models.CategoryRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, models.CategoryID(id))
	}
	return refs
}

// =============================================================================
// MockHistoryStore
// =============================================================================

// MockHistoryStore is an in-memory append-only post history
type MockHistoryStore struct {
	mu      sync.Mutex
	entries []models.PostHistory
}

// NewMockHistoryStore creates an empty history
func NewMockHistoryStore() *MockHistoryStore {
	return &MockHistoryStore{}
}

// Append records entries in order
func (m *MockHistoryStore) Append(ctx context.Context, entries []models.PostHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if e.ProductID == "" || e.PostID == "" {
			return database.ErrInvalidHistoryEntry
		}
	}
	for _, e := range entries {
		e.ID = uuid.New().String()
		m.entries = append(m.entries, e)
	}
	return nil
}

// ListByProduct returns a product's history, oldest first
func (m *MockHistoryStore) ListByProduct(ctx context.Context, productID string) ([]models.PostHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []models.PostHistory{}
	for _, e := range m.entries {
		if e.ProductID == productID {
			result = append(result, e)
		}
	}
	return result, nil
}

// =============================================================================
// MockPipeline
// =============================================================================

// MockPipeline is a PublishPipeline that records calls and returns canned results
type MockPipeline struct {
	mu sync.Mutex

	Products *MockProductStore
	Err      error
	Calls    []string
}

// Publish records the product id and returns a single image post result
func (m *MockPipeline) Publish(ctx context.Context, p *models.Product) (*orchestrator.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, p.ID)
	err := m.Err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	caption := p.ProductName + "\n\n" + p.AffiliateURL
	return &orchestrator.Result{
		Product:        p,
		Posts:          []orchestrator.Post{{PostID: "page_" + p.ID, Caption: caption}},
		Caption:        caption,
		ImagesUploaded: min(len(p.Images), orchestrator.MaxImagesPerPost),
		State:          orchestrator.StateDone,
	}, nil
}

// Republish loads the product from Products and publishes it
func (m *MockPipeline) Republish(ctx context.Context, productID string) (*orchestrator.Result, error) {
	if m.Products == nil {
		return nil, errors.New("mock pipeline has no product store")
	}
	p, err := m.Products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return m.Publish(ctx, p)
}
