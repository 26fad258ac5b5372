package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lltshop/shoppost/internal/models"
)

// Product-related errors
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidProduct     = errors.New("invalid product input")
	ErrConcurrentUpdate   = errors.New("product was modified concurrently")
	ErrUnknownCategoryRef = errors.New("product references an unknown category")
)

// List paging bounds
const (
	DefaultProductPageSize = 8
	MaxProductPageSize     = 100
)

const productColumns = `p.id, p.affiliate_url, p.product_name, p.description, p.price, p.images,
		p.featured_image, p.video_url, p.posting_templates, p.created_at, p.updated_at, p.last_posted_at`

// ProductFilter narrows a product listing
type ProductFilter struct {
	CategorySlug       string
	Search             string
	Page               int
	Limit              int
	PopulateCategories bool
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products   []*models.Product
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// ProductUpdate carries the fields of a partial product update; nil means unchanged
type ProductUpdate struct {
	AffiliateURL     *string
	ProductName      *string
	Description      *string
	Price            *int64
	ClearPrice       bool
	Images           *[]string
	FeaturedImage    *string
	VideoURL         *string
	PostingTemplates *[]models.PostingTemplate
	CategoryIDs      *[]string
}

// ProductStore persists products and their category links in PostgreSQL
type ProductStore struct {
	db DBTX
}

// NewProductStore creates a new database-backed product store
func NewProductStore(pool *Pool) *ProductStore {
	return &ProductStore{db: pool}
}

// NewProductStoreWithDB creates a product store with a custom DBTX implementation.
// This is primarily used for testing with pgxmock.
func NewProductStoreWithDB(db DBTX) *ProductStore {
	return &ProductStore{db: db}
}

// CreateProduct inserts a product and links its categories in one transaction.
// Category references on the returned product are id-only.
func (s *ProductStore) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p == nil || strings.TrimSpace(p.ProductName) == "" {
		return nil, ErrInvalidProduct
	}
	categoryIDs, err := parseIDs(p.CategoryIDs())
	if err != nil {
		return nil, ErrUnknownCategoryRef
	}

	templatesJSON, err := marshalTemplates(p.PostingTemplates)
	if err != nil {
		return nil, err
	}

	var created *models.Product
	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO products AS p (affiliate_url, product_name, description, price, images, featured_image, video_url, posting_templates)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+productColumns,
			p.AffiliateURL, p.ProductName, p.Description, p.Price, nonNilStrings(p.Images), p.FeaturedImage, p.VideoURL, templatesJSON,
		)
		product, err := scanProduct(row)
		if err != nil {
			return err
		}

		if len(categoryIDs) > 0 {
			if err := linkCategories(ctx, tx, product.ID, categoryIDs); err != nil {
				return err
			}
		}

		for _, id := range categoryIDs {
			product.Categories = append(product.Categories, models.CategoryID(id))
		}
		created = product
		return nil
	})
	if err != nil {
		return nil, translateProductErr(err)
	}

	return created, nil
}

// GetProduct retrieves a product with its categories populated
func (s *ProductStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, ErrProductNotFound
	}

	product, err := scanProduct(s.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.id = $1`,
		productID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	refs, err := s.loadCategories(ctx, []string{product.ID}, true)
	if err != nil {
		return nil, err
	}
	product.Categories = refs[product.ID]

	return product, nil
}

// ListProducts returns one page of products, newest first
func (s *ProductStore) ListProducts(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultProductPageSize
	}
	if f.Limit > MaxProductPageSize {
		f.Limit = MaxProductPageSize
	}

	var where []string
	var args []any
	if f.CategorySlug != "" {
		args = append(args, f.CategorySlug)
		where = append(where, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM product_categories pc JOIN categories c ON c.id = pc.category_id
			 WHERE pc.product_id = p.id AND c.slug = $%d)`, len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where = append(where, fmt.Sprintf(`(p.product_name ILIKE $%d OR p.description ILIKE $%d)`, len(args), len(args)))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	page := &ProductPage{Page: f.Page, Limit: f.Limit, Products: []*models.Product{}}
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+whereSQL, args...).Scan(&page.Total); err != nil {
		return nil, err
	}
	page.TotalPages = (page.Total + f.Limit - 1) / f.Limit
	if page.Total == 0 {
		return page, nil
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.db.Query(ctx,
		`SELECT `+productColumns+` FROM products p`+whereSQL+
			fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		page.Products = append(page.Products, product)
		ids = append(ids, product.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		refs, err := s.loadCategories(ctx, ids, f.PopulateCategories)
		if err != nil {
			return nil, err
		}
		for _, product := range page.Products {
			product.Categories = refs[product.ID]
		}
	}

	return page, nil
}

// UpdateProduct applies a partial update and returns the product with categories populated
func (s *ProductStore) UpdateProduct(ctx context.Context, productID string, u ProductUpdate) (*models.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, ErrProductNotFound
	}
	if u.ProductName != nil && strings.TrimSpace(*u.ProductName) == "" {
		return nil, ErrInvalidProduct
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if u.AffiliateURL != nil {
		set("affiliate_url", *u.AffiliateURL)
	}
	if u.ProductName != nil {
		set("product_name", *u.ProductName)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.ClearPrice {
		set("price", nil)
	} else if u.Price != nil {
		set("price", *u.Price)
	}
	if u.Images != nil {
		set("images", nonNilStrings(*u.Images))
	}
	if u.FeaturedImage != nil {
		set("featured_image", *u.FeaturedImage)
	}
	if u.VideoURL != nil {
		set("video_url", *u.VideoURL)
	}
	if u.PostingTemplates != nil {
		templatesJSON, err := marshalTemplates(*u.PostingTemplates)
		if err != nil {
			return nil, err
		}
		set("posting_templates", templatesJSON)
	}

	var categoryIDs []string
	if u.CategoryIDs != nil {
		ids, err := parseIDs(*u.CategoryIDs)
		if err != nil {
			return nil, ErrUnknownCategoryRef
		}
		categoryIDs = ids
	}

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		sets = append(sets, "updated_at = NOW()")
		args = append(args, productID)
		tag, err := tx.Exec(ctx,
			fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
			args...,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrProductNotFound
		}

		if u.CategoryIDs != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
				return err
			}
			if len(categoryIDs) > 0 {
				return linkCategories(ctx, tx, productID, categoryIDs)
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateProductErr(err)
	}

	return s.GetProduct(ctx, productID)
}

// DeleteProduct removes a product; its category links go with it
func (s *ProductStore) DeleteProduct(ctx context.Context, productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return ErrProductNotFound
	}

	return withTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}

// AddCategory links a category to a product. Linking twice is a no-op.
func (s *ProductStore) AddCategory(ctx context.Context, productID, categoryID string) (*models.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, ErrProductNotFound
	}
	if _, err := uuid.Parse(categoryID); err != nil {
		return nil, ErrCategoryNotFound
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2)
		 ON CONFLICT (product_id, category_id) DO NOTHING`,
		productID, categoryID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			if strings.Contains(pgErr.ConstraintName, "category") {
				return nil, ErrCategoryNotFound
			}
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	return s.GetProduct(ctx, productID)
}

// RemoveCategory unlinks a category from a product
func (s *ProductStore) RemoveCategory(ctx context.Context, productID, categoryID string) (*models.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, ErrProductNotFound
	}
	if _, err := uuid.Parse(categoryID); err != nil {
		return nil, ErrCategoryNotFound
	}

	if _, err := s.db.Exec(ctx,
		`DELETE FROM product_categories WHERE product_id = $1 AND category_id = $2`,
		productID, categoryID,
	); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, productID)
}

// MarkPosted sets last_posted_at. When expectedUpdatedAt is non-zero the write only
// succeeds if nobody modified the product since it was read.
func (s *ProductStore) MarkPosted(ctx context.Context, productID string, postedAt, expectedUpdatedAt time.Time) (time.Time, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return time.Time{}, ErrProductNotFound
	}

	var updatedAt time.Time
	var err error
	if expectedUpdatedAt.IsZero() {
		err = s.db.QueryRow(ctx,
			`UPDATE products SET last_posted_at = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
			productID, postedAt,
		).Scan(&updatedAt)
	} else {
		err = s.db.QueryRow(ctx,
			`UPDATE products SET last_posted_at = $2, updated_at = NOW() WHERE id = $1 AND updated_at = $3 RETURNING updated_at`,
			productID, postedAt, expectedUpdatedAt,
		).Scan(&updatedAt)
	}
	if err == nil {
		return updatedAt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, err
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return time.Time{}, err
	}
	if !exists {
		return time.Time{}, ErrProductNotFound
	}
	return time.Time{}, ErrConcurrentUpdate
}

// loadCategories fetches category links for the given products.
// populate selects between full categories and id-only references.
func (s *ProductStore) loadCategories(ctx context.Context, productIDs []string, populate bool) (map[string][]models.CategoryRef, error) {
	rows, err := s.db.Query(ctx,
		`SELECT pc.product_id, c.id, c.name, c.slug, c.description, c.image, c.created_at, c.updated_at
		 FROM product_categories pc
		 JOIN categories c ON c.id = pc.category_id
		 WHERE pc.product_id = ANY($1)
		 ORDER BY pc.created_at, c.name`,
		productIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make(map[string][]models.CategoryRef, len(productIDs))
	for rows.Next() {
		var productID string
		var c models.Category
		if err := rows.Scan(&productID, &c.ID, &c.Name, &c.Slug, &c.Description, &c.Image, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if populate {
			refs[productID] = append(refs[productID], models.PopulatedCategory(c))
		} else {
			refs[productID] = append(refs[productID], models.CategoryID(c.ID))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return refs, nil
}

func linkCategories(ctx context.Context, tx pgx.Tx, productID string, categoryIDs []string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO product_categories (product_id, category_id)
		 SELECT $1, unnest($2::uuid[])
		 ON CONFLICT (product_id, category_id) DO NOTHING`,
		productID, categoryIDs,
	)
	return err
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	var templatesJSON []byte
	err := row.Scan(&p.ID, &p.AffiliateURL, &p.ProductName, &p.Description, &p.Price, &p.Images,
		&p.FeaturedImage, &p.VideoURL, &templatesJSON, &p.CreatedAt, &p.UpdatedAt, &p.LastPostedAt)
	if err != nil {
		return nil, err
	}

	if len(templatesJSON) > 0 {
		if err := json.Unmarshal(templatesJSON, &p.PostingTemplates); err != nil {
			return nil, fmt.Errorf("failed to decode posting templates: %w", err)
		}
	}
	if p.PostingTemplates == nil {
		p.PostingTemplates = []models.PostingTemplate{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	p.Categories = []models.CategoryRef{}

	return &p, nil
}

func marshalTemplates(templates []models.PostingTemplate) ([]byte, error) {
	if templates == nil {
		templates = []models.PostingTemplate{}
	}
	data, err := json.Marshal(templates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode posting templates: %w", err)
	}
	return data, nil
}

func translateProductErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return ErrUnknownCategoryRef
		case "23514", "22P02": // check_violation, invalid_text_representation
			return ErrInvalidProduct
		}
	}
	return err
}

// parseIDs validates and de-duplicates uuid strings, keeping first-seen order
func parseIDs(ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			return nil, err
		}
		canonical := parsed.String()
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
