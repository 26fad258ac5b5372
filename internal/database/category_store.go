package database

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lltshop/shoppost/internal/models"
)

// Category-related errors
var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category name or slug already exists")
	ErrInvalidCategory   = errors.New("invalid category input")
)

const categoryColumns = `id, name, slug, description, image, created_at, updated_at`

// CategoryInput carries the writable fields of a category. The slug is derived from Name.
type CategoryInput struct {
	Name        string
	Description string
	Image       string
}

// CategoryStore persists categories in PostgreSQL
type CategoryStore struct {
	db DBTX
}

// NewCategoryStore creates a new database-backed category store
func NewCategoryStore(pool *Pool) *CategoryStore {
	return &CategoryStore{db: pool}
}

// NewCategoryStoreWithDB creates a category store with a custom DBTX implementation.
// This is primarily used for testing with pgxmock.
func NewCategoryStoreWithDB(db DBTX) *CategoryStore {
	return &CategoryStore{db: db}
}

// CreateCategory inserts a category, deriving its slug from the name
func (s *CategoryStore) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	slug := models.Slugify(name)
	if name == "" || slug == "" {
		return nil, ErrInvalidCategory
	}

	c, err := scanCategory(s.db.QueryRow(ctx,
		`INSERT INTO categories (name, slug, description, image)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+categoryColumns,
		name, slug, in.Description, in.Image,
	))
	if err != nil {
		return nil, translateCategoryErr(err)
	}

	return c, nil
}

// GetCategory retrieves a category by id
func (s *CategoryStore) GetCategory(ctx context.Context, categoryID string) (*models.Category, error) {
	if _, err := uuid.Parse(categoryID); err != nil {
		return nil, ErrCategoryNotFound
	}

	c, err := scanCategory(s.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`,
		categoryID,
	))
	if err != nil {
		return nil, translateCategoryErr(err)
	}

	return c, nil
}

// GetCategoryBySlug retrieves a category by its slug
func (s *CategoryStore) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = $1`,
		strings.ToLower(strings.TrimSpace(slug)),
	))
	if err != nil {
		return nil, translateCategoryErr(err)
	}

	return c, nil
}

// ListCategories returns all categories ordered by name
func (s *CategoryStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

// UpdateCategory rewrites a category; the slug follows the new name
func (s *CategoryStore) UpdateCategory(ctx context.Context, categoryID string, in CategoryInput) (*models.Category, error) {
	if _, err := uuid.Parse(categoryID); err != nil {
		return nil, ErrCategoryNotFound
	}
	name := strings.TrimSpace(in.Name)
	slug := models.Slugify(name)
	if name == "" || slug == "" {
		return nil, ErrInvalidCategory
	}

	c, err := scanCategory(s.db.QueryRow(ctx,
		`UPDATE categories
		 SET name = $2, slug = $3, description = $4, image = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+categoryColumns,
		categoryID, name, slug, in.Description, in.Image,
	))
	if err != nil {
		return nil, translateCategoryErr(err)
	}

	return c, nil
}

// DeleteCategory removes a category and retracts it from every product that lists it.
// It returns the number of products that were detached.
func (s *CategoryStore) DeleteCategory(ctx context.Context, categoryID string) (int64, error) {
	if _, err := uuid.Parse(categoryID); err != nil {
		return 0, ErrCategoryNotFound
	}

	var detached int64
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM product_categories WHERE category_id = $1`, categoryID)
		if err != nil {
			return err
		}
		detached = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return detached, nil
}

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Image, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func translateCategoryErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCategoryNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return ErrDuplicateCategory
	}
	return err
}
