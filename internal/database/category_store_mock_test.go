package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categoryColumnNames = []string{"id", "name", "slug", "description", "image", "created_at", "updated_at"}

func TestCategoryStore_CreateCategory_DerivesSlug(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	now := time.Now().Truncate(time.Microsecond)
	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs("Đồ Gia Dụng", "đồ-gia-dụng", "Kitchen", "").
		WillReturnRows(pgxmock.NewRows(categoryColumnNames).
			AddRow(testCategoryID, "Đồ Gia Dụng", "đồ-gia-dụng", "Kitchen", "", now, now))

	c, err := store.CreateCategory(context.Background(), CategoryInput{Name: "  Đồ Gia Dụng ", Description: "Kitchen"})

	require.NoError(t, err)
	assert.Equal(t, testCategoryID, c.ID)
	assert.Equal(t, "đồ-gia-dụng", c.Slug)
}

func TestCategoryStore_CreateCategory_Duplicate(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs("Fashion", "fashion", "", "").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_categories_slug"})

	c, err := store.CreateCategory(context.Background(), CategoryInput{Name: "Fashion"})

	assert.ErrorIs(t, err, ErrDuplicateCategory)
	assert.Nil(t, c)
}

func TestCategoryStore_CreateCategory_BlankName(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	_, err := store.CreateCategory(context.Background(), CategoryInput{Name: " \t"})
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestCategoryStore_GetCategory(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	now := time.Now().Truncate(time.Microsecond)
	mock.ExpectQuery(`FROM categories WHERE id = \$1`).
		WithArgs(testCategoryID).
		WillReturnRows(pgxmock.NewRows(categoryColumnNames).
			AddRow(testCategoryID, "Fashion", "fashion", "", "", now, now))

	c, err := store.GetCategory(context.Background(), testCategoryID)

	require.NoError(t, err)
	assert.Equal(t, "Fashion", c.Name)
}

func TestCategoryStore_GetCategory_NotFound(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	mock.ExpectQuery(`FROM categories WHERE id = \$1`).
		WithArgs(testCategoryID).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetCategory(context.Background(), testCategoryID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = store.GetCategory(context.Background(), "fashion")
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryStore_GetCategoryBySlug_Normalizes(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	now := time.Now().Truncate(time.Microsecond)
	mock.ExpectQuery(`FROM categories WHERE slug = \$1`).
		WithArgs("fashion").
		WillReturnRows(pgxmock.NewRows(categoryColumnNames).
			AddRow(testCategoryID, "Fashion", "fashion", "", "", now, now))

	c, err := store.GetCategoryBySlug(context.Background(), " Fashion ")

	require.NoError(t, err)
	assert.Equal(t, testCategoryID, c.ID)
}

func TestCategoryStore_ListCategories(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	now := time.Now().Truncate(time.Microsecond)
	mock.ExpectQuery(`FROM categories ORDER BY name`).
		WillReturnRows(pgxmock.NewRows(categoryColumnNames).
			AddRow(testCategoryID, "Fashion", "fashion", "", "", now, now).
			AddRow(testCategoryB, "Home", "home", "", "", now, now))

	categories, err := store.ListCategories(context.Background())

	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "home", categories[1].Slug)
}

func TestCategoryStore_ListCategories_Empty(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	mock.ExpectQuery(`FROM categories ORDER BY name`).
		WillReturnRows(pgxmock.NewRows(categoryColumnNames))

	categories, err := store.ListCategories(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)
}

func TestCategoryStore_UpdateCategory_RenamesSlug(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	now := time.Now().Truncate(time.Microsecond)
	mock.ExpectQuery(`UPDATE categories`).
		WithArgs(testCategoryID, "Home Living", "home-living", "", "https://cdn/home.jpg").
		WillReturnRows(pgxmock.NewRows(categoryColumnNames).
			AddRow(testCategoryID, "Home Living", "home-living", "", "https://cdn/home.jpg", now, now))

	c, err := store.UpdateCategory(context.Background(), testCategoryID, CategoryInput{Name: "Home Living", Image: "https://cdn/home.jpg"})

	require.NoError(t, err)
	assert.Equal(t, "home-living", c.Slug)
}

func TestCategoryStore_UpdateCategory_NotFound(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	mock.ExpectQuery(`UPDATE categories`).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.UpdateCategory(context.Background(), testCategoryID, CategoryInput{Name: "Home"})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

// Two products list the category; both links go away with it.
func TestCategoryStore_DeleteCategory_RetractsProductRefs(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM product_categories WHERE category_id = \$1`).
		WithArgs(testCategoryID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
		WithArgs(testCategoryID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	detached, err := store.DeleteCategory(context.Background(), testCategoryID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), detached)
}

func TestCategoryStore_DeleteCategory_NotFoundRollsBack(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM product_categories`).
		WithArgs(testCategoryID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM categories`).
		WithArgs(testCategoryID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	_, err := store.DeleteCategory(context.Background(), testCategoryID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryStore_DeleteCategory_BeginFails(t *testing.T) {
	mock := NewMockPool(t)
	store := NewCategoryStoreWithDB(mock)

	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	_, err := store.DeleteCategory(context.Background(), testCategoryID)
	assert.EqualError(t, err, "pool closed")
}
