package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lltshop/shoppost/internal/models"
)

// ErrInvalidHistoryEntry is returned when an entry is missing its product or post id
var ErrInvalidHistoryEntry = errors.New("history entry requires product id and post id")

// PostHistoryStore is the append-only record of created platform posts
type PostHistoryStore struct {
	db DBTX
}

// NewPostHistoryStore creates a new database-backed history store
func NewPostHistoryStore(pool *Pool) *PostHistoryStore {
	return &PostHistoryStore{db: pool}
}

// NewPostHistoryStoreWithDB creates a history store with a custom DBTX implementation.
// This is primarily used for testing with pgxmock.
func NewPostHistoryStoreWithDB(db DBTX) *PostHistoryStore {
	return &PostHistoryStore{db: db}
}

// Append writes all entries in a single statement. Entries without a timestamp get the
// current time. Either every entry is stored or none is.
func (s *PostHistoryStore) Append(ctx context.Context, entries []models.PostHistory) error {
	if len(entries) == 0 {
		return nil
	}

	n := len(entries)
	productIDs := make([]string, n)
	postIDs := make([]string, n)
	captions := make([]string, n)
	imagesUsed := make([]int32, n)
	videoUsed := make([]bool, n)
	createdAt := make([]time.Time, n)

	now := time.Now().UTC()
	for i, e := range entries {
		if _, err := uuid.Parse(e.ProductID); err != nil || e.PostID == "" {
			return ErrInvalidHistoryEntry
		}
		productIDs[i] = e.ProductID
		postIDs[i] = e.PostID
		captions[i] = e.Caption
		imagesUsed[i] = int32(e.ImagesUsed)
		videoUsed[i] = e.VideoUsed
		createdAt[i] = e.CreatedAt
		if createdAt[i].IsZero() {
			createdAt[i] = now
		}
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO post_history (product_id, post_id, caption, images_used, video_used, created_at)
		 SELECT * FROM unnest($1::uuid[], $2::text[], $3::text[], $4::int[], $5::bool[], $6::timestamptz[])`,
		productIDs, postIDs, captions, imagesUsed, videoUsed, createdAt,
	)
	return err
}

// ListByProduct returns a product's history, oldest first
func (s *PostHistoryStore) ListByProduct(ctx context.Context, productID string) ([]models.PostHistory, error) {
	history := []models.PostHistory{}
	if _, err := uuid.Parse(productID); err != nil {
		return history, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, product_id, post_id, caption, images_used, video_used, created_at
		 FROM post_history
		 WHERE product_id = $1
		 ORDER BY created_at, id`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var h models.PostHistory
		if err := rows.Scan(&h.ID, &h.ProductID, &h.PostID, &h.Caption, &h.ImagesUsed, &h.VideoUsed, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}
