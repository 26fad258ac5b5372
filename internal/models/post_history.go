package models

import "time"

// PostHistory records one platform post created for a product. Rows are append-only.
type PostHistory struct {
	ID         string    `json:"id,omitempty"`
	ProductID  string    `json:"productId"`
	PostID     string    `json:"postId"`
	Caption    string    `json:"caption"`
	ImagesUsed int       `json:"imagesUsed"`
	VideoUsed  bool      `json:"videoUsed"`
	CreatedAt  time.Time `json:"timestamp"`
}
