package services

import (
	"context"
	"io"
	"time"
)

// =============================================================================
// Platform and asset collaborators
// Interfaces implemented by internal/clients and faked in tests
// =============================================================================

// Media type constants
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Per-call budgets for outbound requests
const (
	AssetFetchTimeout  = 10 * time.Second
	VideoHeadTimeout   = 5 * time.Second
	PhotoUploadTimeout = 30 * time.Second
	FeedPostTimeout    = 15 * time.Second
	VideoUploadTimeout = 120 * time.Second
	CaptionTimeout     = 60 * time.Second
)

// MediaPlatform is the social platform's media and feed API for one Page
type MediaPlatform interface {
	// UploadPhoto stores an unpublished photo and returns its media id
	UploadPhoto(ctx context.Context, photo MediaFile) (string, error)

	// UploadVideo publishes a native video post and returns the video id
	UploadVideo(ctx context.Context, video MediaFile, description string) (string, error)

	// CreateFeedPost publishes a feed post attaching previously uploaded photos
	CreateFeedPost(ctx context.Context, message string, mediaIDs []string) (string, error)
}

// AssetSource retrieves media from its hosting URL
type AssetSource interface {
	// Fetch downloads the whole asset into memory
	Fetch(ctx context.Context, url string) (*Asset, error)

	// Open streams the asset; the caller closes the returned body
	Open(ctx context.Context, url string) (*AssetStream, error)

	// CheckVideo confirms the URL answers a HEAD request with a video content type
	CheckVideo(ctx context.Context, url string) error
}

// TextGenerator produces free text from a prompt
type TextGenerator interface {
	Generate(ctx context.Context, req TextRequest) (string, error)
}

// TextRequest is a single prompt for a TextGenerator
type TextRequest struct {
	Prompt string

	// Temperature of zero leaves the backend default in place
	Temperature float64
}

// Asset is a downloaded media file
type Asset struct {
	URL         string
	Data        []byte
	ContentType string
}

// AssetStream is an open download of a media file
type AssetStream struct {
	URL           string
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when unknown
}

// MediaFile is what gets sent to the platform for one upload
type MediaFile struct {
	Filename    string
	ContentType string
	Body        io.Reader
}
