package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoHandles is returned when an image post is requested without any uploaded media
var ErrNoHandles = errors.New("image post needs at least one media handle")

// PublishError reports a post the platform did not create
type PublishError struct {
	PostType string
	Cause    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s post: %v", e.PostType, e.Cause)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// PostPublisher creates Page posts. Image and video posts are separate platform
// objects with their own ids.
type PostPublisher struct {
	platform MediaPlatform
	uploader *MediaUploader
}

// NewPostPublisher creates a publisher; the uploader handles the native video endpoint
func NewPostPublisher(platform MediaPlatform, uploader *MediaUploader) *PostPublisher {
	return &PostPublisher{platform: platform, uploader: uploader}
}

// PublishImagesPost creates one feed post attaching handles in the order given
func (p *PostPublisher) PublishImagesPost(ctx context.Context, caption string, handles []MediaHandle) (string, error) {
	if len(handles) == 0 {
		return "", &PublishError{PostType: MediaTypeImage, Cause: ErrNoHandles}
	}

	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		ids = append(ids, h.ID)
	}

	postID, err := p.platform.CreateFeedPost(ctx, caption, ids)
	if err != nil {
		return "", &PublishError{PostType: MediaTypeImage, Cause: err}
	}
	return postID, nil
}

// PublishVideoPost uploads the video at videoURL as a native video post
func (p *PostPublisher) PublishVideoPost(ctx context.Context, caption, videoURL string) (string, error) {
	if strings.TrimSpace(videoURL) == "" {
		return "", &PublishError{PostType: MediaTypeVideo, Cause: errors.New("video url is empty")}
	}

	handle, err := p.uploader.UploadVideo(ctx, videoURL, caption)
	if err != nil {
		return "", &PublishError{PostType: MediaTypeVideo, Cause: err}
	}
	return handle.ID, nil
}
