package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
)

// UploadError reports one asset that could not be moved to the platform
type UploadError struct {
	AssetURL string
	Cause    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.AssetURL, e.Cause)
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// MediaHandle is the platform id assigned to an uploaded asset
type MediaHandle struct {
	AssetURL string
	ID       string
	Kind     string
}

// MediaUploader moves product media from its hosting URL to the platform.
// Assets are always fetched over the network first.
type MediaUploader struct {
	platform   MediaPlatform
	assets     AssetSource
	normalizer *ImageNormalizer
}

// NewMediaUploader creates an uploader; a nil normalizer sends images unchanged
func NewMediaUploader(platform MediaPlatform, assets AssetSource, normalizer *ImageNormalizer) *MediaUploader {
	return &MediaUploader{
		platform:   platform,
		assets:     assets,
		normalizer: normalizer,
	}
}

// UploadImage fetches an image and stores it on the platform as an unpublished photo
func (u *MediaUploader) UploadImage(ctx context.Context, assetURL string) (MediaHandle, error) {
	asset, err := u.assets.Fetch(ctx, assetURL)
	if err != nil {
		return MediaHandle{}, &UploadError{AssetURL: assetURL, Cause: err}
	}

	data, contentType := asset.Data, asset.ContentType
	if u.normalizer != nil {
		data, contentType, err = u.normalizer.Normalize(asset.Data, asset.ContentType)
		if err != nil {
			return MediaHandle{}, &UploadError{AssetURL: assetURL, Cause: err}
		}
	}

	id, err := u.platform.UploadPhoto(ctx, MediaFile{
		Filename:    assetFilename(assetURL, contentType),
		ContentType: contentType,
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return MediaHandle{}, &UploadError{AssetURL: assetURL, Cause: err}
	}

	return MediaHandle{AssetURL: assetURL, ID: id, Kind: MediaTypeImage}, nil
}

// UploadVideo checks the URL is a video, then streams it to the platform's video
// endpoint with description as the post text. The returned id is the video post.
func (u *MediaUploader) UploadVideo(ctx context.Context, assetURL, description string) (MediaHandle, error) {
	if err := u.assets.CheckVideo(ctx, assetURL); err != nil {
		return MediaHandle{}, &UploadError{AssetURL: assetURL, Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, VideoUploadTimeout)
	defer cancel()

	stream, err := u.assets.Open(ctx, assetURL)
	if err != nil {
		return MediaHandle{}, &UploadError{AssetURL: assetURL, Cause: err}
	}
	defer stream.Body.Close()

	contentType := stream.ContentType
	if !strings.HasPrefix(contentType, "video/") {
		contentType = "video/mp4"
	}

	id, err := u.platform.UploadVideo(ctx, MediaFile{
		Filename:    assetFilename(assetURL, contentType),
		ContentType: contentType,
		Body:        stream.Body,
	}, description)
	if err != nil {
		return MediaHandle{}, &UploadError{AssetURL: assetURL, Cause: err}
	}

	return MediaHandle{AssetURL: assetURL, ID: id, Kind: MediaTypeVideo}, nil
}

// assetFilename derives a filename from the URL path, falling back to the content type
func assetFilename(assetURL, contentType string) string {
	name := path.Base(strings.SplitN(strings.SplitN(assetURL, "?", 2)[0], "#", 2)[0])
	if name != "" && name != "." && name != "/" && strings.Contains(name, ".") {
		switch contentType {
		case "image/jpeg":
			return strings.TrimSuffix(name, path.Ext(name)) + ".jpg"
		case "image/png":
			return strings.TrimSuffix(name, path.Ext(name)) + ".png"
		}
		return name
	}
	switch {
	case contentType == "image/png":
		return "image.png"
	case strings.HasPrefix(contentType, "video/"):
		return "video.mp4"
	default:
		return "image.jpg"
	}
}
