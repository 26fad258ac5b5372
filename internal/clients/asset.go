package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/lltshop/shoppost/internal/services"
)

// Asset fetch errors
var (
	ErrAssetUnavailable = errors.New("asset could not be fetched")
	ErrAssetTooLarge    = errors.New("asset exceeds size limit")
	ErrNotVideo         = errors.New("url does not point at a video")
)

// DefaultMaxAssetBytes caps in-memory image downloads
const DefaultMaxAssetBytes = 25 << 20

// Compile-time interface compliance check
var _ services.AssetSource = (*AssetFetcher)(nil)

// AssetFetcher downloads product media from marketplace CDNs
type AssetFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewAssetFetcher creates a fetcher; maxBytes <= 0 uses DefaultMaxAssetBytes
func NewAssetFetcher(maxBytes int64) *AssetFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAssetBytes
	}
	return &AssetFetcher{
		client:   &http.Client{},
		maxBytes: maxBytes,
	}
}

// Fetch downloads an asset into memory within AssetFetchTimeout
func (f *AssetFetcher) Fetch(ctx context.Context, url string) (*services.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, services.AssetFetchTimeout)
	defer cancel()

	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrAssetTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrAssetUnavailable, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrAssetTooLarge, f.maxBytes)
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediaType(http.DetectContentType(data))
	}

	return &services.Asset{URL: url, Data: data, ContentType: contentType}, nil
}

// Open starts a streaming download. The deadline is the caller's.
func (f *AssetFetcher) Open(ctx context.Context, url string) (*services.AssetStream, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return &services.AssetStream{
		URL:           url,
		Body:          resp.Body,
		ContentType:   mediaType(resp.Header.Get("Content-Type")),
		ContentLength: resp.ContentLength,
	}, nil
}

// CheckVideo issues a HEAD request and requires a video/* content type
func (f *AssetFetcher) CheckVideo(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, services.VideoHeadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HEAD returned %d", ErrAssetUnavailable, resp.StatusCode)
	}
	if ct := mediaType(resp.Header.Get("Content-Type")); !strings.HasPrefix(ct, "video/") {
		return fmt.Errorf("%w: content type %q", ErrNotVideo, ct)
	}
	return nil
}

func (f *AssetFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	// some marketplace CDNs refuse requests without a browser-like agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; shoppost/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET returned %d", ErrAssetUnavailable, resp.StatusCode)
	}
	return resp, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}
