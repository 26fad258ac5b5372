package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/lltshop/shoppost/internal/models"
)

// MockTextGenerator returns a canned response or error and records prompts
type MockTextGenerator struct {
	Response string
	Err      error

	mu       sync.Mutex
	Requests []TextRequest
}

func (m *MockTextGenerator) Generate(ctx context.Context, req TextRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// MockAssets serves each URL's own bytes; URLs listed in Missing fail to fetch
type MockAssets struct {
	Missing     map[string]bool
	NotVideo    map[string]bool
	ContentType string
}

func (m *MockAssets) Fetch(ctx context.Context, url string) (*Asset, error) {
	if m.Missing[url] {
		return nil, errors.New("404 not found")
	}
	ct := m.ContentType
	if ct == "" {
		ct = "image/jpeg"
	}
	return &Asset{URL: url, Data: []byte(url), ContentType: ct}, nil
}

func (m *MockAssets) Open(ctx context.Context, url string) (*AssetStream, error) {
	if m.Missing[url] {
		return nil, errors.New("404 not found")
	}
	return &AssetStream{URL: url, Body: io.NopCloser(strings.NewReader(url)), ContentType: "video/mp4", ContentLength: int64(len(url))}, nil
}

func (m *MockAssets) CheckVideo(ctx context.Context, url string) error {
	if m.NotVideo[url] {
		return errors.New("content type text/html")
	}
	return nil
}

// MockPlatform records every call; bodies listed in FailUploads are rejected
type MockPlatform struct {
	FailUploads map[string]bool
	FeedErr     error
	VideoErr    error

	mu           sync.Mutex
	Photos       []MediaFile
	PhotoBodies  []string
	FeedMessages []string
	FeedMedia    [][]string
	Videos       []string
	VideoCaption []string
}

func (m *MockPlatform) UploadPhoto(ctx context.Context, photo MediaFile) (string, error) {
	data, _ := io.ReadAll(photo.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Photos = append(m.Photos, photo)
	m.PhotoBodies = append(m.PhotoBodies, string(data))
	if m.FailUploads[string(data)] {
		return "", errors.New("graph rejected photo")
	}
	return "ph:" + string(data), nil
}

func (m *MockPlatform) UploadVideo(ctx context.Context, video MediaFile, description string) (string, error) {
	data, _ := io.ReadAll(video.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Videos = append(m.Videos, string(data))
	m.VideoCaption = append(m.VideoCaption, description)
	if m.VideoErr != nil {
		return "", m.VideoErr
	}
	return "vid:" + string(data), nil
}

func (m *MockPlatform) CreateFeedPost(ctx context.Context, message string, mediaIDs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FeedMessages = append(m.FeedMessages, message)
	m.FeedMedia = append(m.FeedMedia, mediaIDs)
	if m.FeedErr != nil {
		return "", m.FeedErr
	}
	return "page_1", nil
}

func testProduct() *models.Product {
	price := int64(199000)
	return &models.Product{
		ID:           "0b6f3c1e-8f0a-4c55-9d47-2b1f6a3e9c10",
		ProductName:  "Áo thun",
		Description:  "Cotton 100%",
		Price:        &price,
		AffiliateURL: "https://s.shopee.vn/abc",
		Images:       []string{"https://cdn/a.jpg"},
	}
}
