package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lltshop/shoppost/internal/database"
	"github.com/lltshop/shoppost/internal/orchestrator"
)

// MockRepublisher implements Republisher for testing
type MockRepublisher struct {
	RepublishFunc func(ctx context.Context, productID string) (*orchestrator.Result, error)
	Calls         []string
}

func (m *MockRepublisher) Republish(ctx context.Context, productID string) (*orchestrator.Result, error) {
	m.Calls = append(m.Calls, productID)
	return m.RepublishFunc(ctx, productID)
}

func withPipeline(t *testing.T, p Republisher) {
	t.Helper()
	pipeline = p
	t.Cleanup(func() { pipeline = nil })
}

func TestHandler_MissingProductID(t *testing.T) {
	for _, id := range []string{"", "   "} {
		resp, err := handler(context.Background(), Request{ProductID: id})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != 400 {
			t.Errorf("expected status 400, got %d", resp.StatusCode)
		}
		if resp.Body.Message != "product_id is required" {
			t.Errorf("unexpected message: %s", resp.Body.Message)
		}
	}
}

func TestHandler_Published(t *testing.T) {
	mock := &MockRepublisher{
		RepublishFunc: func(ctx context.Context, productID string) (*orchestrator.Result, error) {
			return &orchestrator.Result{Posts: []orchestrator.Post{
				{PostID: "page_1", Caption: "c"},
				{PostID: "page_2", IsVideo: true, Caption: "c"},
			}}, nil
		},
	}
	withPipeline(t, mock)

	resp, err := handler(context.Background(), Request{ProductID: " p-1 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Body.Action != "published" {
		t.Errorf("expected action 'published', got %q", resp.Body.Action)
	}
	if len(resp.Body.Posts) != 2 {
		t.Errorf("expected 2 posts, got %d", len(resp.Body.Posts))
	}
	if len(mock.Calls) != 1 || mock.Calls[0] != "p-1" {
		t.Errorf("expected one call for trimmed id p-1, got %v", mock.Calls)
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("failed to load product: %w", database.ErrProductNotFound), 404},
		{"not publishable", orchestrator.ErrNotPublishable, 400},
		{"no media", orchestrator.ErrNoMediaUploaded, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPipeline(t, &MockRepublisher{
				RepublishFunc: func(ctx context.Context, productID string) (*orchestrator.Result, error) {
					return nil, tt.err
				},
			})

			resp, err := handler(context.Background(), Request{ProductID: "p-1"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if resp.Body.Action != "error" {
				t.Errorf("expected action 'error', got %q", resp.Body.Action)
			}
		})
	}
}

func TestHandler_PersistenceFailureReportsPosts(t *testing.T) {
	withPipeline(t, &MockRepublisher{
		RepublishFunc: func(ctx context.Context, productID string) (*orchestrator.Result, error) {
			return &orchestrator.Result{Posts: []orchestrator.Post{{PostID: "page_1"}}},
				&orchestrator.PersistenceError{Op: "append history", Cause: errors.New("db down")}
		},
	})

	resp, _ := handler(context.Background(), Request{ProductID: "p-1"})
	if resp.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
	if len(resp.Body.Posts) != 1 || resp.Body.Posts[0].PostID != "page_1" {
		t.Errorf("expected the created post in the response, got %+v", resp.Body.Posts)
	}
}

func TestHandler_PipelineInitFailure(t *testing.T) {
	prev := buildPipeline
	buildPipeline = func(ctx context.Context) (Republisher, error) {
		return nil, errors.New("FACEBOOK_PAGE_ID is required")
	}
	t.Cleanup(func() { buildPipeline = prev; pipeline = nil })

	resp, err := handler(context.Background(), Request{ProductID: "p-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
	if pipeline != nil {
		t.Error("a failed build must not be cached")
	}
}

func TestHandler_BuildsPipelineOnce(t *testing.T) {
	builds := 0
	mock := &MockRepublisher{
		RepublishFunc: func(ctx context.Context, productID string) (*orchestrator.Result, error) {
			return &orchestrator.Result{}, nil
		},
	}
	prev := buildPipeline
	buildPipeline = func(ctx context.Context) (Republisher, error) {
		builds++
		return mock, nil
	}
	t.Cleanup(func() { buildPipeline = prev; pipeline = nil })

	for i := 0; i < 3; i++ {
		handler(context.Background(), Request{ProductID: "p-1"})
	}
	if builds != 1 {
		t.Errorf("expected pipeline built once across warm invocations, got %d", builds)
	}
	if len(mock.Calls) != 3 {
		t.Errorf("expected 3 republish calls, got %d", len(mock.Calls))
	}
}
