package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lltshop/shoppost/internal/services"
)

// Graph API error definitions
var (
	ErrGraphRateLimited    = errors.New("rate limited by Graph API")
	ErrGraphAuthentication = errors.New("Graph API authentication failed")
	ErrGraphRequestFailed  = errors.New("Graph API request failed")
	ErrGraphConfig         = errors.New("incomplete Graph API configuration")
)

// Graph API defaults
const (
	DefaultGraphURL     = "https://graph.facebook.com"
	DefaultGraphVersion = "v18.0"
)

// Graph error codes that signal throttling or a bad token
var (
	graphThrottleCodes = map[int]bool{4: true, 17: true, 32: true, 613: true}
	graphAuthCodes     = map[int]bool{10: true, 102: true, 190: true, 200: true}
)

// Compile-time interface compliance check
var _ services.MediaPlatform = (*GraphClient)(nil)

// GraphConfig identifies the Page the client posts as
type GraphConfig struct {
	BaseURL     string
	APIVersion  string
	PageID      string
	AccessToken string
}

// Validate fills defaults and checks the Page credentials are present
func (c *GraphConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultGraphURL
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultGraphVersion
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.PageID == "" {
		return fmt.Errorf("%w: page id is required", ErrGraphConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", ErrGraphConfig)
	}
	return nil
}

// PageIdentity is the object the access token resolves to
type PageIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GraphClient talks to the Facebook Graph API on behalf of one Page
type GraphClient struct {
	cfg    GraphConfig
	client *http.Client
}

// NewGraphClient creates a Graph API client. Per-call timeouts come from the request context.
func NewGraphClient(cfg GraphConfig) (*GraphClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &GraphClient{
		cfg:    cfg,
		client: &http.Client{},
	}, nil
}

// PageID returns the Page the client publishes to
func (c *GraphClient) PageID() string {
	return c.cfg.PageID
}

func (c *GraphClient) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.APIVersion, strings.TrimLeft(path, "/"))
}

// UploadPhoto uploads an unpublished photo to the Page so it can be attached to a feed post
func (c *GraphClient) UploadPhoto(ctx context.Context, photo services.MediaFile) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, services.PhotoUploadTimeout)
	defer cancel()

	fields := map[string]string{
		"access_token": c.cfg.AccessToken,
		"published":    "false",
	}
	return c.postMultipart(ctx, c.cfg.PageID+"/photos", fields, "source", photo)
}

// UploadVideo streams a video to the Page as a native video post
func (c *GraphClient) UploadVideo(ctx context.Context, video services.MediaFile, description string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, services.VideoUploadTimeout)
	defer cancel()

	fields := map[string]string{
		"access_token": c.cfg.AccessToken,
		"description":  description,
	}
	return c.postMultipart(ctx, c.cfg.PageID+"/videos", fields, "source", video)
}

// CreateFeedPost publishes a feed post with the given photos attached
func (c *GraphClient) CreateFeedPost(ctx context.Context, message string, mediaIDs []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, services.FeedPostTimeout)
	defer cancel()

	type attachment struct {
		MediaFBID string `json:"media_fbid"`
	}
	attached := make([]attachment, 0, len(mediaIDs))
	for _, id := range mediaIDs {
		attached = append(attached, attachment{MediaFBID: id})
	}

	jsonData, err := json.Marshal(map[string]any{
		"message":        message,
		"attached_media": attached,
		"published":      true,
		"access_token":   c.cfg.AccessToken,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.cfg.PageID+"/feed"), bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doForID(req)
}

// VerifyToken resolves the access token to its Page identity
func (c *GraphClient) VerifyToken(ctx context.Context) (*PageIdentity, error) {
	q := url.Values{}
	q.Set("fields", "id,name")
	q.Set("access_token", c.cfg.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("me")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call /me: %w", err)
	}
	defer resp.Body.Close()

	body, err := checkGraphResponse(resp)
	if err != nil {
		return nil, err
	}

	var identity PageIdentity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &identity, nil
}

// postMultipart streams a multipart form so large videos never sit in memory whole
func (c *GraphClient) postMultipart(ctx context.Context, path string, fields map[string]string, fileField string, file services.MediaFile) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, fields, fileField, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	id, err := c.doForID(req)
	// unblock the writer if the request ended before the body was drained
	pr.CloseWithError(io.ErrClosedPipe)
	return id, err
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, fileField string, file services.MediaFile) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}

	filename := file.Filename
	if filename == "" {
		filename = "upload"
	}
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename)}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header["Content-Type"] = []string{contentType}

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return fmt.Errorf("failed to copy media body: %w", err)
	}
	return mw.Close()
}

func (c *GraphClient) doForID(req *http.Request) (string, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s %s after %s: %v", ErrGraphRequestFailed, req.Method, req.URL.Path, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	body, err := checkGraphResponse(resp)
	if err != nil {
		return "", err
	}

	var result struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	// photo uploads with published=true also carry post_id; the media id is what callers attach
	if result.ID == "" {
		result.ID = result.PostID
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: response carried no id", ErrGraphRequestFailed)
	}
	return result.ID, nil
}

// checkGraphResponse reads the body and maps Graph errors onto sentinels
func checkGraphResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	var graphErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
			Subcode int    `json:"error_subcode"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &graphErr)
	detail := graphErr.Error.Message
	if detail == "" {
		detail = string(body)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || graphThrottleCodes[graphErr.Error.Code]:
		return nil, fmt.Errorf("%w: %s", ErrGraphRateLimited, detail)
	case resp.StatusCode == http.StatusUnauthorized || graphAuthCodes[graphErr.Error.Code]:
		return nil, fmt.Errorf("%w: %s", ErrGraphAuthentication, detail)
	default:
		return nil, fmt.Errorf("%w: %d - %s", ErrGraphRequestFailed, resp.StatusCode, detail)
	}
}
