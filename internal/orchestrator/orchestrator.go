// Package orchestrator coordinates the end-to-end workflow from a stored product to published Page posts.
// It chains together caption generation, media upload, post publishing and history recording.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lltshop/shoppost/internal/models"
	"github.com/lltshop/shoppost/internal/services"
)

// State is a step of one publish attempt
type State string

const (
	StateCreated         State = "created"
	StateCaptionReady    State = "caption_ready"
	StateMediaUploading  State = "media_uploading"
	StateImagePosted     State = "image_posted"
	StateVideoPosted     State = "video_posted"
	StateHistoryRecorded State = "history_recorded"
	StateDone            State = "done"
	StateAbortedNoMedia  State = "aborted_no_media"
)

const (
	// MaxImagesPerPost caps how many images one image post carries
	MaxImagesPerPost = 4
	// DefaultUploadConcurrency bounds parallel image uploads
	DefaultUploadConcurrency = 4
)

var (
	// ErrNotPublishable is returned before any external call for a product without images or video
	ErrNotPublishable = errors.New("product has no images or video to publish")
	// ErrNoMediaUploaded is returned when every image upload failed
	ErrNoMediaUploaded = errors.New("no media could be uploaded")
)

// PersistenceError reports a failed write after posts were already created
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// ProductStore is the slice of the catalog the pipeline reads and stamps
type ProductStore interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	MarkPosted(ctx context.Context, id string, postedAt, expectedUpdatedAt time.Time) (time.Time, error)
}

// HistoryStore records created posts
type HistoryStore interface {
	Append(ctx context.Context, entries []models.PostHistory) error
}

// ImageUploader moves one image to the platform
type ImageUploader interface {
	UploadImage(ctx context.Context, assetURL string) (services.MediaHandle, error)
}

// Publisher creates the Page posts
type Publisher interface {
	PublishImagesPost(ctx context.Context, caption string, handles []services.MediaHandle) (string, error)
	PublishVideoPost(ctx context.Context, caption, videoURL string) (string, error)
}

// Post is one platform post created by a publish attempt
type Post struct {
	PostID  string `json:"postId"`
	IsVideo bool   `json:"isVideo"`
	Caption string `json:"caption"`
}

// Result is the outcome of one publish attempt
type Result struct {
	Product        *models.Product `json:"product"`
	Posts          []Post          `json:"posts"`
	Caption        string          `json:"caption"`
	ImagesUploaded int             `json:"imagesUploaded"`
	VideoUploaded  bool            `json:"videoUploaded"`

	State State   `json:"-"`
	Trace []State `json:"-"`
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// Options tunes an Orchestrator
type Options struct {
	UploadConcurrency int
	Notifier          services.Notifier
	Now               func() time.Time
}

// Orchestrator coordinates the full pipeline from product to Page posts
type Orchestrator struct {
	captions  services.CaptionGenerator
	uploader  ImageUploader
	publisher Publisher
	products  ProductStore
	history   HistoryStore

	concurrency int
	notifier    services.Notifier
	now         func() time.Time
}

// NewOrchestrator creates a new orchestrator with all required services
func NewOrchestrator(
	captions services.CaptionGenerator,
	uploader ImageUploader,
	publisher Publisher,
	products ProductStore,
	history HistoryStore,
	opts Options,
) *Orchestrator {
	o := &Orchestrator{
		captions:    captions,
		uploader:    uploader,
		publisher:   publisher,
		products:    products,
		history:     history,
		concurrency: opts.UploadConcurrency,
		notifier:    opts.Notifier,
		now:         opts.Now,
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultUploadConcurrency
	}
	if o.notifier == nil {
		o.notifier = services.LogNotifier{}
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// SelectImages returns the images to upload: the featured image first, then the
// remaining distinct images in list order, at most MaxImagesPerPost in total
func SelectImages(p *models.Product) []string {
	seen := make(map[string]bool)
	var selected []string
	add := func(url string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] || len(selected) == MaxImagesPerPost {
			return
		}
		seen[url] = true
		selected = append(selected, url)
	}

	add(p.FeaturedImage)
	for _, url := range p.Images {
		add(url)
	}
	return selected
}

// Republish loads a stored product and runs the pipeline for it again
func (o *Orchestrator) Republish(ctx context.Context, productID string) (*Result, error) {
	p, err := o.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return o.Publish(ctx, p)
}

// Publish orchestrates the full pipeline: caption → upload images → image post → video post → history.
// The product must already be stored; it is never rolled back, whatever step fails.
func (o *Orchestrator) Publish(ctx context.Context, p *models.Product) (*Result, error) {
	if !p.HasMedia() {
		return nil, ErrNotPublishable
	}

	result := &Result{Product: p, Posts: []Post{}}
	result.enter(StateCreated)
	log.Printf("Publishing product %s (%s)", p.ID, p.ProductName)

	// Step 1: Caption per post type
	log.Println("Step 1: Generating caption...")
	imageCaption, videoCaption := o.captionsFor(ctx, p)
	result.Caption = imageCaption
	result.enter(StateCaptionReady)

	// Step 2: Upload images
	selected := SelectImages(p)
	log.Printf("Step 2: Uploading %d image(s)...", len(selected))
	result.enter(StateMediaUploading)
	handles := o.uploadImages(ctx, selected)
	result.ImagesUploaded = len(handles)
	if len(handles) == 0 {
		result.enter(StateAbortedNoMedia)
		log.Printf("No media uploaded for product %s, nothing published", p.ID)
		return result, ErrNoMediaUploaded
	}

	// Step 3: Image post
	log.Println("Step 3: Publishing image post...")
	now := o.now()
	imagePostID, err := o.publisher.PublishImagesPost(ctx, imageCaption, handles)
	if err != nil {
		return result, fmt.Errorf("failed to publish image post: %w", err)
	}
	result.enter(StateImagePosted)
	result.Posts = append(result.Posts, Post{PostID: imagePostID, Caption: imageCaption})
	entries := []models.PostHistory{{
		ProductID:  p.ID,
		PostID:     imagePostID,
		Caption:    imageCaption,
		ImagesUsed: len(handles),
		CreatedAt:  now,
	}}
	log.Printf("Image post created: %s", imagePostID)

	// Step 4: Video post, best effort
	if p.HasVideo() && strings.TrimSpace(videoCaption) != "" {
		log.Println("Step 4: Publishing video post...")
		videoPostID, err := o.publisher.PublishVideoPost(ctx, videoCaption, p.VideoURL)
		if err != nil {
			log.Printf("Video post failed for product %s: %v", p.ID, err)
			o.notifyVideoFailure(ctx, p, err)
		} else {
			result.enter(StateVideoPosted)
			result.VideoUploaded = true
			result.Posts = append(result.Posts, Post{PostID: videoPostID, IsVideo: true, Caption: videoCaption})
			entries = append(entries, models.PostHistory{
				ProductID: p.ID,
				PostID:    videoPostID,
				Caption:   videoCaption,
				VideoUsed: true,
				CreatedAt: o.now(),
			})
			log.Printf("Video post created: %s", videoPostID)
		}
	}

	// Step 5: History and last-posted stamp
	log.Printf("Step 5: Recording %d post(s)...", len(entries))
	if err := o.history.Append(ctx, entries); err != nil {
		return result, &PersistenceError{Op: "append history", Cause: err}
	}
	result.enter(StateHistoryRecorded)

	updatedAt, err := o.products.MarkPosted(ctx, p.ID, now, p.UpdatedAt)
	if err != nil {
		return result, &PersistenceError{Op: "mark posted", Cause: err}
	}
	p.LastPostedAt = &now
	p.UpdatedAt = updatedAt
	p.History = append(p.History, entries...)

	result.enter(StateDone)
	log.Printf("Product %s published: %d post(s)", p.ID, len(result.Posts))
	return result, nil
}

// captionsFor returns the image caption and, when the product has a video, the video caption.
// A posting template named after the post type overrides the generated caption.
func (o *Orchestrator) captionsFor(ctx context.Context, p *models.Product) (string, string) {
	generated := ""
	generate := func() string {
		if generated != "" {
			return generated
		}
		caption, err := o.captions.Generate(ctx, p)
		if err != nil || strings.TrimSpace(caption) == "" {
			log.Printf("Caption generation failed for product %s, using fallback: %v", p.ID, err)
			caption = services.FallbackCaption(p)
		}
		generated = caption
		return generated
	}

	imageCaption, ok := p.TemplateFor(models.TemplateImagePost)
	if !ok {
		imageCaption = generate()
	}

	var videoCaption string
	if p.HasVideo() {
		if videoCaption, ok = p.TemplateFor(models.TemplateVideoPost); !ok {
			videoCaption = generate()
		}
	}
	return imageCaption, videoCaption
}

// uploadImages uploads every url and returns the successful handles in attempt order.
// The lead image (featured when set) is attempted alone before the rest fan out, so it is
// always the first upload the platform sees. A failed upload never cancels its siblings.
func (o *Orchestrator) uploadImages(ctx context.Context, urls []string) []services.MediaHandle {
	results := make([]*services.MediaHandle, len(urls))
	upload := func(i int) {
		handle, err := o.uploader.UploadImage(ctx, urls[i])
		if err != nil {
			log.Printf("Image upload failed: %v", err)
			return
		}
		results[i] = &handle
	}

	if len(urls) > 0 {
		upload(0)
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := 1; i < len(urls); i++ {
		g.Go(func() error {
			upload(i)
			return nil
		})
	}
	_ = g.Wait()

	handles := make([]services.MediaHandle, 0, len(urls))
	for _, h := range results {
		if h != nil {
			handles = append(handles, *h)
		}
	}
	return handles
}

func (o *Orchestrator) notifyVideoFailure(ctx context.Context, p *models.Product, cause error) {
	subject := fmt.Sprintf("Video post failed: %s", p.ProductName)
	body := fmt.Sprintf("Product %s (%s)\nVideo: %s\nError: %v\n\nThe image post was published. Use republish to retry.",
		p.ID, p.ProductName, p.VideoURL, cause)
	if err := o.notifier.Notify(ctx, subject, body); err != nil {
		log.Printf("Failed to send video failure notification: %v", err)
	}
}
