// Package jobs provides background job implementations for shoppost.
package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lltshop/shoppost/internal/clients"
	"github.com/lltshop/shoppost/internal/services"
)

// =============================================================================
// Page Token Health Job
// Periodic check that the Page access token still works before a publish needs it
// =============================================================================

// TokenVerifier calls the platform with the configured token
type TokenVerifier interface {
	VerifyToken(ctx context.Context) (*clients.PageIdentity, error)
}

// TokenHealthConfig configures the token health job
type TokenHealthConfig struct {
	// PageID is the Page the token must resolve to; empty skips the identity check
	PageID string

	// Timeout bounds one check
	// Default: 15 seconds
	Timeout time.Duration

	// Logger for job output (optional, defaults to standard logger)
	Logger *log.Logger
}

// TokenHealthResult contains the outcome of one check
type TokenHealthResult struct {
	Healthy   bool
	PageName  string
	Error     error
	CheckedAt time.Time
	Duration  time.Duration
}

// TokenHealthJob checks the Page token and alerts when it stops working or recovers
type TokenHealthJob struct {
	verifier TokenVerifier
	notifier services.Notifier
	config   TokenHealthConfig

	mu          sync.Mutex
	lastHealthy *bool
}

// NewTokenHealthJob creates a new token health job
func NewTokenHealthJob(verifier TokenVerifier, notifier services.Notifier, config TokenHealthConfig) *TokenHealthJob {
	if config.Timeout == 0 {
		config.Timeout = services.FeedPostTimeout
	}
	if notifier == nil {
		notifier = services.LogNotifier{Logger: config.Logger}
	}
	return &TokenHealthJob{
		verifier: verifier,
		notifier: notifier,
		config:   config,
	}
}

// Run executes one check. Alerts are sent only when health changes, so a
// token that stays broken does not page on every run.
func (j *TokenHealthJob) Run(ctx context.Context) (*TokenHealthResult, error) {
	start := time.Now()
	result := &TokenHealthResult{CheckedAt: start.UTC()}

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	identity, err := j.verifier.VerifyToken(ctx)
	switch {
	case err != nil:
		result.Error = err
	case j.config.PageID != "" && identity.ID != j.config.PageID:
		result.Error = fmt.Errorf("token resolves to page %s (%s), expected %s", identity.ID, identity.Name, j.config.PageID)
	default:
		result.Healthy = true
		result.PageName = identity.Name
	}
	result.Duration = time.Since(start)

	if result.Healthy {
		j.log("Page token healthy: page=%q took %v", result.PageName, result.Duration)
	} else {
		j.log("Page token unhealthy: %v", result.Error)
	}

	if j.changed(result.Healthy) {
		subject, body := "Facebook Page token restored", "Publishing can resume."
		if !result.Healthy {
			subject = "Facebook Page token check failed"
			body = fmt.Sprintf("Checked at %s\nError: %v\n\nNew products will not be published until FACEBOOK_ACCESS_TOKEN is renewed.",
				result.CheckedAt.Format(time.RFC3339), result.Error)
		}
		if err := j.notifier.Notify(ctx, subject, body); err != nil {
			j.log("Failed to send token health notification: %v", err)
		}
	}

	return result, nil
}

// changed records the new state and reports whether it differs from the last
// run. The first run only alerts when unhealthy.
func (j *TokenHealthJob) changed(healthy bool) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	prev := j.lastHealthy
	j.lastHealthy = &healthy
	if prev == nil {
		return !healthy
	}
	return *prev != healthy
}

// Schedule registers the job on c using a standard cron spec or @every descriptor
func (j *TokenHealthJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		if _, err := j.Run(context.Background()); err != nil {
			j.log("Token health run failed: %v", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid token check schedule %q: %w", spec, err)
	}
	j.log("Token health check scheduled: %s", spec)
	return id, nil
}

// NewScheduler returns a cron runner that skips a run while the previous one is still going
func NewScheduler() *cron.Cron {
	return cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
}

// log writes a message using the configured logger or standard log
func (j *TokenHealthJob) log(format string, args ...interface{}) {
	if j.config.Logger != nil {
		j.config.Logger.Printf(format, args...)
	} else {
		log.Printf("[TokenHealth] "+format, args...)
	}
}
