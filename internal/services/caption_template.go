package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"

	"github.com/lltshop/shoppost/internal/models"
)

//go:embed caption_pools.json
var defaultPoolsJSON []byte

// ErrInvalidPools is returned when a caption pool document is unusable
var ErrInvalidPools = errors.New("invalid caption pools")

// CaptionPools is the swappable phrase data behind the template strategy.
// Intros may reference {{name}}; any phrase may reference {{price}}.
type CaptionPools struct {
	Intros                  []string   `json:"intros"`
	Descriptions            []string   `json:"descriptions"`
	CTAs                    []string   `json:"ctas"`
	Emojis                  []string   `json:"emojis"`
	HashtagGroups           [][]string `json:"hashtagGroups"`
	HashtagGroupsPerCaption int        `json:"hashtagGroupsPerCaption"`
	MaxHashtags             int        `json:"maxHashtags"`
}

// Validate checks every pool has at least one entry and the hashtag limits are sane
func (p *CaptionPools) Validate() error {
	switch {
	case len(p.Intros) == 0:
		return fmt.Errorf("%w: intros is empty", ErrInvalidPools)
	case len(p.Descriptions) == 0:
		return fmt.Errorf("%w: descriptions is empty", ErrInvalidPools)
	case len(p.CTAs) == 0:
		return fmt.Errorf("%w: ctas is empty", ErrInvalidPools)
	case len(p.Emojis) == 0:
		return fmt.Errorf("%w: emojis is empty", ErrInvalidPools)
	case p.HashtagGroupsPerCaption < 0 || p.MaxHashtags < 0:
		return fmt.Errorf("%w: hashtag limits must not be negative", ErrInvalidPools)
	}
	return nil
}

// ParseCaptionPools decodes and validates a pool document
func ParseCaptionPools(data []byte) (*CaptionPools, error) {
	var pools CaptionPools
	if err := json.Unmarshal(data, &pools); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPools, err)
	}
	if err := pools.Validate(); err != nil {
		return nil, err
	}
	return &pools, nil
}

// LoadCaptionPools reads pools from path, or returns the built-in pools when path is empty
func LoadCaptionPools(path string) (*CaptionPools, error) {
	if path == "" {
		return DefaultCaptionPools(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption pools: %w", err)
	}
	return ParseCaptionPools(data)
}

// DefaultCaptionPools returns the built-in Vietnamese phrase pools
func DefaultCaptionPools() *CaptionPools {
	pools, err := ParseCaptionPools(defaultPoolsJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded caption pools: %v", err))
	}
	return pools
}

// TemplateCaptioner composes captions from CaptionPools with a seeded generator,
// so a fixed seed and call sequence reproduce the same captions
type TemplateCaptioner struct {
	pools *CaptionPools

	mu  sync.Mutex
	rng *rand.Rand
}

// Compile-time interface compliance check
var _ CaptionGenerator = (*TemplateCaptioner)(nil)

// NewTemplateCaptioner creates a template captioner seeded with seed
func NewTemplateCaptioner(pools *CaptionPools, seed uint64) *TemplateCaptioner {
	if pools == nil {
		pools = DefaultCaptionPools()
	}
	return &TemplateCaptioner{
		pools: pools,
		rng:   rand.New(rand.NewPCG(seed, seed^0x5348_4f50)),
	}
}

// Generate lays out intro and description, CTA, emoji, hashtags, then the affiliate link
func (t *TemplateCaptioner) Generate(_ context.Context, p *models.Product) (string, error) {
	t.mu.Lock()
	intro := t.pick(t.pools.Intros)
	description := t.pick(t.pools.Descriptions)
	cta := t.pick(t.pools.CTAs)
	emoji := t.pick(t.pools.Emojis)
	hashtags := t.pickHashtags()
	t.mu.Unlock()

	headline := fill(intro, p) + " " + fill(description, p)
	if p.Price != nil && !strings.Contains(intro+description, "{{price}}") {
		headline += " Giá chỉ " + FormatVND(*p.Price) + "."
	}

	parts := []string{headline, fill(cta, p), emoji}
	if len(hashtags) > 0 {
		parts = append(parts, strings.Join(hashtags, " "))
	}
	if link := strings.TrimSpace(p.AffiliateURL); link != "" {
		parts = append(parts, "🔗 "+link)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (t *TemplateCaptioner) pick(pool []string) string {
	return pool[t.rng.IntN(len(pool))]
}

// pickHashtags draws whole groups without replacement, flattens them, drops
// repeats (case-insensitively) and stops at MaxHashtags
func (t *TemplateCaptioner) pickHashtags() []string {
	groups := t.pools.HashtagGroups
	n := min(t.pools.HashtagGroupsPerCaption, len(groups))
	if n == 0 || t.pools.MaxHashtags == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var tags []string
	for _, gi := range t.rng.Perm(len(groups))[:n] {
		for _, tag := range groups[gi] {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if !strings.HasPrefix(tag, "#") {
				tag = "#" + tag
			}
			key := strings.ToLower(tag)
			if seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, tag)
			if len(tags) == t.pools.MaxHashtags {
				return tags
			}
		}
	}
	return tags
}

func fill(phrase string, p *models.Product) string {
	price := "giá tốt"
	if p.Price != nil {
		price = FormatVND(*p.Price)
	}
	return strings.NewReplacer(
		"{{name}}", strings.TrimSpace(p.ProductName),
		"{{price}}", price,
	).Replace(phrase)
}
