package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lltshop/shoppost/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CaptionGenerator produces the ad copy for a product post
type CaptionGenerator interface {
	Generate(ctx context.Context, product *models.Product) (string, error)
}

// CaptionGenerationError wraps a failed call to the text backend
type CaptionGenerationError struct {
	Cause error
}

func (e *CaptionGenerationError) Error() string {
	return fmt.Sprintf("caption generation failed: %v", e.Cause)
}

func (e *CaptionGenerationError) Unwrap() error {
	return e.Cause
}

// DefaultHashtagLine is appended when generated copy carries no hashtags of its own
const DefaultHashtagLine = "#khuyenmai #hotdeal"

var (
	hashtagPattern   = regexp.MustCompile(`(^|\s)#[\p{L}\p{N}_]+`)
	excessNewlines   = regexp.MustCompile(`\n{3,}`)
	vietnamesePrices = message.NewPrinter(language.Vietnamese)
)

// FormatVND renders an amount with Vietnamese digit grouping, e.g. 199.000₫
func FormatVND(amount int64) string {
	return vietnamesePrices.Sprintf("%d₫", amount)
}

// HashtagIndex returns the byte offset of the first hashtag token, or -1
func HashtagIndex(text string) int {
	loc := hashtagPattern.FindStringIndex(text)
	if loc == nil {
		return -1
	}
	// skip the leading whitespace the pattern consumed
	return loc[0] + strings.Index(text[loc[0]:loc[1]], "#")
}

// FallbackCaption builds a deterministic caption from the product fields alone.
// The affiliate link always precedes every hashtag token.
func FallbackCaption(p *models.Product) string {
	name := strings.TrimSpace(p.ProductName)
	link := strings.TrimSpace(p.AffiliateURL)

	description := strings.TrimSpace(p.Description)
	if description == "" {
		description = "Sản phẩm chất lượng cao"
	}
	price := "Liên hệ"
	if p.Price != nil {
		price = FormatVND(*p.Price)
	}

	headline := "🔥 " + name
	body := []string{"🔹 " + description, "💰 Giá: " + price}

	var parts []string
	switch {
	case link == "":
		parts = append(parts, headline)
		parts = append(parts, body...)
	case HashtagIndex(headline) >= 0:
		parts = append(parts, "🛒 "+link, headline)
		parts = append(parts, body...)
	default:
		parts = append(parts, headline, "🛒 "+link)
		parts = append(parts, body...)
	}
	parts = append(parts, "#sanphammoi #uudai")

	return strings.Join(parts, "\n\n")
}

// NormalizeGenerated tidies backend output: blank-line runs collapse to one blank line and
// the affiliate link is placed ahead of the hashtag block.
func NormalizeGenerated(text, link string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")

	link = strings.TrimSpace(link)
	if link == "" {
		return text
	}

	linkAt := strings.Index(text, link)
	tagAt := HashtagIndex(text)
	if linkAt >= 0 && (tagAt < 0 || linkAt < tagAt) {
		return text
	}

	if linkAt >= 0 {
		// link trails the hashtags; pull it out and reinsert below
		text = strings.TrimSpace(strings.ReplaceAll(text, link, ""))
		text = excessNewlines.ReplaceAllString(text, "\n\n")
		tagAt = HashtagIndex(text)
	}

	if tagAt < 0 {
		return text + "\n\n🔗 " + link + "\n\n" + DefaultHashtagLine
	}

	lineStart := strings.LastIndex(text[:tagAt], "\n") + 1
	head := strings.TrimRight(text[:lineStart], "\n")
	tail := text[lineStart:]
	if head == "" {
		return "🔗 " + link + "\n\n" + tail
	}
	return head + "\n\n🔗 " + link + "\n\n" + tail
}

// WithFallback wraps a generator so that any failure yields FallbackCaption instead
func WithFallback(primary CaptionGenerator, logf func(format string, args ...any)) CaptionGenerator {
	return &fallbackCaptioner{primary: primary, logf: logf}
}

type fallbackCaptioner struct {
	primary CaptionGenerator
	logf    func(format string, args ...any)
}

func (f *fallbackCaptioner) Generate(ctx context.Context, p *models.Product) (string, error) {
	caption, err := f.primary.Generate(ctx, p)
	if err == nil && strings.TrimSpace(caption) != "" {
		return caption, nil
	}
	if err == nil {
		err = &CaptionGenerationError{Cause: fmt.Errorf("empty caption")}
	}
	if f.logf != nil {
		f.logf("Caption backend failed for %q, using fallback: %v", p.ProductName, err)
	}
	return FallbackCaption(p), nil
}
