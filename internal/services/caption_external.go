package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lltshop/shoppost/internal/models"
)

// ExternalCaptioner asks a text backend to write the caption
type ExternalCaptioner struct {
	gen TextGenerator
}

// Compile-time interface compliance check
var _ CaptionGenerator = (*ExternalCaptioner)(nil)

// NewExternalCaptioner creates a captioner backed by gen
func NewExternalCaptioner(gen TextGenerator) *ExternalCaptioner {
	return &ExternalCaptioner{gen: gen}
}

// Generate returns normalized backend output, or a *CaptionGenerationError.
// Wrap it with WithFallback so publishing never waits on a broken backend.
func (e *ExternalCaptioner) Generate(ctx context.Context, p *models.Product) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CaptionTimeout)
	defer cancel()

	text, err := e.gen.Generate(ctx, TextRequest{Prompt: buildCaptionPrompt(p)})
	if err != nil {
		return "", &CaptionGenerationError{Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &CaptionGenerationError{Cause: fmt.Errorf("backend returned empty text")}
	}

	return NormalizeGenerated(text, p.AffiliateURL), nil
}

func buildCaptionPrompt(p *models.Product) string {
	var b strings.Builder
	b.WriteString("Hãy viết một bài quảng cáo tiếng Việt hấp dẫn để đăng Facebook với các thông tin sau:\n\n")
	b.WriteString("THÔNG TIN SẢN PHẨM:\n")
	fmt.Fprintf(&b, "- Tên sản phẩm: %s\n", strings.TrimSpace(p.ProductName))
	if p.Price != nil {
		fmt.Fprintf(&b, "- Giá: %s\n", FormatVND(*p.Price))
	}
	if d := strings.TrimSpace(p.Description); d != "" {
		fmt.Fprintf(&b, "- Mô tả: %s\n", d)
	}
	if link := strings.TrimSpace(p.AffiliateURL); link != "" {
		fmt.Fprintf(&b, "- Link mua hàng: %s\n", link)
	}
	b.WriteString(`
YÊU CẦU:
1. Viết bằng tiếng Việt tự nhiên, giọng văn kích thích mua hàng
2. Thêm emoji phù hợp
3. Đặt link mua hàng (nếu có) ở cuối bài, trước phần hashtag
4. Hashtag đặt ở phần cuối cùng
5. Không nhắc đến "caption" hay "bài quảng cáo"

Chỉ trả về nội dung hoàn chỉnh, không giải thích thêm.`)
	return b.String()
}
