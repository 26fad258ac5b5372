package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Description rewrite errors
var (
	ErrDescriptionTooShort = errors.New("description must be at least 20 characters")
	ErrNotVietnamese       = errors.New("rewritten description is not Vietnamese")
)

// MinDescriptionLength is the shortest description worth rewriting, in characters
const MinDescriptionLength = 20

var (
	preamblePattern  = regexp.MustCompile(`(?i)^(here is|here's the|đây là|kết quả|output)[^\n]*\n+`)
	formattedOutput  = regexp.MustCompile(`(?i)^[^\n]*formatted output[^\n]*\n+`)
	headingMarkers   = regexp.MustCompile(`(?m)^[*\-~=]{2}(.*?)[*\-~=]{2}`)
	blankLineRuns    = regexp.MustCompile(`\n{2,}`)
	vietnameseLetter = regexp.MustCompile(`(?i)[àáảãạăắằẳẵặâấầẩẫậđèéẻẽẹêếềểễệìíỉĩịòóỏõọôốồổỗộơớờởỡợùúủũụưứừửữựỳýỷỹỵ]`)
)

// DescriptionRewriter reformats marketplace descriptions into tidy Vietnamese sections
type DescriptionRewriter struct {
	gen TextGenerator
}

// NewDescriptionRewriter creates a rewriter backed by gen
func NewDescriptionRewriter(gen TextGenerator) *DescriptionRewriter {
	return &DescriptionRewriter{gen: gen}
}

// Rewrite sends the description to the backend at a low temperature and cleans the result
func (r *DescriptionRewriter) Rewrite(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return "", ErrDescriptionTooShort
	}

	ctx, cancel := context.WithTimeout(ctx, CaptionTimeout)
	defer cancel()

	text, err := r.gen.Generate(ctx, TextRequest{
		Prompt:      buildDescriptionPrompt(description),
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to rewrite description: %w", err)
	}

	cleaned := CleanRewrittenDescription(text)
	if !looksVietnamese(cleaned) {
		return "", ErrNotVietnamese
	}
	return cleaned, nil
}

// CleanRewrittenDescription strips model chatter and heading markup
func CleanRewrittenDescription(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"`)
	text = strings.ReplaceAll(text, `\n`, "\n")
	text = preamblePattern.ReplaceAllString(text, "")
	text = formattedOutput.ReplaceAllString(text, "")
	text = strings.TrimLeft(text, "\n")
	text = headingMarkers.ReplaceAllString(text, "$1")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// looksVietnamese requires at least one in ten characters to carry a Vietnamese diacritic
func looksVietnamese(text string) bool {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return false
	}
	return len(vietnameseLetter.FindAllStringIndex(text, -1))*10 >= n
}

func buildDescriptionPrompt(description string) string {
	return `Hãy tóm tắt và định dạng lại mô tả sản phẩm sau bằng TIẾNG VIỆT theo yêu cầu:
- PHẢI dùng tiếng Việt
- Bắt đầu trực tiếp bằng nội dung, không có dòng giới thiệu
- Mở đầu bằng 1-2 câu mô tả ngắn gọn
- Trình bày theo các phần rõ ràng, dùng dấu "-" cho các gạch đầu dòng
- Tiêu đề phần không dùng ký tự đặc biệt như ** hay --
- Giữ nguyên thông tin quan trọng, ưu tiên thông số kỹ thuật và lợi ích

Nội dung cần xử lý:
` + description
}
