package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longDescription = "Nồi chiên không dầu 5L, công suất 1500W, lòng nồi chống dính, hẹn giờ 60 phút."

func TestDescriptionRewriter_Rewrite(t *testing.T) {
	gen := &MockTextGenerator{Response: "Đây là mô tả đã định dạng:\n\n**Đặc điểm**\n\n\n- Dung tích 5 lít\n- Chống dính tốt"}
	r := NewDescriptionRewriter(gen)

	out, err := r.Rewrite(context.Background(), longDescription)

	require.NoError(t, err)
	assert.Equal(t, "Đặc điểm\n\n- Dung tích 5 lít\n- Chống dính tốt", out)
	require.Len(t, gen.Requests, 1)
	assert.Equal(t, 0.3, gen.Requests[0].Temperature)
	assert.Contains(t, gen.Requests[0].Prompt, longDescription)
}

func TestDescriptionRewriter_TooShort(t *testing.T) {
	gen := &MockTextGenerator{Response: "unused"}

	_, err := NewDescriptionRewriter(gen).Rewrite(context.Background(), "  ngắn quá  ")

	assert.ErrorIs(t, err, ErrDescriptionTooShort)
	assert.Empty(t, gen.Requests, "backend must not be called for short input")
}

func TestDescriptionRewriter_NotVietnamese(t *testing.T) {
	gen := &MockTextGenerator{Response: "Air fryer with a non-stick basket and a sixty minute timer."}

	_, err := NewDescriptionRewriter(gen).Rewrite(context.Background(), longDescription)

	assert.ErrorIs(t, err, ErrNotVietnamese)
}

func TestDescriptionRewriter_BackendError(t *testing.T) {
	backendErr := errors.New("503")

	_, err := NewDescriptionRewriter(&MockTextGenerator{Err: backendErr}).Rewrite(context.Background(), longDescription)

	assert.ErrorIs(t, err, backendErr)
}

func TestCleanRewrittenDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"quoted with escaped newlines", `"Mô tả\n\n\nChi tiết"`, "Mô tả\n\nChi tiết"},
		{"english preamble", "Here is the formatted description:\nNội dung", "Nội dung"},
		{"heading markers", "--Thông số--\n- 5L", "Thông số\n- 5L"},
		{"already clean", "Nội dung sạch", "Nội dung sạch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanRewrittenDescription(tt.in))
		})
	}
}
