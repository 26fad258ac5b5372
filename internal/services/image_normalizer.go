package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// DefaultMaxImageEdge is the longest side, in pixels, sent to the platform
const DefaultMaxImageEdge = 2048

// ImageNormalizer converts product images into something the photo endpoint accepts:
// webp becomes JPEG and oversized images are scaled down.
type ImageNormalizer struct {
	MaxEdge     int
	JPEGQuality int
}

// NewImageNormalizer creates a normalizer with the default limits
func NewImageNormalizer() *ImageNormalizer {
	return &ImageNormalizer{MaxEdge: DefaultMaxImageEdge, JPEGQuality: 90}
}

// Normalize returns bytes and content type ready for upload. JPEG and PNG within
// the size limit pass through untouched.
func (n *ImageNormalizer) Normalize(data []byte, contentType string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image")
	}
	sniffed := http.DetectContentType(data)
	if strings.Contains(contentType, "webp") {
		sniffed = "image/webp"
	}

	var (
		img image.Image
		err error
	)
	switch {
	case strings.Contains(sniffed, "jpeg"):
		img, err = jpeg.Decode(bytes.NewReader(data))
	case strings.Contains(sniffed, "png"):
		img, err = png.Decode(bytes.NewReader(data))
	case strings.Contains(sniffed, "webp"):
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		// unknown formats (gif etc.) go through as-is and the platform decides
		return data, sniffed, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", sniffed, err)
	}

	scaled := downscale(img, n.MaxEdge)
	if scaled == img && !strings.Contains(sniffed, "webp") {
		return data, sniffed, nil
	}

	if strings.Contains(sniffed, "png") {
		var buf bytes.Buffer
		if err := png.Encode(&buf, scaled); err != nil {
			return nil, "", fmt.Errorf("failed to encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}

	quality := n.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(scaled), &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// downscale keeps the aspect ratio and returns src itself when it already fits
func downscale(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return src
	}

	scale := math.Min(float64(maxEdge)/float64(w), float64(maxEdge)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// flatten paints transparent areas white, since JPEG has no alpha
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
