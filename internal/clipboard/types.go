// Package clipboard reads images and text from, and writes text to, the
// system clipboard.
package clipboard

import (
	"fmt"

	"github.com/zhubert/parley/internal/avatar"
)

// MaxImageDimension is the largest width or height accepted from a paste.
const MaxImageDimension = 8000

// ImageData is an image read from the clipboard.
type ImageData struct {
	Data      []byte // PNG encoded
	MediaType string // always "image/png"
	Width     int
	Height    int
}

// Validate checks the image against the avatar input limits.
func (img *ImageData) Validate() error {
	if len(img.Data) > avatar.MaxInput {
		return fmt.Errorf("image too large: %d bytes (max %.1fMB)",
			len(img.Data), float64(avatar.MaxInput)/(1<<20))
	}
	if img.Width > MaxImageDimension || img.Height > MaxImageDimension {
		return fmt.Errorf("image dimensions too large: %dx%d (max %dx%d)",
			img.Width, img.Height, MaxImageDimension, MaxImageDimension)
	}
	return nil
}

// SizeKB returns the image size in kilobytes.
func (img *ImageData) SizeKB() int {
	return len(img.Data) / 1024
}
