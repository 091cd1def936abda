package clipboard

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"sync"

	"golang.design/x/clipboard"

	"github.com/zhubert/parley/internal/logger"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init initializes the clipboard. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			logger.Warn("Clipboard: failed to initialize: %v", err)
			initErr = fmt.Errorf("failed to initialize clipboard: %w", err)
			return
		}
		logger.Debug("Clipboard: initialized")
	})
	return initErr
}

// ReadImage reads an image from the clipboard, re-encoded as PNG. It returns
// nil, nil when the clipboard holds no image.
func ReadImage() (*ImageData, error) {
	if err := Init(); err != nil {
		return nil, err
	}

	raw := clipboard.Read(clipboard.FmtImage)
	if len(raw) == 0 {
		return nil, nil
	}
	return decode(raw)
}

func decode(raw []byte) (*ImageData, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode clipboard image: %w", err)
	}
	b := img.Bounds()
	logger.Debug("Clipboard: image %dx%d, format=%s", b.Dx(), b.Dy(), format)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return &ImageData{
		Data:      buf.Bytes(),
		MediaType: "image/png",
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

// ReadText reads text from the clipboard.
func ReadText() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// WriteText puts text on the clipboard.
func WriteText(text string) error {
	if err := Init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
