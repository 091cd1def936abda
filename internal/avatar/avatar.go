// Package avatar prepares profile and group images.
package avatar

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/rivo/uniseg"
)

// Size is the edge length of a normalized avatar.
const Size = 256

// MaxInput is the largest image accepted before decoding.
const MaxInput = 10 << 20

// ErrTooLarge is returned for input over MaxInput.
var ErrTooLarge = errors.New("image too large")

// Normalize decodes a PNG, JPEG or GIF, center-crops it to a square and
// scales it to Size x Size. The result is PNG encoded.
func Normalize(data []byte) ([]byte, error) {
	if len(data) > MaxInput {
		return nil, ErrTooLarge
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("decode image: empty image")
	}
	side := min(w, h)

	dc := gg.NewContext(Size, Size)
	scale := float64(Size) / float64(side)
	dc.Scale(scale, scale)
	dc.DrawImage(img, -(b.Min.X + (w-side)/2), -(b.Min.Y + (h-side)/2))

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaceholderURL returns a generated avatar URL for name.
func PlaceholderURL(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "?"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

// IsPlaceholder reports whether u was produced by PlaceholderURL.
func IsPlaceholder(u string) bool {
	return strings.HasPrefix(u, "https://ui-avatars.com/api/")
}

// Initials returns the first grapheme of up to two words, upper-cased.
func Initials(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '@' || r == '.' || r == '_' || r == '-'
	})
	if len(words) > 2 {
		words = words[:2]
	}
	var b strings.Builder
	for _, w := range words {
		gr := uniseg.NewGraphemes(w)
		if gr.Next() {
			b.WriteString(strings.ToUpper(gr.Str()))
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}
