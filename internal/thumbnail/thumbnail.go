// Package thumbnail derives fixed-width previews from uploaded images.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Widths are the derivative widths produced for every image, largest first.
var Widths = []int{500, 250, 100}

const jpegQuality = 85

// ErrInvalidWidth is returned for non-positive target widths.
var ErrInvalidWidth = errors.New("thumbnail width must be positive")

// IsWidth reports whether w is one of Widths.
func IsWidth(w int) bool {
	for _, known := range Widths {
		if w == known {
			return true
		}
	}
	return false
}

// Source is a decoded original ready to be resized any number of times.
type Source struct {
	img    image.Image
	format string
}

// Decode parses an image in any registered format (jpeg, png, gif, webp).
func Decode(data []byte) (*Source, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &Source{img: img, format: format}, nil
}

// Format is the name of the decoded format.
func (s *Source) Format() string {
	return s.format
}

// Size returns the original dimensions.
func (s *Source) Size() (width, height int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Resize scales the original to width, keeping the aspect ratio, and encodes
// it in the original format (webp and other read-only formats become png).
// Output is deterministic for a given input.
func (s *Source) Resize(width int) ([]byte, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}
	srcW, srcH := s.Size()
	if srcW == 0 || srcH == 0 {
		return nil, errors.New("resize image: empty source")
	}
	height := srcH * width / srcW
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), s.img, s.img.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	var err error
	switch s.format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s thumbnail: %w", s.format, err)
	}
	return buf.Bytes(), nil
}
