package raster

import (
	"fmt"
	"image"

	"github.com/matzehuels/diaryprint/pkg/errors"
)

// DefaultMaxPixels bounds a single surface allocation (about 400 MB of RGBA).
const DefaultMaxPixels = 100_000_000

// Buffer is a rendered document: a dense RGBA pixel grid plus the scale it
// was rendered at. A Buffer is not modified after it is returned.
type Buffer struct {
	Image *image.RGBA
	Scale float64
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.Image.Rect.Dx() }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.Image.Rect.Dy() }

// Crop returns the rows [top, top+height) as an image whose bounds start at
// (0,0). The pixels are shared with the buffer and must not be modified.
func (b *Buffer) Crop(top, height int) (*image.RGBA, error) {
	if b == nil || b.Image == nil {
		return nil, errors.New(errors.ErrCodeCompose, "crop of empty buffer")
	}
	if top < 0 || height <= 0 || top+height > b.Height() {
		return nil, errors.New(errors.ErrCodeCompose, "crop rows [%d,%d) outside buffer of height %d", top, top+height, b.Height())
	}
	r := b.Image.Rect
	sub := b.Image.SubImage(image.Rect(r.Min.X, r.Min.Y+top, r.Max.X, r.Min.Y+top+height)).(*image.RGBA)

	// Rebase so callers can draw it at the origin without offsets.
	return &image.RGBA{
		Pix:    sub.Pix,
		Stride: sub.Stride,
		Rect:   image.Rect(0, 0, sub.Rect.Dx(), sub.Rect.Dy()),
	}, nil
}

// Allocate creates a w x h RGBA surface. Non-positive dimensions, surfaces
// larger than maxPixels (when maxPixels > 0) and allocator panics are
// reported as errors.ErrCodeSurface.
func Allocate(w, h, maxPixels int) (img *image.RGBA, err error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeSurface, "cannot allocate %dx%d surface", w, h)
	}
	if maxPixels > 0 && int64(w)*int64(h) > int64(maxPixels) {
		return nil, errors.New(errors.ErrCodeSurface, "%dx%d surface exceeds limit of %d pixels", w, h, maxPixels)
	}
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = errors.Wrap(errors.ErrCodeSurface, fmt.Errorf("%v", r), "allocate %dx%d surface", w, h)
		}
	}()
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}
