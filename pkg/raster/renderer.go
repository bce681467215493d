package raster

import (
	"context"
)

// Renderer turns a visual tree into a Buffer at the given scale (pixels per
// layout unit). Implementations render at a fixed layout width so that the
// result does not depend on the caller's viewport.
type Renderer interface {
	Render(ctx context.Context, scale float64) (*Buffer, error)
}

// Resizable is a visual tree whose logical layout width can be changed.
type Resizable interface {
	LayoutWidth() float64
	SetLayoutWidth(w float64)
}

// WithFixedWidth forces tree to width while fn runs and restores the
// previous width on every exit path, including errors and panics.
func WithFixedWidth(tree Resizable, width float64, fn func() error) error {
	prev := tree.LayoutWidth()
	tree.SetLayoutWidth(width)
	defer tree.SetLayoutWidth(prev)
	return fn()
}
