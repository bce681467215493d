package raster

import (
	"context"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/matzehuels/diaryprint/pkg/document"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/fonts"
)

// DocumentRenderer rasterizes a document.Document with fogleman/gg.
type DocumentRenderer struct {
	doc       *document.Document
	width     float64
	maxPixels int
}

// Option configures a DocumentRenderer.
type Option func(*DocumentRenderer)

// WithWidth sets the fixed layout width used while rendering.
func WithWidth(w float64) Option {
	return func(r *DocumentRenderer) {
		if w > 0 {
			r.width = w
		}
	}
}

// WithMaxPixels bounds the surface size. Zero disables the check.
func WithMaxPixels(n int) Option {
	return func(r *DocumentRenderer) { r.maxPixels = n }
}

// NewDocumentRenderer returns a renderer for doc. The document's width is
// forced to the fixed layout width (default document.DefaultWidth) only
// for the duration of each Render call.
func NewDocumentRenderer(doc *document.Document, opts ...Option) *DocumentRenderer {
	r := &DocumentRenderer{doc: doc, width: document.DefaultWidth, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Width returns the fixed layout width.
func (r *DocumentRenderer) Width() float64 { return r.width }

// Document returns the rendered document.
func (r *DocumentRenderer) Document() *document.Document { return r.doc }

// Render lays the document out at the fixed width and paints it at scale.
// The buffer is ceil(width*scale) x ceil(height*scale) pixels.
func (r *DocumentRenderer) Render(ctx context.Context, scale float64) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "scale must be a positive number, got %v", scale)
	}

	var buf *Buffer
	err := WithFixedWidth(r.doc, r.width, func() error {
		g := document.Layout(r.doc)
		w := int(math.Ceil(g.Width * scale))
		h := int(math.Ceil(g.Height * scale))

		img, err := Allocate(w, h, r.maxPixels)
		if err != nil {
			return err
		}

		p := newPainter(gg.NewContextForRGBA(img), scale)
		p.dc.SetColor(document.PaperColor)
		p.dc.Clear()
		for _, region := range g.Regions {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, it := range region.Items {
				p.paint(it)
			}
		}
		buf = &Buffer{Image: img, Scale: scale}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// painter draws layout items on a gg context. Font faces are created per
// painter because they are not safe for concurrent use.
type painter struct {
	dc    *gg.Context
	scale float64
	faces map[faceKey]font.Face
}

type faceKey struct {
	style fonts.Style
	size  float64
}

func newPainter(dc *gg.Context, scale float64) *painter {
	return &painter{dc: dc, scale: scale, faces: map[faceKey]font.Face{}}
}

func (p *painter) face(style fonts.Style, size float64) font.Face {
	k := faceKey{style, size * p.scale}
	f, ok := p.faces[k]
	if !ok {
		f = fonts.MustFace(style, k.size)
		p.faces[k] = f
	}
	return f
}

func (p *painter) paint(it document.Item) {
	s := p.scale
	dc := p.dc
	switch it.Op {
	case document.OpRect:
		if it.Fill.A > 0 {
			dc.SetColor(it.Fill)
			dc.DrawRectangle(it.X*s, it.Y*s, it.W*s, it.H*s)
			dc.Fill()
		}
		if it.Stroke.A > 0 {
			dc.SetColor(it.Stroke)
			dc.SetLineWidth(math.Max(it.LineWidth*s, 1))
			dc.DrawRectangle(it.X*s, it.Y*s, it.W*s, it.H*s)
			dc.Stroke()
		}
	case document.OpLine:
		dc.SetColor(it.Stroke)
		dc.SetLineWidth(math.Max(it.LineWidth*s, 1))
		dc.DrawLine(it.X*s, it.Y*s, (it.X+it.W)*s, (it.Y+it.H)*s)
		dc.Stroke()
	case document.OpText:
		dc.SetFontFace(p.face(it.Style, it.Size))
		dc.SetColor(it.Color)
		dc.DrawString(it.Text, it.X*s, it.Y*s)
	}
}
