// Package locate finds the protected regions of a rendered report in raster
// pixel space.
//
// A [Locator] reports one plan.Section per labeled region of the visual tree,
// measured at the same fixed width and scale the renderer used. Region boxes
// are converted with [FromRegions]: the top edge is floored and the bottom
// edge ceiled, so a section's pixel rows always cover its layout box.
//
// Classification:
//
//   - tables and cards: plan.ClassProtected
//   - the signature block: plan.ClassTrailing (only the last one)
//   - headings, text and spacers: plan.ClassNone
//
// A section's explicit protect flag overrides the default of its kind.
package locate

import (
	"context"
	"math"

	"github.com/matzehuels/diaryprint/pkg/document"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/plan"
	"github.com/matzehuels/diaryprint/pkg/raster"
)

// Locator returns the section boxes of a visual tree rendered at scale.
type Locator interface {
	Locate(ctx context.Context, scale float64) ([]plan.Section, error)
}

// Region is a labeled box in layout units, as reported by a backend.
type Region struct {
	Label  string
	Top    float64
	Bottom float64
	Class  plan.Class
}

// FromRegions maps layout-unit regions to pixel rows at scale, drops empty
// ones and normalizes the result (sorted, last trailing section wins).
// total is the raster height in pixels.
func FromRegions(regions []Region, scale float64, total int) []plan.Section {
	out := make([]plan.Section, 0, len(regions))
	for _, r := range regions {
		top := int(math.Floor(r.Top * scale))
		bottom := int(math.Ceil(r.Bottom * scale))
		if bottom <= top {
			continue
		}
		out = append(out, plan.Section{Label: r.Label, Top: top, Height: bottom - top, Class: r.Class})
	}
	return plan.Normalize(total, out)
}

// ClassOf returns the protection class of a document section kind, honoring
// an explicit override.
func ClassOf(kind document.Kind, protect *bool) plan.Class {
	class := plan.ClassNone
	switch kind {
	case document.KindTable, document.KindCard:
		class = plan.ClassProtected
	case document.KindSignatures:
		class = plan.ClassTrailing
	}
	if protect != nil {
		switch {
		case !*protect:
			class = plan.ClassNone
		case class == plan.ClassNone:
			class = plan.ClassProtected
		}
	}
	return class
}

// DocumentLocator locates the sections of a document.Document by laying it
// out at the renderer's fixed width.
type DocumentLocator struct {
	doc   *document.Document
	width float64
}

// NewDocumentLocator returns a locator for doc at the given fixed width.
func NewDocumentLocator(doc *document.Document, width float64) *DocumentLocator {
	if width <= 0 {
		width = document.DefaultWidth
	}
	return &DocumentLocator{doc: doc, width: width}
}

// ForRenderer returns a locator that measures exactly what r renders.
func ForRenderer(r *raster.DocumentRenderer) *DocumentLocator {
	return NewDocumentLocator(r.Document(), r.Width())
}

// Locate lays the document out at the fixed width and returns its regions
// in pixel space.
func (l *DocumentLocator) Locate(ctx context.Context, scale float64) ([]plan.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "scale must be a positive number, got %v", scale)
	}

	var sections []plan.Section
	err := raster.WithFixedWidth(l.doc, l.width, func() error {
		g := document.Layout(l.doc)
		regions := make([]Region, 0, len(g.Regions))
		for _, r := range g.Regions {
			regions = append(regions, Region{
				Label:  r.Label,
				Top:    r.Top,
				Bottom: r.Bottom(),
				Class:  ClassOf(r.Kind, r.Protect),
			})
		}
		sections = FromRegions(regions, scale, int(math.Ceil(g.Height*scale)))
		return nil
	})
	return sections, err
}
