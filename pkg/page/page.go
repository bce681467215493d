// Package page describes physical page formats and the printable-area
// geometry shared by the planner, the page composer and the PDF assembler.
//
// All physical sizes are in millimeters. A [Geometry] binds a format to a
// pixel density derived from the raster width: the raster is mapped onto the
// printable width, so one raster pixel is drawn as one page-canvas pixel and
// the usable content height in pixels is the page height the planner uses.
package page

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/matzehuels/diaryprint/pkg/errors"
)

// Format is a portrait paper size in millimeters.
type Format struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width_mm"`
	Height float64 `json:"height_mm"`
}

var (
	A4     = Format{Name: "A4", Width: 210, Height: 297}
	Letter = Format{Name: "Letter", Width: 215.9, Height: 279.4}
)

var formats = map[string]Format{
	"a4":     A4,
	"letter": Letter,
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	if f, ok := formats[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	return Format{}, errors.New(errors.ErrCodeInvalidConfig, "unknown page format %q (want A4 or Letter)", name)
}

// Band sizes, in millimeters.
const (
	DefaultHeaderHeight = 14.0
	DefaultFooterHeight = 8.0
	BandGap             = 4.0
)

// Geometry is the pixel layout of one page.
type Geometry struct {
	Format  Format
	Margin  float64 // mm on every side
	Header  float64 // header band height, mm
	Footer  float64 // footer band height, mm; 0 for none
	PxPerMM float64
}

// New builds the geometry for a raster of rasterWidth pixels mapped onto the
// printable width of the format.
func New(format Format, margin, header, footer float64, rasterWidth int) (Geometry, error) {
	g := Geometry{Format: format, Margin: margin, Header: header, Footer: footer}
	if margin < 0 || header < 0 || footer < 0 {
		return g, errors.New(errors.ErrCodeInvalidConfig, "margin and band heights must not be negative")
	}
	if rasterWidth <= 0 {
		return g, errors.New(errors.ErrCodeInvalidInput, "raster width must be positive, got %d", rasterWidth)
	}
	if g.PrintableWidth() <= 0 {
		return g, errors.New(errors.ErrCodeInvalidConfig, "margin %.1fmm leaves no printable width on %s", margin, format.Name)
	}
	if g.ContentHeight() <= 0 {
		return g, errors.New(errors.ErrCodeInvalidConfig, "margins and bands leave no content height on %s", format.Name)
	}
	g.PxPerMM = float64(rasterWidth) / g.PrintableWidth()
	return g, nil
}

// PrintableWidth is the page width inside the margins, in mm.
func (g Geometry) PrintableWidth() float64 { return g.Format.Width - 2*g.Margin }

// ContentHeight is the height left for document content, in mm.
func (g Geometry) ContentHeight() float64 {
	h := g.Format.Height - 2*g.Margin - g.Header - BandGap
	if g.Footer > 0 {
		h -= g.Footer + BandGap
	}
	return h
}

func (g Geometry) px(mm float64) int { return int(math.Round(mm * g.PxPerMM)) }

// Size returns the full page size in pixels.
func (g Geometry) Size() image.Point {
	return image.Pt(g.px(g.Format.Width), g.px(g.Format.Height))
}

// ContentHeightPx is the usable page height P in raster pixels.
func (g Geometry) ContentHeightPx() int {
	return int(math.Floor(g.ContentHeight() * g.PxPerMM))
}

// HeaderRect is the header band in page pixels.
func (g Geometry) HeaderRect() image.Rectangle {
	return image.Rect(g.px(g.Margin), g.px(g.Margin), g.px(g.Format.Width-g.Margin), g.px(g.Margin+g.Header))
}

// ContentRect is the content area in page pixels.
func (g Geometry) ContentRect() image.Rectangle {
	top := g.px(g.Margin + g.Header + BandGap)
	return image.Rect(g.px(g.Margin), top, g.px(g.Format.Width-g.Margin), top+g.ContentHeightPx())
}

// FooterRect is the footer band in page pixels; empty when there is no footer.
func (g Geometry) FooterRect() image.Rectangle {
	if g.Footer <= 0 {
		return image.Rectangle{}
	}
	bottom := g.Format.Height - g.Margin
	return image.Rect(g.px(g.Margin), g.px(bottom-g.Footer), g.px(g.Format.Width-g.Margin), g.px(bottom))
}

func (g Geometry) String() string {
	return fmt.Sprintf("%s %.0fx%.0fmm margin %.1fmm, %.3f px/mm, content %dpx",
		g.Format.Name, g.Format.Width, g.Format.Height, g.Margin, g.PxPerMM, g.ContentHeightPx())
}
