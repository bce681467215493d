package plan

import (
	"fmt"

	"github.com/matzehuels/diaryprint/pkg/errors"
)

// Slice is the pixel range [Top, Top+Height) of the raster assigned to one page.
type Slice struct {
	Index  int `json:"index"`
	Top    int `json:"top"`
	Height int `json:"height"`
}

// Bottom returns the first pixel row after the slice.
func (s Slice) Bottom() int { return s.Top + s.Height }

// Contains reports whether the whole section lies inside the slice.
func (s Slice) Contains(sec Section) bool {
	return sec.Top >= s.Top && sec.Bottom() <= s.Bottom()
}

// Note records an accepted degradation: a protected section that could not
// be kept on a single page.
type Note struct {
	Section Section `json:"section"`
	Pages   []int   `json:"pages"`
}

// Plan is the ordered, gap-free list of page slices covering a raster.
type Plan struct {
	Slices     []Slice `json:"slices"`
	Height     int     `json:"height"`
	PageHeight int     `json:"page_height"`
	Notes      []Note  `json:"notes,omitempty"`
}

// Pages returns the number of pages in the plan.
func (p Plan) Pages() int { return len(p.Slices) }

// PageOf returns the index of the page holding pixel row y, or 0 if y is outside the plan.
func (p Plan) PageOf(y int) int {
	for _, s := range p.Slices {
		if y >= s.Top && y < s.Bottom() {
			return s.Index
		}
	}
	return 0
}

// Compute splits a raster of height total into pages of usable height
// pageHeight, keeping protected sections whole where possible and applying
// the trailing-section priority rule. Sections may be given in any order.
//
// Slices are contiguous and cover [0,total) exactly once. A slice can be
// taller than pageHeight when the trailing section forces the remainder of
// the document onto one page or when skipped gap rows are carried forward.
func Compute(total, pageHeight int, sections []Section) (Plan, error) {
	if pageHeight <= 0 {
		return Plan{}, errors.New(errors.ErrCodeInvalidInput, "page height must be positive, got %d", pageHeight)
	}
	if total < 0 {
		return Plan{}, errors.New(errors.ErrCodeInvalidInput, "raster height must not be negative, got %d", total)
	}

	norm := Normalize(total, sections)
	p := Plan{Height: total, PageHeight: pageHeight}

	cursor, start, index := 0, 0, 1
	for cursor < total {
		d := Decide(State{Cursor: cursor, Total: total, PageHeight: pageHeight, Sections: norm})
		if d.Px <= cursor || d.Px > total {
			return Plan{}, errors.New(errors.ErrCodeInternal,
				"planner made no progress at row %d (%s to %d by %s)", cursor, d.Action, d.Px, d.Rule)
		}
		if d.Action == SkipGap {
			cursor = d.Px
			continue
		}
		p.Slices = append(p.Slices, Slice{Index: index, Top: start, Height: d.Px - start})
		cursor, start = d.Px, d.Px
		index++
	}

	p.Notes = splitNotes(p, norm)
	return p, nil
}

// splitNotes lists protected sections that no single slice contains.
func splitNotes(p Plan, sections []Section) []Note {
	var notes []Note
	for _, sec := range sections {
		if !sec.Protected() {
			continue
		}
		var pages []int
		whole := false
		for _, s := range p.Slices {
			if s.Contains(sec) {
				whole = true
				break
			}
			if s.Top < sec.Bottom() && s.Bottom() > sec.Top {
				pages = append(pages, s.Index)
			}
		}
		if !whole {
			notes = append(notes, Note{Section: sec, Pages: pages})
		}
	}
	return notes
}

// Validate checks that the plan's slices are numbered from 1, contiguous,
// non-empty and cover [0, Height) exactly.
func Validate(p Plan) error {
	next := 0
	for i, s := range p.Slices {
		if s.Index != i+1 {
			return fmt.Errorf("slice %d has index %d", i, s.Index)
		}
		if s.Top != next {
			return fmt.Errorf("slice %d starts at %d, want %d", s.Index, s.Top, next)
		}
		if s.Height <= 0 {
			return fmt.Errorf("slice %d has height %d", s.Index, s.Height)
		}
		next = s.Bottom()
	}
	if next != p.Height {
		return fmt.Errorf("slices cover %d rows, raster has %d", next, p.Height)
	}
	return nil
}
