package document

import (
	"fmt"
	"strings"

	"github.com/matzehuels/diaryprint/pkg/errors"
)

// Kind identifies how a section is laid out.
type Kind string

const (
	KindHeading    Kind = "heading"
	KindText       Kind = "text"
	KindCard       Kind = "card"
	KindTable      Kind = "table"
	KindSignatures Kind = "signatures"
	KindSpacer     Kind = "spacer"
)

var knownKinds = map[Kind]bool{
	KindHeading:    true,
	KindText:       true,
	KindCard:       true,
	KindTable:      true,
	KindSignatures: true,
	KindSpacer:     true,
}

// DefaultWidth is the layout width used when a document does not set one.
// It matches an A4 sheet at 96 CSS pixels per inch.
const DefaultWidth = 794.0

// Field is one label/value row of a card.
type Field struct {
	Label string `json:"label" toml:"label" yaml:"label"`
	Value string `json:"value" toml:"value" yaml:"value"`
}

// Signature is one signing slot of a signature block.
type Signature struct {
	Role string `json:"role" toml:"role" yaml:"role"`
	Name string `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty"`
}

// Section is one block of the document, laid out top to bottom.
type Section struct {
	Kind  Kind   `json:"kind" toml:"kind" yaml:"kind"`
	Label string `json:"label,omitempty" toml:"label,omitempty" yaml:"label,omitempty"`
	Title string `json:"title,omitempty" toml:"title,omitempty" yaml:"title,omitempty"`

	// Text is the body of heading and text sections. Blank lines separate paragraphs.
	Text string `json:"text,omitempty" toml:"text,omitempty" yaml:"text,omitempty"`

	Fields     []Field     `json:"fields,omitempty" toml:"fields,omitempty" yaml:"fields,omitempty"`
	Columns    []string    `json:"columns,omitempty" toml:"columns,omitempty" yaml:"columns,omitempty"`
	Rows       [][]string  `json:"rows,omitempty" toml:"rows,omitempty" yaml:"rows,omitempty"`
	Signatures []Signature `json:"signatures,omitempty" toml:"signatures,omitempty" yaml:"signatures,omitempty"`

	// Height is the vertical extent of a spacer, in layout units.
	Height float64 `json:"height,omitempty" toml:"height,omitempty" yaml:"height,omitempty"`

	// Protect overrides the default protection of the section kind.
	Protect *bool `json:"protect,omitempty" toml:"protect,omitempty" yaml:"protect,omitempty"`

	// HideFromExport removes the section before rendering.
	HideFromExport bool `json:"hide_from_export,omitempty" toml:"hide_from_export,omitempty" yaml:"hide_from_export,omitempty"`
}

// Name returns the label used to refer to the section in logs and plans.
func (s Section) Name(index int) string {
	switch {
	case s.Label != "":
		return s.Label
	case s.Title != "":
		return s.Title
	}
	return fmt.Sprintf("%s-%d", s.Kind, index+1)
}

// Document is a report to export: a title and an ordered list of sections.
//
// Width is the logical layout width. It is the one piece of mutable state in
// the tree: the renderer forces it to a fixed value while capturing and
// restores it afterwards (see LayoutWidth and SetLayoutWidth).
type Document struct {
	Title    string    `json:"title" toml:"title" yaml:"title"`
	Width    float64   `json:"width,omitempty" toml:"width,omitempty" yaml:"width,omitempty"`
	Sections []Section `json:"sections" toml:"sections" yaml:"sections"`
}

// LayoutWidth returns the logical width as set; 0 means DefaultWidth.
func (d *Document) LayoutWidth() float64 { return d.Width }

// EffectiveWidth returns the width Layout uses.
func (d *Document) EffectiveWidth() float64 {
	if d.Width <= 0 {
		return DefaultWidth
	}
	return d.Width
}

// SetLayoutWidth replaces the logical width.
func (d *Document) SetLayoutWidth(w float64) { d.Width = w }

// Validate checks that every section is well formed.
func (d *Document) Validate() error {
	if d == nil {
		return errors.New(errors.ErrCodeInvalidDocument, "document is nil")
	}
	if d.Width < 0 {
		return errors.New(errors.ErrCodeInvalidDocument, "width must not be negative")
	}
	for i, s := range d.Sections {
		if !knownKinds[s.Kind] {
			return errors.New(errors.ErrCodeInvalidDocument, "section %d: unknown kind %q", i+1, s.Kind)
		}
		switch s.Kind {
		case KindTable:
			if len(s.Columns) == 0 {
				return errors.New(errors.ErrCodeInvalidDocument, "section %d: table has no columns", i+1)
			}
			for j, row := range s.Rows {
				if len(row) > len(s.Columns) {
					return errors.New(errors.ErrCodeInvalidDocument,
						"section %d: row %d has %d cells, table has %d columns", i+1, j+1, len(row), len(s.Columns))
				}
			}
		case KindSpacer:
			if s.Height < 0 {
				return errors.New(errors.ErrCodeInvalidDocument, "section %d: spacer height must not be negative", i+1)
			}
		case KindSignatures:
			if len(s.Signatures) == 0 {
				return errors.New(errors.ErrCodeInvalidDocument, "section %d: signature block has no signatures", i+1)
			}
		case KindHeading, KindText:
			if strings.TrimSpace(s.Text) == "" && s.Title == "" {
				return errors.New(errors.ErrCodeInvalidDocument, "section %d: %s has no text", i+1, s.Kind)
			}
		}
	}
	return nil
}

// Filter returns a copy of d without the sections marked HideFromExport.
// The input document is not modified.
func Filter(d *Document) *Document {
	out := &Document{Title: d.Title, Width: d.Width}
	out.Sections = make([]Section, 0, len(d.Sections))
	for _, s := range d.Sections {
		if s.HideFromExport {
			continue
		}
		out.Sections = append(out.Sections, s)
	}
	return out
}
