package plan

import (
	"fmt"
	"slices"
)

// Class is the protection class of a section.
type Class int

const (
	// ClassNone marks content that may be cut anywhere.
	ClassNone Class = iota
	// ClassProtected marks an atomic unit (table, info card) that should
	// not be split across a page boundary.
	ClassProtected
	// ClassTrailing marks the signature block. Once it starts, the rest of
	// the document is rendered to completion.
	ClassTrailing
)

var classNames = map[Class]string{
	ClassNone:      "none",
	ClassProtected: "protected",
	ClassTrailing:  "trailing",
}

// String returns the lowercase class name.
func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	s, ok := classNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown section class %d", int(c))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(b []byte) error {
	parsed, err := ParseClass(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClass converts a class name into a Class. The empty string is ClassNone.
func ParseClass(s string) (Class, error) {
	switch s {
	case "", "none":
		return ClassNone, nil
	case "protected":
		return ClassProtected, nil
	case "trailing":
		return ClassTrailing, nil
	}
	return ClassNone, fmt.Errorf("unknown section class %q", s)
}

// Section is the bounding box of a labeled region in raster pixel space.
type Section struct {
	Label  string `json:"label,omitempty"`
	Top    int    `json:"top"`
	Height int    `json:"height"`
	Class  Class  `json:"class"`
}

// Bottom returns the first pixel row below the section.
func (s Section) Bottom() int { return s.Top + s.Height }

// Protected reports whether the section must not be split (trailing included).
func (s Section) Protected() bool { return s.Class != ClassNone }

// Normalize returns a sorted copy of sections clipped to [0,total).
// Empty sections are dropped. If several sections claim ClassTrailing, only
// the last one in document order keeps it; the others become protected.
func Normalize(total int, sections []Section) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		top := max(s.Top, 0)
		bottom := min(s.Bottom(), total)
		if bottom <= top {
			continue
		}
		s.Top, s.Height = top, bottom-top
		out = append(out, s)
	}

	slices.SortStableFunc(out, func(a, b Section) int { return a.Top - b.Top })

	trailing := -1
	for i := range out {
		if out[i].Class == ClassTrailing {
			if trailing >= 0 {
				out[trailing].Class = ClassProtected
			}
			trailing = i
		}
	}
	return out
}

// trailingOf returns the trailing section, if any. Sections must be normalized.
func trailingOf(sections []Section) (Section, bool) {
	for i := len(sections) - 1; i >= 0; i-- {
		if sections[i].Class == ClassTrailing {
			return sections[i], true
		}
	}
	return Section{}, false
}
