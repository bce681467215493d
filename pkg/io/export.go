package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/diaryprint/pkg/plan"
)

// planFile is the JSON shape of an exported plan. Sections are included so
// the file is self-describing.
type planFile struct {
	Height     int            `json:"height"`
	PageHeight int            `json:"page_height"`
	Pages      int            `json:"pages"`
	Slices     []plan.Slice   `json:"slices"`
	Sections   []plan.Section `json:"sections"`
	Notes      []plan.Note    `json:"notes,omitempty"`
}

// WritePlanJSON encodes a plan and the sections it was computed from as
// indented JSON.
func WritePlanJSON(p plan.Plan, sections []plan.Section, w io.Writer) error {
	out := planFile{
		Height:     p.Height,
		PageHeight: p.PageHeight,
		Pages:      p.Pages(),
		Slices:     p.Slices,
		Sections:   plan.Normalize(p.Height, sections),
		Notes:      p.Notes,
	}
	if out.Slices == nil {
		out.Slices = []plan.Slice{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportPlanJSON writes a plan to a JSON file at path.
// This is a convenience wrapper around [WritePlanJSON] for file-based output.
func ExportPlanJSON(p plan.Plan, sections []plan.Section, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePlanJSON(p, sections, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
