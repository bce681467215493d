package plan

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func slicesOf(p Plan) [][2]int {
	out := make([][2]int, len(p.Slices))
	for i, s := range p.Slices {
		out[i] = [2]int{s.Top, s.Height}
	}
	return out
}

func TestComputeScenarios(t *testing.T) {
	tests := []struct {
		name     string
		height   int
		sections []Section
		want     [][2]int
	}{
		{
			name:   "no sections",
			height: 2500,
			want:   [][2]int{{0, 1000}, {1000, 1000}, {2000, 500}},
		},
		{
			name:     "protected table moves to next page",
			height:   1500,
			sections: []Section{{Label: "table", Top: 900, Height: 300, Class: ClassProtected}},
			want:     [][2]int{{0, 900}, {900, 600}},
		},
		{
			name:     "protected at cursor fills page",
			height:   2500,
			sections: []Section{{Label: "crew", Top: 1000, Height: 300, Class: ClassProtected}},
			want:     [][2]int{{0, 1000}, {1000, 1000}, {2000, 500}},
		},
		{
			name:     "signature does not fit",
			height:   1150,
			sections: []Section{{Label: "signatures", Top: 950, Height: 200, Class: ClassTrailing}},
			want:     [][2]int{{0, 950}, {950, 200}},
		},
		{
			name:     "signature near page end",
			height:   1080,
			sections: []Section{{Label: "signatures", Top: 980, Height: 100, Class: ClassTrailing}},
			want:     [][2]int{{0, 980}, {980, 100}},
		},
		{
			name:     "signature fits",
			height:   950,
			sections: []Section{{Label: "signatures", Top: 700, Height: 250, Class: ClassTrailing}},
			want:     [][2]int{{0, 950}},
		},
		{
			name:   "empty raster",
			height: 0,
			want:   [][2]int{},
		},
		{
			name:     "small gap before protected section is carried",
			height:   2500,
			sections: []Section{{Top: 1020, Height: 990, Class: ClassProtected}},
			want:     [][2]int{{0, 1000}, {1000, 1020}, {2020, 480}},
		},
		{
			name:     "small gap before signature is carried",
			height:   2030,
			sections: []Section{{Top: 1050, Height: 980, Class: ClassTrailing}},
			want:     [][2]int{{0, 1000}, {1000, 1030}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compute(tt.height, 1000, tt.sections)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if diff := cmp.Diff(tt.want, slicesOf(p)); diff != "" {
				t.Errorf("slices mismatch (-want +got):\n%s", diff)
			}
			if err := Validate(p); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestComputeInvalidInput(t *testing.T) {
	if _, err := Compute(100, 0, nil); err == nil {
		t.Error("expected error for zero page height")
	}
	if _, err := Compute(-1, 1000, nil); err == nil {
		t.Error("expected error for negative raster height")
	}
}

func TestComputeTallProtectedSectionIsNoted(t *testing.T) {
	sec := Section{Label: "huge table", Top: 500, Height: 1800, Class: ClassProtected}
	p, err := Compute(3000, 1000, []Section{sec})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	want := [][2]int{{0, 500}, {500, 1000}, {1500, 1000}, {2500, 500}}
	if diff := cmp.Diff(want, slicesOf(p)); diff != "" {
		t.Errorf("slices mismatch (-want +got):\n%s", diff)
	}
	if len(p.Notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(p.Notes))
	}
	if diff := cmp.Diff([]int{2, 3}, p.Notes[0].Pages); diff != "" {
		t.Errorf("note pages mismatch (-want +got):\n%s", diff)
	}
}

// randomLayout builds a document of disjoint sections, optionally ending in a
// signature block followed by a short tail.
func randomLayout(rng *rand.Rand) (int, []Section) {
	var sections []Section
	y := 0
	n := rng.Intn(12)
	for i := 0; i < n; i++ {
		y += rng.Intn(400)
		h := 10 + rng.Intn(1200)
		class := ClassNone
		if rng.Intn(2) == 0 {
			class = ClassProtected
		}
		sections = append(sections, Section{Top: y, Height: h, Class: class})
		y += h
	}
	if rng.Intn(2) == 0 {
		y += rng.Intn(300)
		h := 50 + rng.Intn(600)
		sections = append(sections, Section{Label: "signatures", Top: y, Height: h, Class: ClassTrailing})
		y += h
	}
	return y + rng.Intn(200), sections
}

func TestComputeProperties(t *testing.T) {
	const pageHeight = 1000
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		total, sections := randomLayout(rng)

		p, err := Compute(total, pageHeight, sections)
		if err != nil {
			t.Fatalf("case %d: Compute(%d, %v): %v", i, total, sections, err)
		}

		if err := Validate(p); err != nil {
			t.Fatalf("case %d: coverage: %v (sections %v)", i, err, sections)
		}

		again, err := Compute(total, pageHeight, sections)
		if err != nil {
			t.Fatalf("case %d: second Compute: %v", i, err)
		}
		if diff := cmp.Diff(p, again); diff != "" {
			t.Fatalf("case %d: not idempotent (-first +second):\n%s", i, diff)
		}

		for _, sec := range Normalize(total, sections) {
			if sec.Class != ClassProtected || sec.Height > pageHeight {
				continue
			}
			containing := 0
			for _, s := range p.Slices {
				if s.Contains(sec) {
					containing++
				}
			}
			if containing != 1 {
				t.Fatalf("case %d: protected section %+v contained in %d slices: %v", i, sec, containing, p.Slices)
			}
		}

		if tr, ok := trailingOf(Normalize(total, sections)); ok && total-tr.Top <= pageHeight {
			last := p.Slices[len(p.Slices)-1]
			if last.Top > tr.Top {
				t.Fatalf("case %d: trailing block %+v split, last slice %+v", i, tr, last)
			}
		}
	}
}

func TestComputeMonotonicPages(t *testing.T) {
	layouts := map[string][]Section{
		"none":      nil,
		"protected": {{Top: 900, Height: 300, Class: ClassProtected}},
		"trailing":  {{Top: 950, Height: 200, Class: ClassTrailing}},
		"mixed": {
			{Top: 200, Height: 400, Class: ClassProtected},
			{Top: 980, Height: 150, Class: ClassProtected},
			{Top: 1400, Height: 300, Class: ClassTrailing},
		},
	}

	for name, sections := range layouts {
		t.Run(name, func(t *testing.T) {
			prev := 0
			for h := 0; h <= 4000; h += 5 {
				p, err := Compute(h, 1000, sections)
				if err != nil {
					t.Fatalf("Compute(%d): %v", h, err)
				}
				if p.Pages() < prev {
					t.Fatalf("H=%d: pages dropped from %d to %d", h, prev, p.Pages())
				}
				prev = p.Pages()
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{"ok", Plan{Height: 10, Slices: []Slice{{1, 0, 4}, {2, 4, 6}}}, false},
		{"empty", Plan{}, false},
		{"gap", Plan{Height: 10, Slices: []Slice{{1, 0, 4}, {2, 5, 5}}}, true},
		{"short", Plan{Height: 10, Slices: []Slice{{1, 0, 4}}}, true},
		{"bad index", Plan{Height: 4, Slices: []Slice{{0, 0, 4}}}, true},
		{"zero height", Plan{Height: 4, Slices: []Slice{{1, 0, 4}, {2, 4, 0}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.plan); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPageOf(t *testing.T) {
	p := Plan{Height: 10, Slices: []Slice{{1, 0, 4}, {2, 4, 6}}}
	for y, want := range map[int]int{0: 1, 3: 1, 4: 2, 9: 2, 10: 0, -1: 0} {
		if got := p.PageOf(y); got != want {
			t.Errorf("PageOf(%d) = %d, want %d", y, got, want)
		}
	}
}
