package document

import (
	"strings"
	"testing"

	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/fonts"
)

func sampleDocument() *Document {
	return &Document{
		Title: "Work diary 2024-03-01",
		Sections: []Section{
			{Kind: KindHeading, Text: "Work diary"},
			{Kind: KindCard, Title: "Site", Fields: []Field{
				{Label: "Client", Value: "Acme Construction"},
				{Label: "Address", Value: "Av. Principal 123, a rather long address that will need to wrap onto a second line"},
			}},
			{Kind: KindText, Text: "Internal note", HideFromExport: true},
			{Kind: KindTable, Title: "Equipment", Columns: []string{"Item", "Serial", "Hours"}, Rows: [][]string{
				{"Drill rig", "DR-001", "6"},
				{"Pump", "PM-17"},
			}},
			{Kind: KindSpacer, Height: 40},
			{Kind: KindSignatures, Signatures: []Signature{
				{Role: "Operator", Name: "J. Silva"},
				{Role: "Supervisor"},
				{Role: "Client"},
				{Role: "Inspector"},
			}},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := sampleDocument().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		name string
		doc  *Document
	}{
		{"nil", nil},
		{"negative width", &Document{Width: -1}},
		{"unknown kind", &Document{Sections: []Section{{Kind: "chart"}}}},
		{"table without columns", &Document{Sections: []Section{{Kind: KindTable}}}},
		{"row too wide", &Document{Sections: []Section{{Kind: KindTable, Columns: []string{"a"}, Rows: [][]string{{"1", "2"}}}}}},
		{"negative spacer", &Document{Sections: []Section{{Kind: KindSpacer, Height: -3}}}},
		{"empty signatures", &Document{Sections: []Section{{Kind: KindSignatures}}}},
		{"empty text", &Document{Sections: []Section{{Kind: KindText, Text: "  "}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidDocument) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidDocument)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	d := sampleDocument()
	f := Filter(d)

	if len(f.Sections) != len(d.Sections)-1 {
		t.Fatalf("Filter kept %d sections, want %d", len(f.Sections), len(d.Sections)-1)
	}
	for _, s := range f.Sections {
		if s.HideFromExport {
			t.Errorf("hidden section %q kept", s.Name(0))
		}
	}
	if len(d.Sections) != 6 {
		t.Error("Filter modified its input")
	}
}

func TestLayoutWidth(t *testing.T) {
	d := &Document{}
	if got := d.EffectiveWidth(); got != DefaultWidth {
		t.Errorf("EffectiveWidth() = %v, want %v", got, DefaultWidth)
	}
	d.SetLayoutWidth(500)
	if got := d.LayoutWidth(); got != 500 {
		t.Errorf("LayoutWidth() = %v, want 500", got)
	}
	if got := d.EffectiveWidth(); got != 500 {
		t.Errorf("EffectiveWidth() = %v, want 500", got)
	}
}

func TestLayout(t *testing.T) {
	d := Filter(sampleDocument())
	g := Layout(d)

	if g.Width != DefaultWidth {
		t.Errorf("Width = %v, want %v", g.Width, DefaultWidth)
	}
	if len(g.Regions) != len(d.Sections) {
		t.Fatalf("regions = %d, want %d", len(g.Regions), len(d.Sections))
	}

	prev := 0.0
	for i, r := range g.Regions {
		if r.Top < prev {
			t.Errorf("region %d starts at %v, before previous bottom %v", i, r.Top, prev)
		}
		if r.Height <= 0 {
			t.Errorf("region %d (%s) has height %v", i, r.Kind, r.Height)
		}
		for _, it := range r.Items {
			if it.Y < r.Top-0.001 || it.Y > r.Bottom()+0.001 {
				t.Errorf("region %d item %+v outside [%v,%v]", i, it, r.Top, r.Bottom())
			}
		}
		prev = r.Bottom()
	}
	if want := prev + PagePadding; g.Height != want {
		t.Errorf("Height = %v, want %v", g.Height, want)
	}

	spacer := g.Regions[3]
	if spacer.Kind != KindSpacer || spacer.Height != 40 {
		t.Errorf("spacer region = %+v", spacer)
	}
}

func TestLayoutNarrowerIsTaller(t *testing.T) {
	d := Filter(sampleDocument())
	wide := Layout(d)
	d.SetLayoutWidth(360)
	narrow := Layout(d)

	if narrow.Height <= wide.Height {
		t.Errorf("narrow layout height %v, want more than %v", narrow.Height, wide.Height)
	}
}

func TestLayoutEmpty(t *testing.T) {
	g := Layout(&Document{})
	if g.Height != 2*PagePadding || len(g.Regions) != 0 {
		t.Errorf("empty layout = %+v", g)
	}
}

func TestWrap(t *testing.T) {
	width := fonts.Measure(fonts.Regular, BodySize, "the quick brown")

	lines := Wrap("the quick brown fox jumps over the lazy dog", fonts.Regular, BodySize, width)
	if len(lines) < 3 {
		t.Fatalf("Wrap() = %q, want at least 3 lines", lines)
	}
	for _, l := range lines {
		if w := fonts.Measure(fonts.Regular, BodySize, l); w > width {
			t.Errorf("line %q is %v wide, max %v", l, w, width)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("Wrap() lost words: %q", lines)
	}

	long := strings.Repeat("x", 200)
	broken := Wrap(long, fonts.Regular, BodySize, 50)
	if len(broken) < 2 || strings.Join(broken, "") != long {
		t.Errorf("long word not broken cleanly: %q", broken)
	}

	if got := Wrap("a\n\nb", fonts.Regular, BodySize, 100); len(got) != 3 || got[1] != "" {
		t.Errorf("Wrap() paragraphs = %q", got)
	}
}
