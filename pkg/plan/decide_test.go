package plan

import "testing"

func TestDecide(t *testing.T) {
	trailing := func(top, height int) Section {
		return Section{Label: "signatures", Top: top, Height: height, Class: ClassTrailing}
	}
	protected := func(top, height int) Section {
		return Section{Top: top, Height: height, Class: ClassProtected}
	}

	tests := []struct {
		name     string
		cursor   int
		total    int
		sections []Section
		want     Decision
	}{
		{
			name:  "plain page",
			total: 2500,
			want:  Decision{Action: Continue, Px: 1000, Rule: RuleDefault},
		},
		{
			name:   "last partial page",
			cursor: 2000,
			total:  2500,
			want:   Decision{Action: Continue, Px: 2500, Rule: RuleDefault},
		},
		{
			name:     "trailing fits in remaining space",
			total:    950,
			sections: []Section{trailing(700, 250)},
			want:     Decision{Action: Continue, Px: 950, Rule: RuleTrailingFits},
		},
		{
			name:     "trailing already started",
			cursor:   1000,
			total:    3000,
			sections: []Section{trailing(500, 1200)},
			want:     Decision{Action: Continue, Px: 3000, Rule: RuleTrailingStarted},
		},
		{
			name:     "trailing does not fit, large gap",
			total:    1150,
			sections: []Section{trailing(950, 200)},
			want:     Decision{Action: BreakBefore, Px: 950, Rule: RuleTrailingBreak},
		},
		{
			name:     "trailing does not fit, small gap",
			cursor:   1000,
			total:    2030,
			sections: []Section{trailing(1050, 980)},
			want:     Decision{Action: SkipGap, Px: 1050, Rule: RuleTrailingGap},
		},
		{
			name:     "trailing gap just at threshold breaks",
			cursor:   1000,
			total:    2200,
			sections: []Section{trailing(1100, 1000)},
			want:     Decision{Action: BreakBefore, Px: 1100, Rule: RuleTrailingBreak},
		},
		{
			name:     "trailing out of reach defers to generic rule",
			total:    3000,
			sections: []Section{protected(900, 300), trailing(2500, 300)},
			want:     Decision{Action: BreakBefore, Px: 900, Rule: RuleProtectedBreak},
		},
		{
			name:     "tall trailing at cursor is cut at page height",
			cursor:   1000,
			total:    2500,
			sections: []Section{trailing(1000, 1500)},
			want:     Decision{Action: Continue, Px: 2000, Rule: RuleDefault},
		},
		{
			name:     "protected section fits",
			total:    3000,
			sections: []Section{protected(200, 500)},
			want:     Decision{Action: Continue, Px: 1000, Rule: RuleDefault},
		},
		{
			name:     "protected section small gap",
			cursor:   1000,
			total:    3000,
			sections: []Section{protected(1040, 990)},
			want:     Decision{Action: SkipGap, Px: 1040, Rule: RuleProtectedGap},
		},
		{
			name:     "protected gap at threshold breaks",
			cursor:   1000,
			total:    3000,
			sections: []Section{protected(1050, 990)},
			want:     Decision{Action: BreakBefore, Px: 1050, Rule: RuleProtectedBreak},
		},
		{
			name:     "first crossing protected section wins",
			total:    3000,
			sections: []Section{protected(100, 200), protected(600, 500), protected(1200, 100)},
			want:     Decision{Action: BreakBefore, Px: 600, Rule: RuleProtectedBreak},
		},
		{
			name:     "protected section at cursor taller than page is cut",
			cursor:   500,
			total:    3000,
			sections: []Section{protected(500, 1800)},
			want:     Decision{Action: Continue, Px: 1500, Rule: RuleDefault},
		},
		{
			name:     "unprotected section is ignored",
			total:    3000,
			sections: []Section{{Top: 900, Height: 300}},
			want:     Decision{Action: Continue, Px: 1000, Rule: RuleDefault},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(State{
				Cursor:     tt.cursor,
				Total:      tt.total,
				PageHeight: 1000,
				Sections:   Normalize(tt.total, tt.sections),
			})
			if got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(1000, []Section{
		{Label: "sig-a", Top: 600, Height: 100, Class: ClassTrailing},
		{Label: "outside", Top: 1200, Height: 50, Class: ClassProtected},
		{Label: "head", Top: -20, Height: 60},
		{Label: "sig-b", Top: 900, Height: 300, Class: ClassTrailing},
		{Label: "empty", Top: 300, Height: 0, Class: ClassProtected},
	})

	want := []Section{
		{Label: "head", Top: 0, Height: 40},
		{Label: "sig-a", Top: 600, Height: 100, Class: ClassProtected},
		{Label: "sig-b", Top: 900, Height: 100, Class: ClassTrailing},
	}
	if len(got) != len(want) {
		t.Fatalf("Normalize() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Normalize()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseClass(t *testing.T) {
	tests := []struct {
		in      string
		want    Class
		wantErr bool
	}{
		{"", ClassNone, false},
		{"none", ClassNone, false},
		{"protected", ClassProtected, false},
		{"trailing", ClassTrailing, false},
		{"signature", ClassNone, true},
	}

	for _, tt := range tests {
		got, err := ParseClass(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClass(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClass(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClassText(t *testing.T) {
	for _, c := range []Class{ClassNone, ClassProtected, ClassTrailing} {
		b, err := c.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", c, err)
		}
		var back Class
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if back != c {
			t.Errorf("class %v round-tripped to %v", c, back)
		}
	}
	if _, err := Class(7).MarshalText(); err == nil {
		t.Error("expected error for unknown class")
	}
}
