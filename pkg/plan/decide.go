package plan

// Action is what the planner does at the current cursor.
type Action int

const (
	// Continue ends the current page at Decision.Px.
	Continue Action = iota
	// BreakBefore ends the current page right before the section starting at Decision.Px.
	BreakBefore
	// SkipGap moves the cursor to Decision.Px without closing a page. The
	// skipped rows stay attached to the page that is emitted next.
	SkipGap
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case BreakBefore:
		return "break-before"
	case SkipGap:
		return "skip-gap"
	}
	return "unknown"
}

// Rule names the rule that produced a decision.
type Rule string

const (
	RuleDefault         Rule = "default"
	RuleTrailingStarted Rule = "trailing-started"
	RuleTrailingFits    Rule = "trailing-fits"
	RuleTrailingGap     Rule = "trailing-gap"
	RuleTrailingBreak   Rule = "trailing-break"
	RuleProtectedGap    Rule = "protected-gap"
	RuleProtectedBreak  Rule = "protected-break"
)

// Thresholds, as fractions of the usable page height.
const (
	// TrailingGapFraction is the largest share of a page that may precede the
	// signature block before it is worth a page of its own.
	TrailingGapFraction = 0.10
	// ProtectedGapFraction is the largest share of a page that may precede a
	// protected section before the gap is pushed along with it.
	ProtectedGapFraction = 0.05
)

// Decision is the outcome of Decide.
type Decision struct {
	Action Action
	Px     int
	Rule   Rule
}

// State is the planner input at one loop iteration.
// Sections must be normalized (see Normalize).
type State struct {
	Cursor     int
	Total      int
	PageHeight int
	Sections   []Section
}

// Decide applies the break rules in priority order: trailing section first,
// then protected sections, then the plain page height.
func Decide(st State) Decision {
	end := min(st.Cursor+st.PageHeight, st.Total)
	if d, ok := decideTrailing(st); ok {
		return d
	}
	if d, ok := decideProtected(st, end); ok {
		return d
	}
	return Decision{Action: Continue, Px: end, Rule: RuleDefault}
}

func decideTrailing(st State) (Decision, bool) {
	t, ok := trailingOf(st.Sections)
	if !ok {
		return Decision{}, false
	}
	cursor, pageHeight, total := st.Cursor, st.PageHeight, st.Total

	if t.Top < cursor && t.Bottom() > cursor {
		return Decision{Action: Continue, Px: total, Rule: RuleTrailingStarted}, true
	}
	if t.Top < cursor || t.Top >= cursor+pageHeight {
		return Decision{}, false
	}

	remaining := total - t.Top
	available := cursor + pageHeight - t.Top
	if remaining <= available {
		return Decision{Action: Continue, Px: total, Rule: RuleTrailingFits}, true
	}

	// A signature block taller than the page that already sits at the top
	// of the page has to be cut; the generic rules take it from here.
	space := t.Top - cursor
	switch {
	case space == 0:
		return Decision{}, false
	case below(space, TrailingGapFraction, pageHeight):
		return Decision{Action: SkipGap, Px: t.Top, Rule: RuleTrailingGap}, true
	default:
		return Decision{Action: BreakBefore, Px: t.Top, Rule: RuleTrailingBreak}, true
	}
}

func decideProtected(st State, end int) (Decision, bool) {
	for _, s := range st.Sections {
		if s.Class != ClassProtected || s.Top <= st.Cursor {
			continue
		}
		if s.Top >= end {
			break
		}
		if s.Bottom() <= end {
			continue
		}
		if below(s.Top-st.Cursor, ProtectedGapFraction, st.PageHeight) {
			return Decision{Action: SkipGap, Px: s.Top, Rule: RuleProtectedGap}, true
		}
		return Decision{Action: BreakBefore, Px: s.Top, Rule: RuleProtectedBreak}, true
	}
	return Decision{}, false
}

// below reports px < fraction*pageHeight.
func below(px int, fraction float64, pageHeight int) bool {
	return float64(px) < fraction*float64(pageHeight)
}
