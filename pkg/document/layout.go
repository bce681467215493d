package document

import (
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/diaryprint/pkg/fonts"
)

// Op is the kind of a drawing primitive.
type Op int

const (
	OpRect Op = iota
	OpLine
	OpText
)

// Item is a drawing primitive in layout units.
//
//   - OpRect: box (X, Y, W, H), filled with Fill and outlined with Stroke
//     when their alpha is non-zero
//   - OpLine: segment from (X, Y) to (X+W, Y+H) in Stroke
//   - OpText: Text drawn with its baseline at (X, Y)
type Item struct {
	Op        Op
	X, Y      float64
	W, H      float64
	Fill      color.RGBA
	Stroke    color.RGBA
	LineWidth float64
	Text      string
	Style     fonts.Style
	Size      float64
	Color     color.RGBA
}

// Region is the laid-out box of one section.
type Region struct {
	Index   int
	Kind    Kind
	Label   string
	Protect *bool
	Top     float64
	Height  float64
	Items   []Item
}

// Bottom returns the first layout unit below the region.
func (r Region) Bottom() float64 { return r.Top + r.Height }

// Geometry is a laid-out document.
type Geometry struct {
	Width   float64
	Height  float64
	Regions []Region
}

// Layout metrics, in layout units.
const (
	PagePadding   = 32.0
	SectionGap    = 14.0
	BodySize      = 11.0
	SmallSize     = 10.5
	SubtitleSize  = 12.0
	HeadingSize   = 18.0
	cellPadding   = 6.0
	cardPadding   = 10.0
	signingSpace  = 56.0
	signaturesRow = 3
)

var (
	InkColor    = color.RGBA{0x1f, 0x29, 0x33, 0xff}
	MutedColor  = color.RGBA{0x52, 0x60, 0x6d, 0xff}
	RuleColor   = color.RGBA{0xc7, 0xd0, 0xd9, 0xff}
	ShadeColor  = color.RGBA{0xee, 0xf2, 0xf6, 0xff}
	PaperColor  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	noColor     = color.RGBA{}
	hairline    = 1.0
	headingRule = 1.5
)

// Layout lays the document out at its EffectiveWidth. Sections are
// stacked top to bottom separated by SectionGap; the result depends only on
// the document and its width.
func Layout(d *Document) Geometry {
	width := d.EffectiveWidth()
	inner := math.Max(width-2*PagePadding, 1)

	g := Geometry{Width: width}
	y := PagePadding
	for i, s := range d.Sections {
		b := &builder{x: PagePadding, y: y, w: inner}
		b.section(s)
		g.Regions = append(g.Regions, Region{
			Index:   i,
			Kind:    s.Kind,
			Label:   s.Name(i),
			Protect: s.Protect,
			Top:     y,
			Height:  b.y - y,
			Items:   b.items,
		})
		y = b.y + SectionGap
	}
	if len(g.Regions) > 0 {
		y -= SectionGap
	}
	g.Height = y + PagePadding
	return g
}

type builder struct {
	x, y, w float64
	items   []Item
}

func (b *builder) section(s Section) {
	switch s.Kind {
	case KindHeading:
		b.heading(s)
	case KindText:
		b.paragraphs(s)
	case KindCard:
		b.card(s)
	case KindTable:
		b.table(s)
	case KindSignatures:
		b.signatures(s)
	case KindSpacer:
		b.y += s.Height
	}
}

// lines appends wrapped text starting at the current y and advances past it.
func (b *builder) lines(x, width float64, text string, style fonts.Style, size float64, c color.RGBA) {
	b.y = b.linesAt(x, b.y, width, text, style, size, c)
}

// linesAt appends wrapped text with its first line box at top and returns the
// y below the last line.
func (b *builder) linesAt(x, top, width float64, text string, style fonts.Style, size float64, c color.RGBA) float64 {
	lh := fonts.LineHeight(style, size)
	ascent := fonts.Ascent(style, size)
	for _, line := range Wrap(text, style, size, width) {
		if line != "" {
			b.items = append(b.items, Item{Op: OpText, X: x, Y: top + ascent, Text: line, Style: style, Size: size, Color: c})
		}
		top += lh
	}
	return top
}

func (b *builder) rect(x, y, w, h float64, fill, stroke color.RGBA) {
	b.items = append(b.items, Item{Op: OpRect, X: x, Y: y, W: w, H: h, Fill: fill, Stroke: stroke, LineWidth: hairline})
}

func (b *builder) hline(x, y, w, width float64, c color.RGBA) {
	b.items = append(b.items, Item{Op: OpLine, X: x, Y: y, W: w, Stroke: c, LineWidth: width})
}

func (b *builder) vline(x, y, h float64, c color.RGBA) {
	b.items = append(b.items, Item{Op: OpLine, X: x, Y: y, H: h, Stroke: c, LineWidth: hairline})
}

func (b *builder) heading(s Section) {
	text := s.Text
	if strings.TrimSpace(text) == "" {
		text = s.Title
	}
	b.lines(b.x, b.w, text, fonts.Bold, HeadingSize, InkColor)
	b.y += 4
	b.hline(b.x, b.y, b.w, headingRule, InkColor)
	b.y += 4
}

func (b *builder) paragraphs(s Section) {
	if s.Title != "" {
		b.lines(b.x, b.w, s.Title, fonts.Bold, SubtitleSize, InkColor)
		b.y += 2
	}
	b.lines(b.x, b.w, s.Text, fonts.Regular, BodySize, InkColor)
}

func (b *builder) card(s Section) {
	top := b.y
	inner := math.Max(b.w-2*cardPadding, 1)

	if s.Title != "" {
		barTop := b.y
		titleLines := len(Wrap(s.Title, fonts.Bold, SubtitleSize, inner))
		barH := float64(titleLines)*fonts.LineHeight(fonts.Bold, SubtitleSize) + 2*cellPadding
		b.rect(b.x, barTop, b.w, barH, ShadeColor, noColor)
		b.linesAt(b.x+cardPadding, barTop+cellPadding, inner, s.Title, fonts.Bold, SubtitleSize, InkColor)
		b.y = barTop + barH
	}

	labelW := inner * 0.35
	valueW := inner - labelW - cardPadding
	b.y += cardPadding / 2
	for i, f := range s.Fields {
		if i > 0 {
			b.hline(b.x+cardPadding, b.y, inner, hairline, RuleColor)
		}
		rowTop := b.y + cellPadding/2
		labelBottom := b.linesAt(b.x+cardPadding, rowTop, labelW, f.Label, fonts.Bold, SmallSize, MutedColor)
		valueBottom := b.linesAt(b.x+cardPadding+labelW+cardPadding, rowTop, valueW, f.Value, fonts.Regular, BodySize, InkColor)
		b.y = math.Max(labelBottom, valueBottom) + cellPadding/2
	}
	b.y += cardPadding / 2

	b.rect(b.x, top, b.w, b.y-top, noColor, RuleColor)
}

func (b *builder) table(s Section) {
	if s.Title != "" {
		b.lines(b.x, b.w, s.Title, fonts.Bold, SubtitleSize, InkColor)
		b.y += 4
	}
	top := b.y
	cols := len(s.Columns)
	if cols == 0 {
		return
	}
	colW := b.w / float64(cols)
	cellW := math.Max(colW-2*cellPadding, 1)

	row := func(cells []string, style fonts.Style, fill color.RGBA) {
		rowTop := b.y
		bottom := rowTop
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			x := b.x + float64(i)*colW + cellPadding
			bottom = math.Max(bottom, b.linesAt(x, rowTop+cellPadding, cellW, cell, style, SmallSize, InkColor))
		}
		h := math.Max(bottom-rowTop, fonts.LineHeight(style, SmallSize)) + cellPadding
		if fill.A > 0 {
			// Fill goes under the text already appended for this row.
			b.items = append([]Item{{Op: OpRect, X: b.x, Y: rowTop, W: b.w, H: h, Fill: fill}}, b.items...)
		}
		b.y = rowTop + h
		b.hline(b.x, b.y, b.w, hairline, RuleColor)
	}

	row(s.Columns, fonts.Bold, ShadeColor)
	for _, r := range s.Rows {
		row(r, fonts.Regular, noColor)
	}

	for i := 1; i < cols; i++ {
		b.vline(b.x+float64(i)*colW, top, b.y-top, RuleColor)
	}
	b.rect(b.x, top, b.w, b.y-top, noColor, RuleColor)
}

func (b *builder) signatures(s Section) {
	title := s.Title
	if title == "" {
		title = "Signatures"
	}
	b.lines(b.x, b.w, title, fonts.Bold, SubtitleSize, InkColor)
	b.y += 6

	for start := 0; start < len(s.Signatures); start += signaturesRow {
		end := min(start+signaturesRow, len(s.Signatures))
		n := end - start
		boxW := (b.w - float64(n-1)*SectionGap) / float64(n)
		rowTop := b.y
		bottom := rowTop
		for i, sig := range s.Signatures[start:end] {
			x := b.x + float64(i)*(boxW+SectionGap)
			lineY := rowTop + signingSpace
			b.hline(x, lineY, boxW, hairline, InkColor)
			y := b.linesAt(x, lineY+4, boxW, sig.Name, fonts.Regular, BodySize, InkColor)
			if sig.Name == "" {
				y = lineY + 4 + fonts.LineHeight(fonts.Regular, BodySize)
			}
			y = b.linesAt(x, y, boxW, sig.Role, fonts.Bold, SmallSize, MutedColor)
			bottom = math.Max(bottom, y)
		}
		b.y = bottom + 6
	}
}

// Wrap breaks text into lines no wider than width at the given font. Lines
// break at spaces; words wider than a line are broken between runes. Each
// newline in text starts a new line.
func Wrap(text string, style fonts.Style, size, width float64) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			for fonts.Measure(style, size, w) > width && utf8.RuneCountInString(w) > 1 {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				head, tail := splitToFit(w, style, size, width)
				out = append(out, head)
				w = tail
			}
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if line != "" && fonts.Measure(style, size, candidate) > width {
				out = append(out, line)
				line = w
				continue
			}
			line = candidate
		}
		out = append(out, line)
	}
	return out
}

// splitToFit returns the longest prefix of w (at least one rune) that fits
// in width, and the rest.
func splitToFit(w string, style fonts.Style, size, width float64) (string, string) {
	runes := []rune(w)
	k := 1
	for k < len(runes) && fonts.Measure(style, size, string(runes[:k+1])) <= width {
		k++
	}
	return string(runes[:k]), string(runes[k:])
}
