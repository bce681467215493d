package compose

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/diaryprint/pkg/document"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/fonts"
	"github.com/matzehuels/diaryprint/pkg/page"
	"github.com/matzehuels/diaryprint/pkg/plan"
	"github.com/matzehuels/diaryprint/pkg/raster"
)

// DefaultHeaderColor is the header band fill when none is configured.
const DefaultHeaderColor = "#1f4e79"

// Page is one composed output page.
type Page struct {
	Index int // 1-based
	Total int
	Image *image.RGBA
}

// Composer draws page canvases. It holds only immutable configuration and
// may be shared between goroutines.
type Composer struct {
	geom        page.Geometry
	title       string
	header      colorful.Color
	text        color.Color
	logo        image.Image
	footer      string
	concurrency int
}

// Option configures a Composer.
type Option func(*Composer)

// WithTitle sets the title drawn on the left of the header band.
func WithTitle(title string) Option {
	return func(c *Composer) { c.title = title }
}

// WithHeaderColor sets the header band fill. The title and page number
// switch between dark and white ink to stay readable.
func WithHeaderColor(col colorful.Color) Option {
	return func(c *Composer) {
		c.header = col
		c.text = TextColorFor(col)
	}
}

// WithLogo draws img at the left of the header band. nil draws no logo.
func WithLogo(img image.Image) Option {
	return func(c *Composer) { c.logo = img }
}

// WithFooter sets the footer band text. "{page}" and "{pages}" are
// replaced by the page index and count. The footer is only drawn when the
// geometry has a footer band.
func WithFooter(text string) Option {
	return func(c *Composer) { c.footer = text }
}

// WithConcurrency bounds the number of pages composed at once by Pages.
func WithConcurrency(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New returns a composer for pages of geometry g.
func New(g page.Geometry, opts ...Option) *Composer {
	header, _ := colorful.Hex(DefaultHeaderColor)
	c := &Composer{
		geom:        g,
		header:      header,
		text:        TextColorFor(header),
		concurrency: min(runtime.NumCPU(), 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geometry returns the page geometry.
func (c *Composer) Geometry() page.Geometry { return c.geom }

// ParseHeaderColor parses a #RGB or #RRGGBB color.
func ParseHeaderColor(s string) (colorful.Color, error) {
	if err := errors.ValidateColor(s); err != nil {
		return colorful.Color{}, err
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "header color %q", s)
	}
	return col, nil
}

// TextColorFor returns white on dark fills and the document ink on light ones.
func TextColorFor(fill colorful.Color) color.Color {
	l, _, _ := fill.Lab()
	if l > 0.6 {
		return document.InkColor
	}
	return color.White
}

// Page composes one slice of buf into a page canvas: white page, header
// band with logo, title and "{index}/{total}", optional footer, and the
// slice content at the top of the printable area. Slices taller than the
// content area are shrunk uniformly to fit.
func (c *Composer) Page(ctx context.Context, s plan.Slice, total int, buf *raster.Buffer) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	content, err := buf.Crop(s.Top, s.Height)
	if err != nil {
		return Page{}, errors.Wrap(errors.ErrCodeCompose, err, "page %d", s.Index)
	}

	size := c.geom.Size()
	canvas, err := raster.Allocate(size.X, size.Y, 0)
	if err != nil {
		return Page{}, errors.Wrap(errors.ErrCodeCompose, err, "page %d canvas", s.Index)
	}

	dc := gg.NewContextForRGBA(canvas)
	dc.SetColor(color.White)
	dc.Clear()

	c.drawHeader(dc, canvas, s.Index, total)
	c.drawFooter(dc, s.Index, total)
	drawContent(canvas, c.geom.ContentRect(), content)

	return Page{Index: s.Index, Total: total, Image: canvas}, nil
}

// Pages composes every slice of p, at most WithConcurrency pages at a time,
// and returns them in index order. The first failure cancels the rest.
func (c *Composer) Pages(ctx context.Context, p plan.Plan, buf *raster.Buffer) ([]Page, error) {
	pages := make([]Page, len(p.Slices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, s := range p.Slices {
		g.Go(func() error {
			pg, err := c.Page(gctx, s, len(p.Slices), buf)
			if err != nil {
				return err
			}
			pages[i] = pg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (c *Composer) drawHeader(dc *gg.Context, canvas *image.RGBA, index, total int) {
	hr := c.geom.HeaderRect()
	if hr.Empty() {
		return
	}
	dc.SetColor(c.header)
	dc.DrawRectangle(float64(hr.Min.X), float64(hr.Min.Y), float64(hr.Dx()), float64(hr.Dy()))
	dc.Fill()

	pad := float64(hr.Dy()) * 0.15
	left := float64(hr.Min.X) + pad
	right := float64(hr.Max.X) - pad
	mid := float64(hr.Min.Y) + float64(hr.Dy())/2

	if c.logo != nil {
		if r := logoRect(c.logo.Bounds(), hr, pad); !r.Empty() {
			xdraw.CatmullRom.Scale(canvas, r, c.logo, c.logo.Bounds(), xdraw.Over, nil)
			left = float64(r.Max.X) + pad
		}
	}

	dc.SetFontFace(fonts.MustFace(fonts.Bold, float64(hr.Dy())*0.42))
	dc.SetColor(c.text)

	number := strconv.Itoa(index) + "/" + strconv.Itoa(total)
	dc.DrawStringAnchored(number, right, mid, 1, 0.35)
	nw, _ := dc.MeasureString(number)

	if c.title != "" {
		title := truncate(dc, c.title, right-nw-2*pad-left)
		dc.DrawStringAnchored(title, left, mid, 0, 0.35)
	}
}

func (c *Composer) drawFooter(dc *gg.Context, index, total int) {
	fr := c.geom.FooterRect()
	if fr.Empty() || c.footer == "" {
		return
	}
	dc.SetColor(document.RuleColor)
	dc.SetLineWidth(1)
	dc.DrawLine(float64(fr.Min.X), float64(fr.Min.Y), float64(fr.Max.X), float64(fr.Min.Y))
	dc.Stroke()

	text := strings.NewReplacer("{page}", strconv.Itoa(index), "{pages}", strconv.Itoa(total)).Replace(c.footer)
	dc.SetFontFace(fonts.MustFace(fonts.Regular, float64(fr.Dy())*0.4))
	dc.SetColor(document.MutedColor)
	dc.DrawStringAnchored(truncate(dc, text, float64(fr.Dx())), float64(fr.Min.X), float64(fr.Min.Y)+float64(fr.Dy())/2, 0, 0.35)
}

// drawContent places content at the top left of area, shrinking it
// uniformly when it does not fit.
func drawContent(canvas *image.RGBA, area image.Rectangle, content *image.RGBA) {
	w, h := content.Rect.Dx(), content.Rect.Dy()
	if w <= area.Dx() && h <= area.Dy() {
		dst := image.Rectangle{Min: area.Min, Max: area.Min.Add(image.Pt(w, h))}
		xdraw.Draw(canvas, dst, content, content.Rect.Min, xdraw.Src)
		return
	}
	f := min(float64(area.Dx())/float64(w), float64(area.Dy())/float64(h))
	dst := image.Rectangle{
		Min: area.Min,
		Max: area.Min.Add(image.Pt(max(int(float64(w)*f), 1), max(int(float64(h)*f), 1))),
	}
	xdraw.CatmullRom.Scale(canvas, dst, content, content.Rect, xdraw.Src, nil)
}

// logoRect fits a logo of bounds b into the left of the header band,
// using at most a quarter of its width.
func logoRect(b, band image.Rectangle, pad float64) image.Rectangle {
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return image.Rectangle{}
	}
	h := float64(band.Dy()) - 2*pad
	w := h * float64(b.Dx()) / float64(b.Dy())
	if limit := float64(band.Dx()) / 4; w > limit {
		h *= limit / w
		w = limit
	}
	x := band.Min.X + int(pad)
	y := band.Min.Y + (band.Dy()-int(h))/2
	return image.Rect(x, y, x+int(w), y+int(h))
}

// truncate shortens s with an ellipsis until it fits width.
func truncate(dc *gg.Context, s string, width float64) string {
	if width <= 0 {
		return ""
	}
	if w, _ := dc.MeasureString(s); w <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		t := strings.TrimRight(string(r), " ") + "…"
		if w, _ := dc.MeasureString(t); w <= width {
			return t
		}
	}
	return ""
}

func (p Page) String() string {
	b := p.Image.Rect
	return fmt.Sprintf("page %d/%d (%dx%d)", p.Index, p.Total, b.Dx(), b.Dy())
}
