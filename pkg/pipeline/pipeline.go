// Package pipeline runs the document export pipeline for diaryprint.
//
// The pipeline turns a variable-height visual document into a paginated PDF.
// Centralizing it here gives the CLI and the HTTP server identical behavior,
// caching and logging.
//
// # Architecture
//
// An export runs five stages, strictly downstream:
//
//  1. Render: rasterize the document at a fixed layout width and scale
//  2. Locate: measure the protected and trailing sections in pixel space
//  3. Plan: split the raster into page slices (plan.Compute)
//  4. Compose: draw each slice on a page canvas with header and footer
//  5. Assemble: write the pages into a PDF and verify it
//
// Render, locate and plan run sequentially; compose runs pages in parallel
// once the plan is final.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	src, err := pipeline.OpenSource(ctx, "diary.toml", opts)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//	result, err := runner.Execute(ctx, src, opts)
//
// Plan without composing (for previews and the plan endpoint):
//
//	result, err := runner.Plan(ctx, src, opts)
package pipeline

import (
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/diaryprint/pkg/asset"
	"github.com/matzehuels/diaryprint/pkg/cache"
	"github.com/matzehuels/diaryprint/pkg/compose"
	"github.com/matzehuels/diaryprint/pkg/document"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/page"
	"github.com/matzehuels/diaryprint/pkg/plan"
	"github.com/matzehuels/diaryprint/pkg/raster"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMargin is the page margin in millimeters on every side.
	DefaultMargin = 10.0

	// DefaultFormat is the default paper size.
	DefaultFormat = "A4"

	// DefaultScale is the raster resolution multiplier. 2 gives about
	// 190 dpi on A4 for the default layout width.
	DefaultScale = 2.0

	// DefaultLayoutWidth is the fixed width the document is laid out at.
	DefaultLayoutWidth = document.DefaultWidth

	// DefaultHeaderColor is the header band color.
	DefaultHeaderColor = compose.DefaultHeaderColor

	// MaxScale and MaxLayoutWidth bound the raster size independently of
	// MaxPixels.
	MaxScale       = 8.0
	MaxLayoutWidth = 4000.0

	// MaxMargin leaves room for content on every supported format.
	MaxMargin = 50.0
)

// DefaultConcurrency bounds parallel page composition.
func DefaultConcurrency() int { return min(runtime.NumCPU(), 4) }

// =============================================================================
// Options - Export Configuration
// =============================================================================

// Options configures one export. It can be decoded from JSON (API requests)
// and TOML (config files).
type Options struct {
	Title       string  `json:"title,omitempty" toml:"title"`
	Logo        string  `json:"logo,omitempty" toml:"logo"`                 // path or http(s) URL
	HeaderColor string  `json:"header_color,omitempty" toml:"header_color"` // #RRGGBB
	Margin      float64 `json:"margin,omitempty" toml:"margin"`             // mm
	Format      string  `json:"format,omitempty" toml:"format"`             // A4 or Letter
	Scale       float64 `json:"scale,omitempty" toml:"scale"`
	LayoutWidth float64 `json:"layout_width,omitempty" toml:"layout_width"`
	Footer      string  `json:"footer,omitempty" toml:"footer"` // supports {page} and {pages}

	Output      string `json:"-" toml:"output"`
	MaxPixels   int    `json:"max_pixels,omitempty" toml:"max_pixels"`
	Concurrency int    `json:"concurrency,omitempty" toml:"concurrency"`
	Refresh     bool   `json:"refresh,omitempty" toml:"refresh"`
	SkipVerify  bool   `json:"skip_verify,omitempty" toml:"skip_verify"`

	// Browser backend for HTML sources.
	ChromeURL string `json:"-" toml:"chrome_url"`
	ChromeBin string `json:"-" toml:"chrome_bin"`
	// Offline renders HTML with active content stripped and network
	// requests blocked.
	Offline bool `json:"-" toml:"offline"`

	// Runtime options (not serialized)
	Logger  *log.Logger   `json:"-" toml:"-"`
	Fetcher asset.Fetcher `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// PDF is the assembled document. Empty for plan-only runs.
	PDF []byte

	// Pages is the number of pages in the PDF.
	Pages int

	Plan     plan.Plan
	Sections []plan.Section
	Geometry page.Geometry

	// Warnings lists degradations that did not stop the export, such as a
	// logo that could not be loaded or a section taller than a page.
	Warnings []string

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RasterWidth  int
	RasterHeight int
	RenderTime   time.Duration
	LocateTime   time.Duration
	PlanTime     time.Duration
	ComposeTime  time.Duration
	AssembleTime time.Duration
}

// CacheInfo tracks cache hits for each cached stage.
type CacheInfo struct {
	PlanHit     bool // plan and sections came from cache
	ArtifactHit bool // the PDF came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults applies defaults and validates every field.
// Zero values mean "use the default". The method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.setDefaults()

	if err := errors.ValidateColor(o.HeaderColor); err != nil {
		return err
	}
	if o.Margin < 0 || o.Margin > MaxMargin {
		return errors.New(errors.ErrCodeInvalidConfig, "margin must be between 0 and %gmm, got %g", MaxMargin, o.Margin)
	}
	format, err := page.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.Format = format.Name
	if o.Scale <= 0 || o.Scale > MaxScale {
		return errors.New(errors.ErrCodeInvalidConfig, "scale must be in (0, %g], got %g", MaxScale, o.Scale)
	}
	if o.LayoutWidth <= 0 || o.LayoutWidth > MaxLayoutWidth {
		return errors.New(errors.ErrCodeInvalidConfig, "layout width must be in (0, %g], got %g", MaxLayoutWidth, o.LayoutWidth)
	}
	if o.MaxPixels < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max pixels must not be negative")
	}
	if o.Concurrency < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "concurrency must be at least 1")
	}
	if o.Logo != "" {
		if asset.IsRemote(o.Logo) {
			err = errors.ValidateURL(o.Logo)
		} else {
			err = errors.ValidatePath(o.Logo)
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "logo")
		}
	}
	if o.Output != "" {
		if err := errors.ValidatePath(o.Output); err != nil {
			return err
		}
	}

	o.validated = true
	return nil
}

func (o *Options) setDefaults() {
	o.Title = strings.TrimSpace(o.Title)
	if o.HeaderColor == "" {
		o.HeaderColor = DefaultHeaderColor
	}
	if o.Margin == 0 {
		o.Margin = DefaultMargin
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.LayoutWidth == 0 {
		o.LayoutWidth = DefaultLayoutWidth
	}
	if o.MaxPixels == 0 {
		o.MaxPixels = raster.DefaultMaxPixels
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// PageFormat returns the parsed paper size.
func (o *Options) PageFormat() page.Format {
	f, err := page.ParseFormat(o.Format)
	if err != nil {
		return page.A4
	}
	return f
}

// Geometry returns the page geometry for a raster of rasterWidth pixels.
func (o *Options) Geometry(rasterWidth int) (page.Geometry, error) {
	footer := 0.0
	if o.Footer != "" {
		footer = page.DefaultFooterHeight
	}
	return page.New(o.PageFormat(), o.Margin, page.DefaultHeaderHeight, footer, rasterWidth)
}

// PlanKeyOpts returns cache key options for the page plan.
func (o *Options) PlanKeyOpts() cache.PlanKeyOpts {
	return cache.PlanKeyOpts{
		Scale:       o.Scale,
		LayoutWidth: o.LayoutWidth,
		Format:      o.Format,
		Margin:      o.Margin,
		Footer:      o.Footer != "",
	}
}

// ArtifactKeyOpts returns cache key options for the finished PDF.
func (o *Options) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Plan:        o.PlanKeyOpts(),
		Title:       o.Title,
		Logo:        o.Logo,
		HeaderColor: strings.ToLower(o.HeaderColor),
		Footer:      o.Footer,
	}
}

// LoadOptions reads options from a TOML file. Unknown keys are rejected.
func LoadOptions(path string) (Options, error) {
	var o Options
	md, err := toml.DecodeFile(path, &o)
	if err != nil {
		return o, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return o, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return o, nil
}
