package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diaryprint/pkg/asset"
	"github.com/matzehuels/diaryprint/pkg/assemble"
	"github.com/matzehuels/diaryprint/pkg/buildinfo"
	"github.com/matzehuels/diaryprint/pkg/cache"
	"github.com/matzehuels/diaryprint/pkg/compose"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/observability"
	"github.com/matzehuels/diaryprint/pkg/plan"
	"github.com/matzehuels/diaryprint/pkg/raster"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so exports behave the same everywhere.
//
// The Runner holds no per-export state; multiple goroutines can share one
// Runner with different sources and options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses cache.DefaultKeyer and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// cachedArtifact is the artifact cache entry. Warnings are kept so a cache
// hit reports the same degradations as the run that produced the PDF.
type cachedArtifact struct {
	PDF      []byte   `json:"pdf"`
	Pages    int      `json:"pages"`
	Warnings []string `json:"warnings,omitempty"`
}

// cachedPlan is the plan cache entry. The raster size is stored so a hit
// is only used for a raster of the same dimensions.
type cachedPlan struct {
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Plan     plan.Plan      `json:"plan"`
	Sections []plan.Section `json:"sections"`
}

// Execute runs render → locate → plan → compose → assemble and returns the
// PDF. When opts.Output is set the PDF is also saved there atomically.
func (r *Runner) Execute(ctx context.Context, src Source, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.Title == "" {
		opts.Title = src.Title()
	}
	result := &Result{}

	// A logo that fails to load degrades the header. Such exports are
	// neither served from nor stored in the artifact cache.
	logo, logoHash, logoWarning := r.loadLogo(ctx, opts)

	artifactKey := ""
	if h := src.Hash(); h != "" && logoWarning == "" {
		keyOpts := opts.ArtifactKeyOpts()
		keyOpts.LogoHash = logoHash
		artifactKey = r.Keyer.ArtifactKey(h, keyOpts)
	}
	if artifactKey != "" && !opts.Refresh {
		if ca, ok := r.cachedArtifact(ctx, artifactKey); ok {
			result.PDF = ca.PDF
			result.Pages = ca.Pages
			result.Warnings = ca.Warnings
			result.CacheInfo.ArtifactHit = true
			r.Logger.Info("using cached export", "pages", ca.Pages)
			return result, r.save(ctx, opts, result)
		}
	}

	buf, err := r.paginate(ctx, src, opts, result)
	if err != nil {
		return nil, err
	}

	// Stage 4: Compose
	composer := r.composer(opts, result, logo)
	if logoWarning != "" {
		result.Warnings = append(result.Warnings, logoWarning)
	}
	pages, d, err := stage(ctx, observability.StageCompose, func() ([]compose.Page, error) {
		return composer.Pages(ctx, result.Plan, buf)
	})
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	result.Stats.ComposeTime = d
	r.Logger.Info("composed pages", "pages", len(pages), "duration", d)

	// Stage 5: Assemble
	data, d, err := stage(ctx, observability.StageAssemble, func() ([]byte, error) {
		a := &assemble.PDF{
			Format:  opts.PageFormat(),
			Title:   opts.Title,
			Creator: buildinfo.Creator(),
		}
		var out bytes.Buffer
		if err := a.Assemble(ctx, pages, &out); err != nil {
			return nil, err
		}
		if !opts.SkipVerify {
			if err := assemble.Verify(out.Bytes(), len(pages)); err != nil {
				return nil, err
			}
		}
		return out.Bytes(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	result.PDF = data
	result.Pages = len(pages)
	result.Stats.AssembleTime = d
	r.Logger.Info("assembled pdf", "bytes", len(data), "duration", d)

	if artifactKey != "" {
		entry := cachedArtifact{PDF: data, Pages: result.Pages, Warnings: result.Warnings}
		if raw, err := json.Marshal(entry); err == nil {
			if err := r.Cache.Set(ctx, artifactKey, raw, cache.TTLArtifact); err == nil {
				observability.Cache().OnCacheSet(ctx, "artifact", len(raw))
			}
		}
	}
	return result, r.save(ctx, opts, result)
}

// Plan runs render → locate → plan only. The result has no PDF.
func (r *Runner) Plan(ctx context.Context, src Source, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{}
	if _, err := r.paginate(ctx, src, opts, result); err != nil {
		return nil, err
	}
	result.Pages = result.Plan.Pages()
	return result, nil
}

// paginate renders src and computes its page plan, filling result. The
// plan cache skips locating and planning when a raster of the same size
// was planned before.
func (r *Runner) paginate(ctx context.Context, src Source, opts Options, result *Result) (*raster.Buffer, error) {
	// Stage 1: Render
	buf, d, err := stage(ctx, observability.StageRender, func() (*raster.Buffer, error) {
		return src.Render(ctx, opts.Scale)
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Stats.RenderTime = d
	result.Stats.RasterWidth, result.Stats.RasterHeight = buf.Width(), buf.Height()
	r.Logger.Info("rendered document", "width", buf.Width(), "height", buf.Height(), "duration", d)

	geom, err := opts.Geometry(buf.Width())
	if err != nil {
		return nil, fmt.Errorf("page geometry: %w", err)
	}
	result.Geometry = geom
	r.Logger.Debug("page geometry", "geometry", geom.String())

	planKey := ""
	if h := src.Hash(); h != "" {
		planKey = r.Keyer.PlanKey(h, opts.PlanKeyOpts())
	}
	if planKey != "" && !opts.Refresh {
		if cp, ok := r.cachedPlan(ctx, planKey); ok && cp.Width == buf.Width() && cp.Height == buf.Height() {
			result.Plan, result.Sections = cp.Plan, cp.Sections
			result.CacheInfo.PlanHit = true
			r.Logger.Info("using cached plan", "pages", cp.Plan.Pages())
			r.noteDegradations(ctx, result)
			return buf, nil
		}
	}

	// Stage 2: Locate
	sections, d, err := stage(ctx, observability.StageLocate, func() ([]plan.Section, error) {
		return src.Locate(ctx, opts.Scale)
	})
	if err != nil {
		return nil, fmt.Errorf("locate: %w", err)
	}
	result.Sections = plan.Normalize(buf.Height(), sections)
	result.Stats.LocateTime = d
	r.Logger.Info("located sections", "sections", len(result.Sections), "duration", d)

	// Stage 3: Plan
	p, d, err := stage(ctx, observability.StagePlan, func() (plan.Plan, error) {
		return plan.Compute(buf.Height(), geom.ContentHeightPx(), result.Sections)
	})
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if err := plan.Validate(p); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	result.Plan = p
	result.Stats.PlanTime = d
	r.Logger.Info("planned pages", "pages", p.Pages(), "page_height", p.PageHeight, "duration", d)
	r.noteDegradations(ctx, result)

	if planKey != "" {
		entry := cachedPlan{Width: buf.Width(), Height: buf.Height(), Plan: p, Sections: result.Sections}
		if data, err := json.Marshal(entry); err == nil {
			if err := r.Cache.Set(ctx, planKey, data, cache.TTLPlan); err == nil {
				observability.Cache().OnCacheSet(ctx, "plan", len(data))
			}
		}
	}
	return buf, nil
}

func (r *Runner) cachedPlan(ctx context.Context, key string) (cachedPlan, bool) {
	var cp cachedPlan
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "plan")
		return cp, false
	}
	if err := json.Unmarshal(data, &cp); err != nil || plan.Validate(cp.Plan) != nil {
		observability.Cache().OnCacheMiss(ctx, "plan")
		return cp, false
	}
	observability.Cache().OnCacheHit(ctx, "plan")
	return cp, true
}

func (r *Runner) cachedArtifact(ctx context.Context, key string) (cachedArtifact, bool) {
	var ca cachedArtifact
	data, hit, err := r.Cache.Get(ctx, key)
	if err == nil && hit && json.Unmarshal(data, &ca) == nil {
		if info, err := assemble.Inspect(ca.PDF); err == nil && info.Pages == ca.Pages {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return ca, true
		}
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")
	return ca, false
}

// noteDegradations logs protected sections that had to be split.
func (r *Runner) noteDegradations(ctx context.Context, result *Result) {
	observability.Pipeline().OnPlanned(ctx, result.Plan.Pages(), len(result.Plan.Notes))
	for _, n := range result.Plan.Notes {
		msg := fmt.Sprintf("section %q (%dpx) is taller than a page and spans pages %v", n.Section.Label, n.Section.Height, n.Pages)
		r.Logger.Info("splitting oversized section", "section", n.Section.Label, "height", n.Section.Height, "pages", n.Pages)
		result.Warnings = append(result.Warnings, msg)
	}
}

// loadLogo reads and decodes the logo. It returns the image, a hash of its
// bytes for the artifact key, and a warning when loading failed.
func (r *Runner) loadLogo(ctx context.Context, opts Options) (image.Image, string, string) {
	if opts.Logo == "" {
		return nil, "", ""
	}
	data, err := asset.Read(ctx, opts.Logo, opts.Fetcher)
	var logo image.Image
	if err == nil {
		logo, err = asset.Decode(data)
	}
	if err != nil {
		r.Logger.Warn("logo unavailable, header drawn without it", "logo", opts.Logo, "error", errors.UserMessage(err))
		return nil, "", fmt.Sprintf("logo %s unavailable: %s", opts.Logo, errors.UserMessage(err))
	}
	return logo, cache.Hash(data), ""
}

// composer builds the page composer. A nil logo leaves the header without one.
func (r *Runner) composer(opts Options, result *Result, logo image.Image) *compose.Composer {
	header, err := compose.ParseHeaderColor(opts.HeaderColor)
	if err != nil {
		header, _ = compose.ParseHeaderColor(DefaultHeaderColor)
	}

	copts := []compose.Option{
		compose.WithTitle(opts.Title),
		compose.WithHeaderColor(header),
		compose.WithFooter(opts.Footer),
		compose.WithConcurrency(opts.Concurrency),
	}
	if logo != nil {
		copts = append(copts, compose.WithLogo(logo))
	}
	return compose.New(result.Geometry, copts...)
}

func (r *Runner) save(ctx context.Context, opts Options, result *Result) error {
	if opts.Output == "" {
		return nil
	}
	if err := assemble.Save(ctx, opts.Output, result.PDF); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	r.Logger.Debug("saved pdf", "path", opts.Output)
	return nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// stage runs one pipeline stage with cancellation checks and hooks.
func stage[T any](ctx context.Context, s observability.Stage, fn func() (T, error)) (T, time.Duration, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, s)
	start := time.Now()
	v, err := fn()
	d := time.Since(start)
	hooks.OnStageComplete(ctx, s, d, err)
	if err != nil {
		return zero, d, err
	}
	return v, d, nil
}
