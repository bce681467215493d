package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/locate"
	"github.com/matzehuels/diaryprint/pkg/plan"
	"github.com/matzehuels/diaryprint/pkg/raster"
)

// Config controls how the browser is reached.
type Config struct {
	// ControlURL connects to a running Chrome DevTools endpoint. When empty a
	// local headless Chrome is launched.
	ControlURL string
	// Bin overrides the Chrome binary used when launching.
	Bin string
	// Width is the fixed viewport width in CSS pixels.
	Width int
	// Timeout bounds page loading.
	Timeout time.Duration
	// MaxPixels bounds the captured surface.
	MaxPixels int
	// Offline strips active content from the report and fails every
	// network request the page makes.
	Offline bool
	Logger  *log.Logger
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		Width:     794,
		Timeout:   30 * time.Second,
		MaxPixels: raster.DefaultMaxPixels,
	}
}

// Session renders one HTML report in headless Chrome. It implements both
// raster.Renderer and locate.Locator; the two agree because they load the
// same filtered HTML at the same viewport width.
type Session struct {
	cfg     Config
	html    string
	markers []Marker
	logger  *log.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launched *launcher.Launcher
}

var (
	_ raster.Renderer = (*Session)(nil)
	_ locate.Locator  = (*Session)(nil)
)

// Open prefilters report and connects to (or launches) Chrome.
func Open(ctx context.Context, report []byte, cfg Config) (*Session, error) {
	filtered, markers, err := Prefilter(bytes.NewReader(report), cfg.Offline)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "prefilter report")
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultConfig().Width
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Session{cfg: cfg, html: string(filtered), markers: markers, logger: logger}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	logger.Debug("browser session ready", "markers", len(markers), "width", cfg.Width)
	return s, nil
}

func (s *Session) connect(ctx context.Context) error {
	controlURL := s.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return errors.Wrap(errors.ErrCodeSurface, err, "launch chrome")
		}
		controlURL = u
		s.launched = l
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		return errors.Wrap(errors.ErrCodeSurface, err, "connect to chrome")
	}
	s.browser = b
	return nil
}

// Markers returns the section markers found in the report.
func (s *Session) Markers() []Marker { return s.markers }

// Close disconnects from the browser and stops it if the session launched it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.cleanupLauncher()
	return err
}

func (s *Session) cleanupLauncher() {
	if s.launched != nil {
		s.launched.Kill()
		s.launched.Cleanup()
		s.launched = nil
	}
}

// withPage opens a blank page, loads the report into it with the viewport
// forced to the fixed width at scale, runs fn and closes the page. The
// metrics override is cleared on every exit path.
func (s *Session) withPage(ctx context.Context, scale float64, fn func(*rod.Page) error) error {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be a positive number, got %v", scale)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return errors.New(errors.ErrCodeSurface, "browser session is closed")
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return errors.Wrap(errors.ErrCodeSurface, err, "create page")
	}
	defer page.Close()
	page = page.Context(ctx).Timeout(s.cfg.Timeout)

	if s.cfg.Offline {
		router := page.HijackRequests()
		if err := router.Add("*", "", blockRequest); err != nil {
			return errors.Wrap(errors.ErrCodeSurface, err, "block network")
		}
		go router.Run()
		defer router.Stop()
	}

	// SetViewport records the override on the page so a full-page
	// screenshot keeps the device scale factor.
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.Width,
		Height:            800,
		DeviceScaleFactor: scale,
		Mobile:            false,
	}); err != nil {
		return errors.Wrap(errors.ErrCodeSurface, err, "force viewport width")
	}
	defer func() {
		if err := (proto.EmulationClearDeviceMetricsOverride{}).Call(page); err != nil {
			s.logger.Debug("clear viewport override", "error", err)
		}
	}()

	if err := page.SetDocumentContent(s.html); err != nil {
		return errors.Wrap(errors.ErrCodeSurface, err, "load report")
	}
	if err := page.WaitLoad(); err != nil {
		return errors.Wrap(errors.ErrCodeSurface, err, "wait for report")
	}
	return fn(page)
}

func blockRequest(h *rod.Hijack) {
	h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
}

// Render captures the whole report at scale.
func (s *Session) Render(ctx context.Context, scale float64) (*raster.Buffer, error) {
	var buf *raster.Buffer
	err := s.withPage(ctx, scale, func(page *rod.Page) error {
		data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			return errors.Wrap(errors.ErrCodeSurface, err, "capture screenshot")
		}
		b, err := decode(data, scale, s.cfg.MaxPixels)
		if err != nil {
			return err
		}
		buf = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// decode converts a PNG capture into an RGBA buffer allocated under the
// pixel budget.
func decode(data []byte, scale float64, maxPixels int) (*raster.Buffer, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSurface, err, "decode capture header")
	}
	img, err := raster.Allocate(cfg.Width, cfg.Height, maxPixels)
	if err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSurface, err, "decode capture")
	}
	draw.Draw(img, img.Rect, src, src.Bounds().Min, draw.Src)
	return &raster.Buffer{Image: img, Scale: scale}, nil
}

const locateJS = `() => {
	const out = { height: document.documentElement.scrollHeight, sections: [] };
	for (const el of document.querySelectorAll('[data-export-section]')) {
		const r = el.getBoundingClientRect();
		out.sections.push({
			label: el.getAttribute('data-export-label') || el.id || '',
			class: el.getAttribute('data-export-section') || '',
			top: r.top + window.scrollY,
			bottom: r.bottom + window.scrollY,
		});
	}
	return out;
}`

type located struct {
	Height   float64 `json:"height"`
	Sections []struct {
		Label  string  `json:"label"`
		Class  string  `json:"class"`
		Top    float64 `json:"top"`
		Bottom float64 `json:"bottom"`
	} `json:"sections"`
}

// Locate measures the marked sections at scale.
func (s *Session) Locate(ctx context.Context, scale float64) ([]plan.Section, error) {
	var sections []plan.Section
	err := s.withPage(ctx, scale, func(page *rod.Page) error {
		res, err := page.Evaluate(&rod.EvalOptions{JS: locateJS, ByValue: true})
		if err != nil {
			return fmt.Errorf("measure sections: %w", err)
		}
		raw, err := res.Value.MarshalJSON()
		if err != nil {
			return fmt.Errorf("read sections: %w", err)
		}
		sections, err = parseLocated(raw, scale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

func parseLocated(raw []byte, scale float64) ([]plan.Section, error) {
	var loc located
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	regions := make([]locate.Region, 0, len(loc.Sections))
	for _, sec := range loc.Sections {
		class, err := plan.ParseClass(sec.Class)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "section %q", sec.Label)
		}
		regions = append(regions, locate.Region{Label: sec.Label, Top: sec.Top, Bottom: sec.Bottom, Class: class})
	}
	return locate.FromRegions(regions, scale, int(math.Ceil(loc.Height*scale))), nil
}
