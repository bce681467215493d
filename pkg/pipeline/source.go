package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/diaryprint/pkg/cache"
	"github.com/matzehuels/diaryprint/pkg/document"
	"github.com/matzehuels/diaryprint/pkg/errors"
	dio "github.com/matzehuels/diaryprint/pkg/io"
	"github.com/matzehuels/diaryprint/pkg/locate"
	"github.com/matzehuels/diaryprint/pkg/raster"
	"github.com/matzehuels/diaryprint/pkg/raster/browser"
)

// Source is a visual document the pipeline can export: it renders itself
// and locates its sections at the same fixed width.
type Source interface {
	raster.Renderer
	locate.Locator

	// Hash identifies the rendered content for caching; "" disables it.
	Hash() string
	// Title is used when Options.Title is empty.
	Title() string
	Close() error
}

// documentSource exports a document.Document with the built-in renderer.
type documentSource struct {
	*raster.DocumentRenderer
	*locate.DocumentLocator
	title string
	hash  string
}

// NewDocumentSource returns a source for doc. Sections hidden from export
// are removed first; doc itself is not modified.
func NewDocumentSource(doc *document.Document, opts Options) (Source, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	filtered := document.Filter(doc)
	h, err := cache.HashJSON(filtered)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "hash document")
	}

	r := raster.NewDocumentRenderer(filtered,
		raster.WithWidth(opts.LayoutWidth),
		raster.WithMaxPixels(opts.MaxPixels))
	return &documentSource{
		DocumentRenderer: r,
		DocumentLocator:  locate.ForRenderer(r),
		title:            doc.Title,
		hash:             "doc:" + h,
	}, nil
}

func (s *documentSource) Hash() string  { return s.hash }
func (s *documentSource) Title() string { return s.title }
func (s *documentSource) Close() error  { return nil }

// htmlSource exports an HTML report through headless Chrome.
type htmlSource struct {
	*browser.Session
	title string
	hash  string
}

// NewHTMLSource opens a browser session for an HTML report.
func NewHTMLSource(ctx context.Context, report []byte, title string, opts Options) (Source, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	cfg := browser.DefaultConfig()
	cfg.ControlURL = opts.ChromeURL
	cfg.Bin = opts.ChromeBin
	cfg.Width = int(opts.LayoutWidth)
	cfg.MaxPixels = opts.MaxPixels
	cfg.Offline = opts.Offline
	cfg.Logger = opts.Logger

	s, err := browser.Open(ctx, report, cfg)
	if err != nil {
		return nil, err
	}
	return &htmlSource{Session: s, title: title, hash: "html:" + cache.Hash(report)}, nil
}

func (s *htmlSource) Hash() string  { return s.hash }
func (s *htmlSource) Title() string { return s.title }

// IsHTML reports whether path names an HTML report.
func IsHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// OpenSource opens the file at path: HTML reports go through the browser
// backend, JSON/TOML/YAML documents through the built-in renderer.
func OpenSource(ctx context.Context, path string, opts Options) (Source, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	if IsHTML(path) {
		report, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
			}
			return nil, err
		}
		return NewHTMLSource(ctx, report, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), opts)
	}
	doc, err := dio.ImportDocument(path)
	if err != nil {
		return nil, err
	}
	return NewDocumentSource(doc, opts)
}
