// Package server exposes the export pipeline over HTTP.
//
// # Routes
//
//	POST /v1/exports       export a document, respond with the PDF
//	POST /v1/plans         plan a document, respond with the plan JSON
//	GET  /v1/exports       list recent exports (?limit=N)
//	GET  /v1/exports/{id}  one export record
//	GET  /healthz          liveness and version
//
// Request bodies carry either a document or an HTML report, plus options:
//
//	{"document": {...}, "options": {"format": "Letter", "footer": "{page}/{pages}"}}
//	{"html": "<html>...</html>", "title": "Weekly report"}
//
// Clients may send an X-Diaryprint-Client header; cache keys are scoped by
// it so clients never share cached artifacts.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/diaryprint/pkg/asset"
	"github.com/matzehuels/diaryprint/pkg/buildinfo"
	"github.com/matzehuels/diaryprint/pkg/cache"
	"github.com/matzehuels/diaryprint/pkg/document"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/httputil"
	dio "github.com/matzehuels/diaryprint/pkg/io"
	"github.com/matzehuels/diaryprint/pkg/jobs"
	"github.com/matzehuels/diaryprint/pkg/observability"
	"github.com/matzehuels/diaryprint/pkg/pipeline"
)

// Defaults for Config.
const (
	DefaultMaxBodyBytes = 4 << 20
	DefaultTimeout      = 2 * time.Minute

	// ClientHeader scopes cache keys per client.
	ClientHeader = "X-Diaryprint-Client"
)

// Config configures a Server.
type Config struct {
	Runner  *pipeline.Runner
	Jobs    jobs.Store
	Fetcher asset.Fetcher
	Logger  *log.Logger

	// AllowPrivateHosts lets the default fetcher reach loopback and private
	// addresses for request logos.
	AllowPrivateHosts bool

	// Browser backend for HTML bodies.
	ChromeURL string
	ChromeBin string

	MaxBodyBytes int64
	Timeout      time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	router chi.Router
}

// New creates a server. Nil fields get working defaults: an uncached runner,
// an in-memory job store, a public-only fetcher and log.Default().
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Fetcher == nil {
		f := httputil.NewFetcher(nil)
		f.PublicOnly = !cfg.AllowPrivateHosts
		cfg.Fetcher = f
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if cfg.Jobs == nil {
		cfg.Jobs = jobs.NewMemoryStore()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Server{cfg: cfg}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(middleware.Timeout(cfg.Timeout))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/exports", s.handleExport)
		r.Get("/exports", s.handleListExports)
		r.Get("/exports/{id}", s.handleGetExport)
		r.Post("/plans", s.handlePlan)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	s.cfg.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.cfg.Logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

// =============================================================================
// Handlers
// =============================================================================

type exportRequest struct {
	Document *document.Document `json:"document,omitempty"`
	HTML     string             `json:"html,omitempty"`
	Title    string             `json:"title,omitempty"`
	Options  pipeline.Options   `json:"options"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Version})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, src, err := s.openSource(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer src.Close()

	title := req.Options.Title
	if title == "" {
		title = src.Title()
	}
	job := jobs.New(title, src.Hash())
	if err := s.cfg.Jobs.Put(r.Context(), job); err != nil {
		s.cfg.Logger.Warn("record job", "error", err)
	}

	result, err := s.runner(r).Execute(r.Context(), src, req.Options)
	if err != nil {
		job.Fail(err)
		s.putJob(job)
		s.writeError(w, r, err)
		return
	}
	job.Finish(result.Pages, len(result.PDF), result.Warnings)
	s.putJob(job)

	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName(title)))
	h.Set("Content-Length", strconv.Itoa(len(result.PDF)))
	h.Set("X-Diaryprint-Job", job.ID)
	h.Set("X-Diaryprint-Pages", strconv.Itoa(result.Pages))
	if result.CacheInfo.ArtifactHit {
		h.Set("X-Diaryprint-Cache", "hit")
	} else {
		h.Set("X-Diaryprint-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(result.PDF)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	req, src, err := s.openSource(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer src.Close()

	result, err := s.runner(r).Plan(r.Context(), src, req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := dio.WritePlanJSON(result.Plan, result.Sections, w); err != nil {
		s.cfg.Logger.Warn("write plan", "error", err)
	}
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	list, err := s.cfg.Jobs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	job, err := s.cfg.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) openSource(w http.ResponseWriter, r *http.Request) (*exportRequest, pipeline.Source, error) {
	var req exportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}

	req.Options.Logger = s.cfg.Logger
	req.Options.Fetcher = s.cfg.Fetcher
	req.Options.ChromeURL = s.cfg.ChromeURL
	req.Options.ChromeBin = s.cfg.ChromeBin
	req.Options.Offline = true
	if req.Options.Logo != "" && !asset.IsRemote(req.Options.Logo) {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "logo must be an http(s) URL")
	}

	switch {
	case req.Document != nil && req.HTML != "":
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "send either document or html, not both")
	case req.Document != nil:
		src, err := pipeline.NewDocumentSource(req.Document, req.Options)
		return &req, src, err
	case req.HTML != "":
		src, err := pipeline.NewHTMLSource(r.Context(), []byte(req.HTML), req.Title, req.Options)
		return &req, src, err
	}
	return nil, nil, errors.New(errors.ErrCodeInvalidInput, "request has no document")
}

// runner returns a runner whose cache keys are scoped to the client.
func (s *Server) runner(r *http.Request) *pipeline.Runner {
	client := clientID(r)
	if client == "" {
		return s.cfg.Runner
	}
	base := s.cfg.Runner
	return &pipeline.Runner{
		Cache:  base.Cache,
		Keyer:  cache.NewScopedKeyer(base.Keyer, "client:"+client),
		Logger: base.Logger.With("client", client),
	}
}

var clientRe = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

func clientID(r *http.Request) string {
	c := strings.TrimSpace(r.Header.Get(ClientHeader))
	if !clientRe.MatchString(c) {
		return ""
	}
	return c
}

// putJob records job even when the request context is already done.
func (s *Server) putJob(job *jobs.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cfg.Jobs.Put(ctx, job); err != nil {
		s.cfg.Logger.Warn("record job", "job", job.ID, "error", err)
	}
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.Host, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		hooks.OnResponse(r.Context(), r.Method, r.Host, r.URL.Path, ww.Status(), time.Since(start))
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= 500 {
		s.cfg.Logger.Error("request failed", "path", r.URL.Path, "error", err)
		observability.HTTP().OnError(r.Context(), r.Method, r.Host, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: string(code)})
}

func statusOf(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidDocument, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeSurface:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeNetwork, errors.ErrCodeAsset:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileName(title string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(title, "-"), "-.")
	if name == "" {
		name = "export"
	}
	return name + ".pdf"
}
