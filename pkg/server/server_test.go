package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/diaryprint/pkg/cache"
	"github.com/matzehuels/diaryprint/pkg/document"
	"github.com/matzehuels/diaryprint/pkg/jobs"
	"github.com/matzehuels/diaryprint/pkg/pipeline"
)

func testServer(t *testing.T) (*httptest.Server, *jobs.MemoryStore) {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	store := jobs.NewMemoryStore()
	s := New(Config{
		Runner: pipeline.NewRunner(fc, nil, logger),
		Jobs:   store,
		Logger: logger,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func exportBody(t *testing.T) []byte {
	t.Helper()
	req := exportRequest{
		Document: &document.Document{
			Title: "Site diary",
			Sections: []document.Section{
				{Kind: document.KindHeading, Text: "Week 12"},
				{Kind: document.KindSpacer, Height: 900},
				{Kind: document.KindTable, Label: "deliveries", Columns: []string{"Time", "Load"}, Rows: [][]string{{"07:10", "8m³"}}},
			},
		},
		Options: pipeline.Options{Scale: 1, LayoutWidth: 400},
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func post(t *testing.T, ts *httptest.Server, path, client string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if client != "" {
		req.Header.Set(ClientHeader, client)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestHealth(t *testing.T) {
	ts, _ := testServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || h.Status != "ok" || h.Version == "" {
		t.Errorf("health = %d %+v", resp.StatusCode, h)
	}
}

func TestExport(t *testing.T) {
	ts, store := testServer(t)
	body := exportBody(t)

	resp := post(t, ts, "/v1/exports", "acme", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, decodeError(t, resp))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Site-diary.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if resp.Header.Get("X-Diaryprint-Cache") != "miss" {
		t.Errorf("first export cache = %q", resp.Header.Get("X-Diaryprint-Cache"))
	}
	pdf, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatal("body is not a PDF")
	}

	id := resp.Header.Get("X-Diaryprint-Job")
	job, err := store.Get(t.Context(), id)
	if err != nil {
		t.Fatalf("job not recorded: %v", err)
	}
	if job.Status != jobs.StatusDone || job.Pages < 2 || job.Bytes != len(pdf) {
		t.Errorf("job = %+v", job)
	}

	again := post(t, ts, "/v1/exports", "acme", body)
	if again.Header.Get("X-Diaryprint-Cache") != "hit" {
		t.Errorf("second export cache = %q", again.Header.Get("X-Diaryprint-Cache"))
	}
	other := post(t, ts, "/v1/exports", "globex", body)
	if other.Header.Get("X-Diaryprint-Cache") != "miss" {
		t.Errorf("other client shared the cache: %q", other.Header.Get("X-Diaryprint-Cache"))
	}
}

func TestExportHistory(t *testing.T) {
	ts, _ := testServer(t)
	resp := post(t, ts, "/v1/exports", "", exportBody(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	id := resp.Header.Get("X-Diaryprint-Job")

	list, err := http.Get(ts.URL + "/v1/exports?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	var jl []jobs.Job
	if err := json.NewDecoder(list.Body).Decode(&jl); err != nil {
		t.Fatal(err)
	}
	if len(jl) != 1 || jl[0].ID != id {
		t.Errorf("list = %+v", jl)
	}

	one, err := http.Get(ts.URL + "/v1/exports/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer one.Body.Close()
	var j jobs.Job
	if err := json.NewDecoder(one.Body).Decode(&j); err != nil {
		t.Fatal(err)
	}
	if j.Title != "Site diary" {
		t.Errorf("job title = %q", j.Title)
	}

	missing, err := http.Get(ts.URL + "/v1/exports/00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatal(err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing job status = %d", missing.StatusCode)
	}

	bad, err := http.Get(ts.URL + "/v1/exports?limit=abc")
	if err != nil {
		t.Fatal(err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", bad.StatusCode)
	}
}

func TestPlan(t *testing.T) {
	ts, _ := testServer(t)
	resp := post(t, ts, "/v1/plans", "", exportBody(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, decodeError(t, resp))
	}
	var out struct {
		Pages    int `json:"pages"`
		Height   int `json:"height"`
		Sections []struct {
			Label string `json:"label"`
		} `json:"sections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Pages < 2 || out.Height == 0 {
		t.Errorf("plan = %+v", out)
	}
	found := false
	for _, s := range out.Sections {
		found = found || s.Label == "deliveries"
	}
	if !found {
		t.Errorf("sections = %+v", out.Sections)
	}
}

func TestBadRequests(t *testing.T) {
	ts, _ := testServer(t)
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", "{", "INVALID_INPUT"},
		{"unknown field", `{"doc": {}}`, "INVALID_INPUT"},
		{"empty", `{}`, "INVALID_INPUT"},
		{"both sources", `{"document": {"title": "x", "sections": []}, "html": "<p>x</p>"}`, "INVALID_INPUT"},
		{"local logo", `{"document": {"title": "x", "sections": []}, "options": {"logo": "/etc/logo.png"}}`, "INVALID_INPUT"},
		{"bad format", `{"document": {"title": "x", "sections": []}, "options": {"format": "A0"}}`, "INVALID_CONFIG"},
		{"bad document", `{"document": {"title": "x", "sections": [{"kind": "chart"}]}}`, "INVALID_DOCUMENT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, "/v1/exports", "", []byte(tt.body))
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if e := decodeError(t, resp); e.Code != tt.code {
				t.Errorf("code = %q, want %q (%s)", e.Code, tt.code, e.Error)
			}
		})
	}
}

// internalHost stands in for a service on the server's private network and
// counts the requests that reach it.
func internalHost(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		png.Encode(w, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func TestExportRefusesPrivateLogo(t *testing.T) {
	ts, store := testServer(t)
	internal, hits := internalHost(t)

	var req exportRequest
	if err := json.Unmarshal(exportBody(t), &req); err != nil {
		t.Fatal(err)
	}
	req.Options.Logo = internal.URL + "/logo.png"
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	resp := post(t, ts, "/v1/exports", "", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, decodeError(t, resp))
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("internal host hit %d times, want 0", n)
	}
	job, err := store.Get(t.Context(), resp.Header.Get("X-Diaryprint-Job"))
	if err != nil {
		t.Fatal(err)
	}
	if len(job.Warnings) != 1 || !strings.Contains(job.Warnings[0], "logo") {
		t.Errorf("warnings = %q, want one logo warning", job.Warnings)
	}
}

func TestExportAllowPrivateHosts(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	s := New(Config{
		Runner:            pipeline.NewRunner(fc, nil, logger),
		Logger:            logger,
		AllowPrivateHosts: true,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	internal, hits := internalHost(t)

	body := fmt.Sprintf(`{"document": {"title": "x", "sections": [{"kind": "heading", "text": "Week 1"}]}, "options": {"logo": %q}}`,
		internal.URL+"/logo.png")
	resp := post(t, ts, "/v1/exports", "", []byte(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, decodeError(t, resp))
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("internal host hit %d times, want 1", n)
	}
}

// TestHTMLExportOffline needs a local Chrome; set DIARYPRINT_CHROME=1 to run it.
func TestHTMLExportOffline(t *testing.T) {
	if os.Getenv("DIARYPRINT_CHROME") == "" {
		t.Skip("set DIARYPRINT_CHROME=1 to run browser tests")
	}
	ts, _ := testServer(t)
	internal, hits := internalHost(t)

	html := fmt.Sprintf(`<html><body>
<img src="%[1]s/pixel.png">
<iframe src="%[1]s/frame"></iframe>
<script>fetch(%[1]q + "/script")</script>
<div style="background: url(%[1]s/bg.png)">Crew</div>
</body></html>`, internal.URL)
	body, err := json.Marshal(exportRequest{HTML: html, Title: "Offline"})
	if err != nil {
		t.Fatal(err)
	}

	resp := post(t, ts, "/v1/exports", "", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %+v", resp.StatusCode, decodeError(t, resp))
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("report reached internal host %d times, want 0", n)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct{ title, want string }{
		{"Site diary", "Site-diary.pdf"},
		{"  ", "export.pdf"},
		{"../../etc", "etc.pdf"},
		{"Woche 12/2024", "Woche-12-2024.pdf"},
		{"report.v2", "report.v2.pdf"},
	}
	for _, tt := range tests {
		if got := fileName(tt.title); got != tt.want {
			t.Errorf("fileName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestClientID(t *testing.T) {
	tests := []struct{ header, want string }{
		{"acme", "acme"},
		{" team-7 ", "team-7"},
		{"", ""},
		{"a b", ""},
		{strings.Repeat("x", 65), ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(ClientHeader, tt.header)
		if got := clientID(r); got != tt.want {
			t.Errorf("clientID(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
