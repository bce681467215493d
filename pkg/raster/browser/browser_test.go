package browser

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/diaryprint/pkg/plan"
)

const report = `<!doctype html>
<html><body>
<h1>Work diary</h1>
<div data-export-ignore class="toolbar"><button>Export</button></div>
<table id="equipment" data-export-section="protected"><tr><td>Drill</td></tr></table>
<p>Notes <span data-export-ignore>(draft)</span></p>
<section data-export-section="trailing" data-export-label="signatures">Sign here</section>
</body></html>`

func TestPrefilter(t *testing.T) {
	out, markers, err := Prefilter(strings.NewReader(report), false)
	if err != nil {
		t.Fatalf("Prefilter: %v", err)
	}

	html := string(out)
	if strings.Contains(html, "toolbar") || strings.Contains(html, "(draft)") {
		t.Errorf("ignored elements kept:\n%s", html)
	}
	if !strings.Contains(html, "Drill") || !strings.Contains(html, "Sign here") {
		t.Errorf("content lost:\n%s", html)
	}

	want := []Marker{
		{Label: "equipment", Class: plan.ClassProtected},
		{Label: "signatures", Class: plan.ClassTrailing},
	}
	if diff := cmp.Diff(want, markers); diff != "" {
		t.Errorf("markers mismatch (-want +got):\n%s", diff)
	}
}

func TestPrefilterUnknownClass(t *testing.T) {
	_, _, err := Prefilter(strings.NewReader(`<div data-export-section="sticky">x</div>`), false)
	if err == nil {
		t.Fatal("expected error for unknown section class")
	}
}

const activeReport = `<!doctype html>
<html><head>
<meta http-equiv="refresh" content="0; url=http://169.254.169.254/">
<link rel="stylesheet" href="http://10.0.0.5/admin.css">
<base href="http://10.0.0.5/">
<script>fetch("http://127.0.0.1:6379/")</script>
</head><body onload="steal()">
<iframe src="http://169.254.169.254/latest/meta-data/"></iframe>
<object data="http://10.0.0.5/x"></object><embed src="http://10.0.0.5/y">
<a href="javascript:alert(1)" onclick="x()">link</a>
<table data-export-section="protected" id="crew"><tr><td>Crew</td></tr></table>
</body></html>`

func TestPrefilterOffline(t *testing.T) {
	out, markers, err := Prefilter(strings.NewReader(activeReport), true)
	if err != nil {
		t.Fatalf("Prefilter: %v", err)
	}
	html := string(out)
	for _, banned := range []string{
		"<script", "<iframe", "<object", "<embed", "<link", "<base", "refresh",
		"onload", "onclick", "javascript:", "169.254.169.254", "10.0.0.5",
	} {
		if strings.Contains(html, banned) {
			t.Errorf("offline output contains %q:\n%s", banned, html)
		}
	}
	if !strings.Contains(html, "Crew") || !strings.Contains(html, ">link</a>") {
		t.Errorf("content lost:\n%s", html)
	}
	if diff := cmp.Diff([]Marker{{Label: "crew", Class: plan.ClassProtected}}, markers); diff != "" {
		t.Errorf("markers mismatch (-want +got):\n%s", diff)
	}

	online, _, err := Prefilter(strings.NewReader(activeReport), false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(online), "<script>") {
		t.Error("online prefilter removed scripts")
	}
}

func TestParseLocated(t *testing.T) {
	raw := []byte(`{"height": 1000.5, "sections": [
		{"label": "sig", "class": "trailing", "top": 900, "bottom": 980.2},
		{"label": "table", "class": "protected", "top": 100.4, "bottom": 300}
	]}`)

	got, err := parseLocated(raw, 2)
	if err != nil {
		t.Fatalf("parseLocated: %v", err)
	}
	want := []plan.Section{
		{Label: "table", Top: 200, Height: 400, Class: plan.ClassProtected},
		{Label: "sig", Top: 1800, Height: 161, Class: plan.ClassTrailing},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}

	if _, err := parseLocated([]byte(`{"height": 10, "sections": [{"class": "bogus"}]}`), 1); err == nil {
		t.Error("expected error for unknown class")
	}
}

// TestSessionRender needs a local Chrome; set DIARYPRINT_CHROME=1 to run it.
func TestSessionRender(t *testing.T) {
	if os.Getenv("DIARYPRINT_CHROME") == "" {
		t.Skip("set DIARYPRINT_CHROME=1 to run browser tests")
	}

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Width = 600
	s, err := Open(ctx, []byte(report), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	buf, err := s.Render(ctx, 2)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.Width() != 1200 {
		t.Errorf("Width() = %d, want 1200", buf.Width())
	}

	sections, err := s.Locate(ctx, 2)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if len(sections) != 2 || sections[1].Class != plan.ClassTrailing {
		t.Errorf("sections = %+v", sections)
	}
}
