package assemble

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/diaryprint/pkg/compose"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/page"
)

func testPages(n int) []compose.Page {
	pages := make([]compose.Page, n)
	for i := range pages {
		img := image.NewRGBA(image.Rect(0, 0, 210, 297))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = uint8(40*i), 128, 200, 255
		}
		img.SetRGBA(0, 0, color.RGBA{A: 255})
		pages[i] = compose.Page{Index: i + 1, Total: n, Image: img}
	}
	return pages
}

func assemble(t *testing.T, a *PDF, pages []compose.Page) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := a.Assemble(context.Background(), pages, &buf); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return buf.Bytes()
}

func TestAssembleRoundTrip(t *testing.T) {
	a := &PDF{Format: page.A4, Title: "Work diary", Creator: "diaryprint", Time: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)}
	data := assemble(t, a, testPages(3))

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
	if err := Verify(data, 3); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	info, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Title != "Work diary" {
		t.Errorf("Title = %q", info.Title)
	}
	if math.Abs(info.Width-210) > 0.5 || math.Abs(info.Height-297) > 0.5 {
		t.Errorf("page size = %.1fx%.1fmm, want 210x297", info.Width, info.Height)
	}
}

func TestAssembleLetter(t *testing.T) {
	data := assemble(t, &PDF{Format: page.Letter}, testPages(1))
	info, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages != 1 || math.Abs(info.Width-215.9) > 0.5 {
		t.Errorf("info = %+v", info)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	a := &PDF{Format: page.A4, Title: "x", Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	pages := testPages(2)
	if !bytes.Equal(assemble(t, a, pages), assemble(t, a, pages)) {
		t.Error("same pages and time produced different bytes")
	}
}

func TestAssembleErrors(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer

	if err := (&PDF{Format: page.A4}).Assemble(ctx, nil, &buf); !errors.Is(err, errors.ErrCodeAssemble) {
		t.Errorf("no pages: err = %v", err)
	}
	if err := (&PDF{}).Assemble(ctx, testPages(1), &buf); !errors.Is(err, errors.ErrCodeAssemble) {
		t.Errorf("no format: err = %v", err)
	}
	if err := (&PDF{Format: page.A4}).Assemble(ctx, []compose.Page{{Index: 1}}, &buf); !errors.Is(err, errors.ErrCodeAssemble) {
		t.Errorf("nil image: err = %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := (&PDF{Format: page.A4}).Assemble(cancelled, testPages(1), &buf); err == nil {
		t.Error("cancelled context: expected error")
	}
}

func TestVerifyMismatch(t *testing.T) {
	data := assemble(t, &PDF{Format: page.A4}, testPages(2))
	if err := Verify(data, 3); !errors.Is(err, errors.ErrCodeAssemble) {
		t.Errorf("err = %v, want ASSEMBLE_FAILED", err)
	}
	if err := Verify([]byte("not a pdf"), 1); err == nil {
		t.Error("garbage verified")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "out", "diary.pdf")

	if err := Save(context.Background(), name, []byte("%PDF-1.4 first")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(context.Background(), name, []byte("%PDF-1.4 second")); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "%PDF-1.4 second" {
		t.Errorf("content = %q", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(name))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestSaveRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "../escape.pdf", "out/.hidden"} {
		if err := Save(context.Background(), name, []byte("x")); err == nil {
			t.Errorf("Save(%q) succeeded", name)
		}
	}
}
