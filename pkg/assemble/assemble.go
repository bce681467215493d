// Package assemble writes composed pages into a PDF and checks the result.
//
// Each page canvas becomes exactly one physical PDF page: the canvas is
// encoded as PNG and placed to fill the page box, so the PDF looks exactly
// like the composed pages. [Save] writes the artifact atomically and
// [Verify] re-reads it with an independent PDF parser.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	pdf "seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"github.com/matzehuels/diaryprint/pkg/compose"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/page"
)

// Assembler writes pages into a document.
type Assembler interface {
	Assemble(ctx context.Context, pages []compose.Page, w io.Writer) error
}

// PDF assembles pages into a PDF of one page format.
type PDF struct {
	Format  page.Format
	Title   string
	Creator string
	// Time is recorded as creation and modification date. The zero value
	// uses the current time.
	Time time.Time
}

var _ Assembler = (*PDF)(nil)

// Assemble writes pages, in order, one per PDF page.
func (a *PDF) Assemble(ctx context.Context, pages []compose.Page, w io.Writer) error {
	if len(pages) == 0 {
		return errors.New(errors.ErrCodeAssemble, "no pages to assemble")
	}
	if a.Format.Width <= 0 || a.Format.Height <= 0 {
		return errors.New(errors.ErrCodeAssemble, "invalid page format %q", a.Format.Name)
	}

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: a.Format.Width, Ht: a.Format.Height},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCatalogSort(true)
	if a.Title != "" {
		doc.SetTitle(a.Title, true)
	}
	if a.Creator != "" {
		doc.SetCreator(a.Creator, true)
	}
	ts := a.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	doc.SetCreationDate(ts)
	doc.SetModificationDate(ts)

	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	var buf bytes.Buffer
	for i, pg := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pg.Image == nil {
			return errors.New(errors.ErrCodeAssemble, "page %d has no image", i+1)
		}

		buf.Reset()
		if err := enc.Encode(&buf, pg.Image); err != nil {
			return errors.Wrap(errors.ErrCodeAssemble, err, "encode page %d", i+1)
		}

		name := fmt.Sprintf("page-%d", i+1)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		doc.AddPage()
		doc.RegisterImageOptionsReader(name, opts, &buf)
		doc.ImageOptions(name, 0, 0, a.Format.Width, a.Format.Height, false, opts, 0, "")
		if err := doc.Error(); err != nil {
			return errors.Wrap(errors.ErrCodeAssemble, err, "add page %d", i+1)
		}
	}

	if err := doc.Output(w); err != nil {
		return errors.Wrap(errors.ErrCodeAssemble, err, "write pdf")
	}
	return nil
}

// Save writes data to name atomically: a temp file in the same directory is
// renamed over the target, so an interrupted export never leaves a partial
// file.
func Save(ctx context.Context, name string, data []byte) error {
	if err := errors.ValidatePath(name); err != nil {
		return err
	}
	if err := errors.ValidateFileName(filepath.Base(name)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeAssemble, err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".diaryprint-*.pdf")
	if err != nil {
		return errors.Wrap(errors.ErrCodeAssemble, err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeAssemble, err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeAssemble, err, "close %s", name)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return errors.Wrap(errors.ErrCodeAssemble, err, "rename to %s", name)
	}
	return nil
}

// Info describes a PDF read back from bytes.
type Info struct {
	Pages   int
	Title   string
	Version string
	// Width and Height of the first page, in millimeters.
	Width, Height float64
}

const mmPerPoint = 25.4 / 72

// Inspect parses data and reports page count, title and first page size.
func Inspect(data []byte) (Info, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return Info{}, errors.Wrap(errors.ErrCodeAssemble, err, "parse pdf")
	}
	defer r.Close()

	var info Info
	meta := r.GetMeta()
	info.Version = meta.Version.String()
	if meta.Info != nil {
		info.Title = string(meta.Info.Title)
	}

	n, err := pagetree.NumPages(r)
	if err != nil {
		return info, errors.Wrap(errors.ErrCodeAssemble, err, "read page tree")
	}
	info.Pages = n

	if n > 0 {
		_, dict, err := pagetree.GetPage(r, 0)
		if err != nil {
			return info, errors.Wrap(errors.ErrCodeAssemble, err, "read first page")
		}
		box, err := pdf.GetRectangle(r, dict["MediaBox"])
		if err == nil && box != nil {
			info.Width = (box.URx - box.LLx) * mmPerPoint
			info.Height = (box.URy - box.LLy) * mmPerPoint
		}
	}
	return info, nil
}

// Verify checks that data is a readable PDF with wantPages pages.
func Verify(data []byte, wantPages int) error {
	info, err := Inspect(data)
	if err != nil {
		return err
	}
	if info.Pages != wantPages {
		return errors.New(errors.ErrCodeAssemble, "pdf has %d pages, want %d", info.Pages, wantPages)
	}
	return nil
}
