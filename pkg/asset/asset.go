// Package asset loads the header logo of an export.
//
// A logo reference is a local path or an http(s) URL. Every failure is
// reported with errors.ErrCodeAsset: the export continues without a logo,
// so callers log the error and draw the header band without it.
package asset

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/diaryprint/pkg/errors"
)

// MaxLogoPixels bounds a decoded logo.
const MaxLogoPixels = 16_000_000

// Fetcher downloads remote logos. *httputil.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Read returns the raw bytes of ref. f may be nil for local references.
func Read(ctx context.Context, ref string, f Fetcher) ([]byte, error) {
	if IsRemote(ref) {
		if f == nil {
			return nil, errors.New(errors.ErrCodeAsset, "no fetcher for remote logo %s", ref)
		}
		data, err := f.Fetch(ctx, ref)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeAsset, err, "load logo")
		}
		return data, nil
	}
	if err := errors.ValidatePath(ref); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAsset, err, "load logo")
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAsset, err, "read logo %s", ref)
	}
	return data, nil
}

// Decode decodes PNG, JPEG, GIF, BMP, TIFF or WebP data, refusing images
// larger than MaxLogoPixels before allocating them.
func Decode(data []byte) (image.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAsset, err, "decode logo header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxLogoPixels {
		return nil, errors.New(errors.ErrCodeAsset, "logo %dx%d (%s) out of bounds", cfg.Width, cfg.Height, format)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAsset, err, "decode logo")
	}
	return img, nil
}

// Load reads and decodes ref. An empty ref yields (nil, nil).
func Load(ctx context.Context, ref string, f Fetcher) (image.Image, error) {
	if ref == "" {
		return nil, nil
	}
	data, err := Read(ctx, ref, f)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
