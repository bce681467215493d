// Package fonts provides the embedded Go font faces used for text layout and
// rasterization.
//
// The fonts come from golang.org/x/image/font/gofont and are compiled into
// the binary, so exports look the same on every host without system fonts.
// Faces are parsed once and cached per style and size.
package fonts

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Style selects a font weight.
type Style int

const (
	Regular Style = iota
	Bold
)

func (s Style) String() string {
	if s == Bold {
		return "bold"
	}
	return "regular"
}

// FontFamily is the family name of the embedded fonts.
const FontFamily = "Go"

var (
	parseOnce sync.Once
	parsed    map[Style]*opentype.Font
	parseErr  error
)

func load() (map[Style]*opentype.Font, error) {
	parseOnce.Do(func() {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			parseErr = fmt.Errorf("parse regular font: %w", err)
			return
		}
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			parseErr = fmt.Errorf("parse bold font: %w", err)
			return
		}
		parsed = map[Style]*opentype.Font{Regular: regular, Bold: bold}
	})
	return parsed, parseErr
}

// Face returns a new font face of the given style whose em size is size
// pixels. Faces are not safe for concurrent use; each drawing context gets
// its own.
func Face(style Style, size float64) (font.Face, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	fonts, err := load()
	if err != nil {
		return nil, err
	}
	fnt, ok := fonts[style]
	if !ok {
		fnt = fonts[Regular]
	}
	f, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s face: %w", style, err)
	}
	return f, nil
}

// MustFace is like Face but falls back to a fixed 7x13 bitmap face when the
// embedded fonts cannot be used.
func MustFace(style Style, size float64) font.Face {
	f, err := Face(style, size)
	if err != nil {
		return basicfont.Face7x13
	}
	return f
}

type faceKey struct {
	style Style
	size  int64 // 1/64 px
}

// Measurement faces, guarded by measureMu for the whole call.
var (
	measureMu    sync.Mutex
	measureFaces = map[faceKey]font.Face{}
)

func measureFace(style Style, size float64) font.Face {
	key := faceKey{style: style, size: int64(math.Round(size * 64))}
	if f, ok := measureFaces[key]; ok {
		return f
	}
	f := MustFace(style, float64(key.size)/64)
	measureFaces[key] = f
	return f
}

// Measure returns the advance width of text in pixels at the given size.
func Measure(style Style, size float64, text string) float64 {
	measureMu.Lock()
	defer measureMu.Unlock()
	return float64(font.MeasureString(measureFace(style, size), text)) / 64
}

// LineHeight returns the recommended distance between baselines, in pixels.
func LineHeight(style Style, size float64) float64 {
	measureMu.Lock()
	defer measureMu.Unlock()
	return float64(measureFace(style, size).Metrics().Height) / 64
}

// Ascent returns the distance from the top of a line box to its baseline, in pixels.
func Ascent(style Style, size float64) float64 {
	measureMu.Lock()
	defer measureMu.Unlock()
	return float64(measureFace(style, size).Metrics().Ascent) / 64
}
