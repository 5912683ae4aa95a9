// Package sigfont resolves and caches the TrueType font used to render
// signatures. Resolution walks an ordered candidate list; parsed fonts are
// registered once per process and reused across requests.
package sigfont

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// ErrFontMissing is returned when no candidate path exists on disk.
var ErrFontMissing = errors.New("no signature font found at any candidate path")

// DefaultCandidates returns the ordered font locations to try. The
// SIGNATURE_FONT_PATH override comes first, then the bundled asset, then
// common system cursive/sans fallbacks.
func DefaultCandidates() []string {
	var out []string
	if p := os.Getenv("SIGNATURE_FONT_PATH"); p != "" {
		out = append(out, p)
	}
	out = append(out,
		"assets/fonts/Signature.ttf",
		"/usr/share/fonts/truetype/dancing-script/DancingScript-Regular.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSerif-Italic.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	)
	return out
}

// Resolve returns the first candidate that exists as a regular file.
func Resolve(candidates []string) (string, error) {
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", ErrFontMissing
}

var (
	mu    sync.Mutex
	cache = map[string]*sfnt.Font{}
	parse = parseFile
)

func parseFile(path string) (*sfnt.Font, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}

// setParser swaps the font parser, useful for tests.
func setParser(p func(string) (*sfnt.Font, error)) { parse = p }

// Load parses and registers the font at path. Re-registration is idempotent:
// repeated calls for the same path return the cached handle.
func Load(path string) (*sfnt.Font, error) {
	mu.Lock()
	defer mu.Unlock()
	if f, ok := cache[path]; ok {
		return f, nil
	}
	f, err := parse(path)
	if err != nil {
		return nil, err
	}
	cache[path] = f
	return f, nil
}

// Face builds a rendering face at the given size in points (72 DPI, so one
// pixel equals one point).
func Face(f *sfnt.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// Measure returns the advance width of text at the given size, in points.
func Measure(f *sfnt.Font, text string, size float64) (float64, error) {
	face, err := Face(f, size)
	if err != nil {
		return 0, err
	}
	defer face.Close()
	adv := font.MeasureString(face, text)
	return float64(adv) / 64.0, nil
}
