// Package placement converts normalized signature anchor points (viewer
// space, origin top-left, y down) into absolute PDF point coordinates
// (origin bottom-left, y up), and resolves the rendered size for a
// requested width.
package placement

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidWidth = errors.New("requested width must be positive")
	ErrOutOfRange   = errors.New("placement references a nonexistent page")
	ErrNoPlacements = errors.New("at least one placement is required")
)

const (
	// MaxFitIterations bounds the vector-text size search.
	MaxFitIterations = 20
	// MinFontSize is the floor for the fitted size, in points.
	MinFontSize = 4.0
	// AscentRatio approximates cap height above baseline as a fraction of
	// the font size, used when real font metrics are unavailable.
	AscentRatio = 0.80
)

// Point is one anchor in viewer space. Coordinates are normalized to [0,1]
// with origin at the page's top-left corner.
type Point struct {
	PageIndex int     `json:"page_index"`
	XNorm     float64 `json:"x_norm"`
	YNorm     float64 `json:"y_norm"`
}

// PageDim holds a page's media box size in points.
type PageDim struct {
	Width  float64
	Height float64
}

// Anchor is an absolute position in PDF point coordinates (bottom-left origin).
type Anchor struct {
	X float64
	Y float64
}

// Overlay describes everything the stamping collaborator needs for one page:
// the rendered height (and font size in text mode) plus the anchor list in
// placement order. Pages without placements get no Overlay.
type Overlay struct {
	PageIndex int
	Height    float64
	FontSize  float64
	Anchors   []Anchor
}

// ParseJSON decodes the placements_json form field.
func ParseJSON(raw string) ([]Point, error) {
	if raw == "" {
		return nil, ErrNoPlacements
	}
	var pts []Point
	if err := json.Unmarshal([]byte(raw), &pts); err != nil {
		return nil, fmt.Errorf("invalid placements json: %w", err)
	}
	if len(pts) == 0 {
		return nil, ErrNoPlacements
	}
	return pts, nil
}

// RasterHeight resolves the rendered height for a fixed-aspect asset:
// height = width * (h_px / w_px).
func RasterHeight(widthPt float64, wPx, hPx int) (float64, error) {
	if widthPt <= 0 {
		return 0, ErrInvalidWidth
	}
	aspect := 0.3 // degenerate asset fallback
	if wPx > 0 {
		aspect = float64(hPx) / float64(wPx)
	}
	return widthPt * aspect, nil
}

// FitFontSize searches for a font size whose measured width fits targetWidth.
// measure reports the rendered string width at a given size. The first probe
// is scaled proportionally toward the target, then the size only shrinks,
// so the sequence terminates within MaxFitIterations or at MinFontSize.
func FitFontSize(measure func(size float64) (float64, error), targetWidth float64) (float64, error) {
	if targetWidth <= 0 {
		return 0, ErrInvalidWidth
	}
	size := 100.0
	for i := 0; i < MaxFitIterations; i++ {
		w, err := measure(size)
		if err != nil {
			return 0, err
		}
		if w <= targetWidth {
			return size, nil
		}
		next := size * targetWidth / w
		if i > 0 && next >= size {
			// measured width refused to budge; force progress
			next = size * 0.95
		}
		if next <= MinFontSize {
			return MinFontSize, nil
		}
		size = next
	}
	return size, nil
}

// ForImage converts anchors for an asset of the given rendered height. The
// asset is anchored by its top-left corner in viewer space, so the bottom-left
// y is shifted down by the full height:
//
//	y = page_h - y_norm*page_h - height
func ForImage(points []Point, dims []PageDim, heightPt float64) ([]Overlay, error) {
	return convert(points, dims, heightPt, 0)
}

// ForText converts anchors for text of the given font size. Text is placed by
// its baseline; the gap between cap height and the full size stays above it:
//
//	y = page_h - y_norm*page_h - (size - ascent), ascent = AscentRatio*size
func ForText(points []Point, dims []PageDim, fontSize float64) ([]Overlay, error) {
	drop := fontSize - AscentRatio*fontSize
	return convert(points, dims, drop, fontSize)
}

func convert(points []Point, dims []PageDim, drop, fontSize float64) ([]Overlay, error) {
	if len(points) == 0 {
		return nil, ErrNoPlacements
	}
	byPage := map[int]*Overlay{}
	for _, p := range points {
		if p.PageIndex < 0 || p.PageIndex >= len(dims) {
			return nil, fmt.Errorf("%w: page index %d, document has %d page(s)", ErrOutOfRange, p.PageIndex, len(dims))
		}
		d := dims[p.PageIndex]
		ov, ok := byPage[p.PageIndex]
		if !ok {
			ov = &Overlay{PageIndex: p.PageIndex, Height: drop, FontSize: fontSize}
			if fontSize > 0 {
				ov.Height = fontSize
			}
			byPage[p.PageIndex] = ov
		}
		ov.Anchors = append(ov.Anchors, Anchor{
			X: p.XNorm * d.Width,
			Y: d.Height - p.YNorm*d.Height - drop,
		})
	}
	out := make([]Overlay, 0, len(byPage))
	for _, ov := range byPage {
		out = append(out, *ov)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageIndex < out[j].PageIndex })
	return out, nil
}
