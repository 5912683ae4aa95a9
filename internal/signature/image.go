// Package signature renders a stylized name into a transparent PNG used as
// the stamp asset for the sign tool.
package signature

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/local/pdftoolbox/internal/placement"
)

const (
	canvasWidthPx  = 800
	canvasHeightPx = 220
	textPadPx      = 20
)

var inkColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}

// Asset is a rendered signature image plus its trimmed pixel dimensions,
// which drive the raster-mode aspect ratio downstream.
type Asset struct {
	PNG    []byte
	Width  int
	Height int
}

// Render draws fullName with the given font on a transparent canvas, fitting
// the size to the canvas width, then trims surrounding transparency.
func Render(fnt *sfnt.Font, fullName string) (*Asset, error) {
	name := strings.TrimSpace(fullName)
	if name == "" {
		name = "Signature"
	}

	maxW := float64(canvasWidthPx - 2*textPadPx)
	size, err := placement.FitFontSize(func(s float64) (float64, error) {
		return measure(fnt, name, s)
	}, maxW)
	if err != nil {
		return nil, fmt.Errorf("fit signature size: %w", err)
	}

	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("build face: %w", err)
	}
	defer face.Close()

	img := image.NewRGBA(image.Rect(0, 0, canvasWidthPx, canvasHeightPx))
	metrics := face.Metrics()
	textW := font.MeasureString(face, name)

	// center horizontally, baseline vertically centered on the glyph box
	x := (fixed.I(canvasWidthPx) - textW) / 2
	y := fixed.I(canvasHeightPx)/2 + metrics.Ascent/2

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(inkColor),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(name)

	trimmed := trimTransparent(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("encode signature png: %w", err)
	}
	b := trimmed.Bounds()
	return &Asset{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

func measure(fnt *sfnt.Font, text string, size float64) (float64, error) {
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return 0, err
	}
	defer face.Close()
	return float64(font.MeasureString(face, text)) / 64.0, nil
}

// trimTransparent crops the image to the bounding box of non-transparent
// pixels. A fully transparent canvas is returned unchanged.
func trimTransparent(img *image.RGBA) image.Image {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x+1 > maxX {
				maxX = x + 1
			}
			if y+1 > maxY {
				maxY = y + 1
			}
		}
	}
	if minX >= maxX || minY >= maxY {
		return img
	}
	return img.SubImage(image.Rect(minX, minY, maxX, maxY))
}
