package signature

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimTransparentCropsToInk(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	ink := color.RGBA{A: 255}
	img.SetRGBA(10, 12, ink)
	img.SetRGBA(40, 30, ink)

	got := trimTransparent(img)
	b := got.Bounds()
	assert.Equal(t, image.Rect(10, 12, 41, 31), b)
}

func TestTrimTransparentEmptyCanvasUnchanged(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	got := trimTransparent(img)
	assert.Equal(t, img.Bounds(), got.Bounds())
}
