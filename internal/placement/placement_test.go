package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var letterPage = []PageDim{{Width: 612, Height: 792}}

func TestForImageTopLeftCorner(t *testing.T) {
	// Top-left corner of a 612x792 page with a 20pt tall asset lands at
	// x=0, y = 792 - 0 - 20 = 772.
	ovs, err := ForImage([]Point{{PageIndex: 0, XNorm: 0, YNorm: 0}}, letterPage, 20)
	require.NoError(t, err)
	require.Len(t, ovs, 1)
	require.Len(t, ovs[0].Anchors, 1)
	assert.InDelta(t, 0.0, ovs[0].Anchors[0].X, 1e-9)
	assert.InDelta(t, 772.0, ovs[0].Anchors[0].Y, 1e-9)
	assert.InDelta(t, 20.0, ovs[0].Height, 1e-9)
}

func TestForImageCenter(t *testing.T) {
	ovs, err := ForImage([]Point{{PageIndex: 0, XNorm: 0.5, YNorm: 0.5}}, letterPage, 30)
	require.NoError(t, err)
	a := ovs[0].Anchors[0]
	assert.InDelta(t, 306.0, a.X, 1e-9)
	assert.InDelta(t, 792.0/2-30, a.Y, 1e-9)
}

func TestForTextBaselineDrop(t *testing.T) {
	// Baseline sits size*(1-AscentRatio) below the anchored top edge.
	ovs, err := ForText([]Point{{PageIndex: 0, XNorm: 0, YNorm: 0}}, letterPage, 40)
	require.NoError(t, err)
	assert.InDelta(t, 792-0.20*40, ovs[0].Anchors[0].Y, 1e-9)
	assert.InDelta(t, 40.0, ovs[0].FontSize, 1e-9)
}

func TestGroupsByPageAndSorts(t *testing.T) {
	dims := []PageDim{{612, 792}, {612, 792}, {595, 842}}
	pts := []Point{
		{PageIndex: 2, XNorm: 0.1, YNorm: 0.1},
		{PageIndex: 0, XNorm: 0.2, YNorm: 0.2},
		{PageIndex: 2, XNorm: 0.3, YNorm: 0.3},
	}
	ovs, err := ForImage(pts, dims, 15)
	require.NoError(t, err)
	require.Len(t, ovs, 2)
	assert.Equal(t, 0, ovs[0].PageIndex)
	assert.Equal(t, 2, ovs[1].PageIndex)
	assert.Len(t, ovs[1].Anchors, 2)
}

func TestPlacementOutOfRange(t *testing.T) {
	_, err := ForImage([]Point{{PageIndex: 5, XNorm: 0, YNorm: 0}}, letterPage, 10)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ForImage([]Point{{PageIndex: -1, XNorm: 0, YNorm: 0}}, letterPage, 10)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRasterHeight(t *testing.T) {
	h, err := RasterHeight(200, 800, 220)
	require.NoError(t, err)
	assert.InDelta(t, 55.0, h, 1e-9)

	_, err = RasterHeight(0, 800, 220)
	assert.ErrorIs(t, err, ErrInvalidWidth)

	// degenerate asset falls back to a fixed aspect
	h, err = RasterHeight(100, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, h, 1e-9)
}

func TestFitFontSizeConverges(t *testing.T) {
	// Linear width model: width = size * 4. Target 200 -> size 50 fits exactly.
	calls := 0
	measure := func(size float64) (float64, error) {
		calls++
		return size * 4, nil
	}
	size, err := FitFontSize(measure, 200)
	require.NoError(t, err)
	assert.LessOrEqual(t, size*4, 200.0)
	assert.LessOrEqual(t, calls, MaxFitIterations)
}

func TestFitFontSizeMonotoneUnderStubbornMeasure(t *testing.T) {
	// Measure that rounds up, so the proportional step alone never lands
	// exactly; sizes must still only decrease and terminate.
	var sizes []float64
	measure := func(size float64) (float64, error) {
		sizes = append(sizes, size)
		return size*2 + 5, nil
	}
	size, err := FitFontSize(measure, 120)
	require.NoError(t, err)
	for i := 1; i < len(sizes); i++ {
		assert.LessOrEqual(t, sizes[i], sizes[i-1])
	}
	assert.LessOrEqual(t, size*2+5, 120.0)
}

func TestFitFontSizeFloor(t *testing.T) {
	// Impossible target: everything is too wide. Search bottoms out at the floor.
	size, err := FitFontSize(func(float64) (float64, error) { return 1e6, nil }, 10)
	require.NoError(t, err)
	assert.InDelta(t, MinFontSize, size, 1e-9)
}

func TestFitFontSizeInvalidWidth(t *testing.T) {
	_, err := FitFontSize(func(float64) (float64, error) { return 1, nil }, 0)
	assert.ErrorIs(t, err, ErrInvalidWidth)
	_, err = FitFontSize(func(float64) (float64, error) { return 1, nil }, -5)
	assert.ErrorIs(t, err, ErrInvalidWidth)
}

func TestParseJSON(t *testing.T) {
	pts, err := ParseJSON(`[{"page_index":1,"x_norm":0.25,"y_norm":0.75}]`)
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, 1, pts[0].PageIndex)
	assert.InDelta(t, 0.25, pts[0].XNorm, 1e-9)

	_, err = ParseJSON("")
	assert.ErrorIs(t, err, ErrNoPlacements)
	_, err = ParseJSON("[]")
	assert.ErrorIs(t, err, ErrNoPlacements)
	_, err = ParseJSON("{not json")
	assert.Error(t, err)
}
