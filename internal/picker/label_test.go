package picker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/picket/internal/dom"
)

func TestPlaceLabelAbove(t *testing.T) {
	viewport := dom.Rect{Width: 1000, Height: 800}
	target := dom.Rect{X: 100, Y: 200, Width: 50, Height: 30}

	x, y := PlaceLabel(target, viewport, 120, 20)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 200.0-20-labelGap, y)
}

func TestPlaceLabelFlipsBelow(t *testing.T) {
	viewport := dom.Rect{Width: 1000, Height: 800}
	target := dom.Rect{X: 100, Y: 10, Width: 50, Height: 30}

	_, y := PlaceLabel(target, viewport, 120, 20)
	assert.Equal(t, 10.0+30+labelGap, y)
}

func TestPlaceLabelClampsHorizontally(t *testing.T) {
	viewport := dom.Rect{Width: 1000, Height: 800}

	right := dom.Rect{X: 950, Y: 200, Width: 40, Height: 30}
	x, _ := PlaceLabel(right, viewport, 120, 20)
	assert.Equal(t, 880.0, x)

	left := dom.Rect{X: -30, Y: 200, Width: 40, Height: 30}
	x, _ = PlaceLabel(left, viewport, 120, 20)
	assert.Equal(t, 0.0, x)
}
