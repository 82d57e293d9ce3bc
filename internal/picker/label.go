package picker

import "github.com/standardbeagle/picket/internal/dom"

// labelGap separates the info label from the highlighted target.
const labelGap = 6

// PlaceLabel computes where the info label anchors relative to its
// target: above by default, flipped below when there is no headroom, and
// clamped horizontally so it stays on-screen.
func PlaceLabel(target, viewport dom.Rect, labelW, labelH float64) (x, y float64) {
	y = target.Y - labelH - labelGap
	if y < viewport.Y {
		y = target.Y + target.Height + labelGap
	}

	x = target.X
	maxX := viewport.X + viewport.Width - labelW
	if x > maxX {
		x = maxX
	}
	if x < viewport.X {
		x = viewport.X
	}
	return x, y
}
