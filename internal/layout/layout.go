// Package layout computes window geometry for tiled and maximized
// windows. Everything here is a pure function of its inputs; nothing
// talks to the X server.
package layout

// MinSize is the smallest width or height the tiling layout will hand
// out, regardless of how crowded a monitor gets.
const MinSize = 50

// Rect is a rectangle in root window coordinates. X and Y address the
// outer top-left corner of the window; Width and Height exclude the
// border, matching what ConfigureWindow expects.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Center returns the middle point of the rectangle.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1 := max(r.X+r.Width, o.X+o.Width)
	y1 := max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Params are the inputs shared by every layout computation.
type Params struct {
	// Area is the monitor's work area.
	Area Rect
	// Padding is the gap between windows and between windows and the
	// edge of the work area.
	Padding int
	// Border is the border width of every tiled window.
	Border int
}

// ApplyMinSize grows r so that it is at least minW by minH. Zero or
// negative minimums are ignored.
func ApplyMinSize(r Rect, minW, minH int) Rect {
	if minW > 0 && r.Width < minW {
		r.Width = minW
	}
	if minH > 0 && r.Height < minH {
		r.Height = minH
	}
	return r
}

// Clamp moves a rectangle of the given size so that it fits entirely
// inside area. On an axis where it does not fit, it is pinned to the
// area origin.
func Clamp(r, area Rect, border int) Rect {
	outerW := r.Width + 2*border
	outerH := r.Height + 2*border
	if outerW <= area.Width {
		r.X = min(max(r.X, area.X), area.X+area.Width-outerW)
	} else {
		r.X = area.X
	}
	if outerH <= area.Height {
		r.Y = min(max(r.Y, area.Y), area.Y+area.Height-outerH)
	} else {
		r.Y = area.Y
	}
	return r
}

// CenterIn centers a rectangle of r's size over target and then clamps
// the result into area.
func CenterIn(r, target, area Rect, border int) Rect {
	r.X = target.X + (target.Width-r.Width)/2 - border
	r.Y = target.Y + (target.Height-r.Height)/2 - border
	return Clamp(r, area, border)
}
