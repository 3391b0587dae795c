package layout

// MasterStack arranges n windows into a master column on the left and
// a stack of the remaining windows on the right. The first window is
// the master. The last slot of the stack absorbs rounding so the stack
// ends flush with the master.
func MasterStack(n int, p Params) []Rect {
	if n <= 0 {
		return nil
	}
	a, pad, b := p.Area, p.Padding, p.Border
	rects := make([]Rect, n)

	if n == 1 {
		rects[0] = Rect{
			X:      a.X + pad + b,
			Y:      a.Y + pad + b,
			Width:  a.Width - 2*pad - 2*b,
			Height: a.Height - 2*pad - 2*b,
		}
		return clampAll(rects)
	}

	colW := (a.Width-pad)/2 - 2*b
	masterH := a.Height - 2*pad - 4*b
	x := a.X + pad + b
	y := a.Y + pad + b
	stackX := x + colW + pad + 2*b

	rects[0] = Rect{X: x, Y: y, Width: colW, Height: masterH}
	if n == 2 {
		rects[1] = Rect{X: stackX, Y: y, Width: colW, Height: masterH}
		return clampAll(rects)
	}

	k := n - 1
	slotH := (masterH - (k-1)*(pad+b)) / k
	bottom := y + masterH
	sy := y
	for i := 0; i < k; i++ {
		h := slotH
		if i == k-1 {
			h = bottom - sy
		}
		rects[i+1] = Rect{X: stackX, Y: sy, Width: colW, Height: h}
		sy += slotH + pad + 2*b
	}
	return clampAll(rects)
}

// DropIndex returns the index of the slot of an n-window master/stack
// arrangement whose center is closest to the point (x, y).
func DropIndex(n int, p Params, x, y int) int {
	best, bestDist := 0, -1
	for i, r := range MasterStack(n, p) {
		cx, cy := r.Center()
		dx, dy := cx-x, cy-y
		if d := dx*dx + dy*dy; bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func clampAll(rects []Rect) []Rect {
	for i := range rects {
		rects[i] = ApplyMinSize(rects[i], MinSize, MinSize)
	}
	return rects
}
