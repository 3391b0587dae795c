package layout

// Maximize expands r to fill area along the requested axes, leaving
// room for the window border. Axes that are not requested keep r's
// position and size.
func Maximize(r, area Rect, border int, horz, vert bool) Rect {
	if horz {
		r.X = area.X
		r.Width = area.Width - 2*border
	}
	if vert {
		r.Y = area.Y
		r.Height = area.Height - 2*border
	}
	return ApplyMinSize(r, 1, 1)
}
