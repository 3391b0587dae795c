package wm

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
)

type dragKind int

const (
	dragIdle dragKind = iota
	dragMoving
	dragResizing
	dragTiledMoving
)

func (k dragKind) String() string {
	switch k {
	case dragMoving:
		return "moving"
	case dragResizing:
		return "resizing"
	case dragTiledMoving:
		return "tiled-moving"
	}
	return "idle"
}

// Edges picked up by a resize.
const (
	edgeLeft = 1 << iota
	edgeRight
	edgeTop
	edgeBottom
)

// drag is the pointer drag state machine.
type drag struct {
	kind           dragKind
	win            xproto.Window
	startX, startY int
	start          layout.Rect
	edges          int
}

// _NET_WM_MOVERESIZE directions.
const (
	moveResizeSizeTopLeft = iota
	moveResizeSizeTop
	moveResizeSizeTopRight
	moveResizeSizeRight
	moveResizeSizeBottomRight
	moveResizeSizeBottom
	moveResizeSizeBottomLeft
	moveResizeSizeLeft
	moveResizeMove
	moveResizeSizeKeyboard
	moveResizeMoveKeyboard
	moveResizeCancel
)

var directionEdges = [...]int{
	moveResizeSizeTopLeft:     edgeTop | edgeLeft,
	moveResizeSizeTop:         edgeTop,
	moveResizeSizeTopRight:    edgeTop | edgeRight,
	moveResizeSizeRight:       edgeRight,
	moveResizeSizeBottomRight: edgeBottom | edgeRight,
	moveResizeSizeBottom:      edgeBottom,
	moveResizeSizeBottomLeft:  edgeBottom | edgeLeft,
	moveResizeSizeLeft:        edgeLeft,
}

// quadrantEdges picks the corner of r nearest to the pointer.
func quadrantEdges(r layout.Rect, x, y int) int {
	cx, cy := r.Center()
	edges := edgeRight
	if x < cx {
		edges = edgeLeft
	}
	if y < cy {
		return edges | edgeTop
	}
	return edges | edgeBottom
}

// placeFloating picks the initial geometry of a new floating window.
// Positions requested through WM_NORMAL_HINTS are kept as they are.
// Otherwise the window is centered over its transient parent or the
// work area and clamped into the work area.
func (w *WM) placeFloating(c *Client, r layout.Rect, nh *icccm.NormalHints) layout.Rect {
	r = layout.ApplyMinSize(r, max(c.minW, 1), max(c.minH, 1))
	if nh != nil && nh.Flags&(icccm.SizeHintUSPosition|icccm.SizeHintPPosition) != 0 {
		return r
	}
	area := w.monitors[c.Monitor].WorkArea
	target := area
	if p := w.clients[c.TransientFor]; p != nil && p.managedKind() {
		target = p.Geom
	}
	return layout.CenterIn(r, target, area, w.cfg.Appearance.BorderWidth)
}

// floatingRequest applies a move or resize asked for by the client.
// Only the coordinates flagged as present change.
func (w *WM) floatingRequest(c *Client, hasX, hasY, hasW, hasH bool, x, y, width, height int) {
	r := c.Floating
	if hasX {
		r.X = x
	}
	if hasY {
		r.Y = y
	}
	if hasW {
		r.Width = width
	}
	if hasH {
		r.Height = height
	}
	r = layout.ApplyMinSize(r, max(c.minW, 1), max(c.minH, 1))
	c.Floating = r
	if c.fullscreen() {
		return
	}
	w.configure(c, r, w.borderWidth(c))
	w.followPointer(c, r)
}

// followPointer moves a floating client to the monitor under the
// center of r.
func (w *WM) followPointer(c *Client, r layout.Rect) {
	m := w.monitorFor(r, c.Monitor)
	if m == c.Monitor {
		return
	}
	w.forgetFocused(c.ID)
	c.Monitor = m
	c.Workspace = w.monitors[m].Current
	w.publishDesktop(c)
	if w.active == c.ID {
		w.focusedMonitor = m
		w.publishCurrentDesktop()
	}
	log.WithField("window", c.ID).WithField("monitor", m).Debug("floating window changed monitor")
}

// beginDrag grabs the pointer and enters one of the drag states.
func (w *WM) beginDrag(c *Client, kind dragKind, x, y, edges int, t xproto.Timestamp) {
	if w.drag.kind != dragIdle || c == nil || !c.managedKind() || c.fullscreen() {
		return
	}
	if c.Kind == KindTiled && kind != dragTiledMoving {
		if kind != dragMoving {
			return
		}
		kind = dragTiledMoving
	}
	if c.Kind == KindFloating && kind == dragTiledMoving {
		kind = dragMoving
	}
	cursor := CursorMove
	if kind == dragResizing {
		cursor = CursorResize
	}
	if err := w.conn.GrabPointer(cursor, t); err != nil {
		log.WithError(err).Debug("cannot grab pointer")
		return
	}
	start := c.Geom
	if c.Kind == KindFloating {
		start = c.Floating
	}
	w.drag = drag{kind: kind, win: c.ID, startX: x, startY: y, start: start, edges: edges}
	if c.Kind == KindFloating {
		w.raiseFloating(c.ID)
		w.restack()
	} else {
		w.conn.Configure(c.ID, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
		w.stacking = nil
	}
	if w.active != c.ID && w.focusable(c) {
		w.focus(c)
	}
}

// dragMotion follows the pointer during a drag.
func (w *WM) dragMotion(x, y int) {
	d := w.drag
	c := w.clients[d.win]
	if d.kind == dragIdle || c == nil {
		return
	}
	dx, dy := x-d.startX, y-d.startY
	switch d.kind {
	case dragTiledMoving:
		r := d.start
		r.X += dx
		r.Y += dy
		w.configure(c, r, c.border)
	case dragMoving:
		r := d.start
		r.X += dx
		r.Y += dy
		w.clearMaximized(c)
		c.Floating = r
		w.configure(c, r, w.borderWidth(c))
		w.followPointer(c, r)
	case dragResizing:
		r := resizeEdges(d.start, d.edges, dx, dy, max(c.minW, layout.MinSize), max(c.minH, layout.MinSize))
		w.clearMaximized(c)
		c.Floating = r
		w.configure(c, r, w.borderWidth(c))
	}
}

// resizeEdges applies a pointer delta to the selected edges and keeps
// the opposite edges in place when the minimum size is hit.
func resizeEdges(r layout.Rect, edges, dx, dy, minW, minH int) layout.Rect {
	right, bottom := r.X+r.Width, r.Y+r.Height
	if edges&edgeLeft != 0 {
		r.X += dx
		r.Width -= dx
	}
	if edges&edgeRight != 0 {
		r.Width += dx
	}
	if edges&edgeTop != 0 {
		r.Y += dy
		r.Height -= dy
	}
	if edges&edgeBottom != 0 {
		r.Height += dy
	}
	if r.Width < minW {
		r.Width = minW
		if edges&edgeLeft != 0 {
			r.X = right - minW
		}
	}
	if r.Height < minH {
		r.Height = minH
		if edges&edgeTop != 0 {
			r.Y = bottom - minH
		}
	}
	return r
}

// clearMaximized drops the maximized flags of a window the user is
// moving by hand, keeping its current geometry.
func (w *WM) clearMaximized(c *Client) {
	if c.State&stateMaximized != 0 {
		c.State &^= stateMaximized
		w.publishState(c)
	}
}

// endDrag releases the pointer and finishes the drag at x, y.
func (w *WM) endDrag(x, y int, t xproto.Timestamp) {
	d := w.drag
	if d.kind == dragIdle {
		return
	}
	w.drag = drag{}
	w.conn.UngrabPointer(t)
	c := w.clients[d.win]
	if c == nil {
		return
	}
	if d.kind == dragTiledMoving {
		w.drop(c, x, y)
	}
	w.restack()
}

// cancelDrag aborts a drag and puts the window back where it started.
func (w *WM) cancelDrag() {
	d := w.drag
	if d.kind == dragIdle {
		return
	}
	w.drag = drag{}
	w.conn.UngrabPointer(w.lastTime)
	c := w.clients[d.win]
	if c == nil {
		return
	}
	switch d.kind {
	case dragTiledMoving:
		w.arrange(c.Monitor)
	default:
		c.Floating = d.start
		w.configure(c, d.start, w.borderWidth(c))
		w.followPointer(c, d.start)
	}
	w.restack()
}

// drop reinserts a dragged tiled client at the slot nearest to the
// pointer. Outside of every monitor it stays on its own monitor.
func (w *WM) drop(c *Client, x, y int) {
	if c.Kind != KindTiled {
		return
	}
	from := c.Monitor
	m, ok := w.monitorAt(x, y)
	if !ok {
		m = from
	}
	src := w.monitors[from].Workspaces[c.Workspace]
	if m == from {
		idx := layout.DropIndex(len(src.Windows), w.layoutParams(m), x, y)
		src.remove(c.ID)
		src.insert(idx, c.ID)
		w.arrange(m)
	} else {
		target := w.monitors[m]
		dst := target.Workspaces[target.Current]
		idx := layout.DropIndex(len(dst.Windows)+1, w.layoutParams(m), x, y)
		src.remove(c.ID)
		dst.insert(idx, c.ID)
		w.forgetFocused(c.ID)
		c.Monitor = m
		c.Workspace = target.Current
		w.publishDesktop(c)
		w.arrange(from)
		w.arrange(m)
		w.applyVisibility(from)
		w.applyVisibility(m)
	}
	if w.focusable(c) {
		w.focus(c)
	}
}

// moveResizeRequest handles _NET_WM_MOVERESIZE.
func (w *WM) moveResizeRequest(c *Client, x, y, direction int) {
	switch {
	case direction == moveResizeCancel:
		w.cancelDrag()
	case direction == moveResizeMove || direction == moveResizeMoveKeyboard:
		w.beginDrag(c, dragMoving, x, y, 0, w.lastTime)
	case direction == moveResizeSizeKeyboard:
		if c.Kind == KindFloating {
			w.beginDrag(c, dragResizing, x, y, edgeBottom|edgeRight, w.lastTime)
		}
	case direction >= 0 && direction < len(directionEdges):
		if c.Kind == KindFloating {
			w.beginDrag(c, dragResizing, x, y, directionEdges[direction], w.lastTime)
		}
	default:
		log.WithField("window", c.ID).Debugf("%v: moveresize direction %d", ErrMalformedMessage, direction)
	}
}
