package wm

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/intio/lwm/internal/layout"
)

// Workspace is the ordered list of tiled windows shown at once on a
// monitor, plus the window that had the focus when it was last used.
type Workspace struct {
	Name    string
	Windows []xproto.Window
	Focused xproto.Window
}

func (ws *Workspace) index(win xproto.Window) int {
	for i, w := range ws.Windows {
		if w == win {
			return i
		}
	}
	return -1
}

// HasClient reports whether this workspace is tiling that window.
func (ws *Workspace) HasClient(win xproto.Window) bool {
	return ws.index(win) >= 0
}

func (ws *Workspace) remove(win xproto.Window) bool {
	i := ws.index(win)
	if i < 0 {
		return false
	}
	ws.Windows = append(ws.Windows[:i], ws.Windows[i+1:]...)
	return true
}

func (ws *Workspace) insert(i int, win xproto.Window) {
	i = min(max(i, 0), len(ws.Windows))
	ws.Windows = append(ws.Windows, 0)
	copy(ws.Windows[i+1:], ws.Windows[i:])
	ws.Windows[i] = win
}

func (w *WM) newWorkspaces() []*Workspace {
	wss := make([]*Workspace, w.wpm)
	for i := range wss {
		wss[i] = &Workspace{Name: w.cfg.Workspaces.Name(i)}
	}
	return wss
}

func (w *WM) layoutParams(m int) layout.Params {
	return layout.Params{
		Area:    w.monitors[m].WorkArea,
		Padding: w.cfg.Appearance.Padding,
		Border:  w.cfg.Appearance.BorderWidth,
	}
}

// visible reports whether c should currently be mapped.
func (w *WM) visible(c *Client) bool {
	if !c.managedKind() {
		return true
	}
	if c.Iconic || w.showingDesktop {
		return false
	}
	return c.sticky() || c.Workspace == w.monitors[c.Monitor].Current
}

// tiledOn returns the tiled clients laid out on monitor m: the current
// workspace followed by sticky tiled windows of other workspaces.
func (w *WM) tiledOn(m int) []*Client {
	if w.showingDesktop {
		return nil
	}
	mon := w.monitors[m]
	var out []*Client
	add := func(win xproto.Window) {
		c := w.clients[win]
		if c != nil && !c.Iconic && !c.fullscreen() {
			out = append(out, c)
		}
	}
	for _, win := range mon.Workspaces[mon.Current].Windows {
		add(win)
	}
	for i, ws := range mon.Workspaces {
		if i == mon.Current {
			continue
		}
		for _, win := range ws.Windows {
			if c := w.clients[win]; c != nil && c.sticky() {
				add(win)
			}
		}
	}
	return out
}

// arrange applies the master/stack layout to monitor m and keeps
// fullscreen windows on it covering the screen.
func (w *WM) arrange(m int) {
	if m < 0 || m >= len(w.monitors) {
		return
	}
	tiled := w.tiledOn(m)
	rects := layout.MasterStack(len(tiled), w.layoutParams(m))
	bw := w.cfg.Appearance.BorderWidth
	for i, c := range tiled {
		if w.drag.kind == dragTiledMoving && w.drag.win == c.ID {
			continue
		}
		r := layout.ApplyMinSize(rects[i], c.minW, c.minH)
		if r != c.Geom || c.border != bw {
			w.configure(c, r, bw)
		}
	}
	for _, c := range w.clients {
		if c.Monitor == m && c.managedKind() && c.fullscreen() && w.visible(c) {
			if r := w.fullscreenRect(c); r != c.Geom || c.border != 0 {
				w.configure(c, r, 0)
			}
		}
	}
}

func (w *WM) arrangeAll() {
	for m := range w.monitors {
		w.arrange(m)
	}
}

func (w *WM) mapClient(c *Client) {
	if c.mapped {
		return
	}
	c.mapped = true
	w.conn.Map(c.ID)
}

// unmapByWM hides c and remembers that the UnmapNotify is ours.
func (w *WM) unmapByWM(c *Client) {
	if !c.mapped {
		return
	}
	c.mapped = false
	w.wmUnmapped[c.ID]++
	w.conn.Unmap(c.ID)
}

// applyVisibility maps and unmaps the clients of monitor m to match
// the current workspace.
func (w *WM) applyVisibility(m int) {
	for _, c := range w.sortedClients() {
		if c.Monitor != m || !c.managedKind() {
			continue
		}
		if w.visible(c) {
			w.mapClient(c)
		} else {
			w.unmapByWM(c)
		}
	}
}

// SwitchWorkspace shows workspace ws on monitor m and focuses m.
func (w *WM) SwitchWorkspace(m, ws int) {
	w.switchWorkspace(m, ws)
}

func (w *WM) switchWorkspace(m, ws int) {
	if m < 0 || m >= len(w.monitors) || ws < 0 || ws >= w.wpm {
		return
	}
	mon := w.monitors[m]
	if ws == mon.Current {
		if w.focusedMonitor != m {
			w.focusedMonitor = m
			w.publishCurrentDesktop()
			w.focusFallback(m)
		}
		return
	}
	for _, win := range mon.Workspaces[mon.Current].Windows {
		if c := w.clients[win]; c != nil && !c.sticky() {
			w.unmapByWM(c)
		}
	}
	for _, win := range w.floating {
		if c := w.clients[win]; c != nil && c.Monitor == m && c.Workspace == mon.Current && !c.sticky() {
			w.unmapByWM(c)
		}
	}
	w.conn.Flush()
	mon.Previous = mon.Current
	mon.Current = ws
	w.arrange(m)
	w.applyVisibility(m)
	w.focusedMonitor = m
	w.publishCurrentDesktop()
	w.focusFallback(m)
}

// toggleWorkspace returns monitor m to the workspace shown before.
func (w *WM) toggleWorkspace(m int) {
	mon := w.monitors[m]
	if mon.Previous >= 0 && mon.Previous < w.wpm && mon.Previous != mon.Current {
		w.switchWorkspace(m, mon.Previous)
	}
}

func (w *WM) forgetFocused(win xproto.Window) {
	for _, mon := range w.monitors {
		for _, ws := range mon.Workspaces {
			if ws.Focused == win {
				ws.Focused = 0
			}
		}
	}
}

// MoveToWorkspace moves win to workspace ws of its monitor.
func (w *WM) MoveToWorkspace(win xproto.Window, ws int) error {
	c, err := w.client(win)
	if err != nil {
		return err
	}
	w.moveToWorkspace(c, ws)
	return nil
}

func (w *WM) moveToWorkspace(c *Client, ws int) {
	if !c.managedKind() || ws < 0 || ws >= w.wpm || ws == c.Workspace {
		return
	}
	mon := w.monitors[c.Monitor]
	if c.Kind == KindTiled {
		mon.Workspaces[c.Workspace].remove(c.ID)
		mon.Workspaces[ws].Windows = append(mon.Workspaces[ws].Windows, c.ID)
	}
	w.forgetFocused(c.ID)
	c.Workspace = ws
	w.publishDesktop(c)
	w.arrange(c.Monitor)
	w.applyVisibility(c.Monitor)
	if w.active == c.ID && !w.visible(c) {
		w.active = 0
		w.focusFallback(c.Monitor)
	}
}

// moveToMonitor sends c to the current workspace of monitor m.
func (w *WM) moveToMonitor(c *Client, m int) {
	if !c.managedKind() || m < 0 || m >= len(w.monitors) || m == c.Monitor {
		return
	}
	from := c.Monitor
	target := w.monitors[m]
	if c.Kind == KindTiled {
		w.monitors[from].Workspaces[c.Workspace].remove(c.ID)
		target.Workspaces[target.Current].Windows = append(target.Workspaces[target.Current].Windows, c.ID)
	}
	w.forgetFocused(c.ID)
	c.Monitor = m
	c.Workspace = target.Current
	if c.Kind == KindFloating {
		area := target.WorkArea
		c.Floating = layout.CenterIn(c.Floating, area, area, w.cfg.Appearance.BorderWidth)
		if !c.fullscreen() {
			w.configure(c, c.Floating, w.borderWidth(c))
		}
	}
	w.publishDesktop(c)
	w.arrange(from)
	w.arrange(m)
	w.applyVisibility(from)
	w.applyVisibility(m)
	if w.visible(c) && c.eligible() {
		w.focus(c)
	} else if w.active == c.ID {
		w.active = 0
		w.focusFallback(from)
	}
}

// setFloating turns a tiled client into a floating one or back.
func (w *WM) setFloating(c *Client, on bool) {
	if !c.managedKind() || (c.Kind == KindFloating) == on {
		return
	}
	mon := w.monitors[c.Monitor]
	if on {
		mon.Workspaces[c.Workspace].remove(c.ID)
		c.Kind = KindFloating
		if c.Floating.Empty() {
			area := mon.WorkArea
			r := layout.Rect{Width: area.Width / 2, Height: area.Height / 2}
			c.Floating = layout.CenterIn(r, area, area, w.cfg.Appearance.BorderWidth)
		}
		w.floating = append(w.floating, c.ID)
		if !c.fullscreen() {
			w.configure(c, c.Floating, w.borderWidth(c))
		}
	} else {
		w.removeFloating(c.ID)
		c.Kind = KindTiled
		mon.Workspaces[c.Workspace].Windows = append(mon.Workspaces[c.Workspace].Windows, c.ID)
	}
	w.arrange(c.Monitor)
	w.restack()
}

func (w *WM) removeFloating(win xproto.Window) {
	for i, f := range w.floating {
		if f == win {
			w.floating = append(w.floating[:i], w.floating[i+1:]...)
			return
		}
	}
}

// raiseFloating moves win to the top of the floating MRU.
func (w *WM) raiseFloating(win xproto.Window) {
	w.removeFloating(win)
	w.floating = append(w.floating, win)
}
