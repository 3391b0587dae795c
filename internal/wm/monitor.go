package wm

import (
	"sort"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xrect"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
)

// Monitor is one output and its set of workspaces.
type Monitor struct {
	Name   string
	Output uint32
	Rect   layout.Rect
	// WorkArea is Rect minus the status bar and dock struts.
	WorkArea layout.Rect
	// Strut is the space reserved on each edge of Rect.
	Strut Strut

	Workspaces        []*Workspace
	Current, Previous int
	Bar               xproto.Window
}

// desktopIndex encodes a (monitor, workspace) pair as an EWMH desktop.
func desktopIndex(m, ws, wpm int) uint {
	return uint(m*wpm + ws)
}

// decodeDesktop is the inverse of desktopIndex. It fails for the
// sticky sentinel, out of range indices, and when there are no
// workspaces at all.
func decodeDesktop(d uint, monitors, wpm int) (m, ws int, ok bool) {
	if wpm <= 0 || d == stickyDesktop {
		return 0, 0, false
	}
	m, ws = int(d)/wpm, int(d)%wpm
	if m >= monitors {
		return 0, 0, false
	}
	return m, ws, true
}

// monitorAt returns the monitor containing the point.
func (w *WM) monitorAt(x, y int) (int, bool) {
	for i, mon := range w.monitors {
		if mon.Rect.Contains(x, y) {
			return i, true
		}
	}
	return 0, false
}

// monitorFor returns the monitor containing the center of r, or def.
func (w *WM) monitorFor(r layout.Rect, def int) int {
	cx, cy := r.Center()
	if m, ok := w.monitorAt(cx, cy); ok {
		return m
	}
	return def
}

func (w *WM) monitorByName(name string) (int, bool) {
	for i, mon := range w.monitors {
		if mon.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (w *WM) queryMonitors() []MonitorInfo {
	infos, err := w.conn.Monitors()
	if err != nil || len(infos) == 0 {
		if err != nil {
			log.WithError(err).Warn("cannot enumerate monitors")
		}
		infos = []MonitorInfo{{Name: "default", Rect: w.conn.RootGeometry()}}
	}
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Rect.X != infos[j].Rect.X {
			return infos[i].Rect.X < infos[j].Rect.X
		}
		return infos[i].Rect.Y < infos[j].Rect.Y
	})
	return infos
}

func sameMonitors(mons []*Monitor, infos []MonitorInfo) bool {
	if len(mons) != len(infos) {
		return false
	}
	for i, m := range mons {
		if m.Name != infos[i].Name || m.Rect != infos[i].Rect || m.Output != infos[i].Output {
			return false
		}
	}
	return true
}

// updateMonitors re-reads the monitor layout. Monitors are matched by
// name; windows on monitors that went away move to the current
// workspace of the first surviving monitor.
func (w *WM) updateMonitors() {
	infos := w.queryMonitors()
	if sameMonitors(w.monitors, infos) {
		return
	}
	log.WithField("monitors", len(infos)).Info("monitor layout changed")

	old := w.monitors
	survivor := make([]int, len(old))
	for j := range survivor {
		survivor[j] = -1
	}
	next := make([]*Monitor, len(infos))
	fallback := -1
	for i, info := range infos {
		mon := &Monitor{
			Name:       info.Name,
			Output:     info.Output,
			Rect:       info.Rect,
			Workspaces: w.newWorkspaces(),
			Previous:   -1,
		}
		for j, o := range old {
			if survivor[j] < 0 && o.Name == info.Name {
				mon.Workspaces, mon.Current, mon.Previous, mon.Bar = o.Workspaces, o.Current, o.Previous, o.Bar
				survivor[j] = i
				if fallback < 0 {
					fallback = i
				}
				break
			}
		}
		next[i] = mon
	}
	if fallback < 0 {
		fallback = 0
	}
	target := next[fallback]
	for j, o := range old {
		if survivor[j] >= 0 {
			continue
		}
		for _, ws := range o.Workspaces {
			target.Workspaces[target.Current].Windows = append(target.Workspaces[target.Current].Windows, ws.Windows...)
		}
		if o.Bar != 0 {
			w.conn.DestroyWindow(o.Bar)
		}
	}

	var migrated []*Client
	for _, c := range w.clients {
		if !c.managedKind() {
			continue
		}
		if c.Monitor < len(survivor) && survivor[c.Monitor] >= 0 {
			c.Monitor = survivor[c.Monitor]
			continue
		}
		c.Monitor = fallback
		c.Workspace = target.Current
		migrated = append(migrated, c)
	}
	if w.focusedMonitor < len(survivor) && survivor[w.focusedMonitor] >= 0 {
		w.focusedMonitor = survivor[w.focusedMonitor]
	} else {
		w.focusedMonitor = fallback
	}
	w.monitors = next
	w.forgetMissingFocus()

	w.setupBars()
	w.recomputeWorkAreas()
	bw := w.cfg.Appearance.BorderWidth
	for _, c := range migrated {
		if c.Kind == KindFloating {
			area := w.monitors[c.Monitor].WorkArea
			c.Floating = layout.CenterIn(c.Floating, area, area, bw)
			if !c.fullscreen() {
				w.configure(c, c.Floating, w.borderWidth(c))
			}
		}
	}
	for _, c := range w.clients {
		if c.fullscreen() {
			c.FullscreenRestore = layout.Clamp(c.FullscreenRestore, w.monitors[c.Monitor].WorkArea, bw)
		}
	}
	w.arrangeAll()
	for m := range w.monitors {
		w.applyVisibility(m)
	}
	w.publishDesktops()
	w.publishCurrentDesktop()
	for _, c := range w.clients {
		w.publishDesktop(c)
	}
	w.restack()
}

// forgetMissingFocus drops remembered focus that no longer points at
// a window of the workspace.
func (w *WM) forgetMissingFocus() {
	for m, mon := range w.monitors {
		for i, ws := range mon.Workspaces {
			if ws.Focused == 0 {
				continue
			}
			c := w.clients[ws.Focused]
			if c == nil || c.Monitor != m || (c.Workspace != i && !c.sticky()) {
				ws.Focused = 0
			}
		}
	}
}

// recomputeWorkAreas subtracts the status bar and every dock strut
// from the monitor rectangles.
func (w *WM) recomputeWorkAreas() {
	root := w.conn.RootGeometry()
	rects := make([]xrect.Rect, len(w.monitors))
	for i, mon := range w.monitors {
		r := mon.Rect
		if h := w.barHeight(); h > 0 {
			r.Y += h
			r.Height -= h
		}
		rects[i] = xrect.New(r.X, r.Y, r.Width, r.Height)
	}
	for _, c := range w.sortedClients() {
		s := c.Strut
		if c.Kind != KindDock || s.Empty() {
			continue
		}
		xrect.ApplyStrut(rects, uint(root.Width), uint(root.Height),
			s.Left, s.Right, s.Top, s.Bottom,
			s.LeftStartY, s.LeftEndY, s.RightStartY, s.RightEndY,
			s.TopStartX, s.TopEndX, s.BottomStartX, s.BottomEndX,
		)
	}
	for i, mon := range w.monitors {
		x, y, width, height := rects[i].Pieces()
		mon.WorkArea = layout.Rect{X: x, Y: y, Width: width, Height: height}
		mon.Strut = Strut{
			Left:   uint(x - mon.Rect.X),
			Top:    uint(y - mon.Rect.Y),
			Right:  uint(mon.Rect.X + mon.Rect.Width - x - width),
			Bottom: uint(mon.Rect.Y + mon.Rect.Height - y - height),
		}
	}
}

// focusMonitor moves the focus to the monitor dir steps away.
func (w *WM) focusMonitor(dir Direction) {
	if len(w.monitors) < 2 {
		return
	}
	m := dir.step(w.focusedMonitor, len(w.monitors))
	w.focusedMonitor = m
	w.publishCurrentDesktop()
	w.focusFallback(m)
	if w.cfg.Focus.WarpCursorOnMonitorChange {
		x, y := w.monitors[m].Rect.Center()
		w.conn.WarpPointer(x, y)
	}
}
