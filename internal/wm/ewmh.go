package wm

import (
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/intio/lwm/internal/layout"
)

// supported is published in _NET_SUPPORTED.
var supported = []string{
	"_NET_SUPPORTED",
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_NUMBER_OF_DESKTOPS",
	"_NET_DESKTOP_NAMES",
	"_NET_DESKTOP_GEOMETRY",
	"_NET_DESKTOP_VIEWPORT",
	"_NET_WORKAREA",
	"_NET_CURRENT_DESKTOP",
	"_NET_ACTIVE_WINDOW",
	"_NET_CLIENT_LIST",
	"_NET_CLIENT_LIST_STACKING",
	"_NET_SHOWING_DESKTOP",
	"_NET_CLOSE_WINDOW",
	"_NET_MOVERESIZE_WINDOW",
	"_NET_WM_MOVERESIZE",
	"_NET_RESTACK_WINDOW",
	"_NET_REQUEST_FRAME_EXTENTS",
	"_NET_WM_NAME",
	"_NET_WM_DESKTOP",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_DESKTOP",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_TOOLBAR",
	"_NET_WM_WINDOW_TYPE_MENU",
	"_NET_WM_WINDOW_TYPE_UTILITY",
	"_NET_WM_WINDOW_TYPE_SPLASH",
	"_NET_WM_WINDOW_TYPE_DIALOG",
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
	"_NET_WM_WINDOW_TYPE_POPUP_MENU",
	"_NET_WM_WINDOW_TYPE_TOOLTIP",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_WINDOW_TYPE_COMBO",
	"_NET_WM_WINDOW_TYPE_DND",
	"_NET_WM_WINDOW_TYPE_NORMAL",
	"_NET_WM_STATE",
	"_NET_WM_ALLOWED_ACTIONS",
	"_NET_WM_ACTION_MOVE",
	"_NET_WM_ACTION_RESIZE",
	"_NET_WM_ACTION_MINIMIZE",
	"_NET_WM_ACTION_SHADE",
	"_NET_WM_ACTION_STICK",
	"_NET_WM_ACTION_MAXIMIZE_HORZ",
	"_NET_WM_ACTION_MAXIMIZE_VERT",
	"_NET_WM_ACTION_FULLSCREEN",
	"_NET_WM_ACTION_CHANGE_DESKTOP",
	"_NET_WM_ACTION_CLOSE",
	"_NET_WM_ACTION_ABOVE",
	"_NET_WM_ACTION_BELOW",
	"_NET_WM_STRUT",
	"_NET_WM_STRUT_PARTIAL",
	"_NET_WM_USER_TIME",
	"_NET_WM_USER_TIME_WINDOW",
	"_NET_FRAME_EXTENTS",
	"_NET_WM_PING",
	"_NET_WM_SYNC_REQUEST",
	"_NET_WM_SYNC_REQUEST_COUNTER",
	"_NET_WM_FULLSCREEN_MONITORS",
}

func init() {
	for _, sa := range stateAtoms {
		supported = append(supported, sa.atom)
	}
}

var allowedActions = []string{
	"_NET_WM_ACTION_CLOSE",
	"_NET_WM_ACTION_FULLSCREEN",
	"_NET_WM_ACTION_CHANGE_DESKTOP",
	"_NET_WM_ACTION_ABOVE",
	"_NET_WM_ACTION_BELOW",
	"_NET_WM_ACTION_MINIMIZE",
	"_NET_WM_ACTION_SHADE",
	"_NET_WM_ACTION_STICK",
	"_NET_WM_ACTION_MAXIMIZE_HORZ",
	"_NET_WM_ACTION_MAXIMIZE_VERT",
	"_NET_WM_ACTION_MOVE",
	"_NET_WM_ACTION_RESIZE",
}

// desktopOf is the _NET_WM_DESKTOP value for c.
func (w *WM) desktopOf(c *Client) uint {
	if !c.managedKind() || c.sticky() {
		return stickyDesktop
	}
	return desktopIndex(c.Monitor, c.Workspace, w.wpm)
}

func (w *WM) publishDesktop(c *Client) {
	w.conn.SetDesktop(c.ID, w.desktopOf(c))
}

func (w *WM) currentDesktop() uint {
	if len(w.monitors) == 0 {
		return 0
	}
	return desktopIndex(w.focusedMonitor, w.monitors[w.focusedMonitor].Current, w.wpm)
}

func (w *WM) publishCurrentDesktop() {
	w.conn.SetCurrentDesktop(w.currentDesktop())
}

// publishDesktops publishes the desktop count, names, geometry and
// work areas. There is one desktop per (monitor, workspace) pair.
func (w *WM) publishDesktops() {
	n := len(w.monitors) * w.wpm
	names := make([]string, 0, n)
	areas := make([]layout.Rect, 0, n)
	for _, mon := range w.monitors {
		for _, ws := range mon.Workspaces {
			names = append(names, ws.Name)
			areas = append(areas, mon.WorkArea)
		}
	}
	root := w.conn.RootGeometry()
	w.conn.SetNumberOfDesktops(uint(n))
	w.conn.SetDesktopNames(names)
	w.conn.SetDesktopGeometry(root.Width, root.Height)
	w.conn.SetDesktopViewport(n)
	w.conn.SetWorkarea(areas)
}

func (w *WM) publishClientList() {
	cs := w.sortedClients()
	wins := make([]xproto.Window, len(cs))
	for i, c := range cs {
		wins[i] = c.ID
	}
	w.conn.SetClientList(wins)
}

// Stacking layers, bottom to top.
const (
	layerDesktop = iota
	layerBelow
	layerTiled
	layerFloating
	layerDock
	layerAbove
	layerFullscreen
)

func (w *WM) layer(c *Client) int {
	switch {
	case c.Kind == KindDesktop:
		return layerDesktop
	case c.Kind == KindDock:
		return layerDock
	case c.fullscreen():
		return layerFullscreen
	case c.Has(StateAbove):
		return layerAbove
	case c.Has(StateBelow):
		return layerBelow
	case c.Kind == KindFloating:
		return layerFloating
	}
	return layerTiled
}

// stackOrder computes the bottom to top order of all clients.
// Floating windows follow the MRU, each transient right above its
// parent.
func (w *WM) stackOrder() []xproto.Window {
	mru := make(map[xproto.Window]int, len(w.floating))
	for i, win := range w.floating {
		mru[win] = i
	}
	type key struct {
		layer, group, depth, pos int
		order                    uint64
	}
	keys := make(map[xproto.Window]key, len(w.clients))
	cs := w.sortedClients()
	for _, c := range cs {
		k := key{layer: w.layer(c), order: c.Order}
		if c.Kind == KindFloating {
			root := c
			for depth := 0; root.TransientFor != 0 && depth < 8; depth++ {
				p := w.clients[root.TransientFor]
				if p == nil || p.Kind != KindFloating {
					break
				}
				root = p
				k.depth++
			}
			k.group = mru[root.ID]
			k.pos = mru[c.ID]
		}
		keys[c.ID] = k
	}
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := keys[cs[i].ID], keys[cs[j].ID]
		switch {
		case a.layer != b.layer:
			return a.layer < b.layer
		case a.group != b.group:
			return a.group < b.group
		case a.depth != b.depth:
			return a.depth < b.depth
		case a.pos != b.pos:
			return a.pos < b.pos
		}
		return a.order < b.order
	})
	wins := make([]xproto.Window, len(cs))
	for i, c := range cs {
		wins[i] = c.ID
	}
	return wins
}

// restack applies the computed stacking order when it changed and
// publishes it in _NET_CLIENT_LIST_STACKING. Status bars share the
// dock layer.
func (w *WM) restack() {
	order := w.stackOrder()
	if equalWindows(order, w.stacking) {
		return
	}
	w.stacking = order

	chain := make([]xproto.Window, 0, len(order)+len(w.monitors))
	barsAdded := false
	for _, win := range order {
		if !barsAdded && w.layer(w.clients[win]) > layerDock {
			chain = append(chain, w.bars()...)
			barsAdded = true
		}
		chain = append(chain, win)
	}
	if !barsAdded {
		chain = append(chain, w.bars()...)
	}
	for i, win := range chain {
		if i == 0 {
			if c := w.clients[win]; c != nil && c.Kind == KindDesktop {
				w.conn.Configure(win, xproto.ConfigWindowStackMode,
					[]uint32{xproto.StackModeBelow})
			}
			continue
		}
		w.conn.Configure(win, xproto.ConfigWindowSibling|xproto.ConfigWindowStackMode,
			[]uint32{uint32(chain[i-1]), xproto.StackModeAbove})
	}
	w.conn.SetClientListStacking(order)
}

func (w *WM) bars() []xproto.Window {
	var out []xproto.Window
	for _, mon := range w.monitors {
		if mon.Bar != 0 {
			out = append(out, mon.Bar)
		}
	}
	return out
}

func equalWindows(a, b []xproto.Window) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// setShowingDesktop hides every managed window, or brings them back.
func (w *WM) setShowingDesktop(on bool) {
	if w.showingDesktop == on {
		return
	}
	w.showingDesktop = on
	w.conn.SetShowingDesktop(on)
	for m := range w.monitors {
		w.applyVisibility(m)
		w.arrange(m)
	}
	if on {
		w.focus(nil)
		return
	}
	w.focusFallback(w.focusedMonitor)
}
