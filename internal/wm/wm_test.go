package wm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/intio/lwm/internal/config"
	"github.com/intio/lwm/internal/layout"
)

func hasAtom(atoms []string, name string) bool {
	for _, a := range atoms {
		if a == name {
			return true
		}
	}
	return false
}

func TestBasicTiling(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	w2 := h.mapWindow(nil)
	w3 := h.mapWindow(nil)

	var tests = []struct {
		win  xproto.Window
		want layout.Rect
	}{
		{w1, layout.Rect{X: 12, Y: 12, Width: 951, Height: 1052}},
		{w2, layout.Rect{X: 977, Y: 12, Width: 951, Height: 520}},
		{w3, layout.Rect{X: 977, Y: 546, Width: 951, Height: 518}},
	}
	for _, tt := range tests {
		if got := h.conn.win(tt.win).geom; got != tt.want {
			t.Errorf("geometry of %#x = %v, want %v", tt.win, got, tt.want)
		}
		if b := h.conn.win(tt.win).border; b != 2 {
			t.Errorf("border of %#x = %d, want 2", tt.win, b)
		}
	}
	want := []xproto.Window{w1, w2, w3}
	if !equalWindows(h.conn.clientList, want) {
		t.Errorf("_NET_CLIENT_LIST = %v, want %v", h.conn.clientList, want)
	}
	if h.conn.active != w3 {
		t.Errorf("_NET_ACTIVE_WINDOW = %#x, want %#x", h.conn.active, w3)
	}
	if h.conn.focus != w3 {
		t.Errorf("input focus = %#x, want %#x", h.conn.focus, w3)
	}
}

func TestWorkspaceRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	orig := h.conn.win(w1).geom

	h.message(h.conn.root, "_NET_CURRENT_DESKTOP", 1)
	if h.conn.win(w1).mapped {
		t.Errorf("window still mapped on another workspace")
	}
	if h.conn.active != 0 {
		t.Errorf("_NET_ACTIVE_WINDOW = %#x, want none", h.conn.active)
	}
	if h.conn.currentDesktop != 1 {
		t.Errorf("_NET_CURRENT_DESKTOP = %d, want 1", h.conn.currentDesktop)
	}
	if _, ok := h.wm.clients[w1]; !ok {
		t.Fatalf("window unmanaged by a workspace switch")
	}

	h.message(h.conn.root, "_NET_CURRENT_DESKTOP", 0)
	if !h.conn.win(w1).mapped {
		t.Errorf("window not mapped after switching back")
	}
	if got := h.conn.win(w1).geom; got != orig {
		t.Errorf("geometry = %v, want %v", got, orig)
	}
	if h.conn.active != w1 {
		t.Errorf("_NET_ACTIVE_WINDOW = %#x, want %#x", h.conn.active, w1)
	}
}

func TestFocusStealingPrevention(t *testing.T) {
	h := newHarness(t, nil)
	w2 := h.mapWindow(nil)
	w1 := h.mapWindow(func(fw *fakeWindow) {
		ut := uint(5000)
		fw.userTime = &ut
	})
	if h.conn.active != w1 {
		t.Fatalf("_NET_ACTIVE_WINDOW = %#x, want %#x", h.conn.active, w1)
	}

	h.message(w2, "_NET_ACTIVE_WINDOW", sourceApplication, 3000)
	if h.conn.active != w1 {
		t.Errorf("old request stole focus: active = %#x, want %#x", h.conn.active, w1)
	}
	if !hasAtom(h.conn.win(w2).netState, "_NET_WM_STATE_DEMANDS_ATTENTION") {
		t.Errorf("refused window does not demand attention: %v", h.conn.win(w2).netState)
	}

	h.message(w2, "_NET_ACTIVE_WINDOW", sourceApplication, 6000)
	if h.conn.active != w2 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w2)
	}
	if hasAtom(h.conn.win(w2).netState, "_NET_WM_STATE_DEMANDS_ATTENTION") {
		t.Errorf("demands attention not cleared on focus")
	}
}

func TestNewWindowWithZeroUserTimeDoesNotTakeFocus(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	w2 := h.mapWindow(func(fw *fakeWindow) {
		zero := uint(0)
		fw.userTime = &zero
	})
	if h.conn.active != w1 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w1)
	}
	if !h.conn.win(w2).mapped {
		t.Errorf("window was not mapped")
	}
}

func dialog(r layout.Rect) func(*fakeWindow) {
	return func(fw *fakeWindow) {
		fw.geom = r
		fw.types = []string{"_NET_WM_WINDOW_TYPE_DIALOG"}
		fw.normalHints = &icccm.NormalHints{Flags: icccm.SizeHintUSPosition}
	}
}

func TestFullscreenRestore(t *testing.T) {
	h := newHarness(t, nil)
	start := layout.Rect{X: 100, Y: 100, Width: 800, Height: 600}
	w1 := h.mapWindow(dialog(start))
	if got := h.conn.win(w1).geom; got != start {
		t.Fatalf("floating geometry = %v, want %v", got, start)
	}

	fs := uint32(h.conn.atom("_NET_WM_STATE_FULLSCREEN"))
	h.message(w1, "_NET_WM_STATE", stateAdd, fs)
	if got, want := h.conn.win(w1).geom, (layout.Rect{Width: 1920, Height: 1080}); got != want {
		t.Errorf("fullscreen geometry = %v, want %v", got, want)
	}
	if !hasAtom(h.conn.win(w1).netState, "_NET_WM_STATE_FULLSCREEN") {
		t.Errorf("fullscreen atom missing")
	}
	if got := h.client(w1).FullscreenRestore; got != start {
		t.Errorf("fullscreen restore = %v, want %v", got, start)
	}

	h.message(w1, "_NET_WM_STATE", stateToggle, fs)
	if got := h.conn.win(w1).geom; got != start {
		t.Errorf("restored geometry = %v, want %v", got, start)
	}
	if hasAtom(h.conn.win(w1).netState, "_NET_WM_STATE_FULLSCREEN") {
		t.Errorf("fullscreen atom still set")
	}
}

func TestFullscreenKeepsMaximizedAndModal(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(dialog(layout.Rect{X: 100, Y: 100, Width: 400, Height: 300}))
	c := h.client(w1)
	h.message(w1, "_NET_WM_STATE", stateAdd,
		uint32(h.conn.atom("_NET_WM_STATE_MAXIMIZED_HORZ")), uint32(h.conn.atom("_NET_WM_STATE_MODAL")))
	h.message(w1, "_NET_WM_STATE", stateAdd, uint32(h.conn.atom("_NET_WM_STATE_FULLSCREEN")))
	if c.Has(StateMaximizedHorz) || c.Has(StateAbove) {
		t.Errorf("fullscreen kept maximized or above: %v", c.State.Atoms())
	}
	if !c.Has(StateModal) {
		t.Errorf("fullscreen cleared modal")
	}
	h.message(w1, "_NET_WM_STATE", stateRemove, uint32(h.conn.atom("_NET_WM_STATE_FULLSCREEN")))
	if !c.Has(StateMaximizedHorz) || !c.Has(StateAbove) {
		t.Errorf("maximized or above not restored after fullscreen: %v", c.State.Atoms())
	}
}

func TestStickyAcrossSwitch(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	h.message(w1, "_NET_WM_DESKTOP", stickyDesktop)
	if d := h.conn.win(w1).desktop; d == nil || *d != stickyDesktop {
		t.Fatalf("_NET_WM_DESKTOP = %v, want all ones", d)
	}

	h.message(h.conn.root, "_NET_CURRENT_DESKTOP", 1)
	if !h.conn.win(w1).mapped {
		t.Errorf("sticky window unmapped by workspace switch")
	}
	if h.conn.active != w1 {
		t.Errorf("_NET_ACTIVE_WINDOW = %#x, want %#x", h.conn.active, w1)
	}
	if h.conn.currentDesktop != 1 {
		t.Errorf("_NET_CURRENT_DESKTOP = %d, want 1", h.conn.currentDesktop)
	}
}

func TestStickyMoveUnstick(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	c := h.client(w1)
	h.message(w1, "_NET_WM_DESKTOP", stickyDesktop)
	h.wm.moveToWorkspace(c, 4)
	h.check()
	if d := h.conn.win(w1).desktop; *d != stickyDesktop {
		t.Errorf("sticky window desktop = %d after move", *d)
	}
	h.message(w1, "_NET_WM_STATE", stateRemove, uint32(h.conn.atom("_NET_WM_STATE_STICKY")))
	if c.Workspace != 4 {
		t.Errorf("workspace = %d, want 4", c.Workspace)
	}
	if d := h.conn.win(w1).desktop; *d != 4 {
		t.Errorf("desktop = %d, want 4", *d)
	}
	if h.conn.win(w1).mapped {
		t.Errorf("window on hidden workspace still mapped")
	}
}

func (h *harness) center(win xproto.Window) (int16, int16) {
	x, y := h.conn.win(win).geom.Center()
	return int16(x), int16(y)
}

func TestDropReorder(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	w2 := h.mapWindow(nil)
	w3 := h.mapWindow(nil)

	x, y := h.center(w1)
	h.process(xproto.ButtonPressEvent{
		Event: h.conn.root, Child: w1, State: xproto.ModMask4, Detail: 1, RootX: x, RootY: y, Time: 10,
	})
	if h.wm.drag.kind != dragTiledMoving {
		t.Fatalf("drag = %v, want tiled-moving", h.wm.drag.kind)
	}
	tx, ty := h.center(w3)
	h.process(xproto.MotionNotifyEvent{Event: h.conn.root, RootX: tx, RootY: ty, Time: 11})
	if got := h.workspace(0, 0); !equalWindows(got, []xproto.Window{w1, w2, w3}) {
		t.Errorf("list changed during drag: %v", got)
	}
	h.process(xproto.ButtonReleaseEvent{Event: h.conn.root, RootX: tx, RootY: ty, Time: 12})

	want := []xproto.Window{w2, w3, w1}
	if got := h.workspace(0, 0); !equalWindows(got, want) {
		t.Errorf("workspace = %v, want %v", got, want)
	}
	if h.conn.active != w1 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w1)
	}
	if h.conn.pointerGrabbed {
		t.Errorf("pointer still grabbed")
	}
	rects := layout.MasterStack(3, h.wm.layoutParams(0))
	if got := h.conn.win(w1).geom; got != rects[2] {
		t.Errorf("dropped window at %v, want %v", got, rects[2])
	}
}

func TestDropOutsideMonitorsStaysOnSource(t *testing.T) {
	left := MonitorInfo{Name: "A", Rect: layout.Rect{Width: 1000, Height: 800}}
	right := MonitorInfo{Name: "B", Rect: layout.Rect{X: 1000, Width: 1000, Height: 800}}
	h := newHarness(t, nil, left, right)
	w1 := h.mapWindow(nil)
	w2 := h.mapWindow(nil)
	c := h.client(w1)

	h.wm.drop(c, 5000, 5000)
	h.check()
	if c.Monitor != 0 {
		t.Errorf("monitor = %d, want 0", c.Monitor)
	}
	if got := h.workspace(0, 0); !equalWindows(got, []xproto.Window{w2, w1}) {
		t.Errorf("workspace = %v, want [w2 w1]", got)
	}

	h.wm.drop(c, 1500, 400)
	h.check()
	if c.Monitor != 1 || !equalWindows(h.workspace(1, 0), []xproto.Window{w1}) {
		t.Errorf("cross monitor drop: monitor %d, list %v", c.Monitor, h.workspace(1, 0))
	}
}

func TestToggleStateTwiceIsNoop(t *testing.T) {
	tests := []struct {
		name    string
		initial []string
		toggle  string
	}{
		{"above", nil, "_NET_WM_STATE_ABOVE"},
		{"shaded", nil, "_NET_WM_STATE_SHADED"},
		{"maximized vert", nil, "_NET_WM_STATE_MAXIMIZED_VERT"},
		{"modal", nil, "_NET_WM_STATE_MODAL"},
		{"modal over above", []string{"_NET_WM_STATE_ABOVE"}, "_NET_WM_STATE_MODAL"},
		{"modal over below", []string{"_NET_WM_STATE_BELOW"}, "_NET_WM_STATE_MODAL"},
		{"modal over maximized", []string{"_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ"}, "_NET_WM_STATE_MODAL"},
		{"fullscreen over above", []string{"_NET_WM_STATE_ABOVE"}, "_NET_WM_STATE_FULLSCREEN"},
		{"fullscreen over below", []string{"_NET_WM_STATE_BELOW"}, "_NET_WM_STATE_FULLSCREEN"},
		{"fullscreen over maximized", []string{"_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ"}, "_NET_WM_STATE_FULLSCREEN"},
		{"sticky over above", []string{"_NET_WM_STATE_ABOVE"}, "_NET_WM_STATE_STICKY"},
		{"sticky over maximized", []string{"_NET_WM_STATE_MAXIMIZED_VERT"}, "_NET_WM_STATE_STICKY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			w1 := h.mapWindow(dialog(layout.Rect{X: 50, Y: 50, Width: 300, Height: 200}))
			for _, name := range tt.initial {
				h.message(w1, "_NET_WM_STATE", stateAdd, uint32(h.conn.atom(name)))
			}
			before := h.client(w1).State
			geom := h.conn.win(w1).geom
			desktop := h.conn.win(w1).desktop

			a := uint32(h.conn.atom(tt.toggle))
			h.message(w1, "_NET_WM_STATE", stateToggle, a)
			h.message(w1, "_NET_WM_STATE", stateToggle, a)
			if got := h.client(w1).State; got != before {
				t.Errorf("state %v, want %v", got.Atoms(), before.Atoms())
			}
			if got := h.conn.win(w1).geom; got != geom {
				t.Errorf("geometry %v, want %v", got, geom)
			}
			if got := h.conn.win(w1).desktop; (got == nil) != (desktop == nil) || got != nil && *got != *desktop {
				t.Errorf("_NET_WM_DESKTOP changed")
			}
		})
	}
}

func TestIconifyRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	w2 := h.mapWindow(nil)
	geom := h.conn.win(w2).geom

	h.message(w2, "WM_CHANGE_STATE", icccm.StateIconic)
	c := h.client(w2)
	if !c.Iconic || h.conn.win(w2).mapped {
		t.Fatalf("window not iconified")
	}
	if h.conn.active != w1 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w1)
	}
	if !hasAtom(h.conn.win(w2).netState, "_NET_WM_STATE_HIDDEN") {
		t.Errorf("hidden atom missing")
	}

	h.message(w2, "_NET_ACTIVE_WINDOW", 2)
	if c.Iconic || !h.conn.win(w2).mapped {
		t.Errorf("window not restored")
	}
	if got := h.conn.win(w2).geom; got != geom {
		t.Errorf("geometry = %v, want %v", got, geom)
	}
	if h.conn.active != w2 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w2)
	}
}

func TestClientUnmapWithdraws(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	w2 := h.mapWindow(nil)

	h.conn.win(w2).mapped = false
	h.process(xproto.UnmapNotifyEvent{Event: h.conn.root, Window: w2})
	if _, ok := h.wm.clients[w2]; ok {
		t.Fatalf("client-initiated unmap did not unmanage")
	}
	if st := h.conn.win(w2).wmState; st == nil || *st != icccm.StateWithdrawn {
		t.Errorf("WM_STATE = %v, want Withdrawn", st)
	}
	if h.conn.win(w2).desktop != nil || h.conn.win(w2).netState != nil {
		t.Errorf("EWMH properties not removed")
	}
	if h.conn.active != w1 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w1)
	}
	want := layout.MasterStack(1, h.wm.layoutParams(0))[0]
	if got := h.conn.win(w1).geom; got != want {
		t.Errorf("remaining window at %v, want %v", got, want)
	}
}

func TestDestroyNotify(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	h.process(xproto.DestroyNotifyEvent{Event: h.conn.root, Window: w1})
	if len(h.wm.clients) != 0 {
		t.Errorf("registry = %v, want empty", h.wm.clients)
	}
	if h.conn.active != 0 {
		t.Errorf("active = %#x, want none", h.conn.active)
	}
}

func TestFocusFallbackOrder(t *testing.T) {
	h := newHarness(t, nil)
	floater := h.mapWindow(dialog(layout.Rect{X: 10, Y: 10, Width: 200, Height: 200}))
	sticky := h.mapWindow(nil)
	h.message(sticky, "_NET_WM_DESKTOP", stickyDesktop)

	h.message(h.conn.root, "_NET_CURRENT_DESKTOP", 1)
	if h.conn.active != sticky {
		t.Errorf("empty workspace: active = %#x, want sticky %#x", h.conn.active, sticky)
	}
	h.process(xproto.DestroyNotifyEvent{Window: sticky})
	if h.conn.active != 0 {
		t.Errorf("active = %#x, want none (floating window is on workspace 0)", h.conn.active)
	}
	h.message(h.conn.root, "_NET_CURRENT_DESKTOP", 0)
	if h.conn.active != floater {
		t.Errorf("active = %#x, want floating %#x", h.conn.active, floater)
	}
}

func TestCycleFocus(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	w2 := h.mapWindow(nil)
	f1 := h.mapWindow(dialog(layout.Rect{X: 10, Y: 10, Width: 200, Height: 200}))

	var tests = []struct {
		dir  Direction
		want xproto.Window
	}{
		{Next, w1},
		{Next, w2},
		{Next, f1},
		{Prev, w2},
		{Prev, w1},
		{Prev, f1},
	}
	for i, tt := range tests {
		h.wm.cycleFocus(tt.dir)
		h.check()
		if h.wm.active != tt.want {
			t.Errorf("step %d: active = %#x, want %#x", i, h.wm.active, tt.want)
		}
	}
}

func TestDecodeDesktop(t *testing.T) {
	var tests = []struct {
		d             uint
		monitors, wpm int
		m, ws         int
		ok            bool
	}{
		{0, 1, 10, 0, 0, true},
		{13, 2, 10, 1, 3, true},
		{20, 2, 10, 0, 0, false},
		{stickyDesktop, 2, 10, 0, 0, false},
		{0, 1, 0, 0, 0, false},
	}
	for _, tt := range tests {
		m, ws, ok := decodeDesktop(tt.d, tt.monitors, tt.wpm)
		if m != tt.m || ws != tt.ws || ok != tt.ok {
			t.Errorf("decodeDesktop(%d, %d, %d) = %d, %d, %v, want %d, %d, %v",
				tt.d, tt.monitors, tt.wpm, m, ws, ok, tt.m, tt.ws, tt.ok)
		}
		if ok {
			if got := desktopIndex(m, ws, tt.wpm); got != tt.d {
				t.Errorf("desktopIndex(%d, %d, %d) = %d, want %d", m, ws, tt.wpm, got, tt.d)
			}
		}
	}
}

func TestDirectionStep(t *testing.T) {
	var tests = []struct {
		d    Direction
		i, n int
		want int
	}{
		{Next, 0, 3, 1},
		{Next, 2, 3, 0},
		{Prev, 0, 3, 2},
		{Prev, 1, 3, 0},
		{Next, 0, 0, 0},
	}
	for _, tt := range tests {
		if got := tt.d.step(tt.i, tt.n); got != tt.want {
			t.Errorf("%d.step(%d, %d) = %d, want %d", tt.d, tt.i, tt.n, got, tt.want)
		}
	}
}

func TestDockStrut(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	dock := h.mapWindow(func(fw *fakeWindow) {
		fw.types = []string{"_NET_WM_WINDOW_TYPE_DOCK"}
		fw.strut = &Strut{Top: 30, TopStartX: 0, TopEndX: 1919}
	})
	if c := h.client(dock); c.Kind != KindDock {
		t.Fatalf("kind = %v, want dock", c.Kind)
	}
	if d := h.conn.win(dock).desktop; d == nil || *d != stickyDesktop {
		t.Errorf("dock desktop = %v, want all ones", d)
	}
	want := layout.Rect{Y: 30, Width: 1920, Height: 1050}
	if got := h.wm.monitors[0].WorkArea; got != want {
		t.Errorf("work area = %v, want %v", got, want)
	}
	if got := h.conn.win(w1).geom; got.Y != 42 {
		t.Errorf("tiled window y = %d, want 42", got.Y)
	}
	if h.conn.active != w1 {
		t.Errorf("dock took the focus")
	}

	h.process(xproto.DestroyNotifyEvent{Window: dock})
	if got := h.wm.monitors[0].WorkArea; got != scenarioMonitor.Rect {
		t.Errorf("work area after dock = %v, want %v", got, scenarioMonitor.Rect)
	}
}

func TestPopupsAreNotManaged(t *testing.T) {
	h := newHarness(t, nil)
	menu := h.mapWindow(func(fw *fakeWindow) {
		fw.types = []string{"_NET_WM_WINDOW_TYPE_POPUP_MENU"}
	})
	if _, ok := h.wm.clients[menu]; ok {
		t.Errorf("popup menu was managed")
	}
	if !h.conn.win(menu).mapped {
		t.Errorf("popup menu was not mapped")
	}
}

func TestTransientFloatsOverParent(t *testing.T) {
	h := newHarness(t, nil)
	parent := h.mapWindow(nil)
	child := h.mapWindow(func(fw *fakeWindow) {
		fw.transient = parent
		fw.geom = layout.Rect{Width: 200, Height: 100}
	})
	c := h.client(child)
	if c.Kind != KindFloating {
		t.Fatalf("kind = %v, want floating", c.Kind)
	}
	if !c.Has(StateSkipTaskbar | StateSkipPager) {
		t.Errorf("transient not skipping taskbar and pager: %v", c.State.Atoms())
	}
	pcx, pcy := h.conn.win(parent).geom.Center()
	r := h.conn.win(child).geom
	cx, cy := r.X+2+r.Width/2, r.Y+2+r.Height/2
	if abs(cx-pcx) > 2 || abs(cy-pcy) > 2 {
		t.Errorf("transient centered at %d,%d, parent at %d,%d", cx, cy, pcx, pcy)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestWindowRules(t *testing.T) {
	cfg := config.Default()
	yes := true
	ws := 3
	cfg.WindowRules = []config.WindowRule{
		{ClassPattern: "^Gimp$", Floating: &yes},
		{ClassPattern: "Firefox", Workspace: &ws},
	}
	h := newHarness(t, cfg)
	gimp := h.mapWindow(func(fw *fakeWindow) { fw.class = "Gimp" })
	ff := h.mapWindow(func(fw *fakeWindow) { fw.class = "Firefox" })

	if c := h.client(gimp); c.Kind != KindFloating {
		t.Errorf("gimp kind = %v, want floating", c.Kind)
	}
	c := h.client(ff)
	if c.Workspace != 3 || c.Kind != KindTiled {
		t.Errorf("firefox on workspace %d as %v, want 3 tiled", c.Workspace, c.Kind)
	}
	if h.conn.win(ff).mapped {
		t.Errorf("window on hidden workspace is mapped")
	}
	if h.conn.active != gimp {
		t.Errorf("active = %#x, want %#x", h.conn.active, gimp)
	}
}

func TestCloseWindow(t *testing.T) {
	h := newHarness(t, nil)
	polite := h.mapWindow(func(fw *fakeWindow) {
		fw.protocols = []string{"WM_DELETE_WINDOW", "_NET_WM_PING"}
	})
	rude := h.mapWindow(nil)

	h.message(rude, "_NET_CLOSE_WINDOW")
	if len(h.conn.killed) != 1 || h.conn.killed[0] != rude {
		t.Errorf("killed = %v, want [%#x]", h.conn.killed, rude)
	}

	h.message(polite, "_NET_CLOSE_WINDOW")
	var sent []string
	for _, m := range h.conn.sent {
		if m.win == polite {
			sent = append(sent, m.protocol)
		}
	}
	if !hasAtom(sent, "WM_DELETE_WINDOW") || !hasAtom(sent, "_NET_WM_PING") {
		t.Errorf("sent %v, want WM_DELETE_WINDOW and _NET_WM_PING", sent)
	}
	deadline, ok := h.wm.nextDeadline()
	if !ok || !deadline.Equal(h.now.Add(3*time.Second)) {
		t.Errorf("nextDeadline() = %v, %v", deadline, ok)
	}

	// A pong calls the kill off.
	h.message(h.conn.root, "WM_PROTOCOLS", uint32(h.conn.atom("_NET_WM_PING")), 0, uint32(polite))
	h.now = h.now.Add(10 * time.Second)
	h.wm.expirePending()
	if len(h.conn.killed) != 1 {
		t.Errorf("responsive client was killed: %v", h.conn.killed)
	}

	// Without an answer the client is killed after the deadline.
	h.message(polite, "_NET_CLOSE_WINDOW")
	h.now = h.now.Add(2 * time.Second)
	h.wm.expirePending()
	if len(h.conn.killed) != 1 {
		t.Errorf("killed before the deadline: %v", h.conn.killed)
	}
	h.now = h.now.Add(2 * time.Second)
	h.wm.expirePending()
	if len(h.conn.killed) != 2 || h.conn.killed[1] != polite {
		t.Errorf("killed = %v, want %#x killed", h.conn.killed, polite)
	}
	if _, ok := h.wm.nextDeadline(); ok {
		t.Errorf("pending tables not empty")
	}
}

func TestMalformedMessages(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	if err := h.message(w1, "_NET_WM_STATE", 7); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("bad action: err = %v, want ErrMalformedMessage", err)
	}
	if err := h.message(h.conn.root, "_NET_CURRENT_DESKTOP", 99); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("bad desktop: err = %v, want ErrMalformedMessage", err)
	}
	if err := h.message(0x9999, "_NET_CLOSE_WINDOW"); !errors.Is(err, ErrUnknownClient) {
		t.Errorf("unknown window: err = %v, want ErrUnknownClient", err)
	}
}

func TestMoveResizeWindow(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(dialog(layout.Rect{X: 100, Y: 100, Width: 400, Height: 300}))
	h.message(w1, "_NET_MOVERESIZE_WINDOW", moveResizeHasX|moveResizeHasHeight, 300, 999, 999, 250)
	want := layout.Rect{X: 300, Y: 100, Width: 400, Height: 250}
	if got := h.conn.win(w1).geom; got != want {
		t.Errorf("geometry = %v, want %v", got, want)
	}

	tiled := h.mapWindow(nil)
	geom := h.conn.win(tiled).geom
	h.message(tiled, "_NET_MOVERESIZE_WINDOW", moveResizeHasX, 5)
	if got := h.conn.win(tiled).geom; got != geom {
		t.Errorf("tiled window moved to %v", got)
	}
}

func TestConfigureRequest(t *testing.T) {
	h := newHarness(t, nil)
	tiled := h.mapWindow(nil)
	geom := h.conn.win(tiled).geom
	h.process(xproto.ConfigureRequestEvent{
		Window: tiled, X: 1, Y: 1, Width: 10, Height: 10,
		ValueMask: xproto.ConfigWindowX | xproto.ConfigWindowY | xproto.ConfigWindowWidth | xproto.ConfigWindowHeight,
	})
	if got := h.conn.win(tiled).geom; got != geom {
		t.Errorf("tiled window reconfigured to %v", got)
	}

	f := h.mapWindow(dialog(layout.Rect{X: 100, Y: 100, Width: 400, Height: 300}))
	h.process(xproto.ConfigureRequestEvent{
		Window: f, Width: 640, BorderWidth: 9,
		ValueMask: xproto.ConfigWindowWidth | xproto.ConfigWindowBorderWidth,
	})
	want := layout.Rect{X: 100, Y: 100, Width: 640, Height: 300}
	if got := h.conn.win(f).geom; got != want {
		t.Errorf("floating geometry = %v, want %v", got, want)
	}
	if b := h.conn.win(f).border; b != 2 {
		t.Errorf("border = %d, want 2", b)
	}

	unmanaged := h.conn.create(layout.Rect{})
	h.process(xproto.ConfigureRequestEvent{
		Window: unmanaged, X: 7, Width: 70,
		ValueMask: xproto.ConfigWindowX | xproto.ConfigWindowWidth,
	})
	if got := h.conn.win(unmanaged).geom; got.X != 7 || got.Width != 70 {
		t.Errorf("unmanaged window = %v, want x 7 width 70", got)
	}
}

func TestShowingDesktop(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	h.message(h.conn.root, "_NET_SHOWING_DESKTOP", 1)
	if h.conn.win(w1).mapped || h.conn.active != 0 || !h.conn.showing {
		t.Errorf("showing desktop: mapped %v active %#x", h.conn.win(w1).mapped, h.conn.active)
	}
	h.message(h.conn.root, "_NET_SHOWING_DESKTOP", 0)
	if !h.conn.win(w1).mapped || h.conn.active != w1 {
		t.Errorf("restored: mapped %v active %#x", h.conn.win(w1).mapped, h.conn.active)
	}
}

func TestKeyBindings(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	key := func(name string, mods uint16) xproto.KeyPressEvent {
		return xproto.KeyPressEvent{Detail: h.conn.Keycodes(name)[0], State: mods, Root: h.conn.root, Time: 5}
	}

	// Mod4+Shift+3 moves the window to the third workspace. Num Lock
	// does not get in the way.
	h.process(key("3", xproto.ModMask4|xproto.ModMaskShift|xproto.ModMask2))
	if c := h.client(w1); c.Workspace != 2 {
		t.Errorf("workspace = %d, want 2", c.Workspace)
	}
	h.process(key("3", xproto.ModMask4))
	if h.conn.currentDesktop != 2 || h.conn.active != w1 {
		t.Errorf("desktop %d active %#x, want 2 and %#x", h.conn.currentDesktop, h.conn.active, w1)
	}
	if err := h.process(key("e", xproto.ModMask4|xproto.ModMaskShift)); !errors.Is(err, ErrQuit) {
		t.Errorf("quit binding returned %v", err)
	}
}

func TestToggleWorkspaceDebounce(t *testing.T) {
	h := newHarness(t, nil)
	tab := xproto.KeyPressEvent{Detail: h.conn.Keycodes("Tab")[0], State: xproto.ModMask4}
	release := xproto.KeyReleaseEvent{Detail: tab.Detail, State: tab.State}
	h.message(h.conn.root, "_NET_CURRENT_DESKTOP", 1)

	h.process(tab)
	if h.conn.currentDesktop != 0 {
		t.Fatalf("toggle: desktop %d, want 0", h.conn.currentDesktop)
	}
	// Auto-repeat without release.
	h.now = h.now.Add(time.Second)
	h.process(tab)
	if h.conn.currentDesktop != 0 {
		t.Errorf("held key toggled again")
	}
	// Released but too soon.
	h.process(release)
	h.now = h.now.Add(100 * time.Millisecond)
	h.process(tab)
	if h.conn.currentDesktop != 0 {
		t.Errorf("toggled inside the debounce window")
	}
	h.process(release)
	h.now = h.now.Add(time.Second)
	h.process(tab)
	if h.conn.currentDesktop != 1 {
		t.Errorf("toggle after release: desktop %d, want 1", h.conn.currentDesktop)
	}
}

func TestClickToFocus(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	w2 := h.mapWindow(nil)
	if !h.conn.win(w1).buttonGrabbed || h.conn.win(w2).buttonGrabbed {
		t.Fatalf("button grabs: w1 %v w2 %v", h.conn.win(w1).buttonGrabbed, h.conn.win(w2).buttonGrabbed)
	}
	h.process(xproto.ButtonPressEvent{Event: w1, Detail: 1, Time: 20})
	if h.conn.active != w1 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w1)
	}
	if h.conn.win(w1).buttonGrabbed || !h.conn.win(w2).buttonGrabbed {
		t.Errorf("button grabs not moved with the focus")
	}
	if got, want := h.conn.win(w2).borderColor, h.wm.colors.border; got != want {
		t.Errorf("unfocused border = %#x, want %#x", got, want)
	}

	h.process(xproto.ButtonPressEvent{Event: w2, Detail: 1, Time: 30})
	if h.conn.active != w2 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w2)
	}
	if !h.conn.win(w1).buttonGrabbed || h.conn.win(w2).buttonGrabbed {
		t.Errorf("second click: button grabs: w1 %v w2 %v", h.conn.win(w1).buttonGrabbed, h.conn.win(w2).buttonGrabbed)
	}
	if got, want := h.conn.win(w2).borderColor, h.wm.colors.focus; got != want {
		t.Errorf("focused border = %#x, want %#x", got, want)
	}
}

func TestEnterNotifyFocus(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	h.mapWindow(nil)
	h.process(xproto.EnterNotifyEvent{Event: w1, Mode: xproto.NotifyModeGrab})
	if h.conn.active == w1 {
		t.Errorf("grab crossing changed the focus")
	}
	h.process(xproto.EnterNotifyEvent{Event: w1, Mode: xproto.NotifyModeNormal, Detail: xproto.NotifyDetailInferior})
	if h.conn.active == w1 {
		t.Errorf("inferior crossing changed the focus")
	}
	h.process(xproto.EnterNotifyEvent{Event: w1, Mode: xproto.NotifyModeNormal, Detail: xproto.NotifyDetailNonlinear})
	if h.conn.active != w1 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w1)
	}
}

func TestMotionRefocus(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(nil)
	h.mapWindow(nil)
	h.process(xproto.MotionNotifyEvent{Event: h.conn.root, Child: w1, RootX: 20, RootY: 20})
	if h.conn.active != w1 {
		t.Errorf("active = %#x, want %#x", h.conn.active, w1)
	}
}

func TestFloatingDragAndResize(t *testing.T) {
	h := newHarness(t, nil)
	f := h.mapWindow(dialog(layout.Rect{X: 100, Y: 100, Width: 400, Height: 300}))

	h.process(xproto.ButtonPressEvent{Event: h.conn.root, Child: f, State: xproto.ModMask4, Detail: 1, RootX: 150, RootY: 150})
	h.process(xproto.MotionNotifyEvent{Event: h.conn.root, RootX: 200, RootY: 170})
	h.process(xproto.ButtonReleaseEvent{Event: h.conn.root, RootX: 200, RootY: 170})
	if got, want := h.conn.win(f).geom, (layout.Rect{X: 150, Y: 120, Width: 400, Height: 300}); got != want {
		t.Errorf("moved to %v, want %v", got, want)
	}

	// Mod4+button 3 near the bottom right corner.
	h.process(xproto.ButtonPressEvent{Event: h.conn.root, Child: f, State: xproto.ModMask4, Detail: 3, RootX: 540, RootY: 410})
	h.process(xproto.MotionNotifyEvent{Event: h.conn.root, RootX: 560, RootY: 300})
	h.process(xproto.ButtonReleaseEvent{Event: h.conn.root, RootX: 560, RootY: 300})
	if got, want := h.conn.win(f).geom, (layout.Rect{X: 150, Y: 120, Width: 420, Height: 190}); got != want {
		t.Errorf("resized to %v, want %v", got, want)
	}

	// Cancel restores the starting geometry.
	h.message(f, "_NET_WM_MOVERESIZE", 300, 300, moveResizeMove)
	h.process(xproto.MotionNotifyEvent{Event: h.conn.root, RootX: 700, RootY: 700})
	h.message(f, "_NET_WM_MOVERESIZE", 0, 0, moveResizeCancel)
	if got, want := h.conn.win(f).geom, (layout.Rect{X: 150, Y: 120, Width: 420, Height: 190}); got != want {
		t.Errorf("after cancel at %v, want %v", got, want)
	}
	if h.wm.drag.kind != dragIdle || h.conn.pointerGrabbed {
		t.Errorf("drag not cancelled")
	}
}

func TestResizeEdges(t *testing.T) {
	r := layout.Rect{X: 100, Y: 100, Width: 200, Height: 200}
	var tests = []struct {
		edges, dx, dy int
		want          layout.Rect
	}{
		{edgeRight | edgeBottom, 10, 20, layout.Rect{X: 100, Y: 100, Width: 210, Height: 220}},
		{edgeLeft | edgeTop, 10, 20, layout.Rect{X: 110, Y: 120, Width: 190, Height: 180}},
		{edgeLeft, 190, 0, layout.Rect{X: 250, Y: 100, Width: 50, Height: 200}},
		{edgeTop, 0, 500, layout.Rect{X: 100, Y: 250, Width: 200, Height: 50}},
	}
	for _, tt := range tests {
		if got := resizeEdges(r, tt.edges, tt.dx, tt.dy, 50, 50); got != tt.want {
			t.Errorf("resizeEdges(%v, %d, %d, %d) = %v, want %v", r, tt.edges, tt.dx, tt.dy, got, tt.want)
		}
	}
}

func TestMonitorNavigation(t *testing.T) {
	left := MonitorInfo{Name: "A", Rect: layout.Rect{Width: 1000, Height: 800}}
	right := MonitorInfo{Name: "B", Rect: layout.Rect{X: 1000, Width: 1000, Height: 800}}
	cfg := config.Default()
	cfg.Focus.WarpCursorOnMonitorChange = true
	h := newHarness(t, cfg, right, left)
	if h.wm.monitors[0].Name != "A" {
		t.Fatalf("monitors not sorted by x: %v", h.wm.monitors[0].Name)
	}
	f := h.mapWindow(dialog(layout.Rect{X: 100, Y: 100, Width: 200, Height: 100}))
	c := h.client(f)

	h.wm.moveToMonitor(c, Next.step(c.Monitor, 2))
	h.check()
	if c.Monitor != 1 {
		t.Fatalf("monitor = %d, want 1", c.Monitor)
	}
	if cx, _ := c.Floating.Center(); cx < 1000 {
		t.Errorf("floating window not re-centered on the target monitor: %v", c.Floating)
	}
	if d := h.conn.win(f).desktop; *d != 10 {
		t.Errorf("desktop = %d, want 10", *d)
	}

	h.wm.focusMonitor(Next)
	h.check()
	if h.wm.focusedMonitor != 0 || h.conn.currentDesktop != 0 {
		t.Errorf("focused monitor %d desktop %d", h.wm.focusedMonitor, h.conn.currentDesktop)
	}
	if len(h.conn.warped) != 1 || h.conn.warped[0] != [2]int{500, 400} {
		t.Errorf("warped = %v, want [[500 400]]", h.conn.warped)
	}
}

func TestScreenChange(t *testing.T) {
	left := MonitorInfo{Name: "A", Rect: layout.Rect{Width: 1000, Height: 800}}
	right := MonitorInfo{Name: "B", Rect: layout.Rect{X: 1000, Width: 1000, Height: 800}}
	h := newHarness(t, nil, left, right)
	w1 := h.mapWindow(nil)
	h.wm.moveToMonitor(h.client(w1), 1)
	h.message(h.conn.root, "_NET_CURRENT_DESKTOP", 3)
	w2 := h.mapWindow(nil)

	// Same outputs: nothing changes.
	before := h.conn.win(w1).geom
	h.wm.updateMonitors()
	h.check()
	if got := h.conn.win(w1).geom; got != before || len(h.wm.monitors) != 2 {
		t.Errorf("unchanged layout moved windows: %v", got)
	}

	// B goes away: its windows move to the current workspace of A.
	h.conn.monitors = []MonitorInfo{left}
	h.wm.updateMonitors()
	h.check()
	if len(h.wm.monitors) != 1 {
		t.Fatalf("monitors = %d, want 1", len(h.wm.monitors))
	}
	for _, win := range []xproto.Window{w1, w2} {
		c := h.client(win)
		if c.Monitor != 0 || c.Workspace != 3 {
			t.Errorf("window %#x on %d/%d, want 0/3", win, c.Monitor, c.Workspace)
		}
	}
	if h.conn.numDesktops != 10 {
		t.Errorf("_NET_NUMBER_OF_DESKTOPS = %d, want 10", h.conn.numDesktops)
	}
}

func TestStartup(t *testing.T) {
	conn := newFakeConn(scenarioMonitor)
	existing := conn.create(layout.Rect{X: 5, Y: 5, Width: 300, Height: 300})
	conn.windows[existing].mapped = true
	desk := uint(4)
	conn.windows[existing].desktop = &desk
	iconic := conn.create(layout.Rect{Width: 100, Height: 100})
	st := uint(icccm.StateIconic)
	conn.windows[iconic].wmState = &st
	conn.create(layout.Rect{}) // withdrawn, left alone

	w := New(conn, config.Default(), Options{})
	w.spawn = func(string) error { return nil }
	if err := w.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if len(w.clients) != 2 {
		t.Fatalf("adopted %d windows, want 2", len(w.clients))
	}
	if c := w.clients[existing]; c.Workspace != 4 {
		t.Errorf("adopted window workspace = %d, want 4", c.Workspace)
	}
	if c := w.clients[iconic]; !c.Iconic {
		t.Errorf("iconic window not adopted as iconic")
	}
	if conn.win(existing).mapped {
		t.Errorf("window on hidden workspace left mapped")
	}
	if !hasAtom(conn.supported, "_NET_WM_STATE_FULLSCREEN") || !hasAtom(conn.supported, "_NET_CLIENT_LIST") {
		t.Errorf("_NET_SUPPORTED incomplete")
	}
	if conn.keyGrabs == 0 {
		t.Errorf("no keys grabbed")
	}
	if conn.selection["WM_S0"] != w.selectionWin {
		t.Errorf("WM_S0 not owned")
	}

	w.Shutdown()
	if conn.selection["WM_S0"] != 0 {
		t.Errorf("WM_S0 still owned after shutdown")
	}
}

func TestStartupAlreadyRunning(t *testing.T) {
	conn := newFakeConn(scenarioMonitor)
	conn.selection["WM_S0"] = 0x42
	if err := New(conn, config.Default(), Options{}).Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Start() with owned selection = %v, want ErrAlreadyRunning", err)
	}

	conn = newFakeConn(scenarioMonitor)
	conn.redirectErr = errors.New("BadAccess")
	if err := New(conn, config.Default(), Options{}).Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Start() with redirect taken = %v, want ErrAlreadyRunning", err)
	}
}

func TestSelectionClearQuits(t *testing.T) {
	h := newHarness(t, nil)
	err := h.process(xproto.SelectionClearEvent{Owner: h.wm.selectionWin, Selection: h.conn.atom("WM_S0")})
	if !errors.Is(err, ErrQuit) {
		t.Errorf("SelectionClear = %v, want ErrQuit", err)
	}
}

func TestStatusBar(t *testing.T) {
	cfg := config.Default()
	cfg.Appearance.StatusBarEnabled = true
	h := newHarness(t, cfg)
	bar := h.wm.monitors[0].Bar
	if bar == 0 {
		t.Fatalf("no bar window")
	}
	if got, want := h.wm.monitors[0].WorkArea, (layout.Rect{Y: 18, Width: 1920, Height: 1062}); got != want {
		t.Errorf("work area = %v, want %v", got, want)
	}
	h.mapWindow(func(fw *fakeWindow) { fw.name = "editor" })
	texts := h.conn.bars[bar]
	if len(texts) != 2 || texts[0].Text != " 1 " || texts[1].Text != "editor" {
		t.Errorf("bar texts = %+v", texts)
	}
}

func TestRunServesRequests(t *testing.T) {
	h := newHarness(t, nil)
	w1 := h.mapWindow(func(fw *fakeWindow) { fw.name = "term" })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- h.wm.Run(ctx) }()

	ch, stop := h.wm.Subscribe()
	if s := <-ch; s.ActiveTitle != "term" || s.Active != uint32(w1) {
		t.Errorf("first snapshot = %+v", s)
	}
	views, ok := h.wm.Clients()
	if !ok || len(views) != 1 || views[0].Name != "term" || !views[0].Focused {
		t.Errorf("Clients() = %+v, %v", views, ok)
	}
	if !h.wm.Do(func() { h.wm.SwitchDesktop(1) }) {
		t.Fatalf("Do() = false while running")
	}
	if s := <-ch; s.CurrentDesktop != 1 || s.Active != 0 {
		t.Errorf("snapshot after switch = %+v", s)
	}
	stop()
	if _, open := <-ch; open {
		t.Errorf("subscription still open after stop")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
	if h.wm.Do(func() {}) {
		t.Errorf("Do() = true after Run returned")
	}
}

func TestEventReaderStopsAfterRun(t *testing.T) {
	h := newHarness(t, nil)
	h.conn.wire = make(chan xgb.Event, 1)
	h.conn.wire <- xproto.MapRequestEvent{Window: 0x999}

	done := make(chan struct{})
	close(done)
	returned := make(chan struct{})
	go func() {
		// Nobody drains the unbuffered channel once Run is gone.
		h.wm.readEvents(make(chan xevent), done)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("event reader blocked after the dispatcher stopped")
	}
}
