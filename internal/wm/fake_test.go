package wm

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/intio/lwm/internal/config"
	"github.com/intio/lwm/internal/layout"
)

type fakeWindow struct {
	geom     layout.Rect
	border   int
	mapped   bool
	override bool

	name, instance, class string
	types                 []string
	netState              []string
	desktop               *uint
	protocols             []string
	hints                 *icccm.Hints
	normalHints           *icccm.NormalHints
	transient             xproto.Window
	wmState               *uint
	userTime              *uint
	strut                 *Strut
	borderColor           uint32
	buttonGrabbed         bool
}

type sentMessage struct {
	win      xproto.Window
	protocol string
	extra    []uint32
}

// fakeConn is an in-memory display. Unmapping a window queues the
// UnmapNotify the server would send.
type fakeConn struct {
	root     xproto.Window
	rootGeom layout.Rect
	monitors []MonitorInfo
	windows  map[xproto.Window]*fakeWindow
	nextID   xproto.Window
	events   []xgb.Event
	// wire feeds WaitForEvent; nil blocks forever.
	wire chan xgb.Event

	atoms map[string]xproto.Atom
	names map[xproto.Atom]string
	codes map[string]xproto.Keycode

	selection   map[string]xproto.Window
	redirectErr error

	focus          xproto.Window
	active         xproto.Window
	clientList     []xproto.Window
	stacking       []xproto.Window
	currentDesktop uint
	numDesktops    uint
	desktopNames   []string
	workareas      []layout.Rect
	showing        bool
	supported      []string

	sent           []sentMessage
	killed         []xproto.Window
	keyGrabs       int
	pointerGrabbed bool
	warped         [][2]int
	bars           map[xproto.Window][]BarText
}

func newFakeConn(monitors ...MonitorInfo) *fakeConn {
	f := &fakeConn{
		root:      1,
		rootGeom:  layout.Rect{Width: 1920, Height: 1080},
		monitors:  monitors,
		windows:   make(map[xproto.Window]*fakeWindow),
		nextID:    0x100,
		atoms:     make(map[string]xproto.Atom),
		names:     make(map[xproto.Atom]string),
		codes:     make(map[string]xproto.Keycode),
		selection: make(map[string]xproto.Window),
		bars:      make(map[xproto.Window][]BarText),
	}
	if len(monitors) > 0 {
		var r layout.Rect
		for _, m := range monitors {
			r = r.Union(m.Rect)
		}
		f.rootGeom = r
	}
	return f
}

func (f *fakeConn) atom(name string) xproto.Atom {
	if a, ok := f.atoms[name]; ok {
		return a
	}
	a := xproto.Atom(len(f.atoms) + 100)
	f.atoms[name] = a
	f.names[a] = name
	return a
}

// create adds a client window that has not been mapped yet.
func (f *fakeConn) create(r layout.Rect) xproto.Window {
	f.nextID++
	f.windows[f.nextID] = &fakeWindow{geom: r}
	return f.nextID
}

func (f *fakeConn) win(id xproto.Window) *fakeWindow {
	if w, ok := f.windows[id]; ok {
		return w
	}
	return &fakeWindow{}
}

func (f *fakeConn) Root() xproto.Window                  { return f.root }
func (f *fakeConn) RootGeometry() layout.Rect            { return f.rootGeom }
func (f *fakeConn) Flush()                               {}
func (f *fakeConn) WaitForEvent() (xgb.Event, xgb.Error) {
	if f.wire == nil {
		select {}
	}
	return <-f.wire, nil
}

func (f *fakeConn) AtomName(a xproto.Atom) string { return f.names[a] }

func (f *fakeConn) CreateHelperWindow() (xproto.Window, error) {
	f.nextID++
	f.windows[f.nextID] = &fakeWindow{override: true}
	return f.nextID, nil
}

func (f *fakeConn) DestroyWindow(win xproto.Window) { delete(f.windows, win) }

func (f *fakeConn) SelectionOwner(sel string) (xproto.Window, error) {
	return f.selection[sel], nil
}

func (f *fakeConn) SetSelectionOwner(sel string, owner xproto.Window, t xproto.Timestamp) {
	f.selection[sel] = owner
}

func (f *fakeConn) RedirectRoot() error                        { return f.redirectErr }
func (f *fakeConn) SelectInput(win xproto.Window, mask uint32) {}

func (f *fakeConn) Monitors() ([]MonitorInfo, error) {
	return append([]MonitorInfo(nil), f.monitors...), nil
}

func (f *fakeConn) Attributes(win xproto.Window) (Attributes, error) {
	w, ok := f.windows[win]
	if !ok {
		return Attributes{}, errors.New("bad window")
	}
	return Attributes{OverrideRedirect: w.override, Viewable: w.mapped}, nil
}

func (f *fakeConn) Geometry(win xproto.Window) (layout.Rect, error) {
	w, ok := f.windows[win]
	if !ok {
		return layout.Rect{}, errors.New("bad window")
	}
	return w.geom, nil
}

func (f *fakeConn) Children() ([]xproto.Window, error) {
	var out []xproto.Window
	for id := range f.windows {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeConn) QueryPointer() (int, int, error) { return 0, 0, nil }

func (f *fakeConn) Configure(win xproto.Window, mask uint16, values []uint32) {
	w := f.win(win)
	i := 0
	next := func() uint32 { v := values[i]; i++; return v }
	if mask&xproto.ConfigWindowX != 0 {
		w.geom.X = int(int32(next()))
	}
	if mask&xproto.ConfigWindowY != 0 {
		w.geom.Y = int(int32(next()))
	}
	if mask&xproto.ConfigWindowWidth != 0 {
		w.geom.Width = int(next())
	}
	if mask&xproto.ConfigWindowHeight != 0 {
		w.geom.Height = int(next())
	}
	if mask&xproto.ConfigWindowBorderWidth != 0 {
		w.border = int(next())
	}
}

func (f *fakeConn) SendConfigureNotify(win xproto.Window, r layout.Rect, border int) {}

func (f *fakeConn) Map(win xproto.Window) { f.win(win).mapped = true }

func (f *fakeConn) Unmap(win xproto.Window) {
	w := f.win(win)
	if !w.mapped {
		return
	}
	w.mapped = false
	f.events = append(f.events, xproto.UnmapNotifyEvent{Event: f.root, Window: win})
}

func (f *fakeConn) SetBorderColor(win xproto.Window, pixel uint32) { f.win(win).borderColor = pixel }

func (f *fakeConn) SetInputFocus(win xproto.Window, t xproto.Timestamp) { f.focus = win }

func (f *fakeConn) Kill(win xproto.Window) { f.killed = append(f.killed, win) }

func (f *fakeConn) SendProtocol(win xproto.Window, protocol string, t xproto.Timestamp, extra ...uint32) {
	f.sent = append(f.sent, sentMessage{win, protocol, extra})
}

func (f *fakeConn) GrabPointer(c Cursor, t xproto.Timestamp) error {
	f.pointerGrabbed = true
	return nil
}

func (f *fakeConn) UngrabPointer(t xproto.Timestamp)      { f.pointerGrabbed = false }
func (f *fakeConn) WarpPointer(x, y int)                  { f.warped = append(f.warped, [2]int{x, y}) }
func (f *fakeConn) AllowReplayPointer(t xproto.Timestamp) {}

func (f *fakeConn) Keycodes(key string) []xproto.Keycode {
	if c, ok := f.codes[key]; ok {
		return []xproto.Keycode{c}
	}
	c := xproto.Keycode(len(f.codes) + 10)
	f.codes[key] = c
	return []xproto.Keycode{c}
}

func (f *fakeConn) Keysym(code xproto.Keycode, column int) xproto.Keysym {
	return xproto.Keysym(code)
}

func (f *fakeConn) RefreshKeyboard()                         {}
func (f *fakeConn) GrabKey(mods uint16, code xproto.Keycode) { f.keyGrabs++ }
func (f *fakeConn) UngrabKeys()                              { f.keyGrabs = 0 }

func (f *fakeConn) GrabButton(win xproto.Window, mods uint16, button xproto.Button, sync bool) {
	f.win(win).buttonGrabbed = true
}

func (f *fakeConn) UngrabButtons(win xproto.Window) { f.win(win).buttonGrabbed = false }

func (f *fakeConn) Name(win xproto.Window) string { return f.win(win).name }

func (f *fakeConn) Class(win xproto.Window) (string, string) {
	w := f.win(win)
	return w.instance, w.class
}

var errNoProperty = errors.New("no such property")

func (f *fakeConn) Hints(win xproto.Window) (*icccm.Hints, error) {
	if h := f.win(win).hints; h != nil {
		return h, nil
	}
	return nil, errNoProperty
}

func (f *fakeConn) NormalHints(win xproto.Window) (*icccm.NormalHints, error) {
	if h := f.win(win).normalHints; h != nil {
		return h, nil
	}
	return nil, errNoProperty
}

func (f *fakeConn) TransientFor(win xproto.Window) (xproto.Window, error) {
	if t := f.win(win).transient; t != 0 {
		return t, nil
	}
	return 0, errNoProperty
}

func (f *fakeConn) Protocols(win xproto.Window) ([]string, error) {
	return f.win(win).protocols, nil
}

func (f *fakeConn) WMState(win xproto.Window) (uint, error) {
	if s := f.win(win).wmState; s != nil {
		return *s, nil
	}
	return 0, errNoProperty
}

func (f *fakeConn) SetWMState(win xproto.Window, state uint) { f.win(win).wmState = &state }

func (f *fakeConn) WindowTypes(win xproto.Window) ([]string, error) {
	return f.win(win).types, nil
}

func (f *fakeConn) NetState(win xproto.Window) ([]string, error) {
	return f.win(win).netState, nil
}

func (f *fakeConn) SetNetState(win xproto.Window, atoms []string) {
	f.win(win).netState = append([]string(nil), atoms...)
}

func (f *fakeConn) Desktop(win xproto.Window) (uint, error) {
	if d := f.win(win).desktop; d != nil {
		return *d, nil
	}
	return 0, errNoProperty
}

func (f *fakeConn) SetDesktop(win xproto.Window, d uint) { f.win(win).desktop = &d }

func (f *fakeConn) DeleteProperty(win xproto.Window, name string) {
	w := f.win(win)
	switch name {
	case "_NET_WM_STATE":
		w.netState = nil
	case "_NET_WM_DESKTOP":
		w.desktop = nil
	}
}

func (f *fakeConn) SetFrameExtents(win xproto.Window)                     {}
func (f *fakeConn) SetAllowedActions(win xproto.Window, actions []string) {}

func (f *fakeConn) Strut(win xproto.Window) (Strut, error) {
	if s := f.win(win).strut; s != nil {
		return *s, nil
	}
	return Strut{}, errNoProperty
}

func (f *fakeConn) UserTime(win xproto.Window) (uint, error) {
	if t := f.win(win).userTime; t != nil {
		return *t, nil
	}
	return 0, errNoProperty
}

func (f *fakeConn) UserTimeWindow(win xproto.Window) (xproto.Window, error) {
	return 0, errNoProperty
}

func (f *fakeConn) SyncCounter(win xproto.Window) (uint32, error) { return 0, errNoProperty }

func (f *fakeConn) FullscreenMonitors(win xproto.Window) ([4]uint, error) {
	return [4]uint{}, errNoProperty
}

func (f *fakeConn) SetFullscreenMonitors(win xproto.Window, m [4]uint) {}

func (f *fakeConn) SetSupported(atoms []string) { f.supported = atoms }

func (f *fakeConn) SetSupportingWMCheck(checker xproto.Window, name string) {}

func (f *fakeConn) SetNumberOfDesktops(n uint)           { f.numDesktops = n }
func (f *fakeConn) SetDesktopNames(names []string)       { f.desktopNames = names }
func (f *fakeConn) SetDesktopGeometry(width, height int) {}
func (f *fakeConn) SetDesktopViewport(n int)             {}
func (f *fakeConn) SetWorkarea(areas []layout.Rect)      { f.workareas = areas }
func (f *fakeConn) SetCurrentDesktop(d uint)             { f.currentDesktop = d }
func (f *fakeConn) SetActiveWindow(win xproto.Window)    { f.active = win }

func (f *fakeConn) SetClientList(wins []xproto.Window) {
	f.clientList = append([]xproto.Window(nil), wins...)
}

func (f *fakeConn) SetClientListStacking(wins []xproto.Window) {
	f.stacking = append([]xproto.Window(nil), wins...)
}

func (f *fakeConn) SetShowingDesktop(on bool) { f.showing = on }

func (f *fakeConn) CreateBar(r layout.Rect, bg uint32) (xproto.Window, error) {
	f.nextID++
	f.windows[f.nextID] = &fakeWindow{geom: r, override: true, mapped: true}
	return f.nextID, nil
}

func (f *fakeConn) MoveBar(bar xproto.Window, r layout.Rect) { f.win(bar).geom = r }

func (f *fakeConn) DrawBar(bar xproto.Window, r layout.Rect, bg uint32, texts []BarText) {
	f.bars[bar] = texts
}

func (f *fakeConn) TextWidth(text string) int { return 6 * len(text) }

// Test harness.

var scenarioMonitor = MonitorInfo{Name: "DP-1", Output: 1, Rect: layout.Rect{Width: 1920, Height: 1080}}

type harness struct {
	t    *testing.T
	wm   *WM
	conn *fakeConn
	now  time.Time
}

func newHarness(t *testing.T, cfg *config.Config, monitors ...MonitorInfo) *harness {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	if len(monitors) == 0 {
		monitors = []MonitorInfo{scenarioMonitor}
	}
	h := &harness{t: t, conn: newFakeConn(monitors...), now: time.Unix(1000, 0)}
	h.wm = New(h.conn, cfg, Options{})
	h.wm.now = func() time.Time { return h.now }
	h.wm.spawn = func(string) error { return nil }
	if err := h.wm.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	h.check()
	return h
}

// process handles ev and every event it caused, then verifies the
// model invariants.
func (h *harness) process(ev xgb.Event) error {
	h.t.Helper()
	err := h.wm.handleEvent(ev, nil)
	for len(h.conn.events) > 0 {
		next := h.conn.events[0]
		h.conn.events = h.conn.events[1:]
		h.wm.handleEvent(next, nil)
	}
	h.check()
	return err
}

// mapWindow creates a window and sends its MapRequest.
func (h *harness) mapWindow(setup func(*fakeWindow)) xproto.Window {
	h.t.Helper()
	win := h.conn.create(layout.Rect{X: 0, Y: 0, Width: 400, Height: 300})
	if setup != nil {
		setup(h.conn.windows[win])
	}
	h.process(xproto.MapRequestEvent{Parent: h.conn.root, Window: win})
	return win
}

func (h *harness) message(win xproto.Window, name string, data ...uint32) error {
	h.t.Helper()
	for len(data) < 5 {
		data = append(data, 0)
	}
	return h.process(xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   h.conn.atom(name),
		Data:   xproto.ClientMessageDataUnionData32New(data),
	})
}

func (h *harness) client(win xproto.Window) *Client {
	h.t.Helper()
	c, err := h.wm.client(win)
	if err != nil {
		h.t.Fatalf("client(%#x): %v", win, err)
	}
	return c
}

func (h *harness) workspace(m, ws int) []xproto.Window {
	return h.wm.monitors[m].Workspaces[ws].Windows
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int)
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

// check verifies the invariants that must hold after every event.
func (h *harness) check() {
	h.t.Helper()
	w, f := h.wm, h.conn
	count := make(map[xproto.Window]int)
	for m, mon := range w.monitors {
		for i, ws := range mon.Workspaces {
			for _, win := range ws.Windows {
				count[win]++
				c := w.clients[win]
				if c == nil {
					h.t.Errorf("workspace %d/%d lists unknown window %#x", m, i, win)
					continue
				}
				if c.Kind != KindTiled || c.Monitor != m || c.Workspace != i {
					h.t.Errorf("window %#x listed on %d/%d but is %v on %d/%d", win, m, i, c.Kind, c.Monitor, c.Workspace)
				}
			}
		}
	}
	for _, c := range w.clients {
		switch c.Kind {
		case KindTiled:
			if count[c.ID] != 1 {
				h.t.Errorf("tiled window %#x listed %d times", c.ID, count[c.ID])
			}
		default:
			if count[c.ID] != 0 {
				h.t.Errorf("%v window %#x listed in a workspace", c.Kind, c.ID)
			}
		}
		if got := f.win(c.ID).netState; !sameSet(got, c.State.Atoms()) {
			h.t.Errorf("window %#x _NET_WM_STATE = %v, want %v", c.ID, got, c.State.Atoms())
		}
		if c.managedKind() {
			want := uint(icccm.StateNormal)
			if c.Iconic {
				want = icccm.StateIconic
			}
			if st := f.win(c.ID).wmState; st == nil || *st != want {
				h.t.Errorf("window %#x WM_STATE = %v, want %d", c.ID, st, want)
			}
		}
		d := f.win(c.ID).desktop
		if d == nil || (*d != stickyDesktop && int(*d) >= len(w.monitors)*w.wpm) {
			h.t.Errorf("window %#x has invalid desktop %v", c.ID, d)
		}
	}
	if len(w.monitors) > 0 {
		want := uint(w.focusedMonitor*w.wpm + w.monitors[w.focusedMonitor].Current)
		if f.currentDesktop != want {
			h.t.Errorf("_NET_CURRENT_DESKTOP = %d, want %d", f.currentDesktop, want)
		}
	}
	if len(f.clientList) != len(w.clients) {
		h.t.Errorf("_NET_CLIENT_LIST has %d entries, registry %d", len(f.clientList), len(w.clients))
	}
	seen := make(map[xproto.Window]bool)
	var last uint64
	for _, win := range f.clientList {
		c := w.clients[win]
		if c == nil || seen[win] || c.Order <= last {
			h.t.Errorf("_NET_CLIENT_LIST = %v is not the registry in creation order", f.clientList)
			break
		}
		seen[win] = true
		last = c.Order
	}
	if w.active != 0 {
		c := w.clients[w.active]
		if c == nil || !c.eligible() || c.Iconic {
			h.t.Errorf("active window %#x is not focusable", w.active)
		}
	}
	if f.active != w.active {
		h.t.Errorf("_NET_ACTIVE_WINDOW = %#x, want %#x", f.active, w.active)
	}
}
