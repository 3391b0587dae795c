package wm

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/intio/lwm/internal/layout"
)

// Snapshot is the bar state: what a status bar needs to draw every
// monitor. It is broadcast to subscribers whenever it changes.
type Snapshot struct {
	Monitors       []MonitorView `json:"monitors"`
	FocusedMonitor int           `json:"focused_monitor"`
	CurrentDesktop uint          `json:"current_desktop"`
	Active         uint32        `json:"active"`
	ActiveTitle    string        `json:"active_title"`
}

type MonitorView struct {
	Name       string          `json:"name"`
	Rect       layout.Rect     `json:"rect"`
	WorkArea   layout.Rect     `json:"work_area"`
	Current    int             `json:"current"`
	Workspaces []WorkspaceView `json:"workspaces"`
}

type WorkspaceView struct {
	Name    string `json:"name"`
	Windows int    `json:"windows"`
	Urgent  bool   `json:"urgent"`
}

// ClientView is a read-only copy of a client for the API.
type ClientView struct {
	ID        uint32      `json:"id"`
	Kind      string      `json:"kind"`
	Monitor   int         `json:"monitor"`
	Workspace int         `json:"workspace"`
	Desktop   uint        `json:"desktop"`
	Name      string      `json:"name"`
	Class     string      `json:"class"`
	Instance  string      `json:"instance"`
	Geometry  layout.Rect `json:"geometry"`
	State     []string    `json:"state"`
	Iconic    bool        `json:"iconic"`
	Focused   bool        `json:"focused"`
}

func (w *WM) snapshot() Snapshot {
	s := Snapshot{
		FocusedMonitor: w.focusedMonitor,
		CurrentDesktop: w.currentDesktop(),
		Active:         uint32(w.active),
	}
	if c := w.clients[w.active]; c != nil {
		s.ActiveTitle = c.Name
	}
	for m, mon := range w.monitors {
		mv := MonitorView{
			Name:     mon.Name,
			Rect:     mon.Rect,
			WorkArea: mon.WorkArea,
			Current:  mon.Current,
		}
		for i, ws := range mon.Workspaces {
			mv.Workspaces = append(mv.Workspaces, WorkspaceView{
				Name:    ws.Name,
				Windows: w.countOn(m, i),
				Urgent:  w.urgentOn(m, i),
			})
		}
		s.Monitors = append(s.Monitors, mv)
	}
	return s
}

// countOn counts the tiled and floating windows of one workspace.
func (w *WM) countOn(m, ws int) int {
	n := 0
	for _, c := range w.clients {
		if c.managedKind() && c.Monitor == m && c.Workspace == ws {
			n++
		}
	}
	return n
}

func (w *WM) urgentOn(m, ws int) bool {
	for _, c := range w.clients {
		if c.managedKind() && c.Monitor == m && c.Workspace == ws && c.Has(StateDemandsAttention) {
			return true
		}
	}
	return false
}

func (w *WM) clientView(c *Client) ClientView {
	r := c.Geom
	if c.Kind == KindFloating && !c.fullscreen() {
		r = c.Floating
	}
	return ClientView{
		ID:        uint32(c.ID),
		Kind:      c.Kind.String(),
		Monitor:   c.Monitor,
		Workspace: c.Workspace,
		Desktop:   w.desktopOf(c),
		Name:      c.Name,
		Class:     c.Class,
		Instance:  c.Instance,
		Geometry:  r,
		State:     c.State.Atoms(),
		Iconic:    c.Iconic,
		Focused:   c.ID == w.active,
	}
}

// State returns the current bar state. It reports false once the
// event loop has stopped.
func (w *WM) State() (s Snapshot, ok bool) {
	ok = w.Do(func() { s = w.snapshot() })
	return s, ok
}

// Clients lists all clients in creation order.
func (w *WM) Clients() (views []ClientView, ok bool) {
	ok = w.Do(func() {
		for _, c := range w.sortedClients() {
			views = append(views, w.clientView(c))
		}
	})
	return views, ok
}

// ClientInfo describes a single client.
func (w *WM) ClientInfo(win xproto.Window) (v ClientView, err error) {
	if !w.Do(func() {
		var c *Client
		if c, err = w.client(win); err == nil {
			v = w.clientView(c)
		}
	}) {
		return v, ErrQuit
	}
	return v, err
}

// Monitors lists the monitors.
func (w *WM) Monitors() (views []MonitorView, ok bool) {
	ok = w.Do(func() { views = w.snapshot().Monitors })
	return views, ok
}

// Subscribe returns a channel receiving the bar state on every change,
// starting with the current one, and a function to stop the stream.
// Slow readers miss intermediate states.
func (w *WM) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 4)
	if !w.Do(func() {
		w.subs[ch] = struct{}{}
		ch <- w.snapshot()
	}) {
		close(ch)
		return ch, func() {}
	}
	return ch, func() {
		w.Do(func() {
			if _, ok := w.subs[ch]; ok {
				delete(w.subs, ch)
				close(ch)
			}
		})
	}
}

func (w *WM) broadcast(s Snapshot) {
	for ch := range w.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (w *WM) closeSubscribers() {
	for ch := range w.subs {
		delete(w.subs, ch)
		close(ch)
	}
}

// SetSticky pins or unpins win on behalf of the API.
func (w *WM) SetSticky(win xproto.Window, on bool) error {
	c, err := w.client(win)
	if err != nil {
		return err
	}
	w.setSticky(c, on)
	return nil
}

// MoveToDesktop moves win to an EWMH desktop, as _NET_WM_DESKTOP does.
func (w *WM) MoveToDesktop(win xproto.Window, d uint) error {
	c, err := w.client(win)
	if err != nil {
		return err
	}
	if d != stickyDesktop {
		if _, _, ok := decodeDesktop(d, len(w.monitors), w.wpm); !ok {
			return ErrMalformedMessage
		}
	}
	w.desktopRequest(c, d)
	return nil
}

// SwitchDesktop shows an EWMH desktop, as _NET_CURRENT_DESKTOP does.
func (w *WM) SwitchDesktop(d uint) error {
	m, ws, ok := decodeDesktop(d, len(w.monitors), w.wpm)
	if !ok {
		return ErrMalformedMessage
	}
	w.switchWorkspace(m, ws)
	return nil
}
