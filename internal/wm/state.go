package wm

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
)

// State is the set of EWMH state flags of a client. Every flag maps to
// exactly one _NET_WM_STATE atom.
type State uint32

const (
	StateModal State = 1 << iota
	StateSticky
	StateMaximizedVert
	StateMaximizedHorz
	StateShaded
	StateSkipTaskbar
	StateSkipPager
	StateHidden
	StateFullscreen
	StateAbove
	StateBelow
	StateDemandsAttention
	StateFocused

	stateMaximized = StateMaximizedVert | StateMaximizedHorz
)

var stateAtoms = []struct {
	flag State
	atom string
}{
	{StateModal, "_NET_WM_STATE_MODAL"},
	{StateSticky, "_NET_WM_STATE_STICKY"},
	{StateMaximizedVert, "_NET_WM_STATE_MAXIMIZED_VERT"},
	{StateMaximizedHorz, "_NET_WM_STATE_MAXIMIZED_HORZ"},
	{StateShaded, "_NET_WM_STATE_SHADED"},
	{StateSkipTaskbar, "_NET_WM_STATE_SKIP_TASKBAR"},
	{StateSkipPager, "_NET_WM_STATE_SKIP_PAGER"},
	{StateHidden, "_NET_WM_STATE_HIDDEN"},
	{StateFullscreen, "_NET_WM_STATE_FULLSCREEN"},
	{StateAbove, "_NET_WM_STATE_ABOVE"},
	{StateBelow, "_NET_WM_STATE_BELOW"},
	{StateDemandsAttention, "_NET_WM_STATE_DEMANDS_ATTENTION"},
	{StateFocused, "_NET_WM_STATE_FOCUSED"},
}

// Atoms returns the _NET_WM_STATE atom names for s.
func (s State) Atoms() []string {
	atoms := []string{}
	for _, sa := range stateAtoms {
		if s&sa.flag != 0 {
			atoms = append(atoms, sa.atom)
		}
	}
	return atoms
}

func stateFromAtom(name string) State {
	for _, sa := range stateAtoms {
		if sa.atom == name {
			return sa.flag
		}
	}
	return 0
}

func stateFromAtoms(names []string) State {
	var s State
	for _, n := range names {
		s |= stateFromAtom(n)
	}
	return s
}

func (w *WM) publishState(c *Client) {
	w.conn.SetNetState(c.ID, c.State.Atoms())
}

// setFlag flips plain flags that need no geometry change.
func (w *WM) setFlag(c *Client, s State, on bool) {
	old := c.State
	if on {
		c.State |= s
	} else {
		c.State &^= s
	}
	if c.State != old {
		w.publishState(c)
	}
}

// SetFullscreen makes win cover its monitor, or the monitors selected
// by _NET_WM_FULLSCREEN_MONITORS, or restores it.
func (w *WM) SetFullscreen(win xproto.Window, on bool) error {
	c, err := w.client(win)
	if err != nil {
		return err
	}
	w.setFullscreen(c, on)
	return nil
}

func (w *WM) setFullscreen(c *Client, on bool) {
	if !c.managedKind() || c.fullscreen() == on {
		return
	}
	if on {
		c.FullscreenRestore = c.Geom
		if c.Kind == KindFloating {
			c.FullscreenRestore = c.Floating
		}
		c.prefullscreen = c.State & (stateMaximized | StateAbove | StateBelow)
		c.State &^= StateAbove | StateBelow | stateMaximized
		c.State |= StateFullscreen
		w.publishState(c)
		w.applyFullscreen(c)
	} else {
		c.State &^= StateFullscreen
		c.State |= c.prefullscreen
		c.prefullscreen = 0
		w.publishState(c)
		if c.Kind == KindFloating {
			c.Floating = c.FullscreenRestore
			if c.State&stateMaximized != 0 {
				w.applyMaximized(c)
			} else {
				w.configure(c, c.Floating, w.borderWidth(c))
			}
		}
	}
	w.arrange(c.Monitor)
	w.restack()
}

// fullscreenRect is the area a fullscreen client covers.
func (w *WM) fullscreenRect(c *Client) layout.Rect {
	if fm := c.FullscreenMonitors; fm != nil {
		var r layout.Rect
		valid := true
		for _, idx := range fm {
			if int(idx) >= len(w.monitors) {
				valid = false
				break
			}
			r = r.Union(w.monitors[idx].Rect)
		}
		if valid {
			return r
		}
	}
	return w.monitors[c.Monitor].Rect
}

func (w *WM) applyFullscreen(c *Client) {
	w.configure(c, w.fullscreenRect(c), 0)
}

// SetModal sets or clears the modal flag; modal windows stay above.
func (w *WM) setModal(c *Client, on bool) {
	if on {
		c.premodal = c.State & (StateAbove | StateBelow)
		c.State |= StateModal | StateAbove
		c.State &^= StateBelow
	} else {
		c.State &^= StateModal | StateAbove | StateBelow
		c.State |= c.premodal
		c.premodal = 0
	}
	w.publishState(c)
	w.restack()
}

// setMaximized applies the two maximized flags. Tiled clients only
// record the flags since the layout already fills the screen.
func (w *WM) setMaximized(c *Client, horz, vert bool) {
	var want State
	if horz {
		want |= StateMaximizedHorz
	}
	if vert {
		want |= StateMaximizedVert
	}
	if c.fullscreen() {
		c.prefullscreen = want
		return
	}
	old := c.State & stateMaximized
	if old == want {
		return
	}
	if old == 0 && c.Kind == KindFloating {
		c.MaximizeRestore = c.Floating
	}
	c.State = c.State&^stateMaximized | want
	w.publishState(c)
	if c.Kind == KindFloating {
		w.applyMaximized(c)
	}
}

func (w *WM) applyMaximized(c *Client) {
	r := c.MaximizeRestore
	if c.State&stateMaximized == 0 {
		c.Floating = r
		w.configure(c, r, w.borderWidth(c))
		return
	}
	area := w.monitors[c.Monitor].WorkArea
	r = layout.Maximize(r, area, w.borderWidth(c), c.Has(StateMaximizedHorz), c.Has(StateMaximizedVert))
	c.Floating = r
	w.configure(c, r, w.borderWidth(c))
}

// setAbove and setBelow are mutually exclusive stacking layers.
func (w *WM) setAbove(c *Client, on bool) {
	if on {
		c.State = c.State&^StateBelow | StateAbove
	} else {
		c.State &^= StateAbove
	}
	w.publishState(c)
	w.restack()
}

func (w *WM) setBelow(c *Client, on bool) {
	if on {
		c.State = c.State&^StateAbove | StateBelow
	} else {
		c.State &^= StateBelow
	}
	w.publishState(c)
	w.restack()
}

// setSticky pins c to every workspace of its monitor.
func (w *WM) setSticky(c *Client, on bool) {
	if c.sticky() == on || !c.managedKind() {
		return
	}
	w.setFlag(c, StateSticky, on)
	w.publishDesktop(c)
	w.arrange(c.Monitor)
	w.applyVisibility(c.Monitor)
}

// Iconify hides win until it is activated again.
func (w *WM) Iconify(win xproto.Window) error {
	c, err := w.client(win)
	if err != nil {
		return err
	}
	w.iconify(c)
	return nil
}

func (w *WM) iconify(c *Client) {
	if c.Iconic || !c.managedKind() {
		return
	}
	c.Iconic = true
	c.State = c.State&^StateFocused | StateHidden
	w.publishState(c)
	w.conn.SetWMState(c.ID, icccm.StateIconic)
	w.unmapByWM(c)
	if w.active == c.ID {
		w.active = 0
		w.focusFallback(c.Monitor)
	}
	w.arrange(c.Monitor)
}

// Deiconify shows win again and optionally focuses it.
func (w *WM) Deiconify(win xproto.Window, focus bool) error {
	c, err := w.client(win)
	if err != nil {
		return err
	}
	w.deiconify(c, focus)
	return nil
}

func (w *WM) deiconify(c *Client, focus bool) {
	if !c.Iconic {
		if focus && w.visible(c) && c.eligible() {
			w.focus(c)
		}
		return
	}
	c.Iconic = false
	w.setFlag(c, StateHidden, false)
	w.conn.SetWMState(c.ID, icccm.StateNormal)
	w.arrange(c.Monitor)
	w.applyVisibility(c.Monitor)
	if focus && w.visible(c) && c.eligible() {
		w.focus(c)
	}
	log.WithField("window", c.ID).Debug("deiconified")
}
