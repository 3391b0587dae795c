package wm

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"
	log "github.com/sirupsen/logrus"
)

// _NET_WM_STATE actions.
const (
	stateRemove = iota
	stateAdd
	stateToggle
)

// _NET_ACTIVE_WINDOW source indications.
const sourceApplication = 1

// _NET_MOVERESIZE_WINDOW flag bits selecting the present coordinates.
const (
	moveResizeHasX = 1 << (8 + iota)
	moveResizeHasY
	moveResizeHasWidth
	moveResizeHasHeight
)

func malformed(name string, win xproto.Window) error {
	return fmt.Errorf("%s on window %#x: %w", name, win, ErrMalformedMessage)
}

// handleClientMessage implements the EWMH and ICCCM client message
// vocabulary.
func (w *WM) handleClientMessageEvent(ev xproto.ClientMessageEvent) error {
	name := w.conn.AtomName(ev.Type)
	if ev.Format != 32 {
		return malformed(name, ev.Window)
	}
	data := ev.Data.Data32
	if len(data) < 5 {
		return malformed(name, ev.Window)
	}

	// Messages about the root window or about windows we may not manage.
	switch name {
	case "_NET_CURRENT_DESKTOP":
		m, ws, ok := decodeDesktop(uint(data[0]), len(w.monitors), w.wpm)
		if !ok {
			return malformed(name, ev.Window)
		}
		w.switchWorkspace(m, ws)
		return nil
	case "_NET_SHOWING_DESKTOP":
		w.setShowingDesktop(data[0] != 0)
		return nil
	case "_NET_REQUEST_FRAME_EXTENTS":
		w.conn.SetFrameExtents(ev.Window)
		return nil
	case "WM_PROTOCOLS":
		if w.conn.AtomName(xproto.Atom(data[0])) == "_NET_WM_PING" {
			w.pong(xproto.Window(data[2]))
		}
		return nil
	case "_NET_WM_MOVERESIZE":
		if int(data[2]) == moveResizeCancel {
			w.cancelDrag()
			return nil
		}
	}

	c, err := w.client(ev.Window)
	if err != nil {
		return err
	}
	switch name {
	case "_NET_ACTIVE_WINDOW":
		if data[0] == sourceApplication && w.stealsFocus(uint(data[1])) {
			log.WithField("window", c.ID).Debug("refusing focus request")
			w.setFlag(c, StateDemandsAttention, true)
			w.setBorderColor(c)
			return nil
		}
		w.activate(c)
	case "_NET_WM_DESKTOP":
		w.desktopRequest(c, uint(data[0]))
	case "_NET_WM_STATE":
		if data[0] > stateToggle {
			return malformed(name, ev.Window)
		}
		var flags State
		for _, a := range data[1:3] {
			if a != 0 {
				flags |= stateFromAtom(w.conn.AtomName(xproto.Atom(a)))
			}
		}
		w.changeState(c, int(data[0]), flags)
	case "_NET_CLOSE_WINDOW":
		w.closeClient(c)
	case "_NET_MOVERESIZE_WINDOW":
		flags := data[0]
		if c.Kind != KindFloating {
			w.conn.SendConfigureNotify(c.ID, c.Geom, c.border)
			return nil
		}
		w.floatingRequest(c,
			flags&moveResizeHasX != 0, flags&moveResizeHasY != 0,
			flags&moveResizeHasWidth != 0, flags&moveResizeHasHeight != 0,
			int(int32(data[1])), int(int32(data[2])), int(data[3]), int(data[4]))
	case "_NET_WM_MOVERESIZE":
		w.moveResizeRequest(c, int(int32(data[0])), int(int32(data[1])), int(data[2]))
	case "_NET_RESTACK_WINDOW":
		w.restackRequest(c, byte(data[2]))
	case "WM_CHANGE_STATE":
		switch data[0] {
		case icccm.StateIconic:
			w.iconify(c)
		case icccm.StateNormal:
			w.deiconify(c, false)
		case icccm.StateWithdrawn:
			w.unmanage(c, true)
			w.conn.Unmap(c.ID)
		}
	case "_NET_WM_FULLSCREEN_MONITORS":
		fm := [4]uint{uint(data[0]), uint(data[1]), uint(data[2]), uint(data[3])}
		for _, idx := range fm {
			if int(idx) >= len(w.monitors) {
				return malformed(name, ev.Window)
			}
		}
		c.FullscreenMonitors = &fm
		w.conn.SetFullscreenMonitors(c.ID, fm)
		if c.fullscreen() {
			w.applyFullscreen(c)
		}
	default:
		log.WithField("window", c.ID).Debugf("ignoring client message %s", name)
	}
	return nil
}

// desktopRequest moves c to the desktop d, or makes it sticky for the
// all-ones value.
func (w *WM) desktopRequest(c *Client, d uint) {
	if !c.managedKind() {
		return
	}
	if d == stickyDesktop {
		w.setSticky(c, true)
		return
	}
	m, ws, ok := decodeDesktop(d, len(w.monitors), w.wpm)
	if !ok {
		log.WithField("window", c.ID).Debug(malformed("_NET_WM_DESKTOP", c.ID))
		return
	}
	w.setSticky(c, false)
	if m != c.Monitor {
		w.moveToMonitor(c, m)
	}
	w.moveToWorkspace(c, ws)
	w.publishDesktop(c)
}

// changeState applies a _NET_WM_STATE request to every flag in flags.
func (w *WM) changeState(c *Client, action int, flags State) {
	want := func(f State) bool {
		switch action {
		case stateAdd:
			return true
		case stateToggle:
			return !c.Has(f)
		}
		return false
	}
	if flags&stateMaximized != 0 {
		h, v := c.Has(StateMaximizedHorz), c.Has(StateMaximizedVert)
		if flags&StateMaximizedHorz != 0 {
			h = want(StateMaximizedHorz)
		}
		if flags&StateMaximizedVert != 0 {
			v = want(StateMaximizedVert)
		}
		w.setMaximized(c, h, v)
	}
	for _, sa := range stateAtoms {
		f := sa.flag
		if flags&f == 0 || f&stateMaximized != 0 {
			continue
		}
		on := want(f)
		switch f {
		case StateFullscreen:
			w.setFullscreen(c, on)
		case StateModal:
			if c.Has(f) != on {
				w.setModal(c, on)
			}
		case StateAbove:
			w.setAbove(c, on)
		case StateBelow:
			w.setBelow(c, on)
		case StateSticky:
			w.setSticky(c, on)
		case StateHidden:
			if on {
				w.iconify(c)
			} else {
				w.deiconify(c, false)
			}
		case StateDemandsAttention:
			if on && c.ID == w.active {
				continue
			}
			w.setFlag(c, f, on)
			w.setBorderColor(c)
		case StateFocused:
			// Owned by the focus policy.
		default:
			w.setFlag(c, f, on)
		}
	}
}

// restackRequest handles _NET_RESTACK_WINDOW. Only the order among
// floating windows can be changed.
func (w *WM) restackRequest(c *Client, mode byte) {
	if c.Kind != KindFloating {
		return
	}
	switch mode {
	case xproto.StackModeBelow, xproto.StackModeBottomIf:
		w.removeFloating(c.ID)
		w.floating = append([]xproto.Window{c.ID}, w.floating...)
	default:
		w.raiseFloating(c.ID)
	}
	w.restack()
}
