package wm

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
)

// handleEvent routes one event to its handler, then expires overdue
// pending kills and commits the result to the server.
func (w *WM) handleEvent(xev xgb.Event, xerr xgb.Error) (err error) {
	if xerr != nil {
		// Requests against windows that went away in the meantime.
		log.WithField("error", xerr).Debug("request failed")
		return nil
	}
	w.recordTime(xev)
	switch e := xev.(type) {
	case xproto.KeyPressEvent:
		err = w.handleKeyPressEvent(e)
	case xproto.KeyReleaseEvent:
		w.handleKeyReleaseEvent(e)
	case xproto.ButtonPressEvent:
		w.handleButtonPressEvent(e)
	case xproto.ButtonReleaseEvent:
		w.endDrag(int(e.RootX), int(e.RootY), e.Time)
	case xproto.MotionNotifyEvent:
		w.handleMotionNotifyEvent(e)
	case xproto.EnterNotifyEvent:
		w.handleEnterNotifyEvent(e)
	case xproto.MapRequestEvent:
		w.handleMapRequest(e.Window)
	case xproto.UnmapNotifyEvent:
		w.handleUnmapNotify(e.Window)
	case xproto.DestroyNotifyEvent:
		w.handleDestroyNotify(e.Window)
	case xproto.ConfigureRequestEvent:
		w.handleConfigureRequestEvent(e)
	case xproto.ConfigureNotifyEvent:
		if e.Window == w.conn.Root() {
			w.updateMonitors()
		}
	case xproto.PropertyNotifyEvent:
		w.handlePropertyNotifyEvent(e)
	case xproto.ClientMessageEvent:
		err = w.handleClientMessageEvent(e)
	case xproto.ExposeEvent:
		if e.Count == 0 {
			w.redrawBar(e.Window)
		}
	case xproto.SelectionClearEvent:
		if e.Owner == w.selectionWin {
			log.Info("window manager selection taken over, exiting")
			err = ErrQuit
		}
	case xproto.MappingNotifyEvent:
		if e.Request != xproto.MappingPointer {
			w.conn.RefreshKeyboard()
			w.grabKeys()
		}
	case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
		w.updateMonitors()
	}
	w.expirePending()
	w.commit()
	return err
}

// recordTime remembers the latest server timestamp so focus and grab
// requests never fall back to CurrentTime.
func (w *WM) recordTime(xev xgb.Event) {
	var t xproto.Timestamp
	switch e := xev.(type) {
	case xproto.KeyPressEvent:
		t = e.Time
	case xproto.KeyReleaseEvent:
		t = e.Time
	case xproto.ButtonPressEvent:
		t = e.Time
	case xproto.ButtonReleaseEvent:
		t = e.Time
	case xproto.MotionNotifyEvent:
		t = e.Time
	case xproto.EnterNotifyEvent:
		t = e.Time
	case xproto.LeaveNotifyEvent:
		t = e.Time
	case xproto.PropertyNotifyEvent:
		t = e.Time
	case xproto.SelectionClearEvent:
		t = e.Time
	}
	if t != 0 {
		w.lastTime = t
	}
}

func (w *WM) handleEnterNotifyEvent(e xproto.EnterNotifyEvent) {
	if e.Mode != xproto.NotifyModeNormal || e.Detail == xproto.NotifyDetailInferior {
		return
	}
	if w.drag.kind != dragIdle {
		return
	}
	if e.Event == w.conn.Root() {
		w.pointerMonitor(int(e.RootX), int(e.RootY))
		return
	}
	if c := w.clients[e.Event]; c != nil && c.ID != w.active && w.focusable(c) {
		w.focus(c)
	}
}

// handleMotionNotifyEvent drives drags. Outside of a drag it gives
// the focus back to the window under the pointer when a newer window
// took it while the pointer stayed put.
func (w *WM) handleMotionNotifyEvent(e xproto.MotionNotifyEvent) {
	if w.drag.kind != dragIdle {
		w.dragMotion(int(e.RootX), int(e.RootY))
		return
	}
	if e.Event != w.conn.Root() {
		return
	}
	if e.Child == 0 {
		w.pointerMonitor(int(e.RootX), int(e.RootY))
		return
	}
	if c := w.clients[e.Child]; c != nil && c.ID != w.active && w.focusable(c) {
		w.focus(c)
	}
}

// pointerMonitor makes the monitor under the pointer the focused one.
func (w *WM) pointerMonitor(x, y int) {
	m, ok := w.monitorAt(x, y)
	if !ok || m == w.focusedMonitor {
		return
	}
	w.focusedMonitor = m
	w.publishCurrentDesktop()
	if c := w.clients[w.active]; c == nil || c.Monitor != m {
		w.focusFallback(m)
	}
}

func (w *WM) handleConfigureRequestEvent(e xproto.ConfigureRequestEvent) {
	c := w.clients[e.Window]
	if c == nil || !c.managedKind() {
		w.passConfigure(e)
		if c != nil {
			if r, err := w.conn.Geometry(c.ID); err == nil {
				c.Geom = r
			}
		}
		return
	}
	switch {
	case c.fullscreen():
		w.conn.SendConfigureNotify(c.ID, c.Geom, 0)
	case c.Kind == KindTiled:
		w.conn.SendConfigureNotify(c.ID, c.Geom, c.border)
	default:
		m := e.ValueMask
		w.floatingRequest(c,
			m&xproto.ConfigWindowX != 0, m&xproto.ConfigWindowY != 0,
			m&xproto.ConfigWindowWidth != 0, m&xproto.ConfigWindowHeight != 0,
			int(e.X), int(e.Y), int(e.Width), int(e.Height))
		if m&xproto.ConfigWindowStackMode != 0 {
			w.restackRequest(c, e.StackMode)
		}
		w.conn.SendConfigureNotify(c.ID, c.Geom, c.border)
	}
}

// passConfigure forwards a request of a window we do not lay out.
func (w *WM) passConfigure(e xproto.ConfigureRequestEvent) {
	var values []uint32
	m := e.ValueMask
	if m&xproto.ConfigWindowX != 0 {
		values = append(values, uint32(e.X))
	}
	if m&xproto.ConfigWindowY != 0 {
		values = append(values, uint32(e.Y))
	}
	if m&xproto.ConfigWindowWidth != 0 {
		values = append(values, uint32(e.Width))
	}
	if m&xproto.ConfigWindowHeight != 0 {
		values = append(values, uint32(e.Height))
	}
	if m&xproto.ConfigWindowBorderWidth != 0 {
		values = append(values, uint32(e.BorderWidth))
	}
	if m&xproto.ConfigWindowSibling != 0 {
		values = append(values, uint32(e.Sibling))
	}
	if m&xproto.ConfigWindowStackMode != 0 {
		values = append(values, uint32(e.StackMode))
	}
	w.conn.Configure(e.Window, m, values)
}

func (w *WM) handlePropertyNotifyEvent(e xproto.PropertyNotifyEvent) {
	name := w.conn.AtomName(e.Atom)
	if owner, ok := w.userTimeWindows[e.Window]; ok && name == "_NET_WM_USER_TIME" {
		if c := w.clients[owner]; c != nil {
			w.readUserTime(c)
		}
		return
	}
	c := w.clients[e.Window]
	if c == nil {
		return
	}
	switch name {
	case "WM_NAME", "_NET_WM_NAME":
		c.Name = w.conn.Name(c.ID)
	case "WM_NORMAL_HINTS":
		c.readNormalHints(w.conn)
		switch c.Kind {
		case KindTiled:
			w.arrange(c.Monitor)
		case KindFloating:
			r := layout.ApplyMinSize(c.Floating, c.minW, c.minH)
			if r != c.Floating {
				c.Floating = r
				if !c.fullscreen() {
					w.configure(c, r, w.borderWidth(c))
				}
			}
		}
	case "WM_PROTOCOLS":
		c.readProtocols(w.conn)
		c.readSyncCounter(w.conn)
	case "_NET_WM_SYNC_REQUEST_COUNTER":
		c.readSyncCounter(w.conn)
	case "_NET_WM_FULLSCREEN_MONITORS":
		c.readFullscreenMonitors(w.conn)
		if c.fullscreen() {
			w.applyFullscreen(c)
		}
	case "_NET_WM_USER_TIME":
		w.readUserTime(c)
	case "_NET_WM_USER_TIME_WINDOW":
		if c.UserTimeWindow != 0 {
			delete(w.userTimeWindows, c.UserTimeWindow)
			c.UserTimeWindow = 0
		}
		w.trackUserTime(c)
	case "WM_HINTS":
		urgent := c.readHints(w.conn)
		if c.ID != w.active {
			w.setFlag(c, StateDemandsAttention, urgent)
			w.setBorderColor(c)
		}
	case "WM_TRANSIENT_FOR":
		if t, err := w.conn.TransientFor(c.ID); err == nil {
			c.TransientFor = t
		}
	case "_NET_WM_STRUT", "_NET_WM_STRUT_PARTIAL":
		if c.Kind != KindDock {
			return
		}
		s, err := w.conn.Strut(c.ID)
		if err != nil {
			s = Strut{}
		}
		c.Strut = s
		w.recomputeWorkAreas()
		w.publishDesktops()
		w.arrangeAll()
	}
}
