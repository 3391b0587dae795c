package wm

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
	"github.com/intio/lwm/internal/rules"
)

// Window types that are mapped without being managed.
var popupTypes = map[string]bool{
	"_NET_WM_WINDOW_TYPE_MENU":          true,
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": true,
	"_NET_WM_WINDOW_TYPE_POPUP_MENU":    true,
	"_NET_WM_WINDOW_TYPE_TOOLTIP":       true,
	"_NET_WM_WINDOW_TYPE_NOTIFICATION":  true,
	"_NET_WM_WINDOW_TYPE_COMBO":         true,
	"_NET_WM_WINDOW_TYPE_DND":           true,
}

// Window types that float by default.
var floatingTypes = map[string]bool{
	"_NET_WM_WINDOW_TYPE_DIALOG":  true,
	"_NET_WM_WINDOW_TYPE_UTILITY": true,
	"_NET_WM_WINDOW_TYPE_TOOLBAR": true,
	"_NET_WM_WINDOW_TYPE_SPLASH":  true,
}

// classify picks the kind of a new window from its EWMH types, its
// transient parent and its size hints. The second result is false
// for popups that are not managed at all.
func classify(types []string, transient bool, nh *icccm.NormalHints) (Kind, bool) {
	for _, t := range types {
		switch {
		case t == "_NET_WM_WINDOW_TYPE_DESKTOP":
			return KindDesktop, true
		case t == "_NET_WM_WINDOW_TYPE_DOCK":
			return KindDock, true
		case popupTypes[t]:
			return 0, false
		case floatingTypes[t]:
			return KindFloating, true
		}
	}
	if transient {
		return KindFloating, true
	}
	if nh != nil && nh.Flags&icccm.SizeHintPMinSize != 0 && nh.Flags&icccm.SizeHintPMaxSize != 0 &&
		nh.MinWidth != 0 && nh.MinWidth == nh.MaxWidth && nh.MinHeight == nh.MaxHeight {
		return KindFloating, true
	}
	return KindTiled, true
}

const clientEvents = xproto.EventMaskEnterWindow |
	xproto.EventMaskPropertyChange |
	xproto.EventMaskFocusChange

// manage starts managing win. adopting is set for windows found at
// startup, which keep their desktop and do not steal the focus.
func (w *WM) manage(win xproto.Window, adopting bool) {
	if _, ok := w.clients[win]; ok {
		return
	}
	attrs, err := w.conn.Attributes(win)
	if err != nil || attrs.OverrideRedirect {
		return
	}
	geom, err := w.conn.Geometry(win)
	if err != nil {
		log.WithError(err).WithField("window", win).Debug("cannot read geometry")
		return
	}
	types, _ := w.conn.WindowTypes(win)
	transient, err := w.conn.TransientFor(win)
	if err != nil {
		transient = 0
	}

	c := &Client{ID: win, Geom: geom, TransientFor: transient, mapped: attrs.Viewable}
	nh := c.readNormalHints(w.conn)
	kind, ok := classify(types, transient != 0, nh)
	if !ok {
		w.conn.Map(win)
		return
	}
	c.Kind = kind
	c.Name = w.conn.Name(win)
	c.Instance, c.Class = w.conn.Class(win)
	c.readProtocols(w.conn)
	urgent := c.readHints(w.conn)
	c.readSyncCounter(w.conn)
	c.readFullscreenMonitors(w.conn)

	switch kind {
	case KindDesktop, KindDock:
		w.manageSpecial(c)
		return
	}

	c.Monitor = w.focusedMonitor
	c.Workspace = w.monitors[c.Monitor].Current
	if p := w.clients[transient]; p != nil && p.managedKind() {
		c.Monitor, c.Workspace = p.Monitor, p.Workspace
	}

	netState, _ := w.conn.NetState(win)
	initial := stateFromAtoms(netState) &^ (StateFocused | StateHidden)
	if adopting {
		if d, err := w.conn.Desktop(win); err == nil {
			if d == stickyDesktop {
				initial |= StateSticky
			} else if m, ws, ok := decodeDesktop(d, len(w.monitors), w.wpm); ok {
				c.Monitor, c.Workspace = m, ws
			}
		}
	}
	if transient != 0 {
		initial |= StateSkipTaskbar | StateSkipPager
	}
	if urgent {
		initial |= StateDemandsAttention
	}
	if initial.has(StateModal) {
		c.premodal = initial & (StateAbove | StateBelow)
		initial = initial&^StateBelow | StateAbove
	}

	ov, matched := w.rules.Match(rules.Window{
		Class:     c.Class,
		Instance:  c.Instance,
		Title:     c.Name,
		Types:     types,
		Transient: transient != 0,
	})
	if matched {
		initial = w.applyRule(c, ov, initial)
	}

	iconic := w.initiallyIconic(win, adopting)
	w.addClient(c)
	w.conn.SelectInput(win, clientEvents)
	w.trackUserTime(c)

	mon := w.monitors[c.Monitor]
	if c.Kind == KindTiled {
		ws := mon.Workspaces[c.Workspace]
		ws.Windows = append(ws.Windows, c.ID)
	} else {
		if matched && ov.Geometry != nil {
			c.Floating = layout.ApplyMinSize(*ov.Geometry, max(c.minW, 1), max(c.minH, 1))
		} else {
			c.Floating = w.placeFloating(c, geom, nh)
		}
		if matched && ov.Center != nil && *ov.Center {
			c.Floating = layout.CenterIn(c.Floating, mon.WorkArea, mon.WorkArea, w.cfg.Appearance.BorderWidth)
		}
		w.floating = append(w.floating, c.ID)
	}

	// Geometry affecting states go first so the window is mapped in
	// its final shape.
	c.State = initial &^ (StateFullscreen | stateMaximized)
	w.conn.SetFrameExtents(win)
	w.conn.SetAllowedActions(win, allowedActions)
	w.publishState(c)
	w.publishDesktop(c)
	if c.Kind == KindFloating && !initial.has(StateFullscreen) {
		w.configure(c, c.Floating, w.borderWidth(c))
	}
	if initial&stateMaximized != 0 {
		w.setMaximized(c, initial.has(StateMaximizedHorz), initial.has(StateMaximizedVert))
	}
	if initial.has(StateFullscreen) {
		w.setFullscreen(c, true)
	}
	w.setBorderColor(c)
	w.grabButtons(c)
	w.publishClientList()

	if iconic {
		c.Iconic = true
		c.State |= StateHidden
		w.publishState(c)
		w.conn.SetWMState(win, icccm.StateIconic)
		if c.mapped {
			w.unmapByWM(c)
		}
		w.restack()
		return
	}
	w.conn.SetWMState(win, icccm.StateNormal)
	w.arrange(c.Monitor)
	w.applyVisibility(c.Monitor)
	w.restack()
	log.WithFields(log.Fields{"window": win, "kind": c.Kind, "class": c.Class}).Debug("managed")

	if adopting || !w.visible(c) || !c.eligible() {
		return
	}
	if w.stealsOnMap(c) {
		w.setFlag(c, StateDemandsAttention, true)
		w.setBorderColor(c)
		return
	}
	w.focus(c)
}

func (s State) has(f State) bool { return s&f == f }

// stealsOnMap reports whether a new window must not take the focus:
// its _NET_WM_USER_TIME is 0, or older than the active window's.
func (w *WM) stealsOnMap(c *Client) bool {
	if !c.hasUserTime {
		return false
	}
	return c.UserTime == 0 || w.stealsFocus(c.UserTime)
}

func (w *WM) initiallyIconic(win xproto.Window, adopting bool) bool {
	if adopting {
		if st, err := w.conn.WMState(win); err == nil {
			return st == icccm.StateIconic
		}
	}
	hints, err := w.conn.Hints(win)
	if err != nil {
		return false
	}
	return hints.Flags&icccm.HintState != 0 && hints.InitialState == icccm.StateIconic
}

// applyRule merges rule overrides into a client that is about to be
// managed and returns the adjusted initial state.
func (w *WM) applyRule(c *Client, ov rules.Overrides, initial State) State {
	if ov.Floating != nil {
		if *ov.Floating {
			c.Kind = KindFloating
		} else {
			c.Kind = KindTiled
		}
	}
	if ov.Monitor != nil && *ov.Monitor >= 0 && *ov.Monitor < len(w.monitors) {
		c.Monitor = *ov.Monitor
		c.Workspace = w.monitors[c.Monitor].Current
	}
	if ov.MonitorName != "" {
		if m, ok := w.monitorByName(ov.MonitorName); ok {
			c.Monitor = m
			c.Workspace = w.monitors[m].Current
		}
	}
	if ov.Workspace != nil && *ov.Workspace >= 0 && *ov.Workspace < w.wpm {
		c.Workspace = *ov.Workspace
	}
	if ov.WorkspaceName != "" {
		for i := 0; i < w.wpm; i++ {
			if w.cfg.Workspaces.Name(i) == ov.WorkspaceName {
				c.Workspace = i
				break
			}
		}
	}
	flag := func(p *bool, s State) {
		if p == nil {
			return
		}
		if *p {
			initial |= s
		} else {
			initial &^= s
		}
	}
	flag(ov.Fullscreen, StateFullscreen)
	flag(ov.Above, StateAbove)
	flag(ov.Below, StateBelow)
	flag(ov.Sticky, StateSticky)
	flag(ov.SkipTaskbar, StateSkipTaskbar)
	flag(ov.SkipPager, StateSkipPager)
	if ov.Geometry != nil && ov.Floating == nil {
		c.Kind = KindFloating
	}
	return initial
}

// manageSpecial handles desktop and dock windows. They live on every
// workspace and never take the focus.
func (w *WM) manageSpecial(c *Client) {
	w.addClient(c)
	w.conn.SelectInput(c.ID, xproto.EventMaskPropertyChange)
	w.conn.SetFrameExtents(c.ID)
	w.conn.SetWMState(c.ID, icccm.StateNormal)
	w.publishDesktop(c)
	w.publishState(c)
	if c.Kind == KindDock {
		if s, err := w.conn.Strut(c.ID); err == nil {
			c.Strut = s
		}
		w.recomputeWorkAreas()
		w.publishDesktops()
		w.arrangeAll()
	}
	w.publishClientList()
	w.mapClient(c)
	w.restack()
	log.WithFields(log.Fields{"window": c.ID, "kind": c.Kind}).Debug("managed")
}

// trackUserTime reads _NET_WM_USER_TIME, following
// _NET_WM_USER_TIME_WINDOW when the client uses a helper window.
func (w *WM) trackUserTime(c *Client) {
	if utw, err := w.conn.UserTimeWindow(c.ID); err == nil && utw != 0 && utw != c.ID {
		c.UserTimeWindow = utw
		w.userTimeWindows[utw] = c.ID
		w.conn.SelectInput(utw, xproto.EventMaskPropertyChange)
	}
	w.readUserTime(c)
}

func (w *WM) readUserTime(c *Client) {
	src := c.ID
	if c.UserTimeWindow != 0 {
		src = c.UserTimeWindow
	}
	if t, err := w.conn.UserTime(src); err == nil {
		c.UserTime = t
		c.hasUserTime = true
	}
}

// unmanage forgets c. With withdraw set the client unmapped itself
// and gets WM_STATE Withdrawn and its EWMH properties removed.
func (w *WM) unmanage(c *Client, withdraw bool) {
	if w.drag.win == c.ID && w.drag.kind != dragIdle {
		w.drag = drag{}
		w.conn.UngrabPointer(w.lastTime)
	}
	if c.Kind == KindTiled {
		for _, ws := range w.monitors[c.Monitor].Workspaces {
			ws.remove(c.ID)
		}
	}
	w.removeFloating(c.ID)
	delete(w.clients, c.ID)
	delete(w.wmUnmapped, c.ID)
	if c.UserTimeWindow != 0 {
		delete(w.userTimeWindows, c.UserTimeWindow)
	}
	w.forgetPending(c.ID)
	w.forgetFocused(c.ID)

	if withdraw {
		w.conn.SetWMState(c.ID, icccm.StateWithdrawn)
		w.conn.DeleteProperty(c.ID, "_NET_WM_STATE")
		w.conn.DeleteProperty(c.ID, "_NET_WM_DESKTOP")
	}
	if c.Kind == KindDock && !c.Strut.Empty() {
		w.recomputeWorkAreas()
		w.publishDesktops()
		w.arrangeAll()
	}
	w.arrange(c.Monitor)
	if w.active == c.ID {
		w.active = 0
		w.focusFallback(c.Monitor)
	}
	w.publishClientList()
	w.restack()
	log.WithField("window", c.ID).Debug("unmanaged")
}

// adopt manages the windows that already exist at startup.
func (w *WM) adopt() {
	children, err := w.conn.Children()
	if err != nil {
		log.WithError(err).Warn("cannot list existing windows")
		return
	}
	for _, win := range children {
		attrs, err := w.conn.Attributes(win)
		if err != nil || attrs.OverrideRedirect {
			continue
		}
		if !attrs.Viewable {
			st, err := w.conn.WMState(win)
			if err != nil || st != icccm.StateIconic {
				continue
			}
		}
		w.manage(win, true)
	}
}

func (w *WM) handleMapRequest(win xproto.Window) {
	if c := w.clients[win]; c != nil {
		if c.managedKind() {
			w.deiconify(c, true)
		} else {
			w.mapClient(c)
		}
		return
	}
	w.manage(win, false)
}

func (w *WM) handleUnmapNotify(win xproto.Window) {
	if n := w.wmUnmapped[win]; n > 0 {
		if n == 1 {
			delete(w.wmUnmapped, win)
		} else {
			w.wmUnmapped[win] = n - 1
		}
		return
	}
	if c := w.clients[win]; c != nil {
		c.mapped = false
		w.unmanage(c, true)
	}
}

func (w *WM) handleDestroyNotify(win xproto.Window) {
	delete(w.wmUnmapped, win)
	if owner, ok := w.userTimeWindows[win]; ok {
		delete(w.userTimeWindows, win)
		if c := w.clients[owner]; c != nil {
			c.UserTimeWindow = 0
		}
	}
	if c := w.clients[win]; c != nil {
		w.unmanage(c, false)
	}
}
