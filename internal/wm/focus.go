package wm

import (
	"github.com/BurntSushi/xgb/xproto"
	log "github.com/sirupsen/logrus"
)

// focusable reports whether c can take the focus right now.
func (w *WM) focusable(c *Client) bool {
	return c != nil && c.eligible() && !c.Iconic && w.visible(c)
}

// onWorkspace reports whether c is shown on workspace ws of monitor m.
func onWorkspace(c *Client, m, ws int) bool {
	return c.Monitor == m && (c.Workspace == ws || c.sticky())
}

// focusCandidate picks the window that should get the focus on
// monitor m when the focused window goes away.
func (w *WM) focusCandidate(m int) *Client {
	if m < 0 || m >= len(w.monitors) {
		return nil
	}
	mon := w.monitors[m]
	ws := mon.Workspaces[mon.Current]

	if c := w.clients[ws.Focused]; c != nil && onWorkspace(c, m, mon.Current) && w.focusable(c) {
		return c
	}
	for i := len(ws.Windows) - 1; i >= 0; i-- {
		if c := w.clients[ws.Windows[i]]; w.focusable(c) {
			return c
		}
	}
	for i, other := range mon.Workspaces {
		if i == mon.Current {
			continue
		}
		for j := len(other.Windows) - 1; j >= 0; j-- {
			if c := w.clients[other.Windows[j]]; c != nil && c.sticky() && w.focusable(c) {
				return c
			}
		}
	}
	for i := len(w.floating) - 1; i >= 0; i-- {
		c := w.clients[w.floating[i]]
		if c != nil && onWorkspace(c, m, mon.Current) && w.focusable(c) {
			return c
		}
	}
	return nil
}

// focusFallback focuses the best candidate on monitor m, or nothing.
func (w *WM) focusFallback(m int) {
	w.focus(w.focusCandidate(m))
}

// Focus gives win the input focus, switching to its workspace first.
func (w *WM) Focus(win xproto.Window) error {
	c, err := w.client(win)
	if err != nil {
		return err
	}
	w.activate(c)
	return nil
}

// activate brings c into view and focuses it.
func (w *WM) activate(c *Client) {
	if !c.managedKind() {
		return
	}
	if !c.sticky() && c.Workspace != w.monitors[c.Monitor].Current {
		w.switchWorkspace(c.Monitor, c.Workspace)
	}
	if c.Iconic {
		w.deiconify(c, true)
		return
	}
	if w.focusable(c) {
		w.focus(c)
	}
}

// focus commits the focus to c. A nil c clears the focus.
func (w *WM) focus(c *Client) {
	prev := w.clients[w.active]
	if c == nil {
		w.active = 0
		if prev != nil {
			w.unfocus(prev)
		}
		w.conn.SetInputFocus(w.checkerWin, w.lastTime)
		w.conn.SetActiveWindow(0)
		return
	}
	w.active = c.ID
	w.focusedMonitor = c.Monitor
	if prev != nil && prev != c {
		w.unfocus(prev)
	}
	c.State &^= StateDemandsAttention
	c.State |= StateFocused
	w.publishState(c)
	w.setBorderColor(c)
	w.conn.UngrabButtons(c.ID)
	w.grabButtons(c)

	if c.takeFocus {
		w.conn.SendProtocol(c.ID, "WM_TAKE_FOCUS", w.lastTime)
	}
	if c.input {
		w.conn.SetInputFocus(c.ID, w.lastTime)
	}
	w.conn.SetActiveWindow(c.ID)

	mon := w.monitors[c.Monitor]
	ws := c.Workspace
	if c.sticky() {
		ws = mon.Current
	}
	mon.Workspaces[ws].Focused = c.ID
	if c.Kind == KindFloating {
		w.raiseFloating(c.ID)
	}
	w.raiseTransients(c)
	w.publishCurrentDesktop()
	w.restack()
	log.WithField("window", c.ID).Debug("focus")
}

func (w *WM) unfocus(c *Client) {
	if c.Has(StateFocused) {
		c.State &^= StateFocused
		w.publishState(c)
	}
	w.setBorderColor(c)
	w.grabButtons(c)
}

// raiseTransients puts the floating transients of c above it.
func (w *WM) raiseTransients(c *Client) {
	for _, t := range w.sortedClients() {
		if t.TransientFor == c.ID && t.Kind == KindFloating {
			w.raiseFloating(t.ID)
		}
	}
}

// cycleList is what focus_next and focus_prev walk through: tiled
// windows of the current workspace, then floating and sticky ones.
func (w *WM) cycleList(m int) []*Client {
	mon := w.monitors[m]
	var out []*Client
	seen := make(map[xproto.Window]bool)
	add := func(c *Client) {
		if c != nil && !seen[c.ID] && w.focusable(c) {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	for _, win := range mon.Workspaces[mon.Current].Windows {
		add(w.clients[win])
	}
	for _, win := range w.floating {
		if c := w.clients[win]; c != nil && onWorkspace(c, m, mon.Current) {
			add(c)
		}
	}
	for _, c := range w.sortedClients() {
		if c.Kind == KindTiled && c.Monitor == m && c.sticky() {
			add(c)
		}
	}
	return out
}

// cycleFocus moves the focus one step in dir on the focused monitor.
func (w *WM) cycleFocus(dir Direction) {
	list := w.cycleList(w.focusedMonitor)
	if len(list) == 0 {
		return
	}
	cur := -1
	for i, c := range list {
		if c.ID == w.active {
			cur = i
			break
		}
	}
	if cur < 0 {
		w.focus(list[0])
		return
	}
	w.focus(list[dir.step(cur, len(list))])
}

// stealsFocus reports whether an activation stamped t is older than
// the last user interaction with the active window.
func (w *WM) stealsFocus(t uint) bool {
	if t == 0 {
		return false
	}
	cur := w.clients[w.active]
	return cur != nil && cur.UserTime != 0 && t < cur.UserTime
}
