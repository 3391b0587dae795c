package wm

import (
	"fmt"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	log "github.com/sirupsen/logrus"
)

// Close asks win to close itself.
func (w *WM) Close(win xproto.Window) error {
	c, err := w.client(win)
	if err != nil {
		return err
	}
	w.closeClient(c)
	return nil
}

// closeClient sends WM_DELETE_WINDOW and a ping when the client speaks
// those protocols, and force kills it otherwise. A client that neither
// answers the ping nor goes away before the deadline is killed by
// expirePending.
func (w *WM) closeClient(c *Client) {
	if c == nil {
		return
	}
	if !c.deleteWindow {
		log.WithField("window", c.ID).Debug("killing client without WM_DELETE_WINDOW")
		w.conn.Kill(c.ID)
		return
	}
	deadline := w.now().Add(w.killTimeout())
	w.conn.SendProtocol(c.ID, "WM_DELETE_WINDOW", w.lastTime)
	w.pendingKills[c.ID] = deadline
	if c.ping {
		w.conn.SendProtocol(c.ID, "_NET_WM_PING", w.lastTime, uint32(c.ID))
		w.pendingPings[c.ID] = deadline
	}
}

// pong handles a _NET_WM_PING reply. An answer proves the client is
// alive, so a pending kill is called off.
func (w *WM) pong(win xproto.Window) {
	if _, ok := w.pendingPings[win]; !ok {
		if _, ok := w.pendingKills[win]; !ok {
			return
		}
	}
	delete(w.pendingPings, win)
	delete(w.pendingKills, win)
	log.WithField("window", win).Debug("pong")
}

func (w *WM) forgetPending(win xproto.Window) {
	delete(w.pendingPings, win)
	delete(w.pendingKills, win)
}

// expirePending force kills every client past its deadline.
func (w *WM) expirePending() {
	now := w.now()
	for _, table := range []map[xproto.Window]time.Time{w.pendingKills, w.pendingPings} {
		for win, deadline := range table {
			if now.Before(deadline) {
				continue
			}
			w.forgetPending(win)
			log.WithField("window", win).Warn(fmt.Errorf("window %#x: %w", win, ErrUnresponsiveClient))
			w.conn.Kill(win)
		}
	}
}

// nextDeadline returns the earliest pending deadline.
func (w *WM) nextDeadline() (time.Time, bool) {
	var next time.Time
	found := false
	for _, table := range []map[xproto.Window]time.Time{w.pendingKills, w.pendingPings} {
		for _, d := range table {
			if !found || d.Before(next) {
				next, found = d, true
			}
		}
	}
	return next, found
}
