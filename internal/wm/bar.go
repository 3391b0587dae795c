package wm

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
)

const barGap = 12

func (w *WM) barHeight() int {
	if !w.cfg.Appearance.StatusBarEnabled {
		return 0
	}
	return w.cfg.Appearance.StatusBarHeight
}

func (w *WM) barRect(m int) layout.Rect {
	r := w.monitors[m].Rect
	r.Height = w.barHeight()
	return r
}

// setupBars creates a bar window on every monitor lacking one and
// moves existing bars to their monitor.
func (w *WM) setupBars() {
	if w.barHeight() <= 0 {
		return
	}
	for m, mon := range w.monitors {
		r := w.barRect(m)
		if mon.Bar != 0 {
			w.conn.MoveBar(mon.Bar, r)
			continue
		}
		bar, err := w.conn.CreateBar(r, w.colors.barBg)
		if err != nil {
			log.WithError(err).WithField("monitor", mon.Name).Warn("cannot create status bar")
			continue
		}
		mon.Bar = bar
	}
	w.lastBar = ""
	w.stacking = nil
}

// drawBar paints workspace names followed by the active title.
func (w *WM) drawBar(m int, s Snapshot) {
	mon := w.monitors[m]
	if mon.Bar == 0 {
		return
	}
	var texts []BarText
	x := 0
	for i, ws := range s.Monitors[m].Workspaces {
		if ws.Windows == 0 && i != mon.Current {
			continue
		}
		t := BarText{X: x, Text: " " + ws.Name + " ", Fg: w.colors.barFg, Bg: w.colors.barBg}
		switch {
		case i == mon.Current:
			t.Fg, t.Bg = w.colors.barBg, w.colors.focus
		case ws.Urgent:
			t.Fg, t.Bg = w.colors.barBg, w.colors.urgent
		}
		texts = append(texts, t)
		x += w.conn.TextWidth(t.Text)
	}
	if c := w.clients[w.active]; c != nil && c.Monitor == m {
		texts = append(texts, BarText{X: x + barGap, Text: c.Name, Fg: w.colors.barFg, Bg: w.colors.barBg})
	}
	w.conn.DrawBar(mon.Bar, w.barRect(m), w.colors.barBg, texts)
}

// updateBars redraws the bars and notifies subscribers when the bar
// state changed since the last call.
func (w *WM) updateBars() {
	s := w.snapshot()
	key := fmt.Sprintf("%v", s)
	if key == w.lastBar {
		return
	}
	w.lastBar = key
	for m := range w.monitors {
		w.drawBar(m, s)
	}
	w.broadcast(s)
}

// redrawBar repaints the bar window win after an Expose.
func (w *WM) redrawBar(win xproto.Window) {
	for m, mon := range w.monitors {
		if mon.Bar == win && win != 0 {
			w.drawBar(m, w.snapshot())
			return
		}
	}
}
