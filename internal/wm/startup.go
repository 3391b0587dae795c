package wm

import (
	"fmt"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	log "github.com/sirupsen/logrus"
)

// Name is published in _NET_WM_NAME of the supporting window.
const Name = "lwm"

func (w *WM) selection() string {
	return fmt.Sprintf("WM_S%d", w.opts.Screen)
}

// Start takes ownership of the screen: it acquires the WM_Sn selection,
// redirects the root window, publishes the EWMH root properties,
// adopts existing windows, grabs bindings and runs the autostart
// program.
func (w *WM) Start() error {
	sel := w.selection()
	owner, err := w.conn.SelectionOwner(sel)
	if err != nil {
		return fmt.Errorf("query %s owner: %w", sel, err)
	}
	if owner != 0 && !w.opts.Replace {
		return fmt.Errorf("%s is owned by %#x: %w", sel, owner, ErrAlreadyRunning)
	}
	if w.selectionWin, err = w.conn.CreateHelperWindow(); err != nil {
		return err
	}
	w.conn.SetSelectionOwner(sel, w.selectionWin, xproto.TimeCurrentTime)
	if got, err := w.conn.SelectionOwner(sel); err != nil || got != w.selectionWin {
		return fmt.Errorf("cannot acquire %s: %w", sel, ErrAlreadyRunning)
	}
	if err := w.redirectRoot(owner != 0); err != nil {
		return err
	}

	if w.checkerWin, err = w.conn.CreateHelperWindow(); err != nil {
		return err
	}
	w.conn.SetSupportingWMCheck(w.checkerWin, Name)
	w.conn.SetSupported(supported)
	w.conn.SetShowingDesktop(false)

	w.updateMonitors()
	if x, y, err := w.conn.QueryPointer(); err == nil {
		if m, ok := w.monitorAt(x, y); ok {
			w.focusedMonitor = m
		}
	}
	w.adopt()
	w.grabKeys()
	w.grabMouseBindings()
	w.publishClientList()
	w.publishCurrentDesktop()
	w.focusFallback(w.focusedMonitor)
	w.run(w.cfg.Programs.Autostart)
	w.commit()
	log.WithFields(log.Fields{
		"monitors": len(w.monitors),
		"clients":  len(w.clients),
	}).Info("window manager started")
	return nil
}

// redirectRoot selects SubstructureRedirect on the root window. When
// replacing another window manager it waits a little for the previous
// owner to let go.
func (w *WM) redirectRoot(replacing bool) error {
	tries := 1
	if replacing {
		tries = 20
	}
	var err error
	for i := 0; i < tries; i++ {
		if err = w.conn.RedirectRoot(); err == nil {
			return nil
		}
		if i < tries-1 {
			time.Sleep(100 * time.Millisecond)
		}
	}
	return fmt.Errorf("%v: %w", err, ErrAlreadyRunning)
}

// Shutdown releases the selection and the helper windows. Managed
// clients stay mapped.
func (w *WM) Shutdown() {
	if w.selectionWin != 0 {
		w.conn.SetSelectionOwner(w.selection(), 0, w.lastTime)
		w.conn.DestroyWindow(w.selectionWin)
	}
	if w.checkerWin != 0 {
		w.conn.DestroyWindow(w.checkerWin)
	}
	for _, mon := range w.monitors {
		if mon.Bar != 0 {
			w.conn.DestroyWindow(mon.Bar)
		}
	}
	w.conn.Flush()
	log.Info("window manager stopped")
}
