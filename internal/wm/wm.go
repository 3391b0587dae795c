// Package wm is the window manager proper: the client registry, the
// monitor and workspace model, focus policy, floating windows, the
// EWMH/ICCCM protocol layer and the event dispatcher that ties them
// together.
package wm

import (
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/config"
	"github.com/intio/lwm/internal/rules"
)

var (
	// ErrQuit stops the event loop without an error.
	ErrQuit = errors.New("quit")
	// ErrAlreadyRunning means another window manager owns the screen.
	ErrAlreadyRunning = errors.New("another window manager is already running")
	// ErrUnknownClient is returned for windows that are not managed,
	// usually because they were destroyed in the meantime.
	ErrUnknownClient = errors.New("unknown client")
	// ErrMalformedMessage marks a client message with an unexpected
	// layout.
	ErrMalformedMessage = errors.New("malformed client message")
	// ErrUnresponsiveClient marks a window that ignored WM_DELETE_WINDOW
	// or a ping.
	ErrUnresponsiveClient = errors.New("client is not responding")
	// ErrPropertyRead marks a missing or malformed window property.
	ErrPropertyRead = errors.New("cannot read property")
)

const (
	// stickyDesktop is the _NET_WM_DESKTOP value of sticky windows.
	stickyDesktop = 0xFFFFFFFF

	toggleDebounce = 150 * time.Millisecond
)

// Options are command line switches that influence startup.
type Options struct {
	// Replace takes over the screen from a running window manager.
	Replace bool
	// Screen selects the WM_Sn selection.
	Screen int
}

type colors struct {
	border, focus, urgent uint32
	barBg, barFg          uint32
}

// WM holds the global window manager state. All fields are owned by
// the goroutine running Run.
type WM struct {
	conn  Conn
	cfg   *config.Config
	rules *rules.Set
	opts  Options

	clients   map[xproto.Window]*Client
	nextOrder uint64
	// floating is the floating window MRU, most recently used last.
	floating []xproto.Window
	// userTimeWindows maps _NET_WM_USER_TIME_WINDOW helpers to clients.
	userTimeWindows map[xproto.Window]xproto.Window
	stacking        []xproto.Window

	monitors       []*Monitor
	focusedMonitor int
	wpm            int
	active         xproto.Window
	showingDesktop bool

	drag drag

	pendingKills map[xproto.Window]time.Time
	pendingPings map[xproto.Window]time.Time
	wmUnmapped   map[xproto.Window]int

	keys           map[keyChord]config.Keybind
	buttons        map[buttonChord]string
	toggleReleased bool
	lastToggle     time.Time

	lastTime     xproto.Timestamp
	selectionWin xproto.Window
	checkerWin   xproto.Window
	colors       colors

	requests chan func()
	done     chan struct{}
	subs     map[chan Snapshot]struct{}
	lastBar  string

	now   func() time.Time
	spawn func(command string) error
}

// New creates a window manager for conn. Nothing is sent to the
// server until Start is called.
func New(conn Conn, cfg *config.Config, opts Options) *WM {
	w := &WM{
		conn:            conn,
		cfg:             cfg,
		rules:           rules.Compile(cfg.WindowRules),
		opts:            opts,
		clients:         make(map[xproto.Window]*Client),
		userTimeWindows: make(map[xproto.Window]xproto.Window),
		wpm:             max(cfg.Workspaces.Count, 1),
		pendingKills:    make(map[xproto.Window]time.Time),
		pendingPings:    make(map[xproto.Window]time.Time),
		wmUnmapped:      make(map[xproto.Window]int),
		keys:            make(map[keyChord]config.Keybind),
		buttons:         make(map[buttonChord]string),
		toggleReleased:  true,
		requests:        make(chan func()),
		done:            make(chan struct{}),
		subs:            make(map[chan Snapshot]struct{}),
		now:             time.Now,
		spawn:           spawn,
	}
	a := cfg.Appearance
	w.colors = colors{
		border: config.MustColor(a.BorderColor),
		focus:  config.MustColor(a.FocusColor),
		urgent: config.MustColor(a.UrgentColor),
		barBg:  config.MustColor(a.StatusBarBg),
		barFg:  config.MustColor(a.StatusBarFg),
	}
	return w
}

func (w *WM) killTimeout() time.Duration {
	return time.Duration(w.cfg.Focus.KillTimeoutMs) * time.Millisecond
}

type xevent struct {
	ev  xgb.Event
	err xgb.Error
}

func (w *WM) readEvents(ch chan<- xevent, done <-chan struct{}) {
	defer close(ch)
	for {
		ev, err := w.conn.WaitForEvent()
		if ev == nil && err == nil {
			return
		}
		select {
		case ch <- xevent{ev, err}:
		case <-done:
			return
		}
	}
}

// Run dispatches events until the context is cancelled, the user
// quits, or another window manager takes over the screen.
func (w *WM) Run(ctx context.Context) error {
	defer close(w.done)
	defer w.closeSubscribers()
	events := make(chan xevent, 64)
	go w.readEvents(events, w.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		w.resetTimer(timer)
		var err error
		select {
		case <-ctx.Done():
			return nil
		case xe, ok := <-events:
			if !ok {
				return errors.New("connection to X server lost")
			}
			err = w.handleEvent(xe.ev, xe.err)
		case fn := <-w.requests:
			fn()
			w.commit()
		case <-timer.C:
			w.expirePending()
			w.commit()
		}
		switch {
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			log.Debug(err)
		}
	}
}

func (w *WM) resetTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	d := time.Hour
	if next, ok := w.nextDeadline(); ok {
		d = max(next.Sub(w.now()), time.Millisecond)
	}
	t.Reset(d)
}

// Do runs fn on the dispatcher goroutine between two events and waits
// for it to finish. It reports false if the event loop is not running.
func (w *WM) Do(fn func()) bool {
	finished := make(chan struct{})
	select {
	case w.requests <- func() { fn(); close(finished) }:
	case <-w.done:
		return false
	}
	select {
	case <-finished:
		return true
	case <-w.done:
		return false
	}
}

// commit flushes requests and publishes bar state after a handler.
func (w *WM) commit() {
	w.updateBars()
	w.conn.Flush()
}

func spawn(command string) error {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func (w *WM) run(command string) {
	if command == "" {
		return
	}
	if err := w.spawn(command); err != nil {
		log.WithError(err).WithField("command", command).Warn("spawn failed")
	}
}
