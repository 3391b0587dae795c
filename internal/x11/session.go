// Package x11 implements the wm.Conn display interface on top of xgb
// and xgbutil.
package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrConnectionFailed means the display could not be opened.
	ErrConnectionFailed = errors.New("cannot connect to the X server")
	// ErrExtensionMissing means a required X extension is absent.
	ErrExtensionMissing = errors.New("required X extension missing")
)

// Options tune how the display is opened.
type Options struct {
	// Display overrides $DISPLAY.
	Display string
	// RequireRandr fails Open when RANDR is unavailable instead of
	// falling back to Xinerama.
	RequireRandr bool
	// Font is the core font used by the status bars.
	Font string
}

// Session is an open display connection.
type Session struct {
	xu     *xgbutil.XUtil
	xc     *xgb.Conn
	screen *xproto.ScreenInfo
	atoms  *atomCache

	hasRandr    bool
	hasXinerama bool

	painter *painter
	font    string
	cursors map[int]xproto.Cursor
}

// Open connects to the display, initialises the extensions and
// interns the atoms.
func Open(opts Options) (*Session, error) {
	xu, err := xgbutil.NewConnDisplay(opts.Display)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrConnectionFailed)
	}
	s := &Session{
		xu:      xu,
		xc:      xu.Conn(),
		screen:  xu.Screen(),
		font:    opts.Font,
		cursors: make(map[int]xproto.Cursor),
	}
	if err := randr.Init(s.xc); err == nil {
		s.hasRandr = true
	} else if opts.RequireRandr {
		s.xc.Close()
		return nil, fmt.Errorf("RANDR: %v: %w", err, ErrExtensionMissing)
	} else {
		log.WithError(err).Warn("RANDR unavailable")
	}
	if !s.hasRandr {
		if err := xinerama.Init(s.xc); err == nil {
			s.hasXinerama = true
		}
	}
	keybind.Initialize(xu)
	if s.atoms, err = internAtoms(xu); err != nil {
		s.xc.Close()
		return nil, fmt.Errorf("intern atoms: %v: %w", err, ErrConnectionFailed)
	}
	return s, nil
}

// Close shuts the connection down. Pending WaitForEvent calls return.
func (s *Session) Close() {
	s.xc.Close()
}

// ScreenNumber is the default screen of the display.
func (s *Session) ScreenNumber() int {
	return s.xc.DefaultScreen
}

// HasRandr reports whether monitor changes are delivered as events.
func (s *Session) HasRandr() bool {
	return s.hasRandr
}

func (s *Session) Root() xproto.Window {
	return s.screen.Root
}

// Flush is a no-op: xgb writes every request when it is issued.
func (s *Session) Flush() {}

func (s *Session) WaitForEvent() (xgb.Event, xgb.Error) {
	return s.xc.WaitForEvent()
}

// Keysym returns the keysym in column col of keycode's mapping.
func (s *Session) Keysym(code xproto.Keycode, col int) xproto.Keysym {
	return keybind.KeysymGet(s.xu, code, byte(col))
}
