package wm

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/intio/lwm/internal/layout"
)

// MonitorInfo is one output as reported by the X server.
type MonitorInfo struct {
	Name   string
	Output uint32
	Rect   layout.Rect
}

// Strut is the space a dock reserves along the edges of the root
// window, in the _NET_WM_STRUT_PARTIAL layout. A plain _NET_WM_STRUT
// is expressed with each start/end pair spanning the whole edge.
type Strut struct {
	Left, Right, Top, Bottom uint

	LeftStartY, LeftEndY     uint
	RightStartY, RightEndY   uint
	TopStartX, TopEndX       uint
	BottomStartX, BottomEndX uint
}

// Empty reports whether the strut reserves nothing.
func (s Strut) Empty() bool {
	return s.Left == 0 && s.Right == 0 && s.Top == 0 && s.Bottom == 0
}

// Attributes is the part of GetWindowAttributes the manager cares about.
type Attributes struct {
	OverrideRedirect bool
	Viewable         bool
}

// BarText is one run of text drawn on a status bar.
type BarText struct {
	X    int
	Text string
	Fg   uint32
	Bg   uint32
}

// Cursor shapes used during pointer grabs.
type Cursor int

const (
	CursorNormal Cursor = iota
	CursorMove
	CursorResize
)

// Conn is everything the window manager needs from the display. The
// x11 package implements it on top of xgb and xgbutil; tests use an
// in-memory fake.
//
// Requests without a result are fire and forget: errors come back
// asynchronously through WaitForEvent. Property reads return an error
// when the property is missing or malformed, and callers fall back to
// a default.
type Conn interface {
	Root() xproto.Window
	RootGeometry() layout.Rect
	Flush()
	WaitForEvent() (xgb.Event, xgb.Error)

	AtomName(atom xproto.Atom) string

	// Ownership.
	CreateHelperWindow() (xproto.Window, error)
	DestroyWindow(win xproto.Window)
	SelectionOwner(selection string) (xproto.Window, error)
	SetSelectionOwner(selection string, owner xproto.Window, t xproto.Timestamp)
	RedirectRoot() error
	SelectInput(win xproto.Window, mask uint32)

	Monitors() ([]MonitorInfo, error)

	// Window queries.
	Attributes(win xproto.Window) (Attributes, error)
	Geometry(win xproto.Window) (layout.Rect, error)
	Children() ([]xproto.Window, error)
	QueryPointer() (x, y int, err error)

	// Window requests.
	Configure(win xproto.Window, mask uint16, values []uint32)
	SendConfigureNotify(win xproto.Window, r layout.Rect, border int)
	Map(win xproto.Window)
	Unmap(win xproto.Window)
	SetBorderColor(win xproto.Window, pixel uint32)
	SetInputFocus(win xproto.Window, t xproto.Timestamp)
	Kill(win xproto.Window)
	SendProtocol(win xproto.Window, protocol string, t xproto.Timestamp, extra ...uint32)

	// Input.
	GrabPointer(c Cursor, t xproto.Timestamp) error
	UngrabPointer(t xproto.Timestamp)
	WarpPointer(x, y int)
	AllowReplayPointer(t xproto.Timestamp)
	Keycodes(key string) []xproto.Keycode
	Keysym(code xproto.Keycode, column int) xproto.Keysym
	RefreshKeyboard()
	GrabKey(mods uint16, code xproto.Keycode)
	UngrabKeys()
	GrabButton(win xproto.Window, mods uint16, button xproto.Button, sync bool)
	UngrabButtons(win xproto.Window)

	// ICCCM properties.
	Name(win xproto.Window) string
	Class(win xproto.Window) (instance, class string)
	Hints(win xproto.Window) (*icccm.Hints, error)
	NormalHints(win xproto.Window) (*icccm.NormalHints, error)
	TransientFor(win xproto.Window) (xproto.Window, error)
	Protocols(win xproto.Window) ([]string, error)
	WMState(win xproto.Window) (uint, error)
	SetWMState(win xproto.Window, state uint)

	// EWMH per-window properties.
	WindowTypes(win xproto.Window) ([]string, error)
	NetState(win xproto.Window) ([]string, error)
	SetNetState(win xproto.Window, atoms []string)
	Desktop(win xproto.Window) (uint, error)
	SetDesktop(win xproto.Window, d uint)
	DeleteProperty(win xproto.Window, name string)
	SetFrameExtents(win xproto.Window)
	SetAllowedActions(win xproto.Window, actions []string)
	Strut(win xproto.Window) (Strut, error)
	UserTime(win xproto.Window) (uint, error)
	UserTimeWindow(win xproto.Window) (xproto.Window, error)
	SyncCounter(win xproto.Window) (uint32, error)
	FullscreenMonitors(win xproto.Window) ([4]uint, error)
	SetFullscreenMonitors(win xproto.Window, m [4]uint)

	// EWMH root properties.
	SetSupported(atoms []string)
	SetSupportingWMCheck(checker xproto.Window, name string)
	SetNumberOfDesktops(n uint)
	SetDesktopNames(names []string)
	SetDesktopGeometry(width, height int)
	SetDesktopViewport(n int)
	SetWorkarea(areas []layout.Rect)
	SetCurrentDesktop(d uint)
	SetActiveWindow(win xproto.Window)
	SetClientList(wins []xproto.Window)
	SetClientListStacking(wins []xproto.Window)
	SetShowingDesktop(on bool)

	// Status bar.
	CreateBar(r layout.Rect, bg uint32) (xproto.Window, error)
	MoveBar(bar xproto.Window, r layout.Rect)
	DrawBar(bar xproto.Window, r layout.Rect, bg uint32, texts []BarText)
	TextWidth(text string) int
}
