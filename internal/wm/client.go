package wm

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/intio/lwm/internal/layout"
)

// Kind is how a client is placed on screen.
type Kind int

const (
	KindTiled Kind = iota
	KindFloating
	KindDock
	KindDesktop
)

func (k Kind) String() string {
	switch k {
	case KindTiled:
		return "tiled"
	case KindFloating:
		return "floating"
	case KindDock:
		return "dock"
	case KindDesktop:
		return "desktop"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Client is an X11 client managed by us.
type Client struct {
	// ID represents X11's internal window ID.
	ID   xproto.Window
	Kind Kind
	// Monitor and Workspace locate tiled and floating clients.
	Monitor, Workspace int

	Name, Class, Instance string
	// Order is the creation sequence number, used for _NET_CLIENT_LIST.
	Order uint64

	// Geom is the rectangle the window currently occupies.
	Geom layout.Rect
	// Floating is the geometry of a floating client outside of
	// fullscreen and maximized states.
	Floating          layout.Rect
	FullscreenRestore layout.Rect
	MaximizeRestore   layout.Rect
	// FullscreenMonitors holds top, bottom, left and right monitor
	// indices when the client asked to span several monitors.
	FullscreenMonitors *[4]uint

	TransientFor xproto.Window
	State        State
	Iconic       bool

	UserTime       uint
	UserTimeWindow xproto.Window
	SyncCounter    uint32
	SyncValue      uint64

	// Strut is only meaningful for docks.
	Strut Strut

	hasUserTime  bool
	input        bool
	takeFocus    bool
	deleteWindow bool
	ping         bool
	syncRequest  bool
	minW, minH   int

	border int
	mapped bool
	// prefullscreen keeps the maximized and stacking bits cleared by
	// fullscreen.
	prefullscreen State
	// premodal keeps the above and below bits replaced by modal.
	premodal State
}

// Has reports whether every flag in s is set.
func (c *Client) Has(s State) bool {
	return c.State&s == s
}

func (c *Client) sticky() bool { return c.Has(StateSticky) }

func (c *Client) fullscreen() bool { return c.Has(StateFullscreen) }

func (c *Client) managedKind() bool {
	return c.Kind == KindTiled || c.Kind == KindFloating
}

func (c *Client) readProtocols(conn Conn) {
	c.takeFocus, c.deleteWindow, c.ping, c.syncRequest = false, false, false, false
	protos, err := conn.Protocols(c.ID)
	if err != nil {
		return
	}
	for _, p := range protos {
		switch p {
		case "WM_TAKE_FOCUS":
			c.takeFocus = true
		case "WM_DELETE_WINDOW":
			c.deleteWindow = true
		case "_NET_WM_PING":
			c.ping = true
		case "_NET_WM_SYNC_REQUEST":
			c.syncRequest = true
		}
	}
}

// readHints reads WM_HINTS and reports the urgency bit.
func (c *Client) readHints(conn Conn) (urgent bool) {
	c.input = true
	hints, err := conn.Hints(c.ID)
	if err != nil {
		return false
	}
	if hints.Flags&icccm.HintInput != 0 {
		c.input = hints.Input != 0
	}
	return hints.Flags&icccm.HintUrgency != 0
}

// readNormalHints reads the minimum size from WM_NORMAL_HINTS.
func (c *Client) readNormalHints(conn Conn) *icccm.NormalHints {
	c.minW, c.minH = 0, 0
	nh, err := conn.NormalHints(c.ID)
	if err != nil {
		return nil
	}
	if nh.Flags&icccm.SizeHintPMinSize != 0 {
		c.minW, c.minH = int(nh.MinWidth), int(nh.MinHeight)
	} else if nh.Flags&icccm.SizeHintPBaseSize != 0 {
		c.minW, c.minH = int(nh.BaseWidth), int(nh.BaseHeight)
	}
	return nh
}

func (c *Client) readSyncCounter(conn Conn) {
	c.SyncCounter = 0
	if !c.syncRequest {
		return
	}
	if counter, err := conn.SyncCounter(c.ID); err == nil {
		c.SyncCounter = counter
	}
}

func (c *Client) readFullscreenMonitors(conn Conn) {
	m, err := conn.FullscreenMonitors(c.ID)
	if err != nil {
		c.FullscreenMonitors = nil
		return
	}
	c.FullscreenMonitors = &m
}

// eligible reports whether c may receive the input focus.
func (c *Client) eligible() bool {
	return c.managedKind() && (c.input || c.takeFocus)
}

// client looks a window up in the registry.
func (w *WM) client(win xproto.Window) (*Client, error) {
	c, ok := w.clients[win]
	if !ok {
		return nil, fmt.Errorf("window %#x: %w", win, ErrUnknownClient)
	}
	return c, nil
}

// addClient registers c and assigns its creation order.
func (w *WM) addClient(c *Client) {
	w.nextOrder++
	c.Order = w.nextOrder
	w.clients[c.ID] = c
}

// sortedClients returns all clients in creation order.
func (w *WM) sortedClients() []*Client {
	cs := make([]*Client, 0, len(w.clients))
	for _, c := range w.clients {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Order < cs[j].Order })
	return cs
}

// configure moves and resizes c and tells it so right away with a
// synthetic ConfigureNotify.
func (w *WM) configure(c *Client, r layout.Rect, border int) {
	resized := r.Width != c.Geom.Width || r.Height != c.Geom.Height
	c.Geom = r
	c.border = border
	if resized && c.syncRequest && c.SyncCounter != 0 {
		c.SyncValue++
		w.conn.SendProtocol(c.ID, "_NET_WM_SYNC_REQUEST", w.lastTime,
			uint32(c.SyncValue), uint32(c.SyncValue>>32))
	}
	valueMask := uint16(xproto.ConfigWindowX |
		xproto.ConfigWindowY |
		xproto.ConfigWindowWidth |
		xproto.ConfigWindowHeight |
		xproto.ConfigWindowBorderWidth)
	valueList := []uint32{
		uint32(int16(r.X)),
		uint32(int16(r.Y)),
		uint32(max(r.Width, 1)),
		uint32(max(r.Height, 1)),
		uint32(border),
	}
	w.conn.Configure(c.ID, valueMask, valueList)
	w.conn.SendConfigureNotify(c.ID, r, border)
}

// borderWidth is the border a client should have in its current state.
func (w *WM) borderWidth(c *Client) int {
	if c.fullscreen() || !c.managedKind() {
		return 0
	}
	return w.cfg.Appearance.BorderWidth
}

func (w *WM) setBorderColor(c *Client) {
	if !c.managedKind() {
		return
	}
	pixel := w.colors.border
	switch {
	case c.ID == w.active:
		pixel = w.colors.focus
	case c.Has(StateDemandsAttention):
		pixel = w.colors.urgent
	}
	w.conn.SetBorderColor(c.ID, pixel)
}
