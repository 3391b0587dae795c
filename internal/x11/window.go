package x11

import (
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xrect"
	"github.com/BurntSushi/xgbutil/xwindow"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
	"github.com/intio/lwm/internal/wm"
)

// rootEvents is the event mask of the root window while we manage it.
const rootEvents = xproto.EventMaskSubstructureRedirect |
	xproto.EventMaskSubstructureNotify |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskPropertyChange |
	xproto.EventMaskButtonPress |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskEnterWindow

func rectOf(r xrect.Rect) layout.Rect {
	return layout.Rect{X: r.X(), Y: r.Y(), Width: r.Width(), Height: r.Height()}
}

func (s *Session) RootGeometry() layout.Rect {
	r, err := xwindow.RawGeometry(s.xu, xproto.Drawable(s.screen.Root))
	if err != nil {
		return layout.Rect{Width: int(s.screen.WidthInPixels), Height: int(s.screen.HeightInPixels)}
	}
	return rectOf(r)
}

func (s *Session) AtomName(atom xproto.Atom) string {
	return s.atoms.name(atom)
}

// CreateHelperWindow creates an unmapped 1x1 window used as selection
// owner or _NET_SUPPORTING_WM_CHECK target.
func (s *Session) CreateHelperWindow() (xproto.Window, error) {
	win, err := xwindow.Create(s.xu, s.screen.Root)
	if err != nil {
		return 0, err
	}
	return win.Id, nil
}

func (s *Session) DestroyWindow(win xproto.Window) {
	xproto.DestroyWindow(s.xc, win)
}

func (s *Session) SelectionOwner(selection string) (xproto.Window, error) {
	reply, err := xproto.GetSelectionOwner(s.xc, s.atoms.atom(selection)).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Owner, nil
}

func (s *Session) SetSelectionOwner(selection string, owner xproto.Window, t xproto.Timestamp) {
	xproto.SetSelectionOwner(s.xc, owner, s.atoms.atom(selection), t)
}

// RedirectRoot selects SubstructureRedirect on the root window. It
// fails with a BadAccess error when another client holds it.
func (s *Session) RedirectRoot() error {
	err := xproto.ChangeWindowAttributesChecked(s.xc, s.screen.Root,
		xproto.CwEventMask, []uint32{rootEvents}).Check()
	if err != nil {
		return err
	}
	if s.hasRandr {
		err := randr.SelectInputChecked(s.xc, s.screen.Root,
			randr.NotifyMaskScreenChange|randr.NotifyMaskOutputChange|randr.NotifyMaskCrtcChange).Check()
		if err != nil {
			log.WithError(err).Warn("cannot select RANDR events")
		}
	}
	return nil
}

func (s *Session) SelectInput(win xproto.Window, mask uint32) {
	xproto.ChangeWindowAttributes(s.xc, win, xproto.CwEventMask, []uint32{mask})
}

func (s *Session) Attributes(win xproto.Window) (wm.Attributes, error) {
	reply, err := xproto.GetWindowAttributes(s.xc, win).Reply()
	if err != nil {
		return wm.Attributes{}, err
	}
	return wm.Attributes{
		OverrideRedirect: reply.OverrideRedirect,
		Viewable:         reply.MapState == xproto.MapStateViewable,
	}, nil
}

func (s *Session) Geometry(win xproto.Window) (layout.Rect, error) {
	r, err := xwindow.RawGeometry(s.xu, xproto.Drawable(win))
	if err != nil {
		return layout.Rect{}, err
	}
	return rectOf(r), nil
}

// Children lists the top-level windows in stacking order.
func (s *Session) Children() ([]xproto.Window, error) {
	reply, err := xproto.QueryTree(s.xc, s.screen.Root).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Children, nil
}

func (s *Session) QueryPointer() (int, int, error) {
	reply, err := xproto.QueryPointer(s.xc, s.screen.Root).Reply()
	if err != nil {
		return 0, 0, err
	}
	return int(reply.RootX), int(reply.RootY), nil
}

func (s *Session) Configure(win xproto.Window, mask uint16, values []uint32) {
	xproto.ConfigureWindow(s.xc, win, mask, values)
}

// SendConfigureNotify tells a client its geometry without waiting for
// the server to do so.
func (s *Session) SendConfigureNotify(win xproto.Window, r layout.Rect, border int) {
	ev := xproto.ConfigureNotifyEvent{
		Event:            win,
		Window:           win,
		AboveSibling:     0,
		X:                int16(r.X),
		Y:                int16(r.Y),
		Width:            uint16(r.Width),
		Height:           uint16(r.Height),
		BorderWidth:      uint16(border),
		OverrideRedirect: false,
	}
	xproto.SendEvent(s.xc, false, win, xproto.EventMaskStructureNotify, string(ev.Bytes()))
}

func (s *Session) Map(win xproto.Window) {
	xproto.MapWindow(s.xc, win)
}

func (s *Session) Unmap(win xproto.Window) {
	xproto.UnmapWindow(s.xc, win)
}

func (s *Session) SetBorderColor(win xproto.Window, pixel uint32) {
	xproto.ChangeWindowAttributes(s.xc, win, xproto.CwBorderPixel, []uint32{pixel})
}

func (s *Session) SetInputFocus(win xproto.Window, t xproto.Timestamp) {
	xproto.SetInputFocus(s.xc, xproto.InputFocusPointerRoot, win, t)
}

func (s *Session) Kill(win xproto.Window) {
	xproto.KillClient(s.xc, uint32(win))
}

// SendProtocol delivers a WM_PROTOCOLS client message. extra fills
// the data slots after the timestamp.
func (s *Session) SendProtocol(win xproto.Window, protocol string, t xproto.Timestamp, extra ...uint32) {
	data := make([]uint32, 5)
	data[0] = uint32(s.atoms.atom(protocol))
	data[1] = uint32(t)
	copy(data[2:], extra)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   s.atoms.atom("WM_PROTOCOLS"),
		Data:   xproto.ClientMessageDataUnionData32New(data),
	}
	xproto.SendEvent(s.xc, false, win, xproto.EventMaskNoEvent, string(ev.Bytes()))
}
