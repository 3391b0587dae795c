package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/intio/lwm/internal/layout"
	"github.com/intio/lwm/internal/wm"
)

// Name prefers _NET_WM_NAME over WM_NAME.
func (s *Session) Name(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(s.xu, win); err == nil && name != "" {
		return name
	}
	name, _ := icccm.WmNameGet(s.xu, win)
	return name
}

func (s *Session) Class(win xproto.Window) (string, string) {
	class, err := icccm.WmClassGet(s.xu, win)
	if err != nil {
		return "", ""
	}
	return class.Instance, class.Class
}

func (s *Session) Hints(win xproto.Window) (*icccm.Hints, error) {
	return icccm.WmHintsGet(s.xu, win)
}

func (s *Session) NormalHints(win xproto.Window) (*icccm.NormalHints, error) {
	return icccm.WmNormalHintsGet(s.xu, win)
}

func (s *Session) TransientFor(win xproto.Window) (xproto.Window, error) {
	return icccm.WmTransientForGet(s.xu, win)
}

func (s *Session) Protocols(win xproto.Window) ([]string, error) {
	return icccm.WmProtocolsGet(s.xu, win)
}

func (s *Session) WMState(win xproto.Window) (uint, error) {
	st, err := icccm.WmStateGet(s.xu, win)
	if err != nil {
		return 0, err
	}
	return st.State, nil
}

func (s *Session) SetWMState(win xproto.Window, state uint) {
	icccm.WmStateSet(s.xu, win, &icccm.WmState{State: state})
}

func (s *Session) WindowTypes(win xproto.Window) ([]string, error) {
	return ewmh.WmWindowTypeGet(s.xu, win)
}

func (s *Session) NetState(win xproto.Window) ([]string, error) {
	return ewmh.WmStateGet(s.xu, win)
}

func (s *Session) SetNetState(win xproto.Window, atoms []string) {
	ewmh.WmStateSet(s.xu, win, atoms)
}

func (s *Session) Desktop(win xproto.Window) (uint, error) {
	return ewmh.WmDesktopGet(s.xu, win)
}

func (s *Session) SetDesktop(win xproto.Window, d uint) {
	ewmh.WmDesktopSet(s.xu, win, d)
}

func (s *Session) DeleteProperty(win xproto.Window, name string) {
	xproto.DeleteProperty(s.xc, win, s.atoms.atom(name))
}

// SetFrameExtents publishes zero extents: borders are drawn by the
// server and there are no decorations.
func (s *Session) SetFrameExtents(win xproto.Window) {
	ewmh.FrameExtentsSet(s.xu, win, &ewmh.FrameExtents{})
}

func (s *Session) SetAllowedActions(win xproto.Window, actions []string) {
	ewmh.WmAllowedActionsSet(s.xu, win, actions)
}

// Strut reads _NET_WM_STRUT_PARTIAL, falling back to _NET_WM_STRUT
// spanning whole edges.
func (s *Session) Strut(win xproto.Window) (wm.Strut, error) {
	if p, err := ewmh.WmStrutPartialGet(s.xu, win); err == nil {
		return wm.Strut{
			Left: p.Left, Right: p.Right, Top: p.Top, Bottom: p.Bottom,
			LeftStartY: p.LeftStartY, LeftEndY: p.LeftEndY,
			RightStartY: p.RightStartY, RightEndY: p.RightEndY,
			TopStartX: p.TopStartX, TopEndX: p.TopEndX,
			BottomStartX: p.BottomStartX, BottomEndX: p.BottomEndX,
		}, nil
	}
	st, err := ewmh.WmStrutGet(s.xu, win)
	if err != nil {
		return wm.Strut{}, err
	}
	root := s.RootGeometry()
	w, h := uint(max(root.Width-1, 0)), uint(max(root.Height-1, 0))
	return wm.Strut{
		Left: st.Left, Right: st.Right, Top: st.Top, Bottom: st.Bottom,
		LeftEndY: h, RightEndY: h, TopEndX: w, BottomEndX: w,
	}, nil
}

func (s *Session) UserTime(win xproto.Window) (uint, error) {
	return ewmh.WmUserTimeGet(s.xu, win)
}

func (s *Session) UserTimeWindow(win xproto.Window) (xproto.Window, error) {
	return ewmh.WmUserTimeWindowGet(s.xu, win)
}

func (s *Session) SyncCounter(win xproto.Window) (uint32, error) {
	n, err := xprop.PropValNum(xprop.GetProperty(s.xu, win, "_NET_WM_SYNC_REQUEST_COUNTER"))
	return uint32(n), err
}

// FullscreenMonitors reads the top, bottom, left and right monitor
// indices.
func (s *Session) FullscreenMonitors(win xproto.Window) ([4]uint, error) {
	var out [4]uint
	nums, err := xprop.PropValNums(xprop.GetProperty(s.xu, win, "_NET_WM_FULLSCREEN_MONITORS"))
	if err != nil {
		return out, err
	}
	if len(nums) != 4 {
		return out, fmt.Errorf("_NET_WM_FULLSCREEN_MONITORS has %d values", len(nums))
	}
	copy(out[:], nums)
	return out, nil
}

func (s *Session) SetFullscreenMonitors(win xproto.Window, m [4]uint) {
	xprop.ChangeProp32(s.xu, win, "_NET_WM_FULLSCREEN_MONITORS", "CARDINAL", m[:]...)
}

func (s *Session) SetSupported(atoms []string) {
	ewmh.SupportedSet(s.xu, atoms)
}

// SetSupportingWMCheck points the root and checker at each other and
// names the checker.
func (s *Session) SetSupportingWMCheck(checker xproto.Window, name string) {
	ewmh.SupportingWmCheckSet(s.xu, s.screen.Root, checker)
	ewmh.SupportingWmCheckSet(s.xu, checker, checker)
	ewmh.WmNameSet(s.xu, checker, name)
}

func (s *Session) SetNumberOfDesktops(n uint) {
	ewmh.NumberOfDesktopsSet(s.xu, n)
}

func (s *Session) SetDesktopNames(names []string) {
	ewmh.DesktopNamesSet(s.xu, names)
}

func (s *Session) SetDesktopGeometry(width, height int) {
	ewmh.DesktopGeometrySet(s.xu, &ewmh.DesktopGeometry{Width: width, Height: height})
}

// SetDesktopViewport publishes n viewports at the origin.
func (s *Session) SetDesktopViewport(n int) {
	ewmh.DesktopViewportSet(s.xu, make([]ewmh.DesktopViewport, n))
}

func (s *Session) SetWorkarea(areas []layout.Rect) {
	out := make([]ewmh.Workarea, len(areas))
	for i, a := range areas {
		out[i] = ewmh.Workarea{X: a.X, Y: a.Y, Width: uint(a.Width), Height: uint(a.Height)}
	}
	ewmh.WorkareaSet(s.xu, out)
}

func (s *Session) SetCurrentDesktop(d uint) {
	ewmh.CurrentDesktopSet(s.xu, d)
}

func (s *Session) SetActiveWindow(win xproto.Window) {
	ewmh.ActiveWindowSet(s.xu, win)
}

func (s *Session) SetClientList(wins []xproto.Window) {
	ewmh.ClientListSet(s.xu, wins)
}

func (s *Session) SetClientListStacking(wins []xproto.Window) {
	ewmh.ClientListStackingSet(s.xu, wins)
}

func (s *Session) SetShowingDesktop(on bool) {
	ewmh.ShowingDesktopSet(s.xu, on)
}
