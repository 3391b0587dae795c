package x11

import (
	"strconv"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xinerama"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
	"github.com/intio/lwm/internal/wm"
)

// Monitors lists the active outputs. RANDR is asked first, then
// Xinerama; without either the root window is the only monitor.
func (s *Session) Monitors() ([]wm.MonitorInfo, error) {
	if s.hasRandr {
		mons, err := s.randrMonitors()
		if err == nil && len(mons) > 0 {
			return mons, nil
		}
		if err != nil {
			log.WithError(err).Warn("RANDR query failed")
		}
	}
	if s.hasXinerama {
		mons, err := s.xineramaMonitors()
		if err == nil && len(mons) > 0 {
			return mons, nil
		}
	}
	return []wm.MonitorInfo{{Name: "default", Rect: s.RootGeometry()}}, nil
}

func (s *Session) randrMonitors() ([]wm.MonitorInfo, error) {
	res, err := randr.GetScreenResourcesCurrent(s.xc, s.screen.Root).Reply()
	if err != nil {
		return nil, err
	}
	var mons []wm.MonitorInfo
	for _, output := range res.Outputs {
		oi, err := randr.GetOutputInfo(s.xc, output, res.ConfigTimestamp).Reply()
		if err != nil {
			return nil, err
		}
		if oi.Connection != randr.ConnectionConnected || oi.Crtc == 0 {
			continue
		}
		ci, err := randr.GetCrtcInfo(s.xc, oi.Crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			return nil, err
		}
		mons = appendMonitor(mons, wm.MonitorInfo{
			Name:   string(oi.Name),
			Output: uint32(output),
			Rect: layout.Rect{
				X:      int(ci.X),
				Y:      int(ci.Y),
				Width:  int(ci.Width),
				Height: int(ci.Height),
			},
		})
	}
	return mons, nil
}

func (s *Session) xineramaMonitors() ([]wm.MonitorInfo, error) {
	reply, err := xinerama.QueryScreens(s.xc).Reply()
	if err != nil {
		return nil, err
	}
	var mons []wm.MonitorInfo
	for i, si := range reply.ScreenInfo {
		mons = appendMonitor(mons, wm.MonitorInfo{
			Name: "xinerama-" + strconv.Itoa(i),
			Rect: layout.Rect{
				X:      int(si.XOrg),
				Y:      int(si.YOrg),
				Width:  int(si.Width),
				Height: int(si.Height),
			},
		})
	}
	return mons, nil
}

// appendMonitor skips empty outputs and clones of an output already
// listed.
func appendMonitor(mons []wm.MonitorInfo, m wm.MonitorInfo) []wm.MonitorInfo {
	if m.Rect.Empty() {
		return mons
	}
	for _, other := range mons {
		if other.Rect == m.Rect {
			return mons
		}
	}
	return append(mons, m)
}
