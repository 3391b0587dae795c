package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xprop"
)

// wellKnownAtoms are interned once at startup.
var wellKnownAtoms = []string{
	"UTF8_STRING",
	"WM_PROTOCOLS",
	"WM_DELETE_WINDOW",
	"WM_TAKE_FOCUS",
	"WM_STATE",
	"WM_CHANGE_STATE",
	"WM_NAME",
	"WM_CLASS",
	"WM_HINTS",
	"WM_NORMAL_HINTS",
	"WM_TRANSIENT_FOR",

	"_NET_SUPPORTED",
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_CLIENT_LIST",
	"_NET_CLIENT_LIST_STACKING",
	"_NET_NUMBER_OF_DESKTOPS",
	"_NET_DESKTOP_NAMES",
	"_NET_DESKTOP_GEOMETRY",
	"_NET_DESKTOP_VIEWPORT",
	"_NET_CURRENT_DESKTOP",
	"_NET_ACTIVE_WINDOW",
	"_NET_WORKAREA",
	"_NET_SHOWING_DESKTOP",
	"_NET_CLOSE_WINDOW",
	"_NET_MOVERESIZE_WINDOW",
	"_NET_WM_MOVERESIZE",
	"_NET_RESTACK_WINDOW",
	"_NET_REQUEST_FRAME_EXTENTS",
	"_NET_WM_NAME",
	"_NET_WM_DESKTOP",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_STATE",
	"_NET_WM_ALLOWED_ACTIONS",
	"_NET_WM_STRUT",
	"_NET_WM_STRUT_PARTIAL",
	"_NET_WM_USER_TIME",
	"_NET_WM_USER_TIME_WINDOW",
	"_NET_FRAME_EXTENTS",
	"_NET_WM_PING",
	"_NET_WM_SYNC_REQUEST",
	"_NET_WM_SYNC_REQUEST_COUNTER",
	"_NET_WM_FULLSCREEN_MONITORS",

	"_NET_WM_WINDOW_TYPE_DESKTOP",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_TOOLBAR",
	"_NET_WM_WINDOW_TYPE_MENU",
	"_NET_WM_WINDOW_TYPE_UTILITY",
	"_NET_WM_WINDOW_TYPE_SPLASH",
	"_NET_WM_WINDOW_TYPE_DIALOG",
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
	"_NET_WM_WINDOW_TYPE_POPUP_MENU",
	"_NET_WM_WINDOW_TYPE_TOOLTIP",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_WINDOW_TYPE_COMBO",
	"_NET_WM_WINDOW_TYPE_DND",
	"_NET_WM_WINDOW_TYPE_NORMAL",

	"_NET_WM_STATE_MODAL",
	"_NET_WM_STATE_STICKY",
	"_NET_WM_STATE_MAXIMIZED_VERT",
	"_NET_WM_STATE_MAXIMIZED_HORZ",
	"_NET_WM_STATE_SHADED",
	"_NET_WM_STATE_SKIP_TASKBAR",
	"_NET_WM_STATE_SKIP_PAGER",
	"_NET_WM_STATE_HIDDEN",
	"_NET_WM_STATE_FULLSCREEN",
	"_NET_WM_STATE_ABOVE",
	"_NET_WM_STATE_BELOW",
	"_NET_WM_STATE_DEMANDS_ATTENTION",
	"_NET_WM_STATE_FOCUSED",

	"_NET_WM_ACTION_MOVE",
	"_NET_WM_ACTION_RESIZE",
	"_NET_WM_ACTION_MINIMIZE",
	"_NET_WM_ACTION_SHADE",
	"_NET_WM_ACTION_STICK",
	"_NET_WM_ACTION_MAXIMIZE_HORZ",
	"_NET_WM_ACTION_MAXIMIZE_VERT",
	"_NET_WM_ACTION_FULLSCREEN",
	"_NET_WM_ACTION_CHANGE_DESKTOP",
	"_NET_WM_ACTION_CLOSE",
	"_NET_WM_ACTION_ABOVE",
	"_NET_WM_ACTION_BELOW",
}

// atomCache maps atom names to atoms and back. Names that were not
// interned at startup are resolved on first use.
type atomCache struct {
	atoms  map[string]xproto.Atom
	names  map[xproto.Atom]string
	intern func(string) (xproto.Atom, error)
	lookup func(xproto.Atom) (string, error)
}

func newAtomCache(intern func(string) (xproto.Atom, error), lookup func(xproto.Atom) (string, error)) *atomCache {
	return &atomCache{
		atoms:  make(map[string]xproto.Atom),
		names:  make(map[xproto.Atom]string),
		intern: intern,
		lookup: lookup,
	}
}

// internAtoms goes through xprop so xgbutil's ewmh and icccm helpers
// share the interned atoms.
func internAtoms(xu *xgbutil.XUtil) (*atomCache, error) {
	a := newAtomCache(
		func(name string) (xproto.Atom, error) { return xprop.Atm(xu, name) },
		func(atom xproto.Atom) (string, error) { return xprop.AtomName(xu, atom) },
	)
	if err := a.preload(wellKnownAtoms); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *atomCache) add(name string, atom xproto.Atom) {
	a.atoms[name] = atom
	a.names[atom] = name
}

func (a *atomCache) preload(names []string) error {
	for _, name := range names {
		atom, err := a.intern(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		a.add(name, atom)
	}
	return nil
}

func (a *atomCache) atom(name string) xproto.Atom {
	if atom, ok := a.atoms[name]; ok {
		return atom
	}
	if a.intern == nil {
		return 0
	}
	atom, err := a.intern(name)
	if err != nil {
		return 0
	}
	a.add(name, atom)
	return atom
}

func (a *atomCache) name(atom xproto.Atom) string {
	if atom == 0 {
		return ""
	}
	if name, ok := a.names[atom]; ok {
		return name
	}
	if a.lookup == nil {
		return ""
	}
	name, err := a.lookup(atom)
	if err != nil {
		return ""
	}
	a.add(name, atom)
	return name
}
