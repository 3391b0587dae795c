package wm

import (
	"github.com/BurntSushi/xgb/xproto"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/config"
)

// keyChord identifies a key binding: modifiers without Lock and Num
// Lock, plus the unshifted keysym.
type keyChord struct {
	mods uint16
	sym  xproto.Keysym
}

type buttonChord struct {
	mods   uint16
	button xproto.Button
}

// ignoredMods are grabbed in every combination and stripped before
// lookup, so bindings work with Caps Lock and Num Lock on.
var ignoredMods = []uint16{
	0,
	xproto.ModMaskLock,
	xproto.ModMask2,
	xproto.ModMaskLock | xproto.ModMask2,
}

const modsMask = xproto.ModMaskShift | xproto.ModMaskControl |
	xproto.ModMask1 | xproto.ModMask3 | xproto.ModMask4 | xproto.ModMask5

func cleanMods(state uint16) uint16 {
	return state & modsMask
}

// grabKeys (re)grabs every configured key on the root window.
func (w *WM) grabKeys() {
	w.conn.UngrabKeys()
	w.keys = make(map[keyChord]config.Keybind)
	for _, kb := range w.cfg.Keybinds {
		mods, err := config.ParseModifiers(kb.Mod)
		if err != nil {
			log.WithError(err).WithField("key", kb.Key).Warn("skipping keybind")
			continue
		}
		codes := w.conn.Keycodes(kb.Key)
		if len(codes) == 0 {
			log.WithField("key", kb.Key).Warn("no keycode for key")
			continue
		}
		for _, code := range codes {
			for _, extra := range ignoredMods {
				w.conn.GrabKey(mods|extra, code)
			}
		}
		w.keys[keyChord{mods, w.conn.Keysym(codes[0], 0)}] = kb
	}
}

// grabMouseBindings grabs the configured buttons on the root window.
func (w *WM) grabMouseBindings() {
	root := w.conn.Root()
	w.conn.UngrabButtons(root)
	w.buttons = make(map[buttonChord]string)
	for _, mb := range w.cfg.Mousebinds {
		mods, err := config.ParseModifiers(mb.Mod)
		if err != nil {
			log.WithError(err).WithField("button", mb.Button).Warn("skipping mousebind")
			continue
		}
		button := xproto.Button(mb.Button)
		for _, extra := range ignoredMods {
			w.conn.GrabButton(root, mods|extra, button, false)
		}
		w.buttons[buttonChord{mods, button}] = mb.Action
	}
}

// grabButtons installs the click to focus grab on unfocused clients.
func (w *WM) grabButtons(c *Client) {
	if !c.managedKind() || c.ID == w.active {
		return
	}
	w.conn.GrabButton(c.ID, xproto.ModMaskAny, xproto.ButtonIndexAny, true)
}

// Grab is a key binding resolved to its callback.
type Grab struct {
	kb       config.Keybind
	callback func() error
}

func (w *WM) grab(kb config.Keybind) Grab {
	g := Grab{kb: kb}
	active := func(f func(c *Client)) func() error {
		return func() error {
			if c := w.clients[w.active]; c != nil {
				f(c)
			}
			return nil
		}
	}
	run := func(cmd string) func() error {
		return func() error { w.run(cmd); return nil }
	}
	switch kb.Action {
	case config.ActionSpawn:
		g.callback = run(kb.Command)
	case config.ActionTerminal:
		g.callback = run(w.cfg.Programs.Terminal)
	case config.ActionBrowser:
		g.callback = run(w.cfg.Programs.Browser)
	case config.ActionLauncher:
		g.callback = run(w.cfg.Programs.Launcher)
	case config.ActionKill:
		g.callback = active(w.closeClient)
	case config.ActionSwitchWorkspace:
		g.callback = func() error { w.switchWorkspace(w.focusedMonitor, kb.Workspace); return nil }
	case config.ActionToggleWorkspace:
		g.callback = func() error { w.toggleWorkspace(w.focusedMonitor); return nil }
	case config.ActionMoveToWorkspace:
		g.callback = active(func(c *Client) { w.moveToWorkspace(c, kb.Workspace) })
	case config.ActionFocusMonitor:
		g.callback = func() error { w.focusMonitor(Next); return nil }
	case config.ActionFocusMonitorPrev:
		g.callback = func() error { w.focusMonitor(Prev); return nil }
	case config.ActionMoveToMonitor:
		g.callback = active(func(c *Client) { w.moveToMonitor(c, Next.step(c.Monitor, len(w.monitors))) })
	case config.ActionMoveToMonitorPrev:
		g.callback = active(func(c *Client) { w.moveToMonitor(c, Prev.step(c.Monitor, len(w.monitors))) })
	case config.ActionFocusNext:
		g.callback = func() error { w.cycleFocus(Next); return nil }
	case config.ActionFocusPrev:
		g.callback = func() error { w.cycleFocus(Prev); return nil }
	case config.ActionFullscreen:
		g.callback = active(func(c *Client) { w.setFullscreen(c, !c.fullscreen()) })
	case config.ActionToggleFloating:
		g.callback = active(func(c *Client) { w.setFloating(c, c.Kind != KindFloating) })
	case config.ActionQuit:
		g.callback = func() error { return ErrQuit }
	default:
		g.callback = func() error { return nil }
	}
	return g
}

func (w *WM) handleKeyPressEvent(ev xproto.KeyPressEvent) error {
	chord := keyChord{cleanMods(ev.State), w.conn.Keysym(ev.Detail, 0)}
	kb, ok := w.keys[chord]
	if !ok {
		return nil
	}
	if kb.Action == config.ActionToggleWorkspace {
		now := w.now()
		last := w.lastToggle
		released := w.toggleReleased
		w.lastToggle = now
		w.toggleReleased = false
		if !released || now.Sub(last) < toggleDebounce {
			return nil
		}
	}
	log.WithField("action", kb.Action).Debug("key binding")
	return w.grab(kb).callback()
}

func (w *WM) handleKeyReleaseEvent(ev xproto.KeyReleaseEvent) {
	chord := keyChord{cleanMods(ev.State), w.conn.Keysym(ev.Detail, 0)}
	if kb, ok := w.keys[chord]; ok && kb.Action == config.ActionToggleWorkspace {
		w.toggleReleased = true
	}
}

func (w *WM) handleButtonPressEvent(ev xproto.ButtonPressEvent) {
	root := w.conn.Root()
	if ev.Event != root {
		// Click to focus: the grab is synchronous, let the click through.
		defer w.conn.AllowReplayPointer(ev.Time)
	}
	target := ev.Event
	if target == root {
		target = ev.Child
	}
	c := w.clients[target]
	if c == nil {
		return
	}
	if action, ok := w.buttons[buttonChord{cleanMods(ev.State), ev.Detail}]; ok && ev.Event == root {
		x, y := int(ev.RootX), int(ev.RootY)
		switch action {
		case config.ActionDragWindow:
			w.beginDrag(c, dragMoving, x, y, 0, ev.Time)
		case config.ActionResizeFloating:
			if c.Kind == KindFloating {
				w.beginDrag(c, dragResizing, x, y, quadrantEdges(c.Floating, x, y), ev.Time)
			}
		}
		return
	}
	if c.ID != w.active && w.focusable(c) {
		w.focus(c)
	}
	if c.Kind == KindFloating {
		w.raiseFloating(c.ID)
		w.restack()
	}
}
