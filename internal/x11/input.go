package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xcursor"

	"github.com/intio/lwm/internal/wm"
)

var cursorGlyphs = map[wm.Cursor]uint16{
	wm.CursorNormal: xcursor.LeftPtr,
	wm.CursorMove:   xcursor.Fleur,
	wm.CursorResize: xcursor.BottomRightCorner,
}

func (s *Session) cursor(c wm.Cursor) xproto.Cursor {
	glyph := cursorGlyphs[c]
	if cur, ok := s.cursors[int(glyph)]; ok {
		return cur
	}
	cur, err := xcursor.CreateCursor(s.xu, glyph)
	if err != nil {
		return 0
	}
	s.cursors[int(glyph)] = cur
	return cur
}

// GrabPointer grabs the pointer for a drag, showing cursor c.
func (s *Session) GrabPointer(c wm.Cursor, t xproto.Timestamp) error {
	reply, err := xproto.GrabPointer(s.xc, false, s.screen.Root,
		xproto.EventMaskButtonRelease|xproto.EventMaskPointerMotion,
		xproto.GrabModeAsync, xproto.GrabModeAsync,
		0, s.cursor(c), t).Reply()
	if err != nil {
		return err
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("pointer grab status %d", reply.Status)
	}
	return nil
}

func (s *Session) UngrabPointer(t xproto.Timestamp) {
	xproto.UngrabPointer(s.xc, t)
}

func (s *Session) WarpPointer(x, y int) {
	xproto.WarpPointer(s.xc, 0, s.screen.Root, 0, 0, 0, 0, int16(x), int16(y))
}

func (s *Session) AllowReplayPointer(t xproto.Timestamp) {
	xproto.AllowEvents(s.xc, xproto.AllowReplayPointer, t)
}

// Keycodes resolves a key name such as "Return" or "a".
func (s *Session) Keycodes(key string) []xproto.Keycode {
	return keybind.StrToKeycodes(s.xu, key)
}

// RefreshKeyboard reloads the keyboard and modifier maps after a
// MappingNotify.
func (s *Session) RefreshKeyboard() {
	keyMap, modMap := keybind.MapsGet(s.xu)
	keybind.KeyMapSet(s.xu, keyMap)
	keybind.ModMapSet(s.xu, modMap)
}

func (s *Session) GrabKey(mods uint16, code xproto.Keycode) {
	keybind.Grab(s.xu, s.screen.Root, mods, code)
}

func (s *Session) UngrabKeys() {
	xproto.UngrabKey(s.xc, xproto.GrabAny, s.screen.Root, xproto.ModMaskAny)
}

// GrabButton grabs button on win. A synchronous grab freezes the
// pointer until AllowReplayPointer.
func (s *Session) GrabButton(win xproto.Window, mods uint16, button xproto.Button, sync bool) {
	mode := byte(xproto.GrabModeAsync)
	if sync {
		mode = xproto.GrabModeSync
	}
	xproto.GrabButton(s.xc, false, win,
		xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease,
		mode, xproto.GrabModeAsync, 0, 0, byte(button), mods)
}

func (s *Session) UngrabButtons(win xproto.Window) {
	xproto.UngrabButton(s.xc, xproto.ButtonIndexAny, win, xproto.ModMaskAny)
}
