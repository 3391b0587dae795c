package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
)

var modifierNames = map[string]uint16{
	"shift":   xproto.ModMaskShift,
	"lock":    xproto.ModMaskLock,
	"control": xproto.ModMaskControl,
	"ctrl":    xproto.ModMaskControl,
	"mod1":    xproto.ModMask1,
	"alt":     xproto.ModMask1,
	"mod2":    xproto.ModMask2,
	"mod3":    xproto.ModMask3,
	"mod4":    xproto.ModMask4,
	"super":   xproto.ModMask4,
	"mod5":    xproto.ModMask5,
}

// ParseModifiers turns "Mod4+Shift" into a modifier mask. Names are
// case insensitive and may be joined by '+', '-' or '|'. An empty
// string means no modifiers.
func ParseModifiers(s string) (uint16, error) {
	var mask uint16
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '+' || r == '-' || r == '|' || r == ' '
	})
	for _, f := range fields {
		m, ok := modifierNames[strings.ToLower(f)]
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q", f)
		}
		mask |= m
	}
	return mask, nil
}
