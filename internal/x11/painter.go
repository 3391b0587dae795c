package x11

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xwindow"
	log "github.com/sirupsen/logrus"

	"github.com/intio/lwm/internal/layout"
	"github.com/intio/lwm/internal/wm"
)

const defaultFont = "fixed"

// painter draws status bar text with a core font.
type painter struct {
	xc   *xgb.Conn
	gc   xproto.Gcontext
	font xproto.Font

	ascent, descent int
	charWidth       int
}

func newPainter(xc *xgb.Conn, root xproto.Window, name string) (*painter, error) {
	p := &painter{xc: xc}
	font, err := xproto.NewFontId(xc)
	if err != nil {
		return nil, err
	}
	if err := xproto.OpenFontChecked(xc, font, uint16(len(name)), name).Check(); err != nil {
		if name == defaultFont {
			return nil, err
		}
		log.WithError(err).WithField("font", name).Warn("cannot open font, using " + defaultFont)
		if err := xproto.OpenFontChecked(xc, font, uint16(len(defaultFont)), defaultFont).Check(); err != nil {
			return nil, err
		}
	}
	p.font = font

	info, err := xproto.QueryFont(xc, xproto.Fontable(font)).Reply()
	if err != nil {
		return nil, err
	}
	p.ascent, p.descent = int(info.FontAscent), int(info.FontDescent)
	p.charWidth = int(info.MaxBounds.CharacterWidth)

	if p.gc, err = xproto.NewGcontextId(xc); err != nil {
		return nil, err
	}
	if err := xproto.CreateGCChecked(xc, p.gc, xproto.Drawable(root),
		xproto.GcFont, []uint32{uint32(font)}).Check(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *painter) setColors(fg, bg uint32) {
	xproto.ChangeGC(p.xc, p.gc, xproto.GcForeground|xproto.GcBackground, []uint32{fg, bg})
}

func (p *painter) fill(d xproto.Drawable, r layout.Rect, color uint32) {
	p.setColors(color, color)
	xproto.PolyFillRectangle(p.xc, d, p.gc, []xproto.Rectangle{{
		X: int16(r.X), Y: int16(r.Y), Width: uint16(r.Width), Height: uint16(r.Height),
	}})
}

// drawText draws text with its baseline centered in a bar of height h.
func (p *painter) drawText(d xproto.Drawable, x, h int, fg, bg uint32, text string) {
	if len(text) > 255 {
		text = text[:255]
	}
	p.setColors(fg, bg)
	y := (h + p.ascent - p.descent) / 2
	xproto.ImageText8(p.xc, uint8(len(text)), d, p.gc, int16(x), int16(y), text)
}

func (p *painter) textWidth(text string) int {
	chars := make([]xproto.Char2b, len(text))
	for i := 0; i < len(text); i++ {
		chars[i] = xproto.Char2b{Byte2: text[i]}
	}
	reply, err := xproto.QueryTextExtents(p.xc, xproto.Fontable(p.font), chars, uint16(len(chars))).Reply()
	if err != nil {
		return p.charWidth * len(text)
	}
	return int(reply.OverallWidth)
}

// CreateBar creates and maps an override-redirect bar window.
func (s *Session) CreateBar(r layout.Rect, bg uint32) (xproto.Window, error) {
	if s.painter == nil {
		font := s.font
		if font == "" {
			font = defaultFont
		}
		p, err := newPainter(s.xc, s.screen.Root, font)
		if err != nil {
			return 0, err
		}
		s.painter = p
	}
	win, err := xwindow.Generate(s.xu)
	if err != nil {
		return 0, err
	}
	err = win.CreateChecked(s.screen.Root, r.X, r.Y, r.Width, r.Height,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		bg, 1, xproto.EventMaskExposure)
	if err != nil {
		return 0, err
	}
	win.Map()
	return win.Id, nil
}

func (s *Session) MoveBar(bar xproto.Window, r layout.Rect) {
	xproto.ConfigureWindow(s.xc, bar,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(int16(r.X)), uint32(int16(r.Y)), uint32(r.Width), uint32(r.Height)})
}

func (s *Session) DrawBar(bar xproto.Window, r layout.Rect, bg uint32, texts []wm.BarText) {
	if s.painter == nil {
		return
	}
	d := xproto.Drawable(bar)
	s.painter.fill(d, layout.Rect{Width: r.Width, Height: r.Height}, bg)
	for _, t := range texts {
		w := s.painter.textWidth(t.Text)
		s.painter.fill(d, layout.Rect{X: t.X, Width: w, Height: r.Height}, t.Bg)
		s.painter.drawText(d, t.X, r.Height, t.Fg, t.Bg, t.Text)
	}
}

func (s *Session) TextWidth(text string) int {
	if s.painter == nil {
		return 6 * len(text)
	}
	return s.painter.textWidth(text)
}

var _ wm.Conn = (*Session)(nil)
