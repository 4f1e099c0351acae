package menu

import (
	"image/color"
	"strconv"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
	"github.com/KanekiZLF/Stream-Deck-Esp32/internal/buildinfo"
)

// High contrast beats subtlety on a 240px panel.
var (
	colBG     = color.RGBA{R: 0x08, G: 0x0B, B: 0x10, A: 0xFF}
	colTitle  = color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}
	colText   = color.RGBA{R: 0xC8, G: 0xC8, B: 0xC8, A: 0xFF}
	colDim    = color.RGBA{R: 0x6E, G: 0x78, B: 0x86, A: 0xFF}
	colAccent = color.RGBA{R: 0x58, G: 0xA6, B: 0xFF, A: 0xFF}
	colOK     = color.RGBA{R: 0x4D, G: 0xD2, B: 0x6A, A: 0xFF}
	colWarn   = color.RGBA{R: 0xFF, G: 0x6A, B: 0x4D, A: 0xFF}
)

type renderer struct {
	fb hal.Framebuffer
	d  *fbDisplay

	font       tinyfont.Fonter
	fontHeight int16
	lineStep   int16

	term *tinyterm.Terminal
}

func newRenderer(disp hal.Display) *renderer {
	if disp == nil {
		return nil
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	r := &renderer{
		fb:         fb,
		d:          &fbDisplay{fb: fb},
		font:       &proggy.TinySZ8pt7b,
		fontHeight: 10,
	}
	r.lineStep = r.fontHeight + 4
	return r
}

func (r *renderer) draw(t *Task) {
	buf := r.fb.Buffer()
	if buf == nil {
		return
	}
	if t.scr == screenConsole {
		r.drawConsole(t)
		return
	}
	clearRGB565(buf, rgb565From888(colBG.R, colBG.G, colBG.B))

	switch t.scr {
	case screenSplash:
		r.drawSplash()
	case screenMain:
		r.drawMain(t)
	case screenBrightness:
		r.drawBrightness(t)
	case screenBattery:
		r.drawBattery(t)
	case screenAbout:
		r.drawAbout(t)
	default:
		r.drawList(t)
	}
	if t.pop != popupNone {
		r.drawPopup(t)
	}
	_ = r.fb.Present()
}

func (r *renderer) text(x, y int16, s string, c color.RGBA) {
	tinyfont.WriteLine(r.d, r.font, x, y+r.fontHeight, s, c)
}

func (r *renderer) centered(y int16, s string, c color.RGBA) {
	_, w := tinyfont.LineWidth(r.font, s)
	x := (int16(r.fb.Width()) - int16(w)) / 2
	if x < 0 {
		x = 0
	}
	r.text(x, y, s, c)
}

func (r *renderer) drawSplash() {
	h := int16(r.fb.Height())
	r.centered(h/2-r.lineStep, "STREAM DECK", colTitle)
	r.centered(h/2, buildinfo.Short(), colDim)
	r.centered(h/2+r.lineStep, "booting...", colDim)
}

func (r *renderer) drawMain(t *Task) {
	r.centered(8, screenMain.title(), colTitle)

	label, c := "LINK: NONE", colWarn
	switch t.protocol {
	case proto.ProtocolUSB:
		label, c = "LINK: USB", colAccent
	case proto.ProtocolWifi:
		label, c = "LINK: WIFI", colOK
	}
	r.centered(8+2*r.lineStep, label, c)

	if t.protocol == proto.ProtocolWifi && t.haveWifi {
		r.centered(8+3*r.lineStep, ipText(t.wifiSt.IP), colText)
	}

	r.centered(int16(r.fb.Height())-2*r.lineStep, "press knob for settings", colDim)
}

func (r *renderer) drawList(t *Task) {
	r.centered(8, t.scr.title(), colTitle)

	y := 8 + 2*r.lineStep
	if t.scr == screenWifi {
		y = r.drawWifiStatus(t, y)
	}

	rows := rowsFor(t.scr)
	effects := proto.Effects()
	for i, row := range rows {
		c := colText
		prefix := "  "
		if i == t.sel {
			c = colAccent
			prefix = "> "
		}
		suffix := ""
		if t.scr == screenEffects && i < len(effects) && effects[i] == t.effect {
			suffix = " *"
		}
		r.text(12, y, prefix+row+suffix, c)
		y += r.lineStep
	}
}

func (r *renderer) drawWifiStatus(t *Task, y int16) int16 {
	if !t.haveWifi {
		r.text(12, y, "status: ...", colDim)
		return y + 2*r.lineStep
	}
	st := t.wifiSt
	if st.LinkUp {
		r.text(12, y, "link up  "+ipText(st.IP), colOK)
	} else {
		r.text(12, y, "link down", colWarn)
	}
	y += r.lineStep
	ssid := st.SSID
	if ssid == "" {
		ssid = "(none)"
	}
	r.text(12, y, "ssid: "+ssid, colText)
	y += r.lineStep
	if st.Provisioning {
		r.text(12, y, "portal active", colAccent)
		y += r.lineStep
	}
	return y + r.lineStep
}

func (r *renderer) drawBrightness(t *Task) {
	r.centered(8, screenBrightness.title(), colTitle)
	r.centered(8+3*r.lineStep, strconv.Itoa(int(t.brightness)), colAccent)

	w := int16(r.fb.Width())
	barY := 8 + 5*r.lineStep
	barW := (w - 40) * int16(t.brightness) / 255
	_ = r.d.FillRectangle(20, barY, w-40, 10, color.RGBA{R: 0x20, G: 0x26, B: 0x30, A: 0xFF})
	if barW > 0 {
		_ = r.d.FillRectangle(20, barY, barW, 10, colAccent)
	}

	r.centered(int16(r.fb.Height())-2*r.lineStep, "press to save", colDim)
}

func (r *renderer) drawBattery(t *Task) {
	r.centered(8, screenBattery.title(), colTitle)
	if !t.haveBatt {
		r.centered(8+3*r.lineStep, "sampling...", colDim)
		return
	}
	c := colOK
	if t.battPct <= 15 {
		c = colWarn
	}
	r.centered(8+3*r.lineStep, strconv.Itoa(int(t.battPct))+"%", c)
	r.centered(8+4*r.lineStep, mvText(t.battMV), colText)
}

func (r *renderer) drawAbout(t *Task) {
	r.centered(8, screenAbout.title(), colTitle)
	y := 8 + 2*r.lineStep
	r.text(12, y, "fw: deck "+buildinfo.Short(), colText)
	y += r.lineStep
	r.text(12, y, "link: "+t.protocol.String(), colText)
	y += r.lineStep
	if t.protocol == proto.ProtocolWifi && t.haveWifi {
		r.text(12, y, "ip: "+ipText(t.wifiSt.IP), colText)
	}
}

func (r *renderer) drawPopup(t *Task) {
	w := int16(r.fb.Width())
	h := int16(r.fb.Height())
	boxW := w - 24
	boxH := 5 * r.lineStep
	x := (w - boxW) / 2
	y := (h - boxH) / 2

	_ = r.d.FillRectangle(x-2, y-2, boxW+4, boxH+4, colAccent)
	_ = r.d.FillRectangle(x, y, boxW, boxH, color.RGBA{R: 0x10, G: 0x14, B: 0x1C, A: 0xFF})

	r.centered(y+r.lineStep/2, t.pop.prompt(), colTitle)
	r.centered(y+2*r.lineStep, "press: confirm", colWarn)
	r.centered(y+3*r.lineStep, "wait: cancel", colDim)
}

func ipText(ip [4]byte) string {
	return strconv.Itoa(int(ip[0])) + "." + strconv.Itoa(int(ip[1])) + "." +
		strconv.Itoa(int(ip[2])) + "." + strconv.Itoa(int(ip[3]))
}

func mvText(mv uint16) string {
	whole := int(mv) / 1000
	frac := (int(mv) % 1000) / 10
	s := strconv.Itoa(frac)
	if frac < 10 {
		s = "0" + s
	}
	return strconv.Itoa(whole) + "." + s + " V"
}

// fbDisplay adapts the framebuffer to the displayer interfaces the
// font and terminal packages draw through.
type fbDisplay struct {
	fb hal.Framebuffer
}

func (d *fbDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb == nil || d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	buf := d.fb.Buffer()
	if buf == nil {
		return
	}
	ix := int(x)
	iy := int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	pixel := rgb565From888(c.R, c.G, c.B)
	off := iy*d.fb.StrideBytes() + ix*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) Display() error { return nil }

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	for yy := y; yy < y+height; yy++ {
		for xx := x; xx < x+width; xx++ {
			d.SetPixel(xx, yy, c)
		}
	}
	return nil
}

func (d *fbDisplay) SetScroll(line int16) {}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error { return nil }

func clearRGB565(buf []byte, pixel uint16) {
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i] = lo
		buf[i+1] = hi
	}
}

func rgb565From888(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b>>3)
}
