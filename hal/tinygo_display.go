//go:build tinygo && baremetal

package hal

import (
	"errors"
	"machine"
	"time"
)

type st7789 struct {
	spi machine.SPI
	cs  machine.Pin
	dc  machine.Pin
	rst machine.Pin
	bl  machine.Pin

	txBuf []byte
}

func initST7789() (*st7789, error) {
	spi := machine.SPI3
	if err := spi.Configure(machine.SPIConfig{
		SCK:       machine.GPIO18,
		SDO:       machine.GPIO23,
		SDI:       machine.NoPin,
		Frequency: 40_000_000,
	}); err != nil {
		return nil, err
	}

	lcd := &st7789{
		spi:   spi,
		cs:    machine.GPIO5,
		dc:    machine.GPIO16,
		rst:   machine.GPIO17,
		bl:    machine.GPIO4,
		txBuf: make([]byte, 4096),
	}

	lcd.cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	lcd.dc.Configure(machine.PinConfig{Mode: machine.PinOutput})
	lcd.rst.Configure(machine.PinConfig{Mode: machine.PinOutput})
	lcd.bl.Configure(machine.PinConfig{Mode: machine.PinOutput})
	lcd.cs.High()
	lcd.dc.High()
	lcd.rst.High()
	lcd.bl.Low()

	lcd.reset()
	lcd.init()
	lcd.bl.High()

	return lcd, nil
}

func (d *st7789) reset() {
	d.rst.Low()
	time.Sleep(50 * time.Millisecond)
	d.rst.High()
	time.Sleep(150 * time.Millisecond)
}

func (d *st7789) init() {
	d.cmd(0x11) // SLPOUT
	time.Sleep(120 * time.Millisecond)

	// Pixel format: 16bpp.
	d.cmd(0x3A, 0x55) // COLMOD

	// Memory access control: row/column order as wired.
	d.cmd(0x36, 0x00) // MADCTL

	// IPS panels want inversion on.
	d.cmd(0x21) // INVON
	d.cmd(0x13) // NORON

	d.cmd(0x29) // DISPON
	time.Sleep(20 * time.Millisecond)
}

func (d *st7789) cmd(cmd byte, data ...byte) {
	d.cs.Low()
	d.dc.Low()
	d.spi.Tx([]byte{cmd}, nil)
	d.dc.High()
	if len(data) > 0 {
		d.spi.Tx(data, nil)
	}
	d.cs.High()
}

func (d *st7789) setWindow(x0, y0, x1, y1 uint16) {
	d.cmd(
		0x2A,
		byte(x0>>8), byte(x0),
		byte(x1>>8), byte(x1),
	)
	d.cmd(
		0x2B,
		byte(y0>>8), byte(y0),
		byte(y1>>8), byte(y1),
	)
	d.cmd(0x2C)
}

func (d *st7789) blitRGB565LittleEndian(buf []byte, w, h int) error {
	if w <= 0 || h <= 0 || len(buf) < w*h*2 {
		return errors.New("invalid framebuffer")
	}

	d.setWindow(0, 0, uint16(w-1), uint16(h-1))

	d.cs.Low()
	d.dc.High()

	chunk := d.txBuf
	if len(chunk)%2 != 0 {
		chunk = chunk[:len(chunk)-1]
	}
	if len(chunk) < 2 {
		return errors.New("tx buffer too small")
	}

	for off := 0; off < w*h*2; {
		n := len(chunk)
		remain := w*h*2 - off
		if n > remain {
			n = remain
			n &^= 1
		}
		src := buf[off : off+n]

		for i := 0; i < n; i += 2 {
			// The firmware stores RGB565 little-endian. The LCD wants
			// big-endian.
			chunk[i] = src[i+1]
			chunk[i+1] = src[i]
		}
		d.spi.Tx(chunk[:n], nil)
		off += n
	}

	d.cs.High()
	return nil
}

type deckFramebuffer struct {
	w      int
	h      int
	stride int
	buf    []byte

	lcd *st7789
}

func (f *deckFramebuffer) Width() int          { return f.w }
func (f *deckFramebuffer) Height() int         { return f.h }
func (f *deckFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *deckFramebuffer) StrideBytes() int    { return f.stride }
func (f *deckFramebuffer) Buffer() []byte      { return f.buf }

func (f *deckFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := rgb565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}

func (f *deckFramebuffer) Present() error {
	if f.lcd == nil {
		return ErrNotImplemented
	}
	return f.lcd.blitRGB565LittleEndian(f.buf, f.w, f.h)
}

func newDeckDisplay() (*deckFramebuffer, error) {
	lcd, err := initST7789()
	if err != nil {
		return nil, err
	}

	const w = 240
	const h = 240
	return &deckFramebuffer{
		w:      w,
		h:      h,
		stride: w * 2,
		buf:    make([]byte, w*h*2),
		lcd:    lcd,
	}, nil
}

func newDeckDisplayStub() *deckFramebuffer {
	const w = 240
	const h = 240
	return &deckFramebuffer{
		w:      w,
		h:      h,
		stride: w * 2,
		buf:    make([]byte, w*h*2),
	}
}
