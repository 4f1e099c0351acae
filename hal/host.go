//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

const (
	// Pad geometry of the simulated device.
	hostButtonCount = 16
	hostStripLen    = 16

	hostScreenW = 240
	hostScreenH = 240
)

type hostHAL struct {
	logger  *hostLogger
	fb      *hostFramebuffer
	strip   *hostStrip
	buttons *hostButtons
	enc     *hostEncoder
	t       *hostTime
	flash   *hostFlash
	serial  *hostSerial
	battery *hostBattery
	wifi    *hostWifi
}

// New returns a host HAL implementation backed by the simulator.
func New() HAL {
	logger := &hostLogger{w: os.Stderr}
	return &hostHAL{
		logger:  logger,
		fb:      newHostFramebuffer(hostScreenW, hostScreenH),
		strip:   newHostStrip(hostStripLen),
		buttons: &hostButtons{},
		enc:     newHostEncoder(),
		t:       newHostTime(),
		flash:   newHostFlash(),
		serial:  newHostSerial(),
		battery: &hostBattery{},
		wifi:    newHostWifi(logger),
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Strip() Strip     { return h.strip }
func (h *hostHAL) Buttons() Buttons { return h.buttons }
func (h *hostHAL) Encoder() Encoder { return h.enc }
func (h *hostHAL) Flash() Flash     { return h.flash }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) Serial() Serial   { return h.serial }
func (h *hostHAL) Battery() Battery { return h.battery }
func (h *hostHAL) Wifi() Wifi       { return h.wifi }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

// Log lines go to stderr so stdout stays clean for the serial link.
type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostFramebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	buf    []byte
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	stride := width * 2
	return &hostFramebuffer{
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
	}
}

func (f *hostFramebuffer) Width() int          { return f.width }
func (f *hostFramebuffer) Height() int         { return f.height }
func (f *hostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *hostFramebuffer) StrideBytes() int    { return f.stride }
func (f *hostFramebuffer) Buffer() []byte      { return f.buf }
func (f *hostFramebuffer) Present() error      { return nil }

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pixel := rgb565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}

func (f *hostFramebuffer) snapshotRGB565(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf)
}

type hostStrip struct {
	mu  sync.Mutex
	px  [][3]uint8
	out [][3]uint8
}

func newHostStrip(n int) *hostStrip {
	return &hostStrip{
		px:  make([][3]uint8, n),
		out: make([][3]uint8, n),
	}
}

func (s *hostStrip) Len() int { return len(s.px) }

func (s *hostStrip) SetPixel(i int, r, g, b uint8) {
	if i < 0 || i >= len(s.px) {
		return
	}
	s.mu.Lock()
	s.px[i] = [3]uint8{r, g, b}
	s.mu.Unlock()
}

func (s *hostStrip) Show() error {
	s.mu.Lock()
	copy(s.out, s.px)
	s.mu.Unlock()
	return nil
}

// snapshot returns the last shown colors (what the physical strip
// would display).
func (s *hostStrip) snapshot(dst [][3]uint8) {
	s.mu.Lock()
	copy(dst, s.out)
	s.mu.Unlock()
}

type hostButtons struct {
	mask atomic.Uint32
}

func (b *hostButtons) Read() uint16 { return uint16(b.mask.Load()) }

func (b *hostButtons) set(mask uint16) { b.mask.Store(uint32(mask)) }

type hostEncoder struct {
	ch chan EncoderEvent
}

func newHostEncoder() *hostEncoder {
	return &hostEncoder{ch: make(chan EncoderEvent, 32)}
}

func (e *hostEncoder) Events() <-chan EncoderEvent { return e.ch }

func (e *hostEncoder) emit(ev EncoderEvent) {
	select {
	case e.ch <- ev:
	default:
	}
}

// hostBattery fakes a slowly draining pack so BATTERY_INFO has
// something to show.
type hostBattery struct {
	mu    sync.Mutex
	reads uint64
}

func (b *hostBattery) ReadMillivolts() (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	mv := uint64(4050) - b.reads/8
	if mv < 3300 {
		mv = 3300
	}
	return uint16(mv), nil
}
