//go:build tinygo && baremetal

package hal

import (
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/ws2812"
)

// Deck wiring (ESP32, TFT on VSPI):
//
//	ST7789 TFT    SCK=18 SDO=23 CS=5 DC=16 RST=17 BL=4
//	WS2812 data   GPIO27
//	74HC165 pair  PL=25 CLK=26 QH=39
//	Encoder       A=32 B=33 SW=35 (input-only pins have board pullups)
//	Battery ADC   GPIO34 behind a 2:1 divider
//	UART0         115200 8N1 over the USB bridge
const (
	pinStripData = machine.GPIO27

	pinBtnLatch = machine.GPIO25
	pinBtnClock = machine.GPIO26
	pinBtnData  = machine.GPIO39

	pinEncA  = machine.GPIO32
	pinEncB  = machine.GPIO33
	pinEncSW = machine.GPIO35

	pinBattery = machine.GPIO34
)

type tinyGoHAL struct {
	logger  *uartLogger
	fb      Framebuffer
	strip   *tinyGoStrip
	buttons *tinyGoButtons
	enc     *tinyGoEncoder
	t       *tinyGoTime
	flash   Flash
	serial  *uartSerial
	battery *tinyGoBattery
	wifi    Wifi
}

// New returns the ESP32 deck HAL.
//
// There is no TinyGo driver for the ESP32 radio yet, so WiFi is a
// stub on hardware; the USB transport carries everything.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	fb, err := newDeckDisplay()
	if err != nil {
		fb = newDeckDisplayStub()
	}

	return &tinyGoHAL{
		logger:  &uartLogger{uart: uart},
		fb:      fb,
		strip:   newTinyGoStrip(pinStripData, 16),
		buttons: newTinyGoButtons(pinBtnLatch, pinBtnClock, pinBtnData),
		enc:     newTinyGoEncoder(pinEncA, pinEncB, pinEncSW),
		t:       newTinyGoTime(),
		flash:   stubFlash{},
		serial:  &uartSerial{uart: uart},
		battery: newTinyGoBattery(pinBattery),
		wifi:    nullWifi{},
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Strip() Strip     { return h.strip }
func (h *tinyGoHAL) Buttons() Buttons { return h.buttons }
func (h *tinyGoHAL) Encoder() Encoder { return h.enc }
func (h *tinyGoHAL) Flash() Flash     { return h.flash }
func (h *tinyGoHAL) Time() Time       { return h.t }
func (h *tinyGoHAL) Serial() Serial   { return h.serial }
func (h *tinyGoHAL) Battery() Battery { return h.battery }
func (h *tinyGoHAL) Wifi() Wifi       { return h.wifi }

type tinyGoStrip struct {
	dev ws2812.Device
	px  []color.RGBA
}

func newTinyGoStrip(pin machine.Pin, n int) *tinyGoStrip {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &tinyGoStrip{dev: ws2812.New(pin), px: make([]color.RGBA, n)}
}

func (s *tinyGoStrip) Len() int { return len(s.px) }

func (s *tinyGoStrip) SetPixel(i int, r, g, b uint8) {
	if i < 0 || i >= len(s.px) {
		return
	}
	s.px[i] = color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

func (s *tinyGoStrip) Show() error { return s.dev.WriteColors(s.px) }

// tinyGoButtons reads two daisy-chained 74HC165 shift registers.
// Inputs idle high through pullups, so the mask comes back inverted.
type tinyGoButtons struct {
	latch machine.Pin
	clock machine.Pin
	data  machine.Pin
}

func newTinyGoButtons(latch, clock, data machine.Pin) *tinyGoButtons {
	latch.Configure(machine.PinConfig{Mode: machine.PinOutput})
	clock.Configure(machine.PinConfig{Mode: machine.PinOutput})
	data.Configure(machine.PinConfig{Mode: machine.PinInput})
	latch.High()
	clock.Low()
	return &tinyGoButtons{latch: latch, clock: clock, data: data}
}

func (b *tinyGoButtons) Read() uint16 {
	b.latch.Low()
	b.latch.High()

	var v uint16
	for i := 0; i < 16; i++ {
		v <<= 1
		if b.data.Get() {
			v |= 1
		}
		b.clock.High()
		b.clock.Low()
	}
	return ^v
}

type tinyGoEncoder struct {
	ch chan EncoderEvent
}

func newTinyGoEncoder(a, b, sw machine.Pin) *tinyGoEncoder {
	a.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	b.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	sw.Configure(machine.PinConfig{Mode: machine.PinInput})

	e := &tinyGoEncoder{ch: make(chan EncoderEvent, 32)}
	go func() {
		prevA := a.Get()
		prevSW := sw.Get()
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			curA := a.Get()
			if prevA && !curA {
				if b.Get() {
					e.emit(EncoderEvent{Delta: 1})
				} else {
					e.emit(EncoderEvent{Delta: -1})
				}
			}
			prevA = curA

			curSW := sw.Get()
			if prevSW && !curSW {
				e.emit(EncoderEvent{Press: true})
			}
			prevSW = curSW
		}
	}()
	return e
}

func (e *tinyGoEncoder) Events() <-chan EncoderEvent { return e.ch }

func (e *tinyGoEncoder) emit(ev EncoderEvent) {
	select {
	case e.ch <- ev:
	default:
	}
}

type tinyGoBattery struct {
	adc machine.ADC
}

func newTinyGoBattery(pin machine.Pin) *tinyGoBattery {
	machine.InitADC()
	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	return &tinyGoBattery{adc: adc}
}

func (b *tinyGoBattery) ReadMillivolts() (uint16, error) {
	raw := uint32(b.adc.Get())
	return uint16(raw * 6600 / 65535), nil
}
