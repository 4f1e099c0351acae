package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var (
	ErrNotImplemented = errors.New("not implemented")

	// ErrClientGone reports that the attached TCP client dropped; the
	// caller treats it as a detach edge, not a fault.
	ErrClientGone = errors.New("client gone")
)

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Strip is the addressable RGB LED strip (one LED per key).
//
// SetPixel stages a color; nothing reaches the hardware until Show.
type Strip interface {
	Len() int
	SetPixel(i int, r, g, b uint8)
	Show() error
}

// Buttons exposes the key matrix as a polled bitmask: bit i set means
// physical key i+1 is currently down. Edge detection and debouncing
// live in userland.
type Buttons interface {
	Read() uint16
}

// EncoderEvent is one decoded rotary-encoder step or push-button edge.
type EncoderEvent struct {
	// Delta is +1 for one detent clockwise, -1 counter-clockwise,
	// 0 for a pure button event.
	Delta int8
	// Press is true on button-down, false otherwise.
	Press bool
}

// Encoder provides decoded rotary events (best-effort on each platform).
type Encoder interface {
	Events() <-chan EncoderEvent
}

// Flash provides raw access to non-volatile memory.
//
// It is intentionally low-level: addresses and erase blocks only.
type Flash interface {
	SizeBytes() uint32
	EraseBlockBytes() uint32
	ReadAt(p []byte, off uint32) (int, error)
	WriteAt(p []byte, off uint32) (int, error)
	Erase(off, size uint32) error
}

// Time provides a base tick stream. One tick is one millisecond;
// higher-level timers live in userland.
type Time interface {
	Ticks() <-chan uint64
}

// Serial is the USB-serial link to the host.
//
// Poll must never block: it returns whatever bytes are buffered, or
// n == 0 when nothing is pending.
type Serial interface {
	Poll(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Battery reads the pack voltage through the ADC divider.
type Battery interface {
	ReadMillivolts() (uint16, error)
}

// Wifi is the station link, the TCP/UDP server pair and the
// provisioning portal, exposed as a poll-only surface. Every method
// returns immediately; connection management runs behind it.
type Wifi interface {
	// Connect begins an asynchronous association attempt. An empty
	// SSID is a no-op.
	Connect(ssid, password string) error
	Disconnect()
	LinkUp() bool
	IP() [4]byte

	// StartServer (re)starts the TCP listener and the UDP discovery
	// responder. Safe to call while already running.
	StartServer() error
	StopServer()

	// Accept adopts a pending TCP client if the slot is free. It
	// reports whether a new client was attached during this call.
	// While a client is attached, further connection attempts are
	// refused at the transport level.
	Accept() bool
	// ClientRead returns buffered client bytes without blocking;
	// ErrClientGone means the client dropped.
	ClientRead(p []byte) (int, error)
	ClientWrite(p []byte) (int, error)
	CloseClient()

	StartProvisioning() error
	StopProvisioning()
	Provisioning() bool
	// PollCredentials returns one credential set submitted through the
	// provisioning portal, if any arrived since the last call.
	PollCredentials() (ssid, password string, ok bool)
}

// HAL provides the only contact point between the firmware and the
// outside world.
type HAL interface {
	Logger() Logger
	Display() Display
	Strip() Strip
	Buttons() Buttons
	Encoder() Encoder
	Flash() Flash
	Time() Time
	Serial() Serial
	Battery() Battery
	Wifi() Wifi
}
