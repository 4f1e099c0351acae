// Package coord owns the active-protocol decision: which transport, if
// any, receives button presses. Transports report edges; only this
// service ever changes the protocol, so every other component observes
// a consistent value.
package coord

import (
	logclient "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/client/logger"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/wire"
)

// Config selects between behaviors the source firmware revisions
// disagreed on.
type Config struct {
	// FlashOnTCPAttach adds a feedback flash when a TCP client
	// promotes the protocol to WIFI; off, the promotion is silent.
	FlashOnTCPAttach bool
}

// Caps are the send capabilities the coordinator drives.
type Caps struct {
	Led    kernel.Capability
	Menu   kernel.Capability
	Serial kernel.Capability
	Wifi   kernel.Capability
	Log    kernel.Capability
}

type usbDirective uint8

const (
	usbNone usbDirective = iota
	usbConnected
	usbDisconnected
)

type Service struct {
	cfg  Config
	ep   kernel.Capability
	caps Caps

	active proto.Protocol

	// Link levels carried across ticks.
	wifiUp      bool
	tcpAttached bool

	// Edges collected while draining one batch. USB keeps only the
	// last directive; Wi-Fi and TCP rules fire on an edge only when
	// the final level agrees, so an up/down flap inside one batch
	// cannot cause two transitions.
	usbLast      usbDirective
	wifiUpEdge   bool
	wifiDownEdge bool
	attachEdge   bool
	dropEdge     bool

	presses    [16]uint8
	pressCount int
}

func New(cfg Config, ep kernel.Capability, caps Caps) *Service {
	return &Service{cfg: cfg, ep: ep, caps: caps}
}

// Protocol returns the current owner of button-press delivery.
func (s *Service) Protocol() proto.Protocol { return s.active }

func (s *Service) Step(ctx *kernel.Context) {
	s.usbLast = usbNone
	s.wifiUpEdge, s.wifiDownEdge = false, false
	s.attachEdge, s.dropEdge = false, false
	s.pressCount = 0

	for {
		msg, ok := ctx.TryRecv(s.ep)
		if !ok {
			break
		}
		s.collect(ctx, &msg)
	}

	s.apply(ctx)
	s.deliverPresses(ctx)
	ctx.BlockOnTick()
}

func (s *Service) collect(ctx *kernel.Context, msg *kernel.Message) {
	switch proto.Kind(msg.Kind) {
	case proto.MsgUsbConnected:
		s.usbLast = usbConnected
	case proto.MsgUsbDisconnected:
		s.usbLast = usbDisconnected
	case proto.MsgWifiLinkUp:
		s.wifiUp = true
		s.wifiUpEdge = true
	case proto.MsgWifiLinkDown:
		s.wifiUp = false
		s.wifiDownEdge = true
	case proto.MsgTCPAttached:
		s.tcpAttached = true
		s.attachEdge = true
	case proto.MsgTCPDetached:
		s.tcpAttached = false
		s.dropEdge = true
	case proto.MsgButtonPress:
		n, ok := proto.DecodeButtonPressPayload(msg.Payload())
		if !ok {
			return
		}
		if s.pressCount < len(s.presses) {
			s.presses[s.pressCount] = n
			s.pressCount++
		}
	default:
		logclient.Log(ctx, s.caps.Log, "[coord] dropped "+proto.Kind(msg.Kind).String())
	}
}

// apply walks the transition rules in priority order. USB is evaluated
// first, so when a USB handshake and a Wi-Fi/TCP edge land in the same
// batch the USB outcome stands and the later rules see it.
func (s *Service) apply(ctx *kernel.Context) {
	switch s.usbLast {
	case usbConnected:
		s.setProtocol(ctx, proto.ProtocolUSB, true)
	case usbDisconnected:
		next := proto.ProtocolNone
		if s.tcpAttached {
			next = proto.ProtocolWifi
		}
		s.setProtocol(ctx, next, true)
	}

	if s.wifiDownEdge && !s.wifiUp && s.active == proto.ProtocolWifi {
		s.setProtocol(ctx, proto.ProtocolNone, true)
	}
	if s.wifiUpEdge && s.wifiUp && s.active == proto.ProtocolNone {
		s.setProtocol(ctx, proto.ProtocolWifi, true)
	}
	if s.attachEdge && s.tcpAttached && s.active != proto.ProtocolUSB {
		s.setProtocol(ctx, proto.ProtocolWifi, s.cfg.FlashOnTCPAttach)
	}
	if s.dropEdge && !s.tcpAttached && s.active == proto.ProtocolWifi {
		s.setProtocol(ctx, proto.ProtocolNone, false)
	}
}

// setProtocol performs one transition: same-value sets are dropped so
// repeated handshakes never re-flash or force redraws.
func (s *Service) setProtocol(ctx *kernel.Context, next proto.Protocol, flash bool) {
	if next == s.active {
		return
	}
	s.active = next
	_ = ctx.Send(s.ep, s.caps.Led, uint16(proto.MsgLedStatus), proto.LedStatusPayload(next))
	if flash {
		_ = ctx.Send(s.ep, s.caps.Led, uint16(proto.MsgLedFeedback), proto.LedFeedbackPayload(next))
	}
	_ = ctx.Send(s.ep, s.caps.Menu, uint16(proto.MsgProtoChanged), proto.ProtoChangedPayload(next))
	logclient.Log(ctx, s.caps.Log, "[coord] protocol "+next.String())
}

// deliverPresses runs after the transition rules, so a press that
// arrives in the same batch as a handshake goes out over the transport
// that just won. With no owner the presses are dropped.
func (s *Service) deliverPresses(ctx *kernel.Context) {
	if s.pressCount == 0 {
		return
	}
	var out kernel.Capability
	switch s.active {
	case proto.ProtocolUSB:
		out = s.caps.Serial
	case proto.ProtocolWifi:
		out = s.caps.Wifi
	default:
		s.pressCount = 0
		return
	}
	for i := 0; i < s.pressCount; i++ {
		line := wire.Button(int(s.presses[i]))
		_ = ctx.Send(s.ep, out, uint16(proto.MsgLineSend), proto.LineSendPayload([]byte(line)))
	}
	s.pressCount = 0
}
