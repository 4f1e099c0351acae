// Package logger drains MsgLogLine messages to the platform log sink.
package logger

import (
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

type Service struct {
	log    hal.Logger
	ep     kernel.Capability
	mirror kernel.Capability
}

func New(log hal.Logger, ep kernel.Capability) *Service {
	return &Service{log: log, ep: ep}
}

// SetMirror forwards a copy of every line to the capability, so the
// on-device console can keep recent history. Delivery is best-effort.
func (s *Service) SetMirror(mirrorCap kernel.Capability) {
	s.mirror = mirrorCap
}

func (s *Service) Step(ctx *kernel.Context) {
	msg, ok := ctx.Recv(s.ep)
	if !ok {
		return
	}
	if msg.Kind != uint16(proto.MsgLogLine) {
		return
	}
	if s.log != nil {
		s.log.WriteLineBytes(msg.Payload())
	}
	if s.mirror.Valid() {
		_ = ctx.Send(s.ep, s.mirror, uint16(proto.MsgLogLine), msg.Payload())
	}
}
