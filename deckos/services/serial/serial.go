// Package serial speaks the line protocol over the USB CDC link: it
// assembles inbound lines, answers PING itself, reports handshake
// edges to the coordinator and forwards LED commands to the engine.
package serial

import (
	logclient "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/client/logger"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/wire"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

const readChunk = 64

type Service struct {
	hw       hal.Serial
	ep       kernel.Capability
	coordCap kernel.Capability
	ledCap   kernel.Capability
	logCap   kernel.Capability

	lb  wire.LineBuffer
	buf [readChunk]byte
}

func New(hw hal.Serial, ep, coordCap, ledCap, logCap kernel.Capability) *Service {
	return &Service{hw: hw, ep: ep, coordCap: coordCap, ledCap: ledCap, logCap: logCap}
}

func (s *Service) Step(ctx *kernel.Context) {
	// Outbound first, so presses queued last tick leave promptly.
	for {
		msg, ok := ctx.TryRecv(s.ep)
		if !ok {
			break
		}
		if proto.Kind(msg.Kind) != proto.MsgLineSend {
			continue
		}
		s.writeLine(ctx, msg.Payload())
	}

	for {
		n, err := s.hw.Poll(s.buf[:])
		if err != nil || n == 0 {
			break
		}
		if d := s.lb.Feed(s.buf[:n], func(line []byte) { s.dispatch(ctx, line) }); d > 0 {
			logclient.Log(ctx, s.logCap, "[serial] dropped overlong line")
		}
		if n < len(s.buf) {
			break
		}
	}
	ctx.BlockOnTick()
}

func (s *Service) dispatch(ctx *kernel.Context, line []byte) {
	cmd, err := wire.Parse(string(line))
	if err != nil {
		logclient.Log(ctx, s.logCap, "[serial] "+err.Error())
		return
	}
	switch cmd.Kind {
	case wire.KindConnected:
		_ = ctx.Send(s.ep, s.coordCap, uint16(proto.MsgUsbConnected), nil)
	case wire.KindDisconnect:
		_ = ctx.Send(s.ep, s.coordCap, uint16(proto.MsgUsbDisconnected), nil)
	case wire.KindPing:
		s.writeLine(ctx, []byte(wire.LinePong))
	case wire.KindButtonEcho:
		// Hosts echo our BTN lines back; informational only.
	default:
		kind, payload, ok := wire.LedMessage(cmd)
		if !ok {
			return
		}
		_ = ctx.Send(s.ep, s.ledCap, uint16(kind), payload)
	}
}

func (s *Service) writeLine(ctx *kernel.Context, line []byte) {
	out := make([]byte, 0, len(line)+1)
	out = append(out, line...)
	out = append(out, '\n')
	if _, err := s.hw.Write(out); err != nil {
		logclient.Log(ctx, s.logCap, "[serial] write: "+err.Error())
	}
}
