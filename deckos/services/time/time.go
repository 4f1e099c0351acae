// Package timesvc wakes sleepers against the kernel tick clock.
package timesvc

import (
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
)

const maxSleepers = 32

type sleeper struct {
	inUse bool
	due   uint64
	id    uint32
	reply kernel.Capability
}

type Service struct {
	ep       kernel.Capability
	sleepers [maxSleepers]sleeper
}

func New(ep kernel.Capability) *Service {
	return &Service{ep: ep}
}

func (s *Service) Step(ctx *kernel.Context) {
	s.wakeReady(ctx)

	for {
		msg, ok := ctx.TryRecv(s.ep)
		if !ok {
			break
		}
		s.handle(ctx, &msg)
	}
	ctx.BlockOnTick()
}

func (s *Service) handle(ctx *kernel.Context, msg *kernel.Message) {
	if msg.Kind != uint16(proto.MsgSleep) {
		return
	}
	if !msg.Cap.Valid() {
		return
	}

	requestID, dt, ok := proto.DecodeSleepPayload(msg.Payload())
	if !ok {
		payload := proto.ErrorPayload(
			proto.ErrBadMessage,
			proto.MsgSleep,
			proto.ErrorDetailWithRequestID(0, nil),
		)
		_ = ctx.Send(s.ep, msg.Cap, uint16(proto.MsgError), payload)
		return
	}
	if dt == 0 {
		_ = ctx.Send(s.ep, msg.Cap, uint16(proto.MsgWake), proto.WakePayload(requestID))
		return
	}
	if ok := s.schedule(ctx.Now()+uint64(dt), requestID, msg.Cap); !ok {
		payload := proto.ErrorPayload(
			proto.ErrOverflow,
			proto.MsgSleep,
			proto.ErrorDetailWithRequestID(requestID, nil),
		)
		_ = ctx.Send(s.ep, msg.Cap, uint16(proto.MsgError), payload)
		return
	}
}

func (s *Service) schedule(due uint64, requestID uint32, reply kernel.Capability) bool {
	for i := range s.sleepers {
		if s.sleepers[i].inUse {
			continue
		}
		s.sleepers[i] = sleeper{inUse: true, due: due, id: requestID, reply: reply}
		return true
	}
	return false
}

func (s *Service) wakeReady(ctx *kernel.Context) {
	now := ctx.Now()
	for i := range s.sleepers {
		sl := &s.sleepers[i]
		if !sl.inUse || sl.due > now {
			continue
		}
		_ = ctx.Send(s.ep, sl.reply, uint16(proto.MsgWake), proto.WakePayload(sl.id))
		*sl = sleeper{}
	}
}
