// Package battery samples the pack voltage, answers info queries and
// nags the log when the charge runs low.
package battery

import (
	"strconv"

	logclient "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/client/logger"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

const (
	// The pack drains slowly; one ADC read every two seconds is plenty.
	samplePeriodTicks = 2000

	lowPctThreshold = 15
	warnPeriodTicks = 60000
)

type Service struct {
	hw     hal.Battery
	ep     kernel.Capability
	logCap kernel.Capability

	haveSample bool
	lastSample uint64
	mv         uint16
	pct        uint8

	warned   bool
	lastWarn uint64
}

func New(hw hal.Battery, ep, logCap kernel.Capability) *Service {
	return &Service{hw: hw, ep: ep, logCap: logCap}
}

func (s *Service) Step(ctx *kernel.Context) {
	now := ctx.Now()
	if !s.haveSample || now-s.lastSample >= samplePeriodTicks {
		s.sample(now)
	}
	s.warnIfLow(ctx, now)

	for {
		msg, ok := ctx.TryRecv(s.ep)
		if !ok {
			break
		}
		if msg.Kind != uint16(proto.MsgBatteryGet) || !msg.Cap.Valid() {
			continue
		}
		_ = ctx.Send(s.ep, msg.Cap, uint16(proto.MsgBatteryInfo), proto.BatteryInfoPayload(s.mv, s.pct))
	}

	ctx.BlockOnTick()
}

func (s *Service) warnIfLow(ctx *kernel.Context, now uint64) {
	if !s.haveSample || s.pct > lowPctThreshold {
		return
	}
	if s.warned && now-s.lastWarn < warnPeriodTicks {
		return
	}
	s.warned = true
	s.lastWarn = now
	logclient.Log(ctx, s.logCap,
		"[battery] low: "+strconv.Itoa(int(s.pct))+"% ("+strconv.Itoa(int(s.mv))+" mV)")
}

func (s *Service) sample(now uint64) {
	mv, err := s.hw.ReadMillivolts()
	if err != nil {
		// Keep the previous sample; the ADC read is retried next period.
		s.lastSample = now
		return
	}
	s.haveSample = true
	s.lastSample = now
	s.mv = mv
	s.pct = percentFor(mv)
}

// percentFor maps pack millivolts to a coarse LiPo charge percentage.
func percentFor(mv uint16) uint8 {
	const (
		full  = 4150
		empty = 3300
	)
	switch {
	case mv >= full:
		return 100
	case mv <= empty:
		return 0
	default:
		return uint8(uint32(mv-empty) * 100 / (full - empty))
	}
}
