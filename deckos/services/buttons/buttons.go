// Package buttons turns the polled key-matrix bitmask into debounced
// press events for the coordinator.
package buttons

import (
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

// A second press edge on the same key inside this window is switch
// chatter, not a user action.
const debounceTicks = 25

const keyCount = 16

type Service struct {
	hw       hal.Buttons
	coordCap kernel.Capability

	prev      uint16
	pressSeen [keyCount]bool
	lastPress [keyCount]uint64
}

func New(hw hal.Buttons, coordCap kernel.Capability) *Service {
	return &Service{hw: hw, coordCap: coordCap}
}

func (s *Service) Step(ctx *kernel.Context) {
	cur := s.hw.Read()
	now := ctx.Now()

	pressed := cur &^ s.prev
	s.prev = cur

	for i := 0; i < keyCount; i++ {
		if pressed&(1<<uint(i)) == 0 {
			continue
		}
		if s.pressSeen[i] && now-s.lastPress[i] < debounceTicks {
			continue
		}
		s.pressSeen[i] = true
		s.lastPress[i] = now

		// Physical key numbering is 1-based.
		_ = ctx.SendTo(s.coordCap, uint16(proto.MsgButtonPress), proto.ButtonPressPayload(uint8(i+1)))
	}

	ctx.BlockOnTick()
}
