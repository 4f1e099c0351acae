// Package leds owns the strip. Every frame it renders exactly one
// source by fixed precedence: feedback flash, then named effect, then
// bulk fill, then the idle status indicator. Pinned mask LEDs are laid
// over everything except a feedback flash.
package leds

import (
	logclient "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/client/logger"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/settings"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

const (
	ledCount = 16

	// ~30 fps, the cadence the ws2812 strip is refreshed at.
	frameTicks = 33

	// One feedback flash episode.
	feedbackTicks = 500

	// NONE status blink half-period.
	blinkTicks = 500
)

type rgb struct{ r, g, b uint8 }

type maskEntry struct {
	fixed bool
	c     rgb
}

type feedback struct {
	active  bool
	proto   proto.Protocol
	started uint64
}

// Config carries the persisted values restored at boot.
type Config struct {
	Brightness uint8
	Effect     proto.Effect
}

type Service struct {
	strip       hal.Strip
	ep          kernel.Capability
	settingsCap kernel.Capability
	logCap      kernel.Capability

	status     proto.Protocol
	brightness uint8

	fb feedback

	// effect == EffectNone means no animation. A feedback flash
	// suspends rendering by precedence but never touches this field,
	// so the animation resumes by itself when the flash ends.
	effect proto.Effect
	frame  uint32
	rnd    uint32

	allOn bool
	mask  [ledCount]maskEntry

	lastFrame uint64
	rendered  bool
}

func New(strip hal.Strip, cfg Config, ep, settingsCap, logCap kernel.Capability) *Service {
	return &Service{
		strip:       strip,
		ep:          ep,
		settingsCap: settingsCap,
		logCap:      logCap,
		brightness:  settings.ClampBrightness(cfg.Brightness),
		effect:      cfg.Effect,
		rnd:         0x2545F491,
	}
}

// Effect returns the animation currently selected (EffectNone when off).
func (s *Service) Effect() proto.Effect { return s.effect }

func (s *Service) Step(ctx *kernel.Context) {
	dirty := false
	for {
		msg, ok := ctx.TryRecv(s.ep)
		if !ok {
			break
		}
		if s.handle(ctx, &msg) {
			dirty = true
		}
	}

	now := ctx.Now()
	if s.fb.active && now-s.fb.started >= feedbackTicks {
		s.fb.active = false
		dirty = true
	}

	if dirty || !s.rendered || now-s.lastFrame >= frameTicks {
		s.render(now)
		s.lastFrame = now
		s.rendered = true
	}
	ctx.BlockOnTick()
}

// handle folds one message into engine state and reports whether an
// immediate frame is wanted.
func (s *Service) handle(ctx *kernel.Context, msg *kernel.Message) bool {
	switch proto.Kind(msg.Kind) {
	case proto.MsgLedStatus:
		p, ok := proto.DecodeLedStatusPayload(msg.Payload())
		if !ok || p == s.status {
			return false
		}
		s.status = p
		return true

	case proto.MsgLedFeedback:
		p, ok := proto.DecodeLedFeedbackPayload(msg.Payload())
		if !ok {
			return false
		}
		// A new episode replaces an in-flight one; there is no queue.
		s.fb = feedback{active: true, proto: p, started: ctx.Now()}
		return true

	case proto.MsgLedEffect:
		e, ok := proto.DecodeLedEffectPayload(msg.Payload())
		if !ok {
			return false
		}
		s.selectEffect(ctx, e)
		return true

	case proto.MsgLedEffectOff:
		s.selectEffect(ctx, proto.EffectNone)
		return true

	case proto.MsgLedMaskSet:
		idx, r, g, b, ok := proto.DecodeLedMaskSetPayload(msg.Payload())
		if !ok || int(idx) >= ledCount {
			return false
		}
		s.mask[idx] = maskEntry{fixed: true, c: rgb{r, g, b}}
		return true

	case proto.MsgLedMaskClear:
		idx, ok := proto.DecodeLedMaskClearPayload(msg.Payload())
		if !ok || int(idx) >= ledCount {
			return false
		}
		s.mask[idx] = maskEntry{}
		return true

	case proto.MsgLedMaskClearAll:
		s.mask = [ledCount]maskEntry{}
		return true

	case proto.MsgLedMaskShow:
		return true

	case proto.MsgLedAll:
		on, ok := proto.DecodeLedAllPayload(msg.Payload())
		if !ok {
			return false
		}
		// Bulk fill stops a running animation in RAM only; the saved
		// effect still restores on the next boot.
		s.allOn = on
		s.effect = proto.EffectNone
		return true

	case proto.MsgLedBrightness:
		v, ok := proto.DecodeLedBrightnessPayload(msg.Payload())
		if !ok {
			return false
		}
		s.brightness = settings.ClampBrightness(v)
		return true
	}
	return false
}

// selectEffect is the explicit-selection path: it updates RAM and
// persists the choice, so the effect survives reboots.
func (s *Service) selectEffect(ctx *kernel.Context, e proto.Effect) {
	if e == s.effect {
		return
	}
	s.effect = e
	if e != proto.EffectNone {
		s.allOn = false
	}
	_ = ctx.Send(s.ep, s.settingsCap, uint16(proto.MsgSettingsSet),
		proto.SettingsSetPayload(proto.KeyEffect, []byte(e.String())))
	logclient.Log(ctx, s.logCap, "[leds] effect "+e.String())
}

func (s *Service) render(now uint64) {
	var out [ledCount]rgb
	switch {
	case s.fb.active:
		fill(&out, protoColor(s.fb.proto))
		// The flash must be unambiguous: no mask overlay here.
	case s.effect != proto.EffectNone:
		s.renderEffect(&out)
		s.applyMask(&out)
	case s.allOn:
		fill(&out, rgb{255, 255, 255})
		s.applyMask(&out)
	default:
		s.renderStatus(now, &out)
		s.applyMask(&out)
	}
	s.push(&out)
}

func (s *Service) renderStatus(now uint64, out *[ledCount]rgb) {
	switch s.status {
	case proto.ProtocolUSB:
		fill(out, rgb{b: 255})
	case proto.ProtocolWifi:
		fill(out, rgb{g: 255})
	default:
		if now/blinkTicks%2 == 0 {
			fill(out, rgb{r: 255})
		}
	}
}

func (s *Service) applyMask(out *[ledCount]rgb) {
	for i := range s.mask {
		if s.mask[i].fixed {
			out[i] = s.mask[i].c
		}
	}
}

func (s *Service) push(out *[ledCount]rgb) {
	n := s.strip.Len()
	if n > ledCount {
		n = ledCount
	}
	m := uint16(s.brightness)
	for i := 0; i < n; i++ {
		s.strip.SetPixel(i,
			uint8(uint16(out[i].r)*m/255),
			uint8(uint16(out[i].g)*m/255),
			uint8(uint16(out[i].b)*m/255))
	}
	_ = s.strip.Show()
}

func protoColor(p proto.Protocol) rgb {
	switch p {
	case proto.ProtocolUSB:
		return rgb{b: 255}
	case proto.ProtocolWifi:
		return rgb{g: 255}
	default:
		return rgb{r: 255}
	}
}

func fill(out *[ledCount]rgb, c rgb) {
	for i := range out {
		out[i] = c
	}
}
