package leds

import "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"

// Animation frames are pure integer math over a frame counter plus a
// small xorshift generator, so tests can drive them deterministically.

func (s *Service) renderEffect(out *[ledCount]rgb) {
	s.frame++
	switch s.effect {
	case proto.EffectRainbow:
		effectRainbow(s.frame, out)
	case proto.EffectBlink:
		effectBlink(s.frame, out)
	case proto.EffectWaveBlue:
		effectWaveBlue(s.frame, out)
	case proto.EffectFire:
		effectFire(&s.rnd, out)
	case proto.EffectTwinkle:
		effectTwinkle(&s.rnd, out)
	}
}

// wheel walks the classic 256-step color wheel.
func wheel(pos uint8) rgb {
	switch {
	case pos < 85:
		return rgb{r: 255 - pos*3, g: pos * 3}
	case pos < 170:
		pos -= 85
		return rgb{g: 255 - pos*3, b: pos * 3}
	default:
		pos -= 170
		return rgb{r: pos * 3, b: 255 - pos*3}
	}
}

func effectRainbow(frame uint32, out *[ledCount]rgb) {
	for i := range out {
		out[i] = wheel(uint8(uint32(i)*256/ledCount + frame*3))
	}
}

// effectBlink toggles the whole strip roughly every half second at the
// frame cadence.
func effectBlink(frame uint32, out *[ledCount]rgb) {
	if frame/15%2 == 0 {
		fill(out, rgb{r: 255, g: 255, b: 255})
	}
}

func effectWaveBlue(frame uint32, out *[ledCount]rgb) {
	for i := range out {
		phase := (uint32(i)*32 + frame*8) % 256
		if phase >= 128 {
			phase = 255 - phase
		}
		out[i] = rgb{g: uint8(phase / 4), b: uint8(40 + phase*3/2)}
	}
}

func effectFire(rnd *uint32, out *[ledCount]rgb) {
	for i := range out {
		heat := uint8(xorshift(rnd))
		out[i] = rgb{r: 255, g: 40 + heat%120}
	}
}

func effectTwinkle(rnd *uint32, out *[ledCount]rgb) {
	for i := range out {
		if xorshift(rnd)%8 == 0 {
			out[i] = rgb{r: 255, g: 255, b: 255}
		}
	}
}

func xorshift(s *uint32) uint32 {
	x := *s
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	*s = x
	return x
}
