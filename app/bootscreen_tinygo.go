//go:build tinygo && bootdebug

package app

import (
	"image/color"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

// bootScreen paints the current boot stage straight to the panel,
// before any kernel task owns the display.
func bootScreen(h hal.HAL, msg string) {
	bootDiagSetStep(msg)
	if h == nil {
		return
	}
	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return
	}

	fb.ClearRGB(0, 0, 0)

	d := panicDisplay{fb: fb}
	font := &proggy.TinySZ8pt7b

	fg := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	tinyfont.WriteLine(d, font, 0, 12, "deck boot", fg)
	tinyfont.WriteLine(d, font, 0, 28, msg, fg)
	_ = fb.Present()
}
