package menu

import "tinygo.org/x/tinyterm"

// drawConsole paints the log ring through a tinyterm terminal.
// Reconfiguring resets the cursor, so every paint starts from the top
// with the current ring contents; the terminal never draws while
// another screen owns the framebuffer.
func (r *renderer) drawConsole(t *Task) {
	buf := r.fb.Buffer()
	if buf == nil {
		return
	}
	clearRGB565(buf, rgb565From888(colBG.R, colBG.G, colBG.B))

	if r.term == nil {
		r.term = tinyterm.NewTerminal(r.d)
	}
	r.term.Configure(&tinyterm.Config{
		Font:              r.font,
		FontHeight:        r.fontHeight,
		FontOffset:        6,
		UseSoftwareScroll: true,
	})

	r.term.Println("== console (press to exit) ==")
	for _, line := range t.log.snapshot(nil) {
		r.term.Println(line)
	}
	r.term.Display()
	_ = r.fb.Present()
}
