//go:build tinygo && bootdebug

package app

import (
	"sync"
	"time"

	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

var (
	bootDiagMu   sync.Mutex
	bootDiagStep string
)

func bootDiagSetStep(msg string) {
	bootDiagMu.Lock()
	bootDiagStep = msg
	bootDiagMu.Unlock()
}

// bootDiagStart spawns a heartbeat that repeats the last boot stage
// over UART0. If the firmware wedges before the kernel is up, the
// repeating line names the stage it died in.
func bootDiagStart(h hal.HAL) {
	if h == nil {
		return
	}
	l := h.Logger()
	if l == nil {
		return
	}

	go func() {
		for {
			bootDiagMu.Lock()
			step := bootDiagStep
			bootDiagMu.Unlock()

			if step == "" {
				step = "<empty>"
			}
			l.WriteLineString("[boot] " + step)

			time.Sleep(250 * time.Millisecond)
		}
	}()
}
