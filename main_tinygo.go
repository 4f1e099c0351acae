//go:build tinygo

package main

import (
	"github.com/KanekiZLF/Stream-Deck-Esp32/app"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

func main() {
	app.Run(hal.New())
}
