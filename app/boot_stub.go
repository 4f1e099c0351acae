//go:build !tinygo || !bootdebug

package app

import "github.com/KanekiZLF/Stream-Deck-Esp32/hal"

func bootDiagStart(h hal.HAL)         {}
func bootScreen(h hal.HAL, msg string) {}
