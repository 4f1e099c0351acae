//go:build !tinygo

package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

// Boots the whole firmware against the host HAL and runs it headless
// for a bounded number of frames. Catches wiring mistakes the
// per-service tests cannot: a capability handed to the wrong service,
// a task never added, a boot-order panic.
func TestHeadlessBootRuns(t *testing.T) {
	t.Setenv("DECK_FLASH_PATH", filepath.Join(t.TempDir(), "flash.bin"))

	err := hal.RunHeadless(context.Background(), func(h hal.HAL) func() error {
		return NewWithConfig(h, Config{FlashOnTCPAttach: true})
	}, hal.HeadlessConfig{Enabled: true, Hz: 1000, Ticks: 200})
	if err != nil {
		t.Fatalf("headless run: %v", err)
	}
}

func TestHeadlessStopsOnCancel(t *testing.T) {
	t.Setenv("DECK_FLASH_PATH", filepath.Join(t.TempDir(), "flash.bin"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := hal.RunHeadless(ctx, New, hal.HeadlessConfig{Enabled: true, Hz: 500})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
