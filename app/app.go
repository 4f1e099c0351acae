// Package app wires the deck firmware: it builds the kernel, hands
// every service its endpoints and capabilities, and pumps the tick
// stream from the HAL into the scheduler.
package app

import (
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/battery"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/buttons"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/coord"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/leds"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/logger"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/serial"
	settingssvc "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/settings"
	timesvc "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/time"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/wifi"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/settings"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/tasks/menu"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

// stepBudget bounds task steps per frame so a chatty task cannot
// starve the host loop.
const stepBudget = 256

type Config struct {
	// FlashOnTCPAttach adds an LED flash when a TCP client promotes
	// the protocol to WIFI.
	FlashOnTCPAttach bool
	// ClearCredentialsOnWifiFail wipes stored credentials when the
	// boot association times out.
	ClearCredentialsOnWifiFail bool
}

type system struct {
	k     *kernel.Kernel
	ticks <-chan uint64
}

// New wires the firmware with default config and returns the step
// function the host runner calls once per frame.
func New(h hal.HAL) func() error { return NewWithConfig(h, Config{}) }

func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s := newSystem(h, cfg)
	return s.step
}

// Run drives the kernel straight off the tick stream and never
// returns (TinyGo entrypoint).
func Run(h hal.HAL) { RunWithConfig(h, Config{}) }

func RunWithConfig(h hal.HAL, cfg Config) {
	bootDiagStart(h)
	s := newSystem(h, cfg)
	if s.ticks == nil {
		select {}
	}
	for seq := range s.ticks {
		s.k.TickTo(seq)
		for i := 0; i < stepBudget && s.k.Step(); i++ {
		}
	}
}

func newSystem(h hal.HAL, cfg Config) *system {
	installPanicHandler(h)
	bootScreen(h, "settings")

	store := settings.NewStore(h.Flash())
	rec := store.Load()

	k := kernel.New()
	rw := kernel.RightSend | kernel.RightRecv

	logEP := k.NewEndpoint(rw)
	timeEP := k.NewEndpoint(rw)
	coordEP := k.NewEndpoint(rw)
	ledEP := k.NewEndpoint(rw)
	serialEP := k.NewEndpoint(rw)
	wifiEP := k.NewEndpoint(rw)
	settingsEP := k.NewEndpoint(rw)
	batteryEP := k.NewEndpoint(rw)
	menuEP := k.NewEndpoint(rw)

	logCap := logEP.Restrict(kernel.RightSend)
	ledCap := ledEP.Restrict(kernel.RightSend)
	coordCap := coordEP.Restrict(kernel.RightSend)
	settingsCap := settingsEP.Restrict(kernel.RightSend)

	bootScreen(h, "services")

	logsvc := logger.New(h.Logger(), logEP)
	logsvc.SetMirror(menuEP.Restrict(kernel.RightSend))
	k.AddTask(logsvc)

	k.AddTask(timesvc.New(timeEP))
	k.AddTask(settingssvc.New(store, rec, settingsEP, logCap))

	k.AddTask(coord.New(coord.Config{FlashOnTCPAttach: cfg.FlashOnTCPAttach}, coordEP, coord.Caps{
		Led:    ledCap,
		Menu:   menuEP.Restrict(kernel.RightSend),
		Serial: serialEP.Restrict(kernel.RightSend),
		Wifi:   wifiEP.Restrict(kernel.RightSend),
		Log:    logCap,
	}))

	k.AddTask(leds.New(h.Strip(), leds.Config{
		Brightness: rec.Brightness,
		Effect:     rec.Effect,
	}, ledEP, settingsCap, logCap))

	k.AddTask(serial.New(h.Serial(), serialEP, coordCap, ledCap, logCap))

	k.AddTask(wifi.New(h.Wifi(), wifi.Config{
		SSID:                   rec.SSID,
		Password:               rec.Password,
		ClearCredentialsOnFail: cfg.ClearCredentialsOnWifiFail,
	}, wifiEP, coordCap, ledCap, settingsCap, logCap))

	k.AddTask(battery.New(h.Battery(), batteryEP, logCap))
	k.AddTask(buttons.New(h.Buttons(), coordCap))

	k.AddTask(menu.New(h.Display(), h.Encoder(), menu.Config{
		Brightness: rec.Brightness,
		Effect:     rec.Effect,
	}, menuEP, menu.Caps{
		Led:      ledCap,
		Settings: settingsCap,
		Wifi:     wifiEP.Restrict(kernel.RightSend),
		Battery:  batteryEP.Restrict(kernel.RightSend),
		Time:     timeEP.Restrict(kernel.RightSend),
	}))

	s := &system{k: k}
	if ht := h.Time(); ht != nil {
		s.ticks = ht.Ticks()
	}
	bootScreen(h, "kernel")
	return s
}

// step drains whatever ticks accumulated since the last frame, jumps
// the kernel clock once, then runs tasks up to the budget. Step
// returns false as soon as every task is parked, so idle frames are
// cheap.
func (s *system) step() error {
	if s.ticks != nil {
		var latest uint64
	drain:
		for {
			select {
			case seq := <-s.ticks:
				latest = seq
			default:
				break drain
			}
		}
		if latest > 0 {
			s.k.TickTo(latest)
		}
	}
	for i := 0; i < stepBudget && s.k.Step(); i++ {
	}
	return nil
}
