// Package menu walks the on-device settings tree with the rotary
// encoder and renders it to the TFT. It owns all navigation state;
// other services only ever see the messages it emits.
package menu

import "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"

const (
	splashTicks       = 1000
	pushDebounceTicks = 150

	// A popup ignores clicks right after opening so the click that
	// opened it cannot also confirm it.
	popupArmTicks     = 300
	popupTimeoutTicks = 5000

	wifiPollScreenTicks = 500
	wifiPollIdleTicks   = 1000
	battPollTicks       = 1000

	brightnessStep = 5

	consoleDepth = 16
)

type screen uint8

const (
	screenSplash screen = iota
	screenMain
	screenSettings
	screenWifi
	screenBrightness
	screenEffects
	screenBattery
	screenAdvanced
	screenConsole
	screenAbout
)

func (s screen) title() string {
	switch s {
	case screenMain:
		return "STREAM DECK"
	case screenSettings:
		return "SETTINGS"
	case screenWifi:
		return "WI-FI"
	case screenBrightness:
		return "BRIGHTNESS"
	case screenEffects:
		return "LED EFFECTS"
	case screenBattery:
		return "BATTERY"
	case screenAdvanced:
		return "ADVANCED"
	case screenConsole:
		return "CONSOLE"
	case screenAbout:
		return "ABOUT"
	default:
		return ""
	}
}

// hasRows reports whether rotation moves a selection cursor here.
func (s screen) hasRows() bool {
	switch s {
	case screenSettings, screenWifi, screenEffects, screenAdvanced:
		return true
	default:
		return false
	}
}

type popupKind uint8

const (
	popupNone popupKind = iota
	popupClearCreds
	popupFactoryReset
)

func (p popupKind) prompt() string {
	switch p {
	case popupClearCreds:
		return "Clear Wi-Fi credentials?"
	case popupFactoryReset:
		return "Reset to factory defaults?"
	default:
		return ""
	}
}

const (
	settingsRowWifi = iota
	settingsRowBrightness
	settingsRowEffects
	settingsRowBattery
	settingsRowAdvanced
	settingsRowAbout
	settingsRowBack
)

var settingsRows = []string{
	"Wi-Fi",
	"Brightness",
	"LED Effects",
	"Battery",
	"Advanced",
	"About",
	"Back",
}

const (
	wifiRowStartPortal = iota
	wifiRowStopPortal
	wifiRowClearCreds
	wifiRowBack
)

var wifiRows = []string{
	"Start Portal",
	"Stop Portal",
	"Clear Credentials",
	"Back",
}

const (
	advancedRowConsole = iota
	advancedRowFactoryReset
	advancedRowBack
)

var advancedRows = []string{
	"Console",
	"Factory Reset",
	"Back",
}

// effectRows lists the five animations, then Turn Off, then Back.
func effectRows() []string {
	effects := proto.Effects()
	rows := make([]string, 0, len(effects)+2)
	for _, e := range effects {
		rows = append(rows, e.String())
	}
	return append(rows, "Turn Off", "Back")
}

func rowsFor(s screen) []string {
	switch s {
	case screenSettings:
		return settingsRows
	case screenWifi:
		return wifiRows
	case screenEffects:
		return effectRows()
	case screenAdvanced:
		return advancedRows
	default:
		return nil
	}
}

// console is a fixed-depth ring of recent log lines.
type console struct {
	lines [consoleDepth]string
	head  int
	count int
}

func (c *console) push(line string) {
	c.lines[c.head] = line
	c.head = (c.head + 1) % consoleDepth
	if c.count < consoleDepth {
		c.count++
	}
}

// snapshot appends the buffered lines, oldest first, to dst.
func (c *console) snapshot(dst []string) []string {
	start := c.head - c.count
	if start < 0 {
		start += consoleDepth
	}
	for i := 0; i < c.count; i++ {
		dst = append(dst, c.lines[(start+i)%consoleDepth])
	}
	return dst
}
