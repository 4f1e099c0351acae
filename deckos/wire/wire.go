// Package wire implements the newline-terminated text protocol spoken
// over the USB serial link and the TCP server, plus the UDP discovery
// exchange. The host tooling shares the same grammar.
package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
)

// Handshake and discovery lines.
const (
	LineConnected  = "CONNECTED"
	LineDisconnect = "DISCONNECT"
	LinePing       = "PING"
	LinePong       = "PONG"

	DiscoverRequest = "ESP32_DECK_DISCOVER"
	DiscoverReply   = "ESP32_DECK_ACK"
)

type CommandKind uint8

const (
	KindConnected CommandKind = iota + 1
	KindDisconnect
	KindPing
	KindButtonEcho
	KindLedSet
	KindLedClear
	KindAllOn
	KindAllOff
	KindClearMask
	KindShowMask
	KindEffect
)

// Command is one parsed inbound line.
type Command struct {
	Kind CommandKind

	// Index is the 0-based strip index for LedSet/LedClear.
	Index int
	// R, G, B carry the mask color for LedSet.
	R, G, B uint8
	// Effect carries the selection for KindEffect; EffectNone stops
	// the running effect.
	Effect proto.Effect
	// Button is the 1-based key number echoed in a BTN line.
	Button int
}

// Button formats the outbound press report for physical key n.
func Button(n int) string {
	return "BTN:" + strconv.Itoa(n)
}

// Parse decodes one line. The caller strips the newline; a trailing
// carriage return is tolerated here.
func Parse(line string) (Command, error) {
	line = strings.TrimSuffix(line, "\r")
	switch line {
	case LineConnected:
		return Command{Kind: KindConnected}, nil
	case LineDisconnect:
		return Command{Kind: KindDisconnect}, nil
	case LinePing:
		return Command{Kind: KindPing}, nil
	}

	switch {
	case strings.HasPrefix(line, "BTN:"):
		n, err := strconv.Atoi(line[len("BTN:"):])
		if err != nil {
			return Command{}, fmt.Errorf("bad button echo %q", line)
		}
		return Command{Kind: KindButtonEcho, Button: n}, nil
	case strings.HasPrefix(line, "LED:"):
		return parseLed(line)
	case strings.HasPrefix(line, "ALL_LED:"):
		return parseAllLed(line)
	}
	return Command{}, fmt.Errorf("unknown command %q", line)
}

func parseLed(line string) (Command, error) {
	rest := line[len("LED:"):]
	sep := strings.IndexByte(rest, ':')
	if sep < 0 {
		return Command{}, fmt.Errorf("bad led command %q", line)
	}
	idx, err := strconv.Atoi(rest[:sep])
	if err != nil || idx < 0 {
		return Command{}, fmt.Errorf("bad led index %q", line)
	}
	val := rest[sep+1:]
	switch val {
	case "OFF", "RESET":
		return Command{Kind: KindLedClear, Index: idx}, nil
	}
	r, g, b, err := parseHexColor(val)
	if err != nil {
		return Command{}, fmt.Errorf("bad led color %q", line)
	}
	return Command{Kind: KindLedSet, Index: idx, R: r, G: g, B: b}, nil
}

func parseAllLed(line string) (Command, error) {
	arg := line[len("ALL_LED:"):]
	switch arg {
	case "ON":
		return Command{Kind: KindAllOn}, nil
	case "OFF":
		return Command{Kind: KindAllOff}, nil
	case "CLEAR_MASK":
		return Command{Kind: KindClearMask}, nil
	case "SHOW_MASK":
		return Command{Kind: KindShowMask}, nil
	}
	eff, ok := proto.ParseEffect(arg)
	if !ok {
		return Command{}, fmt.Errorf("unknown bulk led command %q", line)
	}
	return Command{Kind: KindEffect, Effect: eff}, nil
}

// LedMessage maps a parsed LED command onto the engine's message
// vocabulary. Both transports use it, so USB and TCP clients get
// identical semantics. ok is false for non-LED commands and for
// indices that cannot be encoded.
func LedMessage(cmd Command) (kind proto.Kind, payload []byte, ok bool) {
	switch cmd.Kind {
	case KindLedSet:
		if cmd.Index > 255 {
			return 0, nil, false
		}
		return proto.MsgLedMaskSet, proto.LedMaskSetPayload(uint8(cmd.Index), cmd.R, cmd.G, cmd.B), true
	case KindLedClear:
		if cmd.Index > 255 {
			return 0, nil, false
		}
		return proto.MsgLedMaskClear, proto.LedMaskClearPayload(uint8(cmd.Index)), true
	case KindAllOn:
		return proto.MsgLedAll, proto.LedAllPayload(true), true
	case KindAllOff:
		return proto.MsgLedAll, proto.LedAllPayload(false), true
	case KindClearMask:
		return proto.MsgLedMaskClearAll, nil, true
	case KindShowMask:
		return proto.MsgLedMaskShow, nil, true
	case KindEffect:
		if cmd.Effect == proto.EffectNone {
			return proto.MsgLedEffectOff, nil, true
		}
		return proto.MsgLedEffect, proto.LedEffectPayload(cmd.Effect), true
	}
	return 0, nil, false
}

func parseHexColor(s string) (r, g, b uint8, err error) {
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("want 6 hex digits, got %d", len(s))
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, err
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
