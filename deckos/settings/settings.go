// Package settings defines the persisted device configuration record
// and its two-slot flash store.
package settings

import (
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
)

// Bounds for the persisted fields. Brightness is clamped rather than
// rejected so stale or hand-written images still boot.
const (
	BrightnessMin     = 5
	BrightnessMax     = 255
	BrightnessDefault = 150

	SSIDMax     = 32
	PasswordMax = 64
)

// Record is the full set of persisted settings.
type Record struct {
	Brightness uint8
	Effect     proto.Effect
	SSID       string
	Password   string
}

// Defaults returns the factory record.
func Defaults() Record {
	return Record{Brightness: BrightnessDefault, Effect: proto.EffectNone}
}

// Normalize clamps every field into its valid domain. It is applied on
// every load and before every save.
func Normalize(rec Record) Record {
	rec.Brightness = ClampBrightness(rec.Brightness)
	if rec.Effect > proto.EffectTwinkle {
		rec.Effect = proto.EffectNone
	}
	if len(rec.SSID) > SSIDMax {
		rec.SSID = rec.SSID[:SSIDMax]
	}
	if len(rec.Password) > PasswordMax {
		rec.Password = rec.Password[:PasswordMax]
	}
	return rec
}

// ClampBrightness forces a raw brightness into [BrightnessMin,
// BrightnessMax].
func ClampBrightness(v uint8) uint8 {
	if v < BrightnessMin {
		return BrightnessMin
	}
	return v
}

const recordVersion = 1

// encodeRecord serializes a normalized record.
//
// Layout:
//   - u8: record version
//   - u8: brightness
//   - u8: effect
//   - u8: ssid length, then the ssid bytes
//   - u8: password length, then the password bytes
func encodeRecord(rec Record) []byte {
	buf := make([]byte, 0, 5+len(rec.SSID)+len(rec.Password))
	buf = append(buf, recordVersion, rec.Brightness, byte(rec.Effect))
	buf = append(buf, byte(len(rec.SSID)))
	buf = append(buf, rec.SSID...)
	buf = append(buf, byte(len(rec.Password)))
	buf = append(buf, rec.Password...)
	return buf
}

// decodeRecord parses a payload produced by encodeRecord. Unknown
// versions and short payloads are rejected; field domains are fixed up
// by Normalize so a valid frame always yields a usable record.
func decodeRecord(p []byte) (Record, bool) {
	if len(p) < 5 || p[0] != recordVersion {
		return Record{}, false
	}
	rec := Record{Brightness: p[1], Effect: proto.Effect(p[2])}
	rest := p[3:]
	ssid, rest, ok := takeString(rest)
	if !ok {
		return Record{}, false
	}
	pass, rest, ok := takeString(rest)
	if !ok || len(rest) != 0 {
		return Record{}, false
	}
	rec.SSID = ssid
	rec.Password = pass
	return Normalize(rec), true
}

func takeString(p []byte) (s string, rest []byte, ok bool) {
	if len(p) < 1 {
		return "", nil, false
	}
	n := int(p[0])
	if len(p) < 1+n {
		return "", nil, false
	}
	return string(p[1 : 1+n]), p[1+n:], true
}
