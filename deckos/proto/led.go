package proto

// LedFeedbackPayload encodes a MsgLedFeedback payload.
//
// Layout:
//   - u8: the Protocol whose color to flash (blue=USB, green=WIFI, red=NONE)
func LedFeedbackPayload(p Protocol) []byte {
	return []byte{byte(p)}
}

// DecodeLedFeedbackPayload decodes a LedFeedbackPayload.
func DecodeLedFeedbackPayload(payload []byte) (p Protocol, ok bool) {
	if len(payload) < 1 {
		return ProtocolNone, false
	}
	return Protocol(payload[0]), true
}

// LedEffectPayload encodes a MsgLedEffect payload.
//
// Layout:
//   - u8: the Effect to activate (EffectNone deactivates)
func LedEffectPayload(e Effect) []byte {
	return []byte{byte(e)}
}

// DecodeLedEffectPayload decodes a LedEffectPayload.
func DecodeLedEffectPayload(payload []byte) (e Effect, ok bool) {
	if len(payload) < 1 {
		return EffectNone, false
	}
	return Effect(payload[0]), true
}

// LedMaskSetPayload encodes a MsgLedMaskSet payload.
//
// Layout:
//   - u8: LED index (0-based)
//   - u8: red
//   - u8: green
//   - u8: blue
func LedMaskSetPayload(idx, r, g, b uint8) []byte {
	return []byte{idx, r, g, b}
}

// DecodeLedMaskSetPayload decodes a LedMaskSetPayload.
func DecodeLedMaskSetPayload(payload []byte) (idx, r, g, b uint8, ok bool) {
	if len(payload) < 4 {
		return 0, 0, 0, 0, false
	}
	return payload[0], payload[1], payload[2], payload[3], true
}

// LedMaskClearPayload encodes a MsgLedMaskClear payload.
//
// Layout:
//   - u8: LED index (0-based)
func LedMaskClearPayload(idx uint8) []byte {
	return []byte{idx}
}

// DecodeLedMaskClearPayload decodes a LedMaskClearPayload.
func DecodeLedMaskClearPayload(payload []byte) (idx uint8, ok bool) {
	if len(payload) < 1 {
		return 0, false
	}
	return payload[0], true
}

// LedAllPayload encodes a MsgLedAll payload.
//
// Layout:
//   - u8: 1 = all LEDs on (white), 0 = all LEDs off
func LedAllPayload(on bool) []byte {
	if on {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeLedAllPayload decodes a LedAllPayload.
func DecodeLedAllPayload(payload []byte) (on bool, ok bool) {
	if len(payload) < 1 {
		return false, false
	}
	return payload[0] != 0, true
}

// LedBrightnessPayload encodes a MsgLedBrightness payload.
//
// Layout:
//   - u8: brightness, clamped by the engine to the valid range
func LedBrightnessPayload(v uint8) []byte {
	return []byte{v}
}

// DecodeLedBrightnessPayload decodes a LedBrightnessPayload.
func DecodeLedBrightnessPayload(payload []byte) (v uint8, ok bool) {
	if len(payload) < 1 {
		return 0, false
	}
	return payload[0], true
}

// LedStatusPayload encodes a MsgLedStatus payload.
//
// Layout:
//   - u8: the Protocol the idle status indicator should show
func LedStatusPayload(p Protocol) []byte {
	return []byte{byte(p)}
}

// DecodeLedStatusPayload decodes a LedStatusPayload.
func DecodeLedStatusPayload(payload []byte) (p Protocol, ok bool) {
	if len(payload) < 1 {
		return ProtocolNone, false
	}
	return Protocol(payload[0]), true
}
