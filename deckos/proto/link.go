package proto

// WifiLinkUpPayload encodes a MsgWifiLinkUp payload.
//
// Layout (little-endian):
//   - u8[4]: IPv4 address of the station interface
func WifiLinkUpPayload(ip [4]byte) []byte {
	buf := make([]byte, 4)
	copy(buf, ip[:])
	return buf
}

// DecodeWifiLinkUpPayload decodes a WifiLinkUpPayload.
func DecodeWifiLinkUpPayload(payload []byte) (ip [4]byte, ok bool) {
	if len(payload) < 4 {
		return ip, false
	}
	copy(ip[:], payload[:4])
	return ip, true
}

// LineSendPayload encodes a MsgLineSend payload: the raw line bytes
// without the trailing newline. The transport appends the newline.
func LineSendPayload(line []byte) []byte {
	cp := make([]byte, len(line))
	copy(cp, line)
	return cp
}

// ButtonPressPayload encodes a MsgButtonPress payload.
//
// Layout:
//   - u8: button number in physical numbering (1-based)
func ButtonPressPayload(n uint8) []byte {
	return []byte{n}
}

// DecodeButtonPressPayload decodes a ButtonPressPayload.
func DecodeButtonPressPayload(payload []byte) (n uint8, ok bool) {
	if len(payload) < 1 {
		return 0, false
	}
	return payload[0], true
}

// ProtoChangedPayload encodes a MsgProtoChanged payload.
//
// Layout:
//   - u8: the new active Protocol
func ProtoChangedPayload(p Protocol) []byte {
	return []byte{byte(p)}
}

// DecodeProtoChangedPayload decodes a ProtoChangedPayload.
func DecodeProtoChangedPayload(payload []byte) (p Protocol, ok bool) {
	if len(payload) < 1 {
		return ProtocolNone, false
	}
	return Protocol(payload[0]), true
}
