package proto

// SettingsKey identifies one persisted setting.
type SettingsKey uint8

const (
	KeyBrightness SettingsKey = iota + 1
	KeyEffect
	KeySSID
	KeyPassword
)

func (k SettingsKey) String() string {
	switch k {
	case KeyBrightness:
		return "brightness"
	case KeyEffect:
		return "effect"
	case KeySSID:
		return "ssid"
	case KeyPassword:
		return "password"
	default:
		return "unknown"
	}
}

// SettingsGetPayload encodes a MsgSettingsGet payload. The request
// message must carry a reply capability; the service answers with
// MsgSettingsValue.
//
// Layout:
//   - u8: key
func SettingsGetPayload(key SettingsKey) []byte {
	return []byte{byte(key)}
}

// DecodeSettingsGetPayload decodes a SettingsGetPayload.
func DecodeSettingsGetPayload(payload []byte) (key SettingsKey, ok bool) {
	if len(payload) < 1 {
		return 0, false
	}
	return SettingsKey(payload[0]), true
}

// SettingsValuePayload encodes a MsgSettingsValue payload.
//
// Layout:
//   - u8: key
//   - bytes: value (brightness is a single byte, strings are UTF-8)
func SettingsValuePayload(key SettingsKey, value []byte) []byte {
	buf := make([]byte, 1+len(value))
	buf[0] = byte(key)
	copy(buf[1:], value)
	return buf
}

// DecodeSettingsValuePayload decodes a SettingsValuePayload.
func DecodeSettingsValuePayload(payload []byte) (key SettingsKey, value []byte, ok bool) {
	if len(payload) < 1 {
		return 0, nil, false
	}
	return SettingsKey(payload[0]), payload[1:], true
}

// SettingsSetPayload encodes a MsgSettingsSet payload. The request may
// carry a reply capability; the service answers with MsgSettingsAck
// after the write-then-verify-read cycle completes.
//
// Layout:
//   - u8: key
//   - bytes: value
func SettingsSetPayload(key SettingsKey, value []byte) []byte {
	buf := make([]byte, 1+len(value))
	buf[0] = byte(key)
	copy(buf[1:], value)
	return buf
}

// DecodeSettingsSetPayload decodes a SettingsSetPayload.
func DecodeSettingsSetPayload(payload []byte) (key SettingsKey, value []byte, ok bool) {
	if len(payload) < 1 {
		return 0, nil, false
	}
	return SettingsKey(payload[0]), payload[1:], true
}

// SettingsAckPayload encodes a MsgSettingsAck payload.
//
// Layout:
//   - u8: key
//   - u8: 1 = durably written and verified, 0 = write or verify failed
func SettingsAckPayload(key SettingsKey, verified bool) []byte {
	v := byte(0)
	if verified {
		v = 1
	}
	return []byte{byte(key), v}
}

// DecodeSettingsAckPayload decodes a SettingsAckPayload.
func DecodeSettingsAckPayload(payload []byte) (key SettingsKey, verified bool, ok bool) {
	if len(payload) < 2 {
		return 0, false, false
	}
	return SettingsKey(payload[0]), payload[1] != 0, true
}

// WifiCredentialsPayload encodes a MsgWifiCredentials payload.
//
// Layout:
//   - u8: ssid length
//   - bytes: ssid
//   - u8: password length
//   - bytes: password
func WifiCredentialsPayload(ssid, password string) []byte {
	if len(ssid) > 32 {
		ssid = ssid[:32]
	}
	if len(password) > 64 {
		password = password[:64]
	}
	buf := make([]byte, 0, 2+len(ssid)+len(password))
	buf = append(buf, byte(len(ssid)))
	buf = append(buf, ssid...)
	buf = append(buf, byte(len(password)))
	buf = append(buf, password...)
	return buf
}

// DecodeWifiCredentialsPayload decodes a WifiCredentialsPayload.
func DecodeWifiCredentialsPayload(payload []byte) (ssid, password string, ok bool) {
	if len(payload) < 1 {
		return "", "", false
	}
	n := int(payload[0])
	if len(payload) < 1+n+1 {
		return "", "", false
	}
	ssid = string(payload[1 : 1+n])
	rest := payload[1+n:]
	m := int(rest[0])
	if len(rest) < 1+m {
		return "", "", false
	}
	password = string(rest[1 : 1+m])
	return ssid, password, true
}
