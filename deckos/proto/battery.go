package proto

import "encoding/binary"

// BatteryInfoPayload encodes a MsgBatteryInfo payload.
//
// Layout (little-endian):
//   - u16: battery voltage in millivolts
//   - u8: charge estimate in percent (0-100)
func BatteryInfoPayload(millivolts uint16, percent uint8) []byte {
	buf := make([]byte, 3)
	binary.LittleEndian.PutUint16(buf[0:2], millivolts)
	buf[2] = percent
	return buf
}

// DecodeBatteryInfoPayload decodes a BatteryInfoPayload.
func DecodeBatteryInfoPayload(payload []byte) (millivolts uint16, percent uint8, ok bool) {
	if len(payload) < 3 {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint16(payload[0:2]), payload[2], true
}
