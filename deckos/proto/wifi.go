package proto

// WifiStatusPayload encodes a MsgWifiStatus payload.
//
// Layout:
//   - u8: flags (bit0 = link up, bit1 = TCP client attached, bit2 = provisioning active)
//   - u8[4]: IPv4 address (zero when link is down)
//   - bytes: SSID (UTF-8, may be empty)
func WifiStatusPayload(linkUp, clientAttached, provisioning bool, ip [4]byte, ssid string) []byte {
	if len(ssid) > 32 {
		ssid = ssid[:32]
	}
	buf := make([]byte, 5, 5+len(ssid))
	var flags byte
	if linkUp {
		flags |= 1 << 0
	}
	if clientAttached {
		flags |= 1 << 1
	}
	if provisioning {
		flags |= 1 << 2
	}
	buf[0] = flags
	copy(buf[1:5], ip[:])
	return append(buf, ssid...)
}

// WifiStatus is the decoded form of a MsgWifiStatus payload.
type WifiStatus struct {
	LinkUp         bool
	ClientAttached bool
	Provisioning   bool
	IP             [4]byte
	SSID           string
}

// DecodeWifiStatusPayload decodes a WifiStatusPayload.
func DecodeWifiStatusPayload(payload []byte) (st WifiStatus, ok bool) {
	if len(payload) < 5 {
		return st, false
	}
	st.LinkUp = payload[0]&(1<<0) != 0
	st.ClientAttached = payload[0]&(1<<1) != 0
	st.Provisioning = payload[0]&(1<<2) != 0
	copy(st.IP[:], payload[1:5])
	st.SSID = string(payload[5:])
	return st, true
}
