package proto

// Kind identifies the message type carried in kernel.Message.Kind.
type Kind uint16

const (
	MsgLogLine Kind = iota + 1
	MsgSleep
	MsgWake
	MsgError

	MsgUsbConnected
	MsgUsbDisconnected
	MsgWifiLinkUp
	MsgWifiLinkDown
	MsgTCPAttached
	MsgTCPDetached

	MsgLineSend

	MsgButtonPress

	MsgLedFeedback
	MsgLedEffect
	MsgLedEffectOff
	MsgLedMaskSet
	MsgLedMaskClear
	MsgLedMaskClearAll
	MsgLedMaskShow
	MsgLedAll
	MsgLedBrightness
	MsgLedStatus

	MsgSettingsGet
	MsgSettingsValue
	MsgSettingsSet
	MsgSettingsAck
	MsgSettingsClearCreds
	MsgSettingsReset

	MsgBatteryGet
	MsgBatteryInfo

	MsgProtoChanged

	MsgWifiStatusGet
	MsgWifiStatus
	MsgWifiProvisionStart
	MsgWifiProvisionStop
	MsgWifiCredentials
)

func (k Kind) String() string {
	switch k {
	case MsgLogLine:
		return "log_line"
	case MsgSleep:
		return "sleep"
	case MsgWake:
		return "wake"
	case MsgError:
		return "error"
	case MsgUsbConnected:
		return "usb_connected"
	case MsgUsbDisconnected:
		return "usb_disconnected"
	case MsgWifiLinkUp:
		return "wifi_link_up"
	case MsgWifiLinkDown:
		return "wifi_link_down"
	case MsgTCPAttached:
		return "tcp_attached"
	case MsgTCPDetached:
		return "tcp_detached"
	case MsgLineSend:
		return "line_send"
	case MsgButtonPress:
		return "button_press"
	case MsgLedFeedback:
		return "led_feedback"
	case MsgLedEffect:
		return "led_effect"
	case MsgLedEffectOff:
		return "led_effect_off"
	case MsgLedMaskSet:
		return "led_mask_set"
	case MsgLedMaskClear:
		return "led_mask_clear"
	case MsgLedMaskClearAll:
		return "led_mask_clear_all"
	case MsgLedMaskShow:
		return "led_mask_show"
	case MsgLedAll:
		return "led_all"
	case MsgLedBrightness:
		return "led_brightness"
	case MsgLedStatus:
		return "led_status"
	case MsgSettingsGet:
		return "settings_get"
	case MsgSettingsValue:
		return "settings_value"
	case MsgSettingsSet:
		return "settings_set"
	case MsgSettingsAck:
		return "settings_ack"
	case MsgSettingsClearCreds:
		return "settings_clear_creds"
	case MsgSettingsReset:
		return "settings_reset"
	case MsgBatteryGet:
		return "battery_get"
	case MsgBatteryInfo:
		return "battery_info"
	case MsgProtoChanged:
		return "proto_changed"
	case MsgWifiStatusGet:
		return "wifi_status_get"
	case MsgWifiStatus:
		return "wifi_status"
	case MsgWifiProvisionStart:
		return "wifi_provision_start"
	case MsgWifiProvisionStop:
		return "wifi_provision_stop"
	case MsgWifiCredentials:
		return "wifi_credentials"
	default:
		return "unknown"
	}
}

// ErrCode is a generic error category for MsgError responses.
type ErrCode uint16

const (
	ErrUnknown ErrCode = iota
	ErrBadMessage
	ErrNotFound
	ErrBusy
	ErrOverflow
	ErrTooLarge
	ErrStorage
	ErrInternal
)

func (c ErrCode) String() string {
	switch c {
	case ErrUnknown:
		return "unknown"
	case ErrBadMessage:
		return "bad_message"
	case ErrNotFound:
		return "not_found"
	case ErrBusy:
		return "busy"
	case ErrOverflow:
		return "overflow"
	case ErrTooLarge:
		return "too_large"
	case ErrStorage:
		return "storage"
	case ErrInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Protocol is the transport currently authorized to receive
// button-press output. Exactly one value holds at any instant.
type Protocol uint8

const (
	ProtocolNone Protocol = iota
	ProtocolUSB
	ProtocolWifi
)

func (p Protocol) String() string {
	switch p {
	case ProtocolNone:
		return "NONE"
	case ProtocolUSB:
		return "USB"
	case ProtocolWifi:
		return "WIFI"
	default:
		return "NONE"
	}
}

// Effect names a built-in LED animation. The String values are the
// wire-protocol spellings used by ALL_LED commands and the persisted
// settings record; they must not change.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectRainbow
	EffectBlink
	EffectWaveBlue
	EffectFire
	EffectTwinkle
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "NONE"
	case EffectRainbow:
		return "RAINBOW"
	case EffectBlink:
		return "BLINK"
	case EffectWaveBlue:
		return "WAVE_BLUE"
	case EffectFire:
		return "FIRE"
	case EffectTwinkle:
		return "TWINKLE"
	default:
		return "NONE"
	}
}

// ParseEffect maps a wire-protocol effect name to its Effect value.
func ParseEffect(s string) (Effect, bool) {
	switch s {
	case "NONE":
		return EffectNone, true
	case "RAINBOW":
		return EffectRainbow, true
	case "BLINK":
		return EffectBlink, true
	case "WAVE_BLUE":
		return EffectWaveBlue, true
	case "FIRE":
		return EffectFire, true
	case "TWINKLE":
		return EffectTwinkle, true
	default:
		return EffectNone, false
	}
}

// Effects lists the selectable animations in menu order, without NONE.
func Effects() []Effect {
	return []Effect{EffectRainbow, EffectBlink, EffectWaveBlue, EffectFire, EffectTwinkle}
}
