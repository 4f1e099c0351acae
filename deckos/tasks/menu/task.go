package menu

import (
	timeclient "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/client/time"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/settings"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

type Caps struct {
	Led      kernel.Capability
	Settings kernel.Capability
	Wifi     kernel.Capability
	Battery  kernel.Capability
	Time     kernel.Capability
}

// Config seeds the navigation state from the persisted record.
type Config struct {
	Brightness uint8
	Effect     proto.Effect
}

type Task struct {
	enc  hal.Encoder
	ep   kernel.Capability
	caps Caps

	r *renderer

	scr screen
	sel int

	pop       popupKind
	popOpened uint64

	pressSeen bool
	lastPress uint64

	protocol proto.Protocol
	wifiSt   proto.WifiStatus
	haveWifi bool

	battMV   uint16
	battPct  uint8
	haveBatt bool

	brightness uint8
	effect     proto.Effect

	lastWifiPoll uint64
	lastBattPoll uint64

	log console

	dirty bool
}

func New(disp hal.Display, enc hal.Encoder, cfg Config, ep kernel.Capability, caps Caps) *Task {
	return &Task{
		enc:        enc,
		ep:         ep,
		caps:       caps,
		r:          newRenderer(disp),
		scr:        screenSplash,
		brightness: settings.ClampBrightness(cfg.Brightness),
		effect:     cfg.Effect,
		dirty:      true,
	}
}

func (t *Task) Step(ctx *kernel.Context) {
	t.drain(ctx)

	if t.scr == screenSplash {
		t.flushEncoder()
		if t.dirty {
			t.render()
			t.dirty = false
		}
		done, err := timeclient.Sleep(ctx, t.caps.Time, splashTicks)
		if err == nil && !done {
			return
		}
		t.scr = screenMain
		t.dirty = true
	}

	t.drainEncoder(ctx)
	t.poll(ctx)

	if t.dirty {
		t.render()
		t.dirty = false
	}
	ctx.BlockOnTick()
}

func (t *Task) render() {
	if t.r == nil {
		return
	}
	t.r.draw(t)
}

func (t *Task) drain(ctx *kernel.Context) {
	for {
		msg, ok := ctx.TryRecv(t.ep)
		if !ok {
			return
		}
		switch proto.Kind(msg.Kind) {
		case proto.MsgProtoChanged:
			p, ok := proto.DecodeProtoChangedPayload(msg.Payload())
			if !ok {
				continue
			}
			t.protocol = p
			// Mid-navigation the link banner is off screen; repainting
			// would only flicker the menu the user is working in.
			if t.scr == screenMain {
				t.dirty = true
			}
		case proto.MsgWifiStatus:
			st, ok := proto.DecodeWifiStatusPayload(msg.Payload())
			if !ok {
				continue
			}
			t.wifiSt = st
			t.haveWifi = true
			if t.scr == screenWifi || t.scr == screenMain || t.scr == screenAbout {
				t.dirty = true
			}
		case proto.MsgBatteryInfo:
			mv, pct, ok := proto.DecodeBatteryInfoPayload(msg.Payload())
			if !ok {
				continue
			}
			t.battMV, t.battPct, t.haveBatt = mv, pct, true
			if t.scr == screenBattery {
				t.dirty = true
			}
		case proto.MsgSettingsValue:
			key, value, ok := proto.DecodeSettingsValuePayload(msg.Payload())
			if !ok {
				continue
			}
			t.applySetting(key, value)
		case proto.MsgLogLine:
			t.log.push(string(msg.Payload()))
			if t.scr == screenConsole {
				t.dirty = true
			}
		}
	}
}

func (t *Task) applySetting(key proto.SettingsKey, value []byte) {
	switch key {
	case proto.KeyEffect:
		e, ok := proto.ParseEffect(string(value))
		if !ok {
			return
		}
		t.effect = e
		if t.scr == screenEffects {
			t.markEffectRow()
			t.dirty = true
		}
	case proto.KeyBrightness:
		// While the user is turning the knob the local value wins.
		if len(value) == 1 && t.scr != screenBrightness {
			t.brightness = settings.ClampBrightness(value[0])
		}
	}
}

func (t *Task) flushEncoder() {
	if t.enc == nil {
		return
	}
	for {
		select {
		case <-t.enc.Events():
		default:
			return
		}
	}
}

func (t *Task) drainEncoder(ctx *kernel.Context) {
	if t.enc == nil {
		return
	}
	for {
		select {
		case ev := <-t.enc.Events():
			t.input(ctx, ev)
		default:
			return
		}
	}
}

func (t *Task) input(ctx *kernel.Context, ev hal.EncoderEvent) {
	if ev.Press {
		now := ctx.Now()
		if t.pressSeen && now-t.lastPress < pushDebounceTicks {
			return
		}
		t.pressSeen = true
		t.lastPress = now
		t.click(ctx)
		return
	}
	if ev.Delta != 0 {
		t.rotate(ctx, int(ev.Delta))
	}
}

func (t *Task) rotate(ctx *kernel.Context, delta int) {
	if t.pop != popupNone {
		return
	}
	if t.scr == screenBrightness {
		v := int(t.brightness) + delta*brightnessStep
		if v < settings.BrightnessMin {
			v = settings.BrightnessMin
		}
		if v > settings.BrightnessMax {
			v = settings.BrightnessMax
		}
		if uint8(v) == t.brightness {
			return
		}
		t.brightness = uint8(v)
		_ = ctx.SendTo(t.caps.Led, uint16(proto.MsgLedBrightness), proto.LedBrightnessPayload(t.brightness))
		t.dirty = true
		return
	}
	rows := rowsFor(t.scr)
	if len(rows) == 0 {
		return
	}
	n := len(rows)
	t.sel = ((t.sel+delta)%n + n) % n
	t.dirty = true
}

func (t *Task) click(ctx *kernel.Context) {
	if t.pop != popupNone {
		if ctx.Now()-t.popOpened < popupArmTicks {
			return
		}
		t.confirmPopup(ctx)
		return
	}

	switch t.scr {
	case screenMain:
		t.enter(ctx, screenSettings)
	case screenSettings:
		t.clickSettings(ctx)
	case screenWifi:
		t.clickWifi(ctx)
	case screenBrightness:
		payload := proto.SettingsSetPayload(proto.KeyBrightness, []byte{t.brightness})
		_ = ctx.SendTo(t.caps.Settings, uint16(proto.MsgSettingsSet), payload)
		t.enter(ctx, screenSettings)
	case screenEffects:
		t.clickEffects(ctx)
	case screenBattery, screenAbout:
		t.enter(ctx, screenSettings)
	case screenAdvanced:
		t.clickAdvanced(ctx)
	case screenConsole:
		t.enter(ctx, screenAdvanced)
	}
}

func (t *Task) enter(ctx *kernel.Context, s screen) {
	t.scr = s
	t.sel = 0
	t.dirty = true
	switch s {
	case screenWifi:
		t.pollWifi(ctx)
	case screenBattery:
		t.pollBattery(ctx)
	case screenEffects:
		t.markEffectRow()
		// The running effect may have been changed over the wire.
		payload := proto.SettingsGetPayload(proto.KeyEffect)
		_ = ctx.SendToCap(t.caps.Settings, uint16(proto.MsgSettingsGet), payload, t.ep.Restrict(kernel.RightSend))
	}
}

// markEffectRow moves the cursor onto the active animation.
func (t *Task) markEffectRow() {
	for i, e := range proto.Effects() {
		if e == t.effect {
			t.sel = i
			return
		}
	}
}

func (t *Task) clickSettings(ctx *kernel.Context) {
	switch t.sel {
	case settingsRowWifi:
		t.enter(ctx, screenWifi)
	case settingsRowBrightness:
		t.enter(ctx, screenBrightness)
	case settingsRowEffects:
		t.enter(ctx, screenEffects)
	case settingsRowBattery:
		t.enter(ctx, screenBattery)
	case settingsRowAdvanced:
		t.enter(ctx, screenAdvanced)
	case settingsRowAbout:
		t.enter(ctx, screenAbout)
	case settingsRowBack:
		t.enter(ctx, screenMain)
	}
}

func (t *Task) clickWifi(ctx *kernel.Context) {
	switch t.sel {
	case wifiRowStartPortal:
		_ = ctx.SendTo(t.caps.Wifi, uint16(proto.MsgWifiProvisionStart), nil)
		t.pollWifi(ctx)
		t.dirty = true
	case wifiRowStopPortal:
		_ = ctx.SendTo(t.caps.Wifi, uint16(proto.MsgWifiProvisionStop), nil)
		t.pollWifi(ctx)
		t.dirty = true
	case wifiRowClearCreds:
		t.openPopup(ctx, popupClearCreds)
	case wifiRowBack:
		t.enter(ctx, screenSettings)
	}
}

func (t *Task) clickEffects(ctx *kernel.Context) {
	effects := proto.Effects()
	switch {
	case t.sel < len(effects):
		t.effect = effects[t.sel]
		_ = ctx.SendTo(t.caps.Led, uint16(proto.MsgLedEffect), proto.LedEffectPayload(t.effect))
		t.dirty = true
	case t.sel == len(effects): // Turn Off
		t.effect = proto.EffectNone
		_ = ctx.SendTo(t.caps.Led, uint16(proto.MsgLedEffectOff), nil)
		t.dirty = true
	default: // Back leaves whatever is playing alone
		t.enter(ctx, screenSettings)
	}
}

func (t *Task) clickAdvanced(ctx *kernel.Context) {
	switch t.sel {
	case advancedRowConsole:
		t.enter(ctx, screenConsole)
	case advancedRowFactoryReset:
		t.openPopup(ctx, popupFactoryReset)
	case advancedRowBack:
		t.enter(ctx, screenSettings)
	}
}

func (t *Task) openPopup(ctx *kernel.Context, kind popupKind) {
	t.pop = kind
	t.popOpened = ctx.Now()
	t.dirty = true
}

func (t *Task) confirmPopup(ctx *kernel.Context) {
	kind := t.pop
	t.pop = popupNone
	t.dirty = true
	switch kind {
	case popupClearCreds:
		_ = ctx.SendTo(t.caps.Settings, uint16(proto.MsgSettingsClearCreds), nil)
		t.pollWifi(ctx)
	case popupFactoryReset:
		_ = ctx.SendTo(t.caps.Settings, uint16(proto.MsgSettingsReset), nil)
		t.brightness = settings.BrightnessDefault
		t.effect = proto.EffectNone
		_ = ctx.SendTo(t.caps.Led, uint16(proto.MsgLedBrightness), proto.LedBrightnessPayload(t.brightness))
		_ = ctx.SendTo(t.caps.Led, uint16(proto.MsgLedEffectOff), nil)
	}
}

func (t *Task) poll(ctx *kernel.Context) {
	now := ctx.Now()

	if t.pop != popupNone && now-t.popOpened >= popupTimeoutTicks {
		// Cancel: back to the originating screen with no side effect.
		t.pop = popupNone
		t.dirty = true
	}

	switch t.scr {
	case screenWifi:
		if now-t.lastWifiPoll >= wifiPollScreenTicks {
			t.pollWifi(ctx)
		}
	case screenMain, screenAbout:
		if t.protocol == proto.ProtocolWifi && now-t.lastWifiPoll >= wifiPollIdleTicks {
			t.pollWifi(ctx)
		}
	case screenBattery:
		if now-t.lastBattPoll >= battPollTicks {
			t.pollBattery(ctx)
		}
	}
}

func (t *Task) pollWifi(ctx *kernel.Context) {
	t.lastWifiPoll = ctx.Now()
	_ = ctx.SendToCap(t.caps.Wifi, uint16(proto.MsgWifiStatusGet), nil, t.ep.Restrict(kernel.RightSend))
}

func (t *Task) pollBattery(ctx *kernel.Context) {
	t.lastBattPoll = ctx.Now()
	_ = ctx.SendToCap(t.caps.Battery, uint16(proto.MsgBatteryGet), nil, t.ep.Restrict(kernel.RightSend))
}
