package menu

import (
	"testing"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	timesvc "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/time"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

type fakeEncoder struct {
	ch chan hal.EncoderEvent
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{ch: make(chan hal.EncoderEvent, 16)}
}

func (f *fakeEncoder) Events() <-chan hal.EncoderEvent { return f.ch }

type fakeFB struct {
	w, h     int
	buf      []byte
	presents int
}

func newFakeFB() *fakeFB {
	return &fakeFB{w: 240, h: 240, buf: make([]byte, 240*240*2)}
}

func (f *fakeFB) Width() int                  { return f.w }
func (f *fakeFB) Height() int                 { return f.h }
func (f *fakeFB) Format() hal.PixelFormat     { return hal.PixelFormatRGB565 }
func (f *fakeFB) StrideBytes() int            { return f.w * 2 }
func (f *fakeFB) Buffer() []byte              { return f.buf }
func (f *fakeFB) ClearRGB(r, g, b uint8)      {}
func (f *fakeFB) Present() error              { f.presents++; return nil }

type fakeDisplay struct {
	fb *fakeFB
}

func (d *fakeDisplay) Framebuffer() hal.Framebuffer { return d.fb }

type recorder struct {
	ep   kernel.Capability
	msgs []kernel.Message
}

func (r *recorder) Step(ctx *kernel.Context) {
	msg, ok := ctx.Recv(r.ep)
	if !ok {
		return
	}
	r.msgs = append(r.msgs, msg)
}

type pokeMsg struct {
	kind    proto.Kind
	payload []byte
}

// poke injects protocol messages into the menu mailbox.
type poke struct {
	dst   kernel.Capability
	queue []pokeMsg
}

func (p *poke) Step(ctx *kernel.Context) {
	for _, m := range p.queue {
		ctx.SendTo(p.dst, uint16(m.kind), m.payload)
	}
	p.queue = nil
	ctx.BlockOnTick()
}

func pump(k *kernel.Kernel, n int) {
	for i := 0; i < n && k.Step(); i++ {
	}
}

type fix struct {
	t    *testing.T
	k    *kernel.Kernel
	enc  *fakeEncoder
	fb   *fakeFB
	task *Task
	in   *poke
	led  *recorder
	set  *recorder
	wifi *recorder
	batt *recorder
	tick uint64
}

type fixOpts struct {
	display    bool
	splash     bool
	brightness uint8
	effect     proto.Effect
}

// Endpoint allocation order is identical in every fixture so that the
// sleep client's cached per-task reply endpoints stay deliverable
// across kernels within one test binary.
func newFix(t *testing.T, opts fixOpts) *fix {
	t.Helper()
	f := &fix{t: t, k: kernel.New(), enc: newFakeEncoder()}
	rw := kernel.RightSend | kernel.RightRecv

	menuEP := f.k.NewEndpoint(rw)
	ledEP := f.k.NewEndpoint(rw)
	setEP := f.k.NewEndpoint(rw)
	wifiEP := f.k.NewEndpoint(rw)
	battEP := f.k.NewEndpoint(rw)
	timeEP := f.k.NewEndpoint(rw)

	timeCap := kernel.Capability{}
	if opts.splash {
		// Spare slot for a reply endpoint index cached by an earlier
		// test's sleep round trip.
		f.k.NewEndpoint(rw)
		timeCap = timeEP.Restrict(kernel.RightSend)
	}

	var disp hal.Display
	if opts.display {
		f.fb = newFakeFB()
		disp = &fakeDisplay{fb: f.fb}
	}

	brightness := opts.brightness
	if brightness == 0 {
		brightness = 150
	}

	f.in = &poke{dst: menuEP.Restrict(kernel.RightSend)}
	f.task = New(disp, f.enc, Config{Brightness: brightness, Effect: opts.effect}, menuEP, Caps{
		Led:      ledEP.Restrict(kernel.RightSend),
		Settings: setEP.Restrict(kernel.RightSend),
		Wifi:     wifiEP.Restrict(kernel.RightSend),
		Battery:  battEP.Restrict(kernel.RightSend),
		Time:     timeCap,
	})
	f.led = &recorder{ep: ledEP}
	f.set = &recorder{ep: setEP}
	f.wifi = &recorder{ep: wifiEP}
	f.batt = &recorder{ep: battEP}

	f.k.AddTask(f.in)
	f.k.AddTask(f.task)
	f.k.AddTask(f.led)
	f.k.AddTask(f.set)
	f.k.AddTask(f.wifi)
	f.k.AddTask(f.batt)
	if opts.splash {
		f.k.AddTask(timesvc.New(timeEP))
	}

	if !opts.splash {
		// Without a time service the splash is skipped on the first
		// step and the task lands on MAIN.
		f.run()
		if f.task.scr != screenMain {
			t.Fatalf("boot screen = %d, want main", f.task.scr)
		}
	}
	return f
}

func (f *fix) advance(dt uint64) {
	f.tick += dt
	f.k.TickTo(f.tick)
	pump(f.k, 128)
}

func (f *fix) run() {
	f.advance(1)
	f.advance(1)
}

// press spaces pushes out beyond the debounce window.
func (f *fix) press() {
	f.advance(200)
	f.enc.ch <- hal.EncoderEvent{Press: true}
	f.run()
}

func (f *fix) rotate(d int8) {
	f.enc.ch <- hal.EncoderEvent{Delta: d}
	f.run()
}

// selectRow rotates to row n on the current screen and clicks it.
func (f *fix) selectRow(n int) {
	for i := 0; i < n; i++ {
		f.rotate(1)
	}
	f.press()
}

func (f *fix) inject(kind proto.Kind, payload []byte) {
	f.in.queue = append(f.in.queue, pokeMsg{kind: kind, payload: payload})
	f.run()
}

func kinds(msgs []kernel.Message) []proto.Kind {
	var out []proto.Kind
	for i := range msgs {
		out = append(out, proto.Kind(msgs[i].Kind))
	}
	return out
}

func hasKind(msgs []kernel.Message, kind proto.Kind) bool {
	for i := range msgs {
		if proto.Kind(msgs[i].Kind) == kind {
			return true
		}
	}
	return false
}

func TestSplashHoldsThenEntersMain(t *testing.T) {
	f := newFix(t, fixOpts{splash: true})

	// A press during the splash must be discarded, not queued.
	f.enc.ch <- hal.EncoderEvent{Press: true}
	f.advance(1)
	if f.task.scr != screenSplash {
		t.Fatalf("scr = %d, want splash", f.task.scr)
	}

	f.advance(500)
	if f.task.scr != screenSplash {
		t.Fatal("splash ended early")
	}

	f.advance(600)
	if f.task.scr != screenMain {
		t.Fatalf("scr = %d, want main after splash", f.task.scr)
	}
}

func TestRotateOnMainIsNoOp(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.rotate(1)
	f.rotate(-1)
	if f.task.scr != screenMain || f.task.sel != 0 {
		t.Fatalf("scr=%d sel=%d", f.task.scr, f.task.sel)
	}
	if len(f.led.msgs)+len(f.set.msgs)+len(f.wifi.msgs)+len(f.batt.msgs) != 0 {
		t.Fatal("rotation on main produced traffic")
	}
}

func TestClickWalksTreeAndWraps(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	if f.task.scr != screenSettings {
		t.Fatalf("scr = %d, want settings", f.task.scr)
	}
	f.rotate(1)
	if f.task.sel != 1 {
		t.Fatalf("sel = %d", f.task.sel)
	}
	f.rotate(-1)
	f.rotate(-1)
	if f.task.sel != len(settingsRows)-1 {
		t.Fatalf("sel = %d, want wrap to %d", f.task.sel, len(settingsRows)-1)
	}

	// Back row returns to MAIN.
	f.press()
	if f.task.scr != screenMain {
		t.Fatalf("scr = %d, want main", f.task.scr)
	}
}

func TestEffectSelectionSendsToEngine(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowEffects)
	if f.task.scr != screenEffects {
		t.Fatalf("scr = %d, want effects", f.task.scr)
	}

	// Entering the screen asks the settings service for the live value.
	if !hasKind(f.set.msgs, proto.MsgSettingsGet) {
		t.Fatalf("settings saw %v", kinds(f.set.msgs))
	}

	f.press() // row 0 = RAINBOW
	if !hasKind(f.led.msgs, proto.MsgLedEffect) {
		t.Fatalf("engine saw %v", kinds(f.led.msgs))
	}
	for i := range f.led.msgs {
		if proto.Kind(f.led.msgs[i].Kind) != proto.MsgLedEffect {
			continue
		}
		e, ok := proto.DecodeLedEffectPayload(f.led.msgs[i].Payload())
		if !ok || e != proto.EffectRainbow {
			t.Fatalf("effect payload = %v", e)
		}
	}
	if f.task.effect != proto.EffectRainbow {
		t.Fatalf("effect = %v", f.task.effect)
	}
}

func TestBackFromEffectsKeepsEffectRunning(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowEffects)
	f.press() // RAINBOW

	f.selectRow(len(proto.Effects()) + 1) // Back
	if f.task.scr != screenSettings {
		t.Fatalf("scr = %d, want settings", f.task.scr)
	}
	if hasKind(f.led.msgs, proto.MsgLedEffectOff) {
		t.Fatal("leaving the effects screen stopped the effect")
	}
	if f.task.effect != proto.EffectRainbow {
		t.Fatalf("effect = %v", f.task.effect)
	}
}

func TestTurnOffRowStopsEffect(t *testing.T) {
	f := newFix(t, fixOpts{effect: proto.EffectFire})
	f.press()
	f.selectRow(settingsRowEffects)

	// The cursor lands on the active effect.
	if f.task.sel != 3 {
		t.Fatalf("sel = %d, want 3 (FIRE)", f.task.sel)
	}

	f.selectRow(len(proto.Effects()) - f.task.sel) // Turn Off row
	if !hasKind(f.led.msgs, proto.MsgLedEffectOff) {
		t.Fatalf("engine saw %v", kinds(f.led.msgs))
	}
	if f.task.effect != proto.EffectNone {
		t.Fatalf("effect = %v", f.task.effect)
	}
}

func TestBrightnessLiveThenPersistOnClick(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowBrightness)
	if f.task.scr != screenBrightness {
		t.Fatalf("scr = %d, want brightness", f.task.scr)
	}

	f.rotate(1)
	f.rotate(1)
	if f.task.brightness != 160 {
		t.Fatalf("brightness = %d", f.task.brightness)
	}
	var live []uint8
	for i := range f.led.msgs {
		if proto.Kind(f.led.msgs[i].Kind) != proto.MsgLedBrightness {
			continue
		}
		v, ok := proto.DecodeLedBrightnessPayload(f.led.msgs[i].Payload())
		if !ok {
			t.Fatal("bad brightness payload")
		}
		live = append(live, v)
	}
	if len(live) != 2 || live[0] != 155 || live[1] != 160 {
		t.Fatalf("live updates = %v", live)
	}

	// Rotation alone never touches flash.
	if len(f.set.msgs) != 0 {
		t.Fatalf("settings saw %v during rotation", kinds(f.set.msgs))
	}

	f.press()
	if f.task.scr != screenSettings {
		t.Fatalf("scr = %d, want settings", f.task.scr)
	}
	if len(f.set.msgs) != 1 || proto.Kind(f.set.msgs[0].Kind) != proto.MsgSettingsSet {
		t.Fatalf("settings saw %v", kinds(f.set.msgs))
	}
	key, value, ok := proto.DecodeSettingsSetPayload(f.set.msgs[0].Payload())
	if !ok || key != proto.KeyBrightness || len(value) != 1 || value[0] != 160 {
		t.Fatalf("persisted %v %v", key, value)
	}
}

func TestBrightnessClampsAtCeiling(t *testing.T) {
	f := newFix(t, fixOpts{brightness: 253})
	f.press()
	f.selectRow(settingsRowBrightness)

	f.rotate(1)
	if f.task.brightness != 255 {
		t.Fatalf("brightness = %d", f.task.brightness)
	}
	n := len(f.led.msgs)
	f.rotate(1)
	if f.task.brightness != 255 || len(f.led.msgs) != n {
		t.Fatalf("clamped rotation still sent traffic: %v", kinds(f.led.msgs))
	}
}

func TestClearCredsPopupArmsThenConfirms(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowWifi)
	if f.task.scr != screenWifi {
		t.Fatalf("scr = %d, want wifi", f.task.scr)
	}

	f.selectRow(wifiRowClearCreds)
	if f.task.pop != popupClearCreds {
		t.Fatalf("pop = %d", f.task.pop)
	}

	// A press past the debounce but inside the arm window is ignored.
	f.advance(160)
	f.enc.ch <- hal.EncoderEvent{Press: true}
	f.run()
	if f.task.pop != popupClearCreds || hasKind(f.set.msgs, proto.MsgSettingsClearCreds) {
		t.Fatal("popup confirmed before arming")
	}

	f.press()
	if f.task.pop != popupNone {
		t.Fatal("popup still open after confirm")
	}
	if !hasKind(f.set.msgs, proto.MsgSettingsClearCreds) {
		t.Fatalf("settings saw %v", kinds(f.set.msgs))
	}
	if f.task.scr != screenWifi {
		t.Fatalf("scr = %d, want wifi after confirm", f.task.scr)
	}
}

func TestPopupTimesOutToCancel(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowAdvanced)
	f.selectRow(advancedRowFactoryReset)
	if f.task.pop != popupFactoryReset {
		t.Fatalf("pop = %d", f.task.pop)
	}

	f.advance(5500)
	if f.task.pop != popupNone {
		t.Fatal("popup did not time out")
	}
	if hasKind(f.set.msgs, proto.MsgSettingsReset) {
		t.Fatal("cancelled popup mutated settings")
	}
	if f.task.scr != screenAdvanced {
		t.Fatalf("scr = %d, want advanced", f.task.scr)
	}
}

func TestRotateDuringPopupIgnored(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowAdvanced)
	f.selectRow(advancedRowFactoryReset)

	sel := f.task.sel
	f.rotate(1)
	f.rotate(1)
	if f.task.sel != sel {
		t.Fatalf("sel moved during popup: %d -> %d", sel, f.task.sel)
	}
}

func TestFactoryResetConfirmResetsEverything(t *testing.T) {
	f := newFix(t, fixOpts{brightness: 200, effect: proto.EffectFire})
	f.press()
	f.selectRow(settingsRowAdvanced)
	f.selectRow(advancedRowFactoryReset)

	f.advance(popupArmTicks)
	f.press()
	if !hasKind(f.set.msgs, proto.MsgSettingsReset) {
		t.Fatalf("settings saw %v", kinds(f.set.msgs))
	}
	if !hasKind(f.led.msgs, proto.MsgLedEffectOff) || !hasKind(f.led.msgs, proto.MsgLedBrightness) {
		t.Fatalf("engine saw %v", kinds(f.led.msgs))
	}
	if f.task.brightness != 150 || f.task.effect != proto.EffectNone {
		t.Fatalf("brightness=%d effect=%v", f.task.brightness, f.task.effect)
	}
}

func TestProtoChangeRedrawsOnlyOnMain(t *testing.T) {
	f := newFix(t, fixOpts{display: true})

	before := f.fb.presents
	f.inject(proto.MsgProtoChanged, proto.ProtoChangedPayload(proto.ProtocolUSB))
	if f.fb.presents == before {
		t.Fatal("no repaint on main after protocol change")
	}
	if f.task.protocol != proto.ProtocolUSB {
		t.Fatalf("protocol = %v", f.task.protocol)
	}

	f.press() // into settings
	before = f.fb.presents
	f.inject(proto.MsgProtoChanged, proto.ProtoChangedPayload(proto.ProtocolNone))
	if f.fb.presents != before {
		t.Fatal("protocol change repainted a non-main screen")
	}
	if f.task.protocol != proto.ProtocolNone {
		t.Fatalf("protocol = %v", f.task.protocol)
	}
}

func TestWifiScreenPollsAndShowsStatus(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowWifi)

	if n := len(f.wifi.msgs); n != 1 || proto.Kind(f.wifi.msgs[0].Kind) != proto.MsgWifiStatusGet {
		t.Fatalf("wifi saw %v", kinds(f.wifi.msgs))
	}
	if !f.wifi.msgs[0].Cap.Valid() {
		t.Fatal("status poll has no reply capability")
	}

	f.advance(600)
	if len(f.wifi.msgs) < 2 {
		t.Fatalf("wifi saw %v, want periodic polls", kinds(f.wifi.msgs))
	}

	st := proto.WifiStatusPayload(true, false, false, [4]byte{10, 0, 0, 9}, "homenet")
	f.inject(proto.MsgWifiStatus, st)
	if !f.task.haveWifi || f.task.wifiSt.SSID != "homenet" || !f.task.wifiSt.LinkUp {
		t.Fatalf("status = %+v", f.task.wifiSt)
	}
}

func TestPortalRowsDriveWifiService(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowWifi)

	f.press() // Start Portal
	if !hasKind(f.wifi.msgs, proto.MsgWifiProvisionStart) {
		t.Fatalf("wifi saw %v", kinds(f.wifi.msgs))
	}
	f.selectRow(wifiRowStopPortal)
	if !hasKind(f.wifi.msgs, proto.MsgWifiProvisionStop) {
		t.Fatalf("wifi saw %v", kinds(f.wifi.msgs))
	}
}

func TestBatteryScreenPollsAndShows(t *testing.T) {
	f := newFix(t, fixOpts{})
	f.press()
	f.selectRow(settingsRowBattery)
	if f.task.scr != screenBattery {
		t.Fatalf("scr = %d, want battery", f.task.scr)
	}
	if n := len(f.batt.msgs); n != 1 || proto.Kind(f.batt.msgs[0].Kind) != proto.MsgBatteryGet {
		t.Fatalf("battery saw %v", kinds(f.batt.msgs))
	}

	f.inject(proto.MsgBatteryInfo, proto.BatteryInfoPayload(3870, 67))
	if !f.task.haveBatt || f.task.battMV != 3870 || f.task.battPct != 67 {
		t.Fatalf("battery = %d mV %d%%", f.task.battMV, f.task.battPct)
	}

	f.advance(1100)
	if len(f.batt.msgs) < 2 {
		t.Fatalf("battery saw %v, want periodic polls", kinds(f.batt.msgs))
	}
}

func TestConsoleRingKeepsRecentLines(t *testing.T) {
	f := newFix(t, fixOpts{})
	for i := 0; i < consoleDepth+2; i++ {
		f.inject(proto.MsgLogLine, []byte("line "+string(rune('a'+i))))
	}
	got := f.task.log.snapshot(nil)
	if len(got) != consoleDepth {
		t.Fatalf("ring holds %d lines", len(got))
	}
	if got[0] != "line c" || got[len(got)-1] != "line "+string(rune('a'+consoleDepth+1)) {
		t.Fatalf("ring order: first=%q last=%q", got[0], got[len(got)-1])
	}
}

func TestConsoleScreenRendersTerminal(t *testing.T) {
	f := newFix(t, fixOpts{display: true})
	f.inject(proto.MsgLogLine, []byte("[coord] protocol USB"))

	f.press()
	f.selectRow(settingsRowAdvanced)
	before := f.fb.presents
	f.press() // Console row
	if f.task.scr != screenConsole {
		t.Fatalf("scr = %d, want console", f.task.scr)
	}
	if f.fb.presents == before {
		t.Fatal("console screen did not paint")
	}

	// New lines repaint the live console.
	before = f.fb.presents
	f.inject(proto.MsgLogLine, []byte("[coord] protocol NONE"))
	if f.fb.presents == before {
		t.Fatal("log line did not repaint the console")
	}

	f.press()
	if f.task.scr != screenAdvanced {
		t.Fatalf("scr = %d, want advanced", f.task.scr)
	}
}
