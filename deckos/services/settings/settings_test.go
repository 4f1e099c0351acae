package settingssvc

import (
	"errors"
	"strings"
	"testing"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/settings"
)

type memFlash struct {
	mem        []byte
	failWrites bool
}

func newMemFlash() *memFlash {
	m := &memFlash{mem: make([]byte, 2*4096)}
	for i := range m.mem {
		m.mem[i] = 0xFF
	}
	return m
}

func (m *memFlash) SizeBytes() uint32       { return uint32(len(m.mem)) }
func (m *memFlash) EraseBlockBytes() uint32 { return 4096 }

func (m *memFlash) ReadAt(p []byte, off uint32) (int, error) {
	if int(off)+len(p) > len(m.mem) {
		return 0, errors.New("read past end")
	}
	copy(p, m.mem[off:])
	return len(p), nil
}

func (m *memFlash) WriteAt(p []byte, off uint32) (int, error) {
	if m.failWrites {
		return 0, errors.New("write rejected")
	}
	if int(off)+len(p) > len(m.mem) {
		return 0, errors.New("write past end")
	}
	copy(m.mem[off:], p)
	return len(p), nil
}

func (m *memFlash) Erase(off, size uint32) error {
	if int(off+size) > len(m.mem) {
		return errors.New("erase past end")
	}
	for i := int(off); i < int(off+size); i++ {
		m.mem[i] = 0xFF
	}
	return nil
}

// requester fires a fixed message at the service once and records every
// reply on its endpoint.
type requester struct {
	svcCap kernel.Capability
	reply  kernel.Capability

	kind    proto.Kind
	payload []byte
	send    bool

	replies []kernel.Message
}

func (r *requester) Step(ctx *kernel.Context) {
	if r.send {
		r.send = false
		var replyCap kernel.Capability
		if r.reply.Valid() {
			replyCap = r.reply.Restrict(kernel.RightSend)
		}
		ctx.SendToCap(r.svcCap, uint16(r.kind), r.payload, replyCap)
	}
	if !r.reply.Valid() {
		ctx.BlockOnTick()
		return
	}
	msg, ok := ctx.Recv(r.reply)
	if !ok {
		return
	}
	r.replies = append(r.replies, msg)
}

// logSink collects logger-service traffic as plain strings.
type logSink struct {
	ep    kernel.Capability
	lines []string
}

func (l *logSink) Step(ctx *kernel.Context) {
	msg, ok := ctx.Recv(l.ep)
	if !ok {
		return
	}
	if msg.Kind != uint16(proto.MsgLogLine) {
		return
	}
	l.lines = append(l.lines, string(msg.Payload()))
}

func pump(k *kernel.Kernel, n int) {
	for i := 0; i < n && k.Step(); i++ {
	}
}

type fixture struct {
	k     *kernel.Kernel
	dev   *memFlash
	store *settings.Store
	svc   *Service
	logs  *logSink
	ep    kernel.Capability
	reply kernel.Capability
}

func newFixture(rec settings.Record) *fixture {
	f := &fixture{k: kernel.New(), dev: newMemFlash()}
	f.store = settings.NewStore(f.dev)
	f.ep = f.k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	logEP := f.k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	f.reply = f.k.NewEndpoint(kernel.RightSend | kernel.RightRecv)

	f.svc = New(f.store, rec, f.ep, logEP.Restrict(kernel.RightSend))
	f.logs = &logSink{ep: logEP}
	f.k.AddTask(f.svc)
	f.k.AddTask(f.logs)
	return f
}

func (f *fixture) request(kind proto.Kind, payload []byte, wantReply bool) *requester {
	r := &requester{svcCap: f.ep.Restrict(kernel.RightSend), kind: kind, payload: payload, send: true}
	if wantReply {
		r.reply = f.reply
	}
	f.k.AddTask(r)
	return r
}

func (f *fixture) run() {
	f.k.TickTo(1)
	pump(f.k, 64)
}

func TestSetBrightnessPersistsAndAcks(t *testing.T) {
	f := newFixture(settings.Defaults())
	r := f.request(proto.MsgSettingsSet, proto.SettingsSetPayload(proto.KeyBrightness, []byte{200}), true)
	f.run()

	if len(r.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(r.replies))
	}
	key, verified, ok := proto.DecodeSettingsAckPayload(r.replies[0].Payload())
	if !ok || key != proto.KeyBrightness || !verified {
		t.Fatalf("ack = key %v verified %v", key, verified)
	}

	if got := settings.NewStore(f.dev).Load(); got.Brightness != 200 {
		t.Fatalf("persisted brightness = %d, want 200", got.Brightness)
	}
}

func TestSetBrightnessClampsLowValues(t *testing.T) {
	f := newFixture(settings.Defaults())
	f.request(proto.MsgSettingsSet, proto.SettingsSetPayload(proto.KeyBrightness, []byte{1}), false)
	f.run()

	if got := f.svc.Record().Brightness; got != settings.BrightnessMin {
		t.Fatalf("brightness = %d, want clamped %d", got, settings.BrightnessMin)
	}
}

func TestSetEffectPersistsWireName(t *testing.T) {
	f := newFixture(settings.Defaults())
	f.request(proto.MsgSettingsSet, proto.SettingsSetPayload(proto.KeyEffect, []byte("FIRE")), false)
	f.run()

	if got := settings.NewStore(f.dev).Load(); got.Effect != proto.EffectFire {
		t.Fatalf("persisted effect = %v, want FIRE", got.Effect)
	}
}

func TestSetRejectsUnknownEffect(t *testing.T) {
	f := newFixture(settings.Defaults())
	r := f.request(proto.MsgSettingsSet, proto.SettingsSetPayload(proto.KeyEffect, []byte("SPIN")), true)
	f.run()

	if len(r.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(r.replies))
	}
	_, verified, _ := proto.DecodeSettingsAckPayload(r.replies[0].Payload())
	if verified {
		t.Fatal("unknown effect acked as verified")
	}
	if f.svc.Record().Effect != proto.EffectNone {
		t.Fatalf("record effect changed to %v", f.svc.Record().Effect)
	}
}

func TestGetReturnsCurrentValue(t *testing.T) {
	rec := settings.Defaults()
	rec.SSID = "labnet"
	f := newFixture(rec)
	r := f.request(proto.MsgSettingsGet, proto.SettingsGetPayload(proto.KeySSID), true)
	f.run()

	if len(r.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(r.replies))
	}
	key, value, ok := proto.DecodeSettingsValuePayload(r.replies[0].Payload())
	if !ok || key != proto.KeySSID || string(value) != "labnet" {
		t.Fatalf("value reply = %v %q", key, value)
	}
}

func TestClearCredentialsWipesFlash(t *testing.T) {
	rec := settings.Defaults()
	rec.SSID = "labnet"
	rec.Password = "hunter2"
	f := newFixture(rec)
	f.request(proto.MsgSettingsClearCreds, nil, false)
	f.run()

	got := settings.NewStore(f.dev).Load()
	if got.SSID != "" || got.Password != "" {
		t.Fatalf("credentials survived: %+v", got)
	}
}

func TestFactoryResetRestoresDefaults(t *testing.T) {
	rec := settings.Record{Brightness: 222, Effect: proto.EffectFire, SSID: "x"}
	f := newFixture(rec)
	if err := f.store.Save(rec); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	f.request(proto.MsgSettingsReset, nil, false)
	f.run()

	if f.svc.Record() != settings.Defaults() {
		t.Fatalf("record = %+v, want defaults", f.svc.Record())
	}
	if got := settings.NewStore(f.dev).Load(); got != settings.Defaults() {
		t.Fatalf("flash = %+v, want defaults", got)
	}
}

func TestFailedSaveAcksUnverifiedAndKeepsRAM(t *testing.T) {
	f := newFixture(settings.Defaults())
	f.dev.failWrites = true
	r := f.request(proto.MsgSettingsSet, proto.SettingsSetPayload(proto.KeyBrightness, []byte{210}), true)
	f.run()

	if len(r.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(r.replies))
	}
	_, verified, _ := proto.DecodeSettingsAckPayload(r.replies[0].Payload())
	if verified {
		t.Fatal("failed save acked as verified")
	}
	if f.svc.Record().Brightness != 210 {
		t.Fatalf("RAM record = %d, want 210 despite failed save", f.svc.Record().Brightness)
	}

	found := false
	for _, line := range f.logs.lines {
		if strings.Contains(line, "save") && strings.Contains(line, "failed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no save failure log, got %q", f.logs.lines)
	}
}

func TestProvisionedCredentialsStored(t *testing.T) {
	f := newFixture(settings.Defaults())
	f.request(proto.MsgWifiCredentials, proto.WifiCredentialsPayload("newnet", "secret"), false)
	f.run()

	got := settings.NewStore(f.dev).Load()
	if got.SSID != "newnet" || got.Password != "secret" {
		t.Fatalf("stored credentials = %+v", got)
	}
}
