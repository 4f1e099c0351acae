// Package settingssvc owns the persisted configuration record. All
// reads and writes go through its endpoint so flash access stays
// single-threaded.
package settingssvc

import (
	logclient "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/client/logger"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/settings"
)

type Service struct {
	store  *settings.Store
	rec    settings.Record
	ep     kernel.Capability
	logCap kernel.Capability
}

// New wraps an already-loaded record. The boot path loads the store
// once before the kernel starts so other services can be constructed
// with the persisted values.
func New(store *settings.Store, rec settings.Record, ep, logCap kernel.Capability) *Service {
	return &Service{store: store, rec: settings.Normalize(rec), ep: ep, logCap: logCap}
}

// Record returns the current in-RAM record.
func (s *Service) Record() settings.Record { return s.rec }

func (s *Service) Step(ctx *kernel.Context) {
	for {
		msg, ok := ctx.TryRecv(s.ep)
		if !ok {
			break
		}
		s.handle(ctx, &msg)
	}
	ctx.BlockOnTick()
}

func (s *Service) handle(ctx *kernel.Context, msg *kernel.Message) {
	switch proto.Kind(msg.Kind) {
	case proto.MsgSettingsGet:
		key, ok := proto.DecodeSettingsGetPayload(msg.Payload())
		if !ok || !msg.Cap.Valid() {
			return
		}
		_ = ctx.Send(s.ep, msg.Cap, uint16(proto.MsgSettingsValue),
			proto.SettingsValuePayload(key, s.valueBytes(key)))

	case proto.MsgSettingsSet:
		key, value, ok := proto.DecodeSettingsSetPayload(msg.Payload())
		if !ok {
			return
		}
		if !s.apply(key, value) {
			s.ack(ctx, msg.Cap, key, false)
			return
		}
		s.ack(ctx, msg.Cap, key, s.save(ctx, key.String()))

	case proto.MsgSettingsClearCreds:
		if s.rec.SSID == "" && s.rec.Password == "" {
			return
		}
		s.rec.SSID = ""
		s.rec.Password = ""
		if s.save(ctx, "clear-creds") {
			logclient.Log(ctx, s.logCap, "[settings] credentials cleared")
		}

	case proto.MsgSettingsReset:
		s.rec = settings.Defaults()
		if err := s.store.Reset(); err != nil {
			logclient.Log(ctx, s.logCap, "[settings] reset failed: "+err.Error())
			return
		}
		logclient.Log(ctx, s.logCap, "[settings] factory reset")

	case proto.MsgWifiCredentials:
		ssid, pass, ok := proto.DecodeWifiCredentialsPayload(msg.Payload())
		if !ok {
			return
		}
		s.rec.SSID = ssid
		s.rec.Password = pass
		s.rec = settings.Normalize(s.rec)
		if s.save(ctx, "credentials") {
			logclient.Log(ctx, s.logCap, "[settings] stored credentials for "+s.rec.SSID)
		}
	}
}

// apply folds one key update into the RAM record. The RAM copy stays
// authoritative even when the flash write later fails.
func (s *Service) apply(key proto.SettingsKey, value []byte) bool {
	switch key {
	case proto.KeyBrightness:
		if len(value) != 1 {
			return false
		}
		s.rec.Brightness = settings.ClampBrightness(value[0])
	case proto.KeyEffect:
		eff, ok := proto.ParseEffect(string(value))
		if !ok {
			return false
		}
		s.rec.Effect = eff
	case proto.KeySSID:
		s.rec.SSID = string(value)
	case proto.KeyPassword:
		s.rec.Password = string(value)
	default:
		return false
	}
	s.rec = settings.Normalize(s.rec)
	return true
}

func (s *Service) valueBytes(key proto.SettingsKey) []byte {
	switch key {
	case proto.KeyBrightness:
		return []byte{s.rec.Brightness}
	case proto.KeyEffect:
		return []byte(s.rec.Effect.String())
	case proto.KeySSID:
		return []byte(s.rec.SSID)
	case proto.KeyPassword:
		return []byte(s.rec.Password)
	default:
		return nil
	}
}

func (s *Service) save(ctx *kernel.Context, what string) bool {
	if err := s.store.Save(s.rec); err != nil {
		logclient.Log(ctx, s.logCap, "[settings] save "+what+" failed: "+err.Error())
		return false
	}
	return true
}

func (s *Service) ack(ctx *kernel.Context, reply kernel.Capability, key proto.SettingsKey, verified bool) {
	if !reply.Valid() {
		return
	}
	_ = ctx.Send(s.ep, reply, uint16(proto.MsgSettingsAck), proto.SettingsAckPayload(key, verified))
}
