// Package wifi drives the station link. It associates with stored
// credentials, runs the TCP/UDP server pair while the link is up,
// adopts at most one TCP client at a time and speaks the line
// protocol to it. Link and client transitions are reported to the
// coordinator; the service never decides protocol ownership itself.
package wifi

import (
	"strconv"

	logclient "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/client/logger"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/wire"
	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

const (
	readChunk = 64

	// connectTimeoutTicks bounds one association attempt. After it the
	// radio gives up and the device stays on whatever protocol it had.
	connectTimeoutTicks = 15000
)

type Config struct {
	// SSID and Password seed the boot association attempt. Empty SSID
	// means no attempt.
	SSID     string
	Password string

	// ClearCredentialsOnFail wipes the stored credentials when the
	// boot attempt times out. Later attempts never clear.
	ClearCredentialsOnFail bool
}

type Service struct {
	hw  hal.Wifi
	cfg Config

	ep          kernel.Capability
	coordCap    kernel.Capability
	ledCap      kernel.Capability
	settingsCap kernel.Capability
	logCap      kernel.Capability

	started  bool
	linkUp   bool
	attached bool

	ssid        string
	connecting  bool
	bootAttempt bool
	deadline    uint64

	lb  wire.LineBuffer
	buf [readChunk]byte
}

func New(hw hal.Wifi, cfg Config, ep, coordCap, ledCap, settingsCap, logCap kernel.Capability) *Service {
	return &Service{
		hw:          hw,
		cfg:         cfg,
		ep:          ep,
		coordCap:    coordCap,
		ledCap:      ledCap,
		settingsCap: settingsCap,
		logCap:      logCap,
		ssid:        cfg.SSID,
	}
}

func (s *Service) Step(ctx *kernel.Context) {
	if !s.started {
		s.started = true
		s.connect(ctx, s.cfg.SSID, s.cfg.Password, true)
	}

	for {
		msg, ok := ctx.TryRecv(s.ep)
		if !ok {
			break
		}
		s.handle(ctx, msg)
	}

	s.pollLink(ctx)
	s.pollClient(ctx)
	s.pollProvisioning(ctx)
	ctx.BlockOnTick()
}

func (s *Service) handle(ctx *kernel.Context, msg kernel.Message) {
	switch proto.Kind(msg.Kind) {
	case proto.MsgLineSend:
		if s.attached {
			s.clientWrite(ctx, msg.Payload())
		}
	case proto.MsgWifiStatusGet:
		payload := proto.WifiStatusPayload(s.linkUp, s.attached, s.hw.Provisioning(), s.hw.IP(), s.ssid)
		_ = ctx.Send(s.ep, msg.Cap, uint16(proto.MsgWifiStatus), payload)
	case proto.MsgWifiProvisionStart:
		if err := s.hw.StartProvisioning(); err != nil {
			logclient.Log(ctx, s.logCap, "[wifi] provisioning: "+err.Error())
			return
		}
		logclient.Log(ctx, s.logCap, "[wifi] provisioning portal up")
	case proto.MsgWifiProvisionStop:
		s.hw.StopProvisioning()
		logclient.Log(ctx, s.logCap, "[wifi] provisioning portal down")
	}
}

// connect starts one association attempt and arms its deadline.
func (s *Service) connect(ctx *kernel.Context, ssid, password string, boot bool) {
	if ssid == "" {
		return
	}
	s.ssid = ssid
	s.connecting = true
	s.bootAttempt = boot
	s.deadline = ctx.Now() + connectTimeoutTicks
	if err := s.hw.Connect(ssid, password); err != nil {
		s.connecting = false
		logclient.Log(ctx, s.logCap, "[wifi] connect: "+err.Error())
		return
	}
	logclient.Log(ctx, s.logCap, "[wifi] connecting to "+ssid)
}

func (s *Service) pollLink(ctx *kernel.Context) {
	up := s.hw.LinkUp()
	switch {
	case up && !s.linkUp:
		s.linkUp = true
		s.connecting = false
		if err := s.hw.StartServer(); err != nil {
			logclient.Log(ctx, s.logCap, "[wifi] server: "+err.Error())
		}
		ip := s.hw.IP()
		_ = ctx.Send(s.ep, s.coordCap, uint16(proto.MsgWifiLinkUp), proto.WifiLinkUpPayload(ip))
		logclient.Log(ctx, s.logCap, "[wifi] link up "+ipString(ip))
	case !up && s.linkUp:
		s.linkUp = false
		if s.attached {
			s.dropClient(ctx)
		}
		s.hw.StopServer()
		_ = ctx.Send(s.ep, s.coordCap, uint16(proto.MsgWifiLinkDown), nil)
		logclient.Log(ctx, s.logCap, "[wifi] link down")
	}

	if s.connecting && !up && ctx.Now() >= s.deadline {
		s.connecting = false
		s.hw.Disconnect()
		logclient.Log(ctx, s.logCap, "[wifi] connect timed out: "+s.ssid)
		if s.bootAttempt && s.cfg.ClearCredentialsOnFail {
			_ = ctx.Send(s.ep, s.settingsCap, uint16(proto.MsgSettingsClearCreds), nil)
			logclient.Log(ctx, s.logCap, "[wifi] clearing stored credentials")
		}
	}
}

func (s *Service) pollClient(ctx *kernel.Context) {
	if s.linkUp && !s.attached && s.hw.Accept() {
		s.attached = true
		s.lb.Reset()
		_ = ctx.Send(s.ep, s.coordCap, uint16(proto.MsgTCPAttached), nil)
		logclient.Log(ctx, s.logCap, "[wifi] client attached")
	}

	for s.attached {
		n, err := s.hw.ClientRead(s.buf[:])
		if err != nil {
			s.dropClient(ctx)
			break
		}
		if n == 0 {
			break
		}
		if d := s.lb.Feed(s.buf[:n], func(line []byte) { s.dispatch(ctx, line) }); d > 0 {
			logclient.Log(ctx, s.logCap, "[wifi] dropped overlong line")
		}
		if n < len(s.buf) {
			break
		}
	}
}

func (s *Service) pollProvisioning(ctx *kernel.Context) {
	ssid, password, ok := s.hw.PollCredentials()
	if !ok {
		return
	}
	s.hw.StopProvisioning()
	payload := proto.WifiCredentialsPayload(ssid, password)
	_ = ctx.Send(s.ep, s.settingsCap, uint16(proto.MsgWifiCredentials), payload)
	logclient.Log(ctx, s.logCap, "[wifi] provisioned "+ssid)
	s.connect(ctx, ssid, password, false)
}

func (s *Service) dispatch(ctx *kernel.Context, line []byte) {
	cmd, err := wire.Parse(string(line))
	if err != nil {
		logclient.Log(ctx, s.logCap, "[wifi] "+err.Error())
		return
	}
	switch cmd.Kind {
	case wire.KindConnected, wire.KindDisconnect:
		// The USB handshake has no meaning over TCP; the socket edges
		// carry the attach/detach signal.
		logclient.Log(ctx, s.logCap, "[wifi] ignoring usb handshake over tcp")
	case wire.KindPing:
		s.clientWrite(ctx, []byte(wire.LinePong))
	case wire.KindButtonEcho:
		// Hosts echo our BTN lines back; informational only.
	default:
		kind, payload, ok := wire.LedMessage(cmd)
		if !ok {
			return
		}
		_ = ctx.Send(s.ep, s.ledCap, uint16(kind), payload)
	}
}

// clientWrite sends one line to the attached client. A write error is
// an implicit drop, same as a failed read.
func (s *Service) clientWrite(ctx *kernel.Context, line []byte) {
	if !s.attached {
		return
	}
	out := make([]byte, 0, len(line)+1)
	out = append(out, line...)
	out = append(out, '\n')
	if _, err := s.hw.ClientWrite(out); err != nil {
		s.dropClient(ctx)
	}
}

// dropClient is idempotent: parsing buffered lines can trigger it
// again after the client is already gone.
func (s *Service) dropClient(ctx *kernel.Context) {
	if !s.attached {
		return
	}
	s.hw.CloseClient()
	s.attached = false
	_ = ctx.Send(s.ep, s.coordCap, uint16(proto.MsgTCPDetached), nil)
	logclient.Log(ctx, s.logCap, "[wifi] client dropped")
}

func ipString(ip [4]byte) string {
	return strconv.Itoa(int(ip[0])) + "." + strconv.Itoa(int(ip[1])) + "." +
		strconv.Itoa(int(ip[2])) + "." + strconv.Itoa(int(ip[3]))
}
