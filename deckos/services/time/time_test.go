package timesvc

import (
	"testing"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
)

type sleepRequester struct {
	timeCap kernel.Capability
	reply   kernel.Capability
	dt      uint32

	sent     bool
	hasWoken bool
	wokeAt   uint64
}

func (t *sleepRequester) Step(ctx *kernel.Context) {
	if !t.sent {
		ctx.SendToCap(t.timeCap, uint16(proto.MsgSleep),
			proto.SleepPayload(7, t.dt), t.reply.Restrict(kernel.RightSend))
		t.sent = true
	}
	msg, ok := ctx.Recv(t.reply)
	if !ok {
		return
	}
	if msg.Kind == uint16(proto.MsgWake) {
		t.hasWoken = true
		t.wokeAt = ctx.Now()
	}
}

func pump(k *kernel.Kernel, n int) {
	for i := 0; i < n && k.Step(); i++ {
	}
}

func TestSleepWakesAtDueTick(t *testing.T) {
	k := kernel.New()
	ep := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	reply := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)

	// Requester registers first so the request is handled at tick 0.
	req := &sleepRequester{timeCap: ep.Restrict(kernel.RightSend), reply: reply, dt: 10}
	k.AddTask(req)
	k.AddTask(New(ep))

	pump(k, 16)
	if req.hasWoken {
		t.Fatal("woke before any tick")
	}

	k.TickTo(5)
	pump(k, 16)
	if req.hasWoken {
		t.Fatal("woke before due tick")
	}

	k.TickTo(10)
	pump(k, 16)
	if !req.hasWoken {
		t.Fatal("not woken at due tick")
	}
	if req.wokeAt != 10 {
		t.Fatalf("wokeAt = %d, want 10", req.wokeAt)
	}
}

func TestSleepZeroWakesImmediately(t *testing.T) {
	k := kernel.New()
	ep := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	reply := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)

	req := &sleepRequester{timeCap: ep.Restrict(kernel.RightSend), reply: reply, dt: 0}
	k.AddTask(req)
	k.AddTask(New(ep))

	pump(k, 16)
	if !req.hasWoken {
		t.Fatal("dt=0 sleep did not wake in the same batch")
	}
}
