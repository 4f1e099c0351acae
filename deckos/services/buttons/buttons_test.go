package buttons

import (
	"testing"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
)

type fakeButtons struct {
	mask uint16
}

func (f *fakeButtons) Read() uint16 { return f.mask }

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

func pump(k *kernel.Kernel, n int) {
	for i := 0; i < n && k.Step(); i++ {
	}
}

func pressedKeys(t *testing.T, msgs []kernel.Message) []uint8 {
	t.Helper()
	var keys []uint8
	for i := range msgs {
		if msgs[i].Kind != uint16(proto.MsgButtonPress) {
			t.Fatalf("unexpected kind %d", msgs[i].Kind)
		}
		n, ok := proto.DecodeButtonPressPayload(msgs[i].Payload())
		if !ok {
			t.Fatal("bad button payload")
		}
		keys = append(keys, n)
	}
	return keys
}

func TestPressEdgeEmitsOneMessage(t *testing.T) {
	k := kernel.New()
	coordEp := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)

	hw := &fakeButtons{}
	k.AddTask(New(hw, coordEp.Restrict(kernel.RightSend)))
	rec := &recorder{ep: coordEp}
	k.AddTask(rec)

	hw.mask = 1 << 2 // key 3 down
	k.TickTo(1)
	pump(k, 16)

	// Held across many ticks: still a single edge.
	for tick := uint64(2); tick <= 10; tick++ {
		k.TickTo(tick)
		pump(k, 16)
	}

	keys := pressedKeys(t, rec.msgs)
	if len(keys) != 1 || keys[0] != 3 {
		t.Fatalf("keys = %v, want [3]", keys)
	}
}

func TestChatterInsideDebounceWindowSuppressed(t *testing.T) {
	k := kernel.New()
	coordEp := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)

	hw := &fakeButtons{}
	k.AddTask(New(hw, coordEp.Restrict(kernel.RightSend)))
	rec := &recorder{ep: coordEp}
	k.AddTask(rec)

	hw.mask = 1 << 0
	k.TickTo(1)
	pump(k, 16)

	hw.mask = 0
	k.TickTo(5)
	pump(k, 16)

	// Bounce: second edge 9 ticks after the first.
	hw.mask = 1 << 0
	k.TickTo(10)
	pump(k, 16)

	hw.mask = 0
	k.TickTo(15)
	pump(k, 16)

	// A press past the window is a real one.
	hw.mask = 1 << 0
	k.TickTo(40)
	pump(k, 16)

	keys := pressedKeys(t, rec.msgs)
	if len(keys) != 2 || keys[0] != 1 || keys[1] != 1 {
		t.Fatalf("keys = %v, want [1 1]", keys)
	}
}

func TestDistinctKeysDebounceIndependently(t *testing.T) {
	k := kernel.New()
	coordEp := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)

	hw := &fakeButtons{}
	k.AddTask(New(hw, coordEp.Restrict(kernel.RightSend)))
	rec := &recorder{ep: coordEp}
	k.AddTask(rec)

	hw.mask = 1<<4 | 1<<9
	k.TickTo(1)
	pump(k, 16)

	keys := pressedKeys(t, rec.msgs)
	if len(keys) != 2 {
		t.Fatalf("keys = %v, want two presses", keys)
	}
	if !(keys[0] == 5 && keys[1] == 10 || keys[0] == 10 && keys[1] == 5) {
		t.Fatalf("keys = %v, want 5 and 10", keys)
	}
}
