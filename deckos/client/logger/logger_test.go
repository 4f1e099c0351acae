package logger

import (
	"strings"
	"testing"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/kernel"
	timesvc "github.com/KanekiZLF/Stream-Deck-Esp32/deckos/services/time"
)

// slowSink owns the log endpoint but only starts draining at startAt,
// so senders see a full mailbox first.
type slowSink struct {
	ep      kernel.Capability
	startAt uint64
	got     []string
}

func (s *slowSink) Step(ctx *kernel.Context) {
	if ctx.Now() < s.startAt {
		ctx.BlockOnTick()
		return
	}
	msg, ok := ctx.TryRecv(s.ep)
	if !ok {
		ctx.BlockOnTick()
		return
	}
	s.got = append(s.got, string(msg.Payload()))
}

type oneLogger struct {
	logCap kernel.Capability
	line   string
	sent   bool
	res    kernel.SendResult
}

func (t *oneLogger) Step(ctx *kernel.Context) {
	if !t.sent {
		t.res = Log(ctx, t.logCap, t.line)
		t.sent = true
	}
	ctx.BlockOnTick()
}

// retrier fills the mailbox, then pushes one more line through
// LogRetry and records how many steps that took.
type retrier struct {
	timeCap kernel.Capability
	logCap  kernel.Capability

	phase    int
	filled   int
	attempts int
	done     bool
	err      error
}

func (t *retrier) Step(ctx *kernel.Context) {
	switch t.phase {
	case 0:
		for {
			res := Log(ctx, t.logCap, "filler")
			if res == kernel.SendOK {
				t.filled++
				continue
			}
			if res != kernel.SendErrQueueFull {
				t.err = errResult(res)
				t.phase = 2
				ctx.BlockOnTick()
				return
			}
			t.phase = 1
			return
		}
	case 1:
		t.attempts++
		done, err := LogRetry(ctx, t.timeCap, t.logCap, "after backoff")
		if err != nil {
			t.err = err
			t.phase = 2
			ctx.BlockOnTick()
			return
		}
		if done {
			t.done = true
			t.phase = 2
			ctx.BlockOnTick()
			return
		}
		// Parked by the backoff sleep; the wake reschedules us.
	default:
		ctx.BlockOnTick()
	}
}

type resultError string

func (e resultError) Error() string { return string(e) }

func errResult(res kernel.SendResult) error { return resultError(res.String()) }

func pump(k *kernel.Kernel, n int) {
	for i := 0; i < n && k.Step(); i++ {
	}
}

func TestLogDeliversAndTruncates(t *testing.T) {
	k := kernel.New()
	rw := kernel.RightSend | kernel.RightRecv
	logEP := k.NewEndpoint(rw)

	long := strings.Repeat("x", kernel.MaxMessageBytes+40)
	sink := &slowSink{ep: logEP}
	send := &oneLogger{logCap: logEP.Restrict(kernel.RightSend), line: long}
	k.AddTask(sink)
	k.AddTask(send)

	for tick := uint64(1); tick <= 3; tick++ {
		k.TickTo(tick)
		pump(k, 32)
	}

	if send.res != kernel.SendOK {
		t.Fatalf("send result = %s", send.res)
	}
	if len(sink.got) != 1 {
		t.Fatalf("sink got %d lines", len(sink.got))
	}
	if len(sink.got[0]) != kernel.MaxMessageBytes {
		t.Fatalf("line length = %d, want %d", len(sink.got[0]), kernel.MaxMessageBytes)
	}
}

func TestLogInvalidCapIsSafeNoOp(t *testing.T) {
	k := kernel.New()
	send := &oneLogger{logCap: kernel.Capability{}, line: "dropped"}
	k.AddTask(send)
	k.TickTo(1)
	pump(k, 8)

	if send.res != kernel.SendErrInvalidToCap {
		t.Fatalf("send result = %s", send.res)
	}
}

func TestLogRetryBacksOffUntilQueueDrains(t *testing.T) {
	k := kernel.New()
	rw := kernel.RightSend | kernel.RightRecv
	timeEP := k.NewEndpoint(rw)
	logEP := k.NewEndpoint(rw)

	sink := &slowSink{ep: logEP, startAt: 20}
	r := &retrier{
		timeCap: timeEP.Restrict(kernel.RightSend),
		logCap:  logEP.Restrict(kernel.RightSend),
	}
	k.AddTask(timesvc.New(timeEP))
	k.AddTask(sink)
	k.AddTask(r)

	for tick := uint64(1); tick <= 60; tick++ {
		k.TickTo(tick)
		pump(k, 64)
	}

	if r.err != nil {
		t.Fatalf("retry error: %v", r.err)
	}
	if !r.done {
		t.Fatal("retry never completed")
	}
	if r.attempts < 2 {
		t.Fatalf("attempts = %d, want backoff before success", r.attempts)
	}
	if len(sink.got) != r.filled+1 {
		t.Fatalf("sink got %d lines, want %d", len(sink.got), r.filled+1)
	}
	if got := sink.got[len(sink.got)-1]; got != "after backoff" {
		t.Fatalf("last line = %q", got)
	}
}
