//go:build !tinygo

package hal

import (
	"os"
	"sync"
)

// hostSerial bridges stdin/stdout to the poll surface. A reader
// goroutine drains stdin so Poll never blocks; the simulator window
// can also inject lines (F5/F6) as if the host app had sent them.
type hostSerial struct {
	wmu sync.Mutex
	w   *os.File

	mu   sync.Mutex
	rest []byte
	rx   chan []byte
}

func newHostSerial() *hostSerial {
	s := &hostSerial{w: os.Stdout, rx: make(chan []byte, 64)}
	go s.readLoop(os.Stdin)
	return s
}

func (s *hostSerial) readLoop(r *os.File) {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.rx <- chunk:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}

// inject queues bytes as if they had arrived over the wire.
func (s *hostSerial) inject(b []byte) {
	chunk := make([]byte, len(b))
	copy(chunk, b)
	select {
	case s.rx <- chunk:
	default:
	}
}

func (s *hostSerial) Poll(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rest) == 0 {
		select {
		case chunk := <-s.rx:
			s.rest = chunk
		default:
			return 0, nil
		}
	}
	n := copy(p, s.rest)
	s.rest = s.rest[n:]
	return n, nil
}

func (s *hostSerial) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrNotImplemented
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.w.Write(p)
}
