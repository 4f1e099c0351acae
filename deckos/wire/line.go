package wire

// MaxLineBytes bounds one inbound line. Longer input is discarded up
// to and including the next newline.
const MaxLineBytes = 96

// LineBuffer assembles newline-terminated lines out of arbitrary read
// chunks. It holds at most one partial line and allocates nothing
// after construction. Blank lines are suppressed.
type LineBuffer struct {
	buf  [MaxLineBytes]byte
	n    int
	skip bool
}

// Feed consumes one chunk and calls fn for every completed line with
// the newline stripped. Carriage returns are dropped, so CRLF input
// behaves like LF. The slice passed to fn aliases internal storage and
// is only valid during the call. The return value counts lines
// discarded for exceeding MaxLineBytes.
func (lb *LineBuffer) Feed(chunk []byte, fn func(line []byte)) (dropped int) {
	for _, c := range chunk {
		if c == '\r' {
			continue
		}
		if c == '\n' {
			if lb.skip {
				lb.skip = false
				dropped++
				continue
			}
			if lb.n > 0 {
				fn(lb.buf[:lb.n])
				lb.n = 0
			}
			continue
		}
		if lb.skip {
			continue
		}
		if lb.n == len(lb.buf) {
			lb.skip = true
			lb.n = 0
			continue
		}
		lb.buf[lb.n] = c
		lb.n++
	}
	return dropped
}

// Reset discards any partial line, for when the underlying stream is
// torn down mid-line.
func (lb *LineBuffer) Reset() {
	lb.n = 0
	lb.skip = false
}
