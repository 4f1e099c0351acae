package wire

import (
	"strings"
	"testing"
)

func feedStrings(t *testing.T, lb *LineBuffer, chunks ...string) (lines []string, dropped int) {
	t.Helper()
	for _, c := range chunks {
		dropped += lb.Feed([]byte(c), func(line []byte) {
			lines = append(lines, string(line))
		})
	}
	return lines, dropped
}

func TestLineBufferSplitsChunks(t *testing.T) {
	var lb LineBuffer
	lines, dropped := feedStrings(t, &lb, "CONN", "ECTED\nPI", "NG\n")
	if dropped != 0 {
		t.Fatalf("dropped = %d", dropped)
	}
	want := []string{"CONNECTED", "PING"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestLineBufferManyLinesOneChunk(t *testing.T) {
	var lb LineBuffer
	lines, _ := feedStrings(t, &lb, "LED:0:FF0000\nLED:1:00FF00\nALL_LED:ON\n")
	if len(lines) != 3 || lines[2] != "ALL_LED:ON" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestLineBufferCRLFAndBlankLines(t *testing.T) {
	var lb LineBuffer
	lines, dropped := feedStrings(t, &lb, "PING\r\n\r\n\nDISCONNECT\r\n")
	if dropped != 0 {
		t.Fatalf("dropped = %d", dropped)
	}
	if len(lines) != 2 || lines[0] != "PING" || lines[1] != "DISCONNECT" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestLineBufferDropsOverlongLine(t *testing.T) {
	var lb LineBuffer
	long := strings.Repeat("x", MaxLineBytes+40)
	lines, dropped := feedStrings(t, &lb, long+"\nPING\n")
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if len(lines) != 1 || lines[0] != "PING" {
		t.Fatalf("lines = %q, want just PING", lines)
	}
}

func TestLineBufferMaxLengthLineSurvives(t *testing.T) {
	var lb LineBuffer
	exact := strings.Repeat("y", MaxLineBytes)
	lines, dropped := feedStrings(t, &lb, exact+"\n")
	if dropped != 0 {
		t.Fatalf("dropped = %d", dropped)
	}
	if len(lines) != 1 || lines[0] != exact {
		t.Fatalf("line of %d bytes not delivered intact", MaxLineBytes)
	}
}

func TestLineBufferResetDiscardsPartial(t *testing.T) {
	var lb LineBuffer
	lb.Feed([]byte("HALF A LI"), func([]byte) {
		t.Fatal("no line expected")
	})
	lb.Reset()
	lines, _ := feedStrings(t, &lb, "PING\n")
	if len(lines) != 1 || lines[0] != "PING" {
		t.Fatalf("lines = %q, want PING alone", lines)
	}
}
