//go:build !tinygo

package hal

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestFlash(t *testing.T) (*hostFlash, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flash.bin")
	t.Setenv("DECK_FLASH_PATH", path)
	f := newHostFlash()
	if f.f == nil {
		t.Fatalf("open flash backing file at %s", path)
	}
	t.Cleanup(func() { _ = f.f.Close() })
	return f, path
}

func TestHostFlashFreshFileGeometry(t *testing.T) {
	f, _ := newTestFlash(t)

	if got := f.SizeBytes(); got != hostFlashDefaultSizeBytes {
		t.Fatalf("SizeBytes = %d, want %d", got, hostFlashDefaultSizeBytes)
	}
	if got := f.EraseBlockBytes(); got != hostFlashEraseBlockBytes {
		t.Fatalf("EraseBlockBytes = %d, want %d", got, hostFlashEraseBlockBytes)
	}

	// A fresh backing file is zero-filled, not erased. The settings
	// store sees no magic and treats the part as unformatted.
	buf := make([]byte, 64)
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("fresh flash byte %d = %#x, want 0", i, b)
		}
	}
}

func TestHostFlashEraseThenWriteRoundTrip(t *testing.T) {
	f, _ := newTestFlash(t)

	if err := f.Erase(0, hostFlashEraseBlockBytes); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	buf := make([]byte, hostFlashEraseBlockBytes)
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	for i, b := range buf {
		if b != 0xFF {
			t.Fatalf("erased byte %d = %#x, want 0xFF", i, b)
		}
	}

	payload := []byte("deck settings payload")
	if n, err := f.WriteAt(payload, 16); err != nil || n != len(payload) {
		t.Fatalf("WriteAt = (%d, %v), want (%d, nil)", n, err, len(payload))
	}
	got := make([]byte, len(payload))
	if _, err := f.ReadAt(got, 16); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back %q, want %q", got, payload)
	}
}

func TestHostFlashWriteOnlyClearsBits(t *testing.T) {
	f, _ := newTestFlash(t)

	if err := f.Erase(0, hostFlashEraseBlockBytes); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xF0}, 0); err != nil {
		t.Fatalf("first write: %v", err)
	}

	// Rewriting identical bits is a no-op the NOR model allows.
	if _, err := f.WriteAt([]byte{0xF0}, 0); err != nil {
		t.Fatalf("idempotent write: %v", err)
	}
	// Clearing more bits is fine too.
	if _, err := f.WriteAt([]byte{0x50}, 0); err != nil {
		t.Fatalf("bit-clearing write: %v", err)
	}

	// Setting a cleared bit requires an erase.
	if _, err := f.WriteAt([]byte{0xFF}, 0); !errors.Is(err, ErrFlashWriteRequiresErase) {
		t.Fatalf("bit-setting write err = %v, want ErrFlashWriteRequiresErase", err)
	}
	got := make([]byte, 1)
	if _, err := f.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if got[0] != 0x50 {
		t.Fatalf("rejected write changed flash: %#x, want 0x50", got[0])
	}

	if err := f.Erase(0, hostFlashEraseBlockBytes); err != nil {
		t.Fatalf("re-erase: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xFF}, 0); err != nil {
		t.Fatalf("write after erase: %v", err)
	}
}

func TestHostFlashEraseValidation(t *testing.T) {
	f, _ := newTestFlash(t)

	if err := f.Erase(0, 0); err != nil {
		t.Fatalf("zero-length erase: %v", err)
	}
	if err := f.Erase(1, hostFlashEraseBlockBytes); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("unaligned offset err = %v, want os.ErrInvalid", err)
	}
	if err := f.Erase(0, 100); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("unaligned size err = %v, want os.ErrInvalid", err)
	}
	if err := f.Erase(f.SizeBytes(), hostFlashEraseBlockBytes); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("out-of-range erase err = %v, want os.ErrInvalid", err)
	}
	if err := f.Erase(f.SizeBytes()-hostFlashEraseBlockBytes, 2*hostFlashEraseBlockBytes); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("overrunning erase err = %v, want os.ErrInvalid", err)
	}
}

func TestHostFlashClampsAtEnd(t *testing.T) {
	f, _ := newTestFlash(t)

	last := f.SizeBytes() - hostFlashEraseBlockBytes
	if err := f.Erase(last, hostFlashEraseBlockBytes); err != nil {
		t.Fatalf("Erase: %v", err)
	}

	// Reads and writes straddling the end are clamped to what fits.
	n, err := f.WriteAt(make([]byte, 16), f.SizeBytes()-8)
	if err != nil || n != 8 {
		t.Fatalf("clamped write = (%d, %v), want (8, nil)", n, err)
	}
	n, err = f.ReadAt(make([]byte, 16), f.SizeBytes()-8)
	if err != nil || n != 8 {
		t.Fatalf("clamped read = (%d, %v), want (8, nil)", n, err)
	}

	if _, err := f.ReadAt(make([]byte, 1), f.SizeBytes()); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("read past end err = %v, want os.ErrInvalid", err)
	}
	if _, err := f.WriteAt(make([]byte, 1), f.SizeBytes()); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("write past end err = %v, want os.ErrInvalid", err)
	}
}

func TestHostFlashPersistsAcrossReopen(t *testing.T) {
	f, path := newTestFlash(t)

	if err := f.Erase(0, hostFlashEraseBlockBytes); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if _, err := f.WriteAt(payload, 32); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := f.f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := newHostFlash()
	if reopened.f == nil {
		t.Fatalf("reopen flash at %s", path)
	}
	defer reopened.f.Close()

	if got := reopened.SizeBytes(); got != hostFlashDefaultSizeBytes {
		t.Fatalf("reopened SizeBytes = %d, want %d", got, hostFlashDefaultSizeBytes)
	}
	got := make([]byte, len(payload))
	if _, err := reopened.ReadAt(got, 32); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reopened read %x, want %x", got, payload)
	}
}

func TestHostFlashKeepsExistingImageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.flash")
	t.Setenv("DECK_FLASH_PATH", path)

	img := make([]byte, 2*hostFlashEraseBlockBytes)
	for i := range img {
		img[i] = 0xFF
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatalf("seed image: %v", err)
	}

	f := newHostFlash()
	if f.f == nil {
		t.Fatalf("open flash at %s", path)
	}
	defer f.f.Close()

	if got := f.SizeBytes(); got != uint32(len(img)) {
		t.Fatalf("SizeBytes = %d, want %d", got, len(img))
	}
	if _, err := f.WriteAt([]byte{0x12}, 0); err != nil {
		t.Fatalf("write to seeded image: %v", err)
	}
}
