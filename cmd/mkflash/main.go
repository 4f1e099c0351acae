//go:build !tinygo

// Command mkflash builds a flash image with a pre-seeded settings
// record, ready to flash to the deck or to hand to the host simulator
// via DECK_FLASH_PATH. The image uses the same two-slot layout the
// firmware writes, so a seeded deck boots straight onto the stored
// WiFi network.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/proto"
	"github.com/KanekiZLF/Stream-Deck-Esp32/deckos/settings"
)

const (
	defaultFlashPath = "deck.flash"
	defaultFlashSize = 256 * 1024
	defaultEraseSize = 4096
)

// flashFile backs hal.Flash with a plain file, keeping NOR semantics:
// reads anywhere, writes only clear bits, erase sets a whole block to
// 0xFF. The firmware's store never depends on more than this.
type flashFile struct {
	f         *os.File
	size      uint32
	eraseSize uint32

	scratch []byte
}

func openFlashFile(path string, size uint32, eraseSize uint32) (*flashFile, error) {
	if eraseSize == 0 || eraseSize%256 != 0 {
		return nil, fmt.Errorf("flash: invalid erase size %d", eraseSize)
	}
	if size == 0 || size%eraseSize != 0 {
		return nil, fmt.Errorf("flash: size %d not multiple of erase size %d", size, eraseSize)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open flash file %q: %w", path, err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate flash file %q to %d: %w", path, size, err)
	}

	ff := &flashFile{
		f:         f,
		size:      size,
		eraseSize: eraseSize,
		scratch:   make([]byte, eraseSize),
	}
	for i := range ff.scratch {
		ff.scratch[i] = 0xFF
	}

	if err := ff.Erase(0, size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("erase flash file %q: %w", path, err)
	}

	return ff, nil
}

func (f *flashFile) Close() error { return f.f.Close() }

func (f *flashFile) SizeBytes() uint32       { return f.size }
func (f *flashFile) EraseBlockBytes() uint32 { return f.eraseSize }

func (f *flashFile) ReadAt(p []byte, off uint32) (int, error) {
	if off >= f.size {
		return 0, fmt.Errorf("flash read at %d: %w", off, os.ErrInvalid)
	}
	maxN := int(f.size - off)
	if len(p) > maxN {
		p = p[:maxN]
	}
	return f.f.ReadAt(p, int64(off))
}

func (f *flashFile) WriteAt(p []byte, off uint32) (int, error) {
	if off >= f.size {
		return 0, fmt.Errorf("flash write at %d: %w", off, os.ErrInvalid)
	}
	maxN := int(f.size - off)
	if len(p) > maxN {
		p = p[:maxN]
	}

	prev := make([]byte, len(p))
	if _, err := f.f.ReadAt(prev, int64(off)); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("flash read before write at %d: %w", off, err)
	}
	for i := range p {
		if prev[i]&p[i] != p[i] {
			return 0, errors.New("flash write requires erase")
		}
	}
	return f.f.WriteAt(p, int64(off))
}

func (f *flashFile) Erase(off, size uint32) error {
	if size == 0 {
		return nil
	}
	if off%f.eraseSize != 0 || size%f.eraseSize != 0 {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}
	if off >= f.size || off+size > f.size {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}
	for size > 0 {
		if _, err := f.f.WriteAt(f.scratch, int64(off)); err != nil {
			return fmt.Errorf("flash erase block at %d: %w", off, err)
		}
		off += f.eraseSize
		size -= f.eraseSize
	}
	return nil
}

func main() {
	var outPath string
	var flashSize uint
	var eraseSize uint
	var ssid, pass, effectName string
	var brightness uint

	flag.StringVar(&outPath, "out", defaultFlashPath, "Output flash image path.")
	flag.UintVar(&flashSize, "size", defaultFlashSize, "Flash image size (bytes).")
	flag.UintVar(&eraseSize, "erase", defaultEraseSize, "Erase block size (bytes).")
	flag.StringVar(&ssid, "ssid", "", "WiFi SSID to store.")
	flag.StringVar(&pass, "pass", "", "WiFi password to store.")
	flag.UintVar(&brightness, "brightness", settings.BrightnessDefault, "LED brightness (5-255).")
	flag.StringVar(&effectName, "effect", "NONE", "Boot LED effect (NONE, RAINBOW, BLINK, WAVE_BLUE, FIRE, TWINKLE).")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	if brightness > 255 {
		fmt.Fprintln(os.Stderr, "error: -brightness out of range")
		os.Exit(2)
	}
	effect, ok := proto.ParseEffect(strings.ToUpper(effectName))
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown effect %q\n", effectName)
		os.Exit(2)
	}

	rec := settings.Record{
		Brightness: uint8(brightness),
		Effect:     effect,
		SSID:       ssid,
		Password:   pass,
	}

	if err := run(outPath, uint32(flashSize), uint32(eraseSize), rec); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(outPath string, flashSize, eraseSize uint32, rec settings.Record) error {
	ff, err := openFlashFile(outPath, flashSize, eraseSize)
	if err != nil {
		return err
	}
	defer func() { _ = ff.Close() }()

	store := settings.NewStore(ff)
	if err := store.Save(rec); err != nil {
		return err
	}

	// Re-scan from scratch so the summary reflects what a booting
	// deck will actually read.
	got := settings.NewStore(ff).Load()
	fmt.Printf("wrote %s (%d KiB, %d B blocks)\n", outPath, flashSize/1024, eraseSize)
	fmt.Printf("  brightness: %d\n", got.Brightness)
	fmt.Printf("  effect:     %s\n", got.Effect)
	if got.SSID == "" {
		fmt.Println("  wifi:       (none)")
	} else {
		fmt.Printf("  wifi:       %s (password %d bytes)\n", got.SSID, len(got.Password))
	}
	return nil
}
