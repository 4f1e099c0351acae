package settings

import (
	"encoding/binary"
	"errors"
	"hash/crc32"

	"github.com/KanekiZLF/Stream-Deck-Esp32/hal"
)

// Slot layout on flash, one erase block per slot:
//
//	magic "DKS1" | seq u32 | len u16 | payload | crc32
//
// The CRC covers seq, len and payload. Saves always go to the slot the
// last load did NOT come from, so a power cut mid-write leaves the
// previous record intact.
var slotMagic = [4]byte{'D', 'K', 'S', '1'}

const slotHeaderBytes = 4 + 4 + 2

var (
	// ErrVerify reports a post-write readback that did not match.
	ErrVerify = errors.New("settings: readback mismatch after write")
	// ErrNoFlash reports a backend without usable non-volatile storage.
	ErrNoFlash = errors.New("settings: flash unavailable")
)

// Store keeps the settings record in a two-slot log on raw flash.
// It is not safe for concurrent use; in the running system a single
// service owns it.
type Store struct {
	dev hal.Flash

	scanned  bool
	liveSlot int    // slot the current record was loaded from, -1 if none
	liveSeq  uint32 // seq of that slot
}

func NewStore(dev hal.Flash) *Store {
	return &Store{dev: dev, liveSlot: -1}
}

// Load scans both slots and returns the record with the highest valid
// sequence number, falling back to defaults when neither validates.
func (s *Store) Load() Record {
	s.scanned = true
	s.liveSlot = -1
	s.liveSeq = 0

	block := s.slotBytes()
	if block == 0 {
		return Defaults()
	}

	best := Defaults()
	for slot := 0; slot < 2; slot++ {
		rec, seq, ok := s.readSlot(slot)
		if !ok {
			continue
		}
		if s.liveSlot < 0 || seq > s.liveSeq {
			s.liveSlot = slot
			s.liveSeq = seq
			best = rec
		}
	}
	return best
}

// Save writes the record to the stale slot: erase, write, read back
// and compare. On success the new slot becomes the live one. The
// caller keeps its in-RAM record either way.
func (s *Store) Save(rec Record) error {
	if !s.scanned {
		s.Load()
	}
	block := s.slotBytes()
	if block == 0 {
		return ErrNoFlash
	}

	rec = Normalize(rec)
	frame := encodeFrame(rec, s.liveSeq+1)
	if uint32(len(frame)) > block {
		return errors.New("settings: record larger than slot")
	}

	slot := 0
	if s.liveSlot == 0 {
		slot = 1
	}
	off := uint32(slot) * block

	if err := s.dev.Erase(off, block); err != nil {
		return err
	}
	if _, err := s.dev.WriteAt(frame, off); err != nil {
		return err
	}

	check := make([]byte, len(frame))
	if _, err := s.dev.ReadAt(check, off); err != nil {
		return err
	}
	for i := range frame {
		if check[i] != frame[i] {
			return ErrVerify
		}
	}

	s.liveSlot = slot
	s.liveSeq++
	return nil
}

// Reset erases both slots. The next Load returns defaults.
func (s *Store) Reset() error {
	block := s.slotBytes()
	if block == 0 {
		return ErrNoFlash
	}
	var firstErr error
	for slot := 0; slot < 2; slot++ {
		if err := s.dev.Erase(uint32(slot)*block, block); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.scanned = true
	s.liveSlot = -1
	s.liveSeq = 0
	return firstErr
}

// slotBytes returns the per-slot size, or 0 when the backend has no
// usable flash (stub targets report zero geometry).
func (s *Store) slotBytes() uint32 {
	if s.dev == nil {
		return 0
	}
	block := s.dev.EraseBlockBytes()
	if block < slotHeaderBytes+4 || s.dev.SizeBytes() < 2*block {
		return 0
	}
	return block
}

func (s *Store) readSlot(slot int) (Record, uint32, bool) {
	block := s.slotBytes()
	off := uint32(slot) * block

	head := make([]byte, slotHeaderBytes)
	if _, err := s.dev.ReadAt(head, off); err != nil {
		return Record{}, 0, false
	}
	if [4]byte(head[:4]) != slotMagic {
		return Record{}, 0, false
	}
	seq := binary.LittleEndian.Uint32(head[4:8])
	plen := binary.LittleEndian.Uint16(head[8:10])
	if uint32(slotHeaderBytes)+uint32(plen)+4 > block {
		return Record{}, 0, false
	}

	body := make([]byte, int(plen)+4)
	if _, err := s.dev.ReadAt(body, off+slotHeaderBytes); err != nil {
		return Record{}, 0, false
	}
	payload := body[:plen]
	wantCRC := binary.LittleEndian.Uint32(body[plen:])
	crc := crc32.NewIEEE()
	crc.Write(head[4:])
	crc.Write(payload)
	if crc.Sum32() != wantCRC {
		return Record{}, 0, false
	}

	rec, ok := decodeRecord(payload)
	if !ok {
		return Record{}, 0, false
	}
	return rec, seq, true
}

func encodeFrame(rec Record, seq uint32) []byte {
	payload := encodeRecord(rec)
	frame := make([]byte, 0, slotHeaderBytes+len(payload)+4)
	frame = append(frame, slotMagic[:]...)
	frame = binary.LittleEndian.AppendUint32(frame, seq)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)

	crc := crc32.NewIEEE()
	crc.Write(frame[4:])
	frame = binary.LittleEndian.AppendUint32(frame, crc.Sum32())
	return frame
}
