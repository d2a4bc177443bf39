package isfs

import (
	"encoding/binary"
	"fmt"
)

// isfshax constants, grounded on original_source/stage2/isfs/isfshax.h.
const (
	isfshaxMagic = 0x48415858

	// Redundancy is the number of superblock slots isfshax keeps in
	// rotation for its own bookkeeping (distinct from a volume's full
	// super-slot count).
	Redundancy = 1 << 2

	// GenerationFirst is the exclusive upper bound of the generation range
	// a mount (and Manager.Refresh) searches: every on-disk generation
	// below it is a candidate.
	GenerationFirst uint32 = 0xFFFF7FFF

	// GenerationRange is the width of one isfshax generation window: a
	// refresh keeps generations within [GenerationBase,
	// GenerationBase+GenerationRange), and moves GenerationBase forward by
	// this much when a slot write fails.
	GenerationRange uint32 = 0x100

	// badSlotBit marks a slot entry as permanently unusable; it survives
	// in the superblock that carries it, so the mark persists across a
	// power cycle immediately after the marking write lands.
	badSlotBit uint8 = 0x80
)

// IsfshaxInfo is isfshax's own bookkeeping record, packed into the tail of
// a superblock slot in place of the plain format's unused padding.
//
// Grounded on original_source/stage2/isfs/isfshax.h's isfshax_info.
type IsfshaxInfo struct {
	Magic          uint32
	Slots          [Redundancy]uint8
	Generation     uint32
	GenerationBase uint32
	Index          uint32
}

const isfshaxInfoSize = 4 + Redundancy + 4 + 4 + 4

func isfshaxInfoFromBytes(b []byte) (IsfshaxInfo, error) {
	var info IsfshaxInfo
	if len(b) < isfshaxInfoSize {
		return info, fmt.Errorf("isfs: isfshax info must be at least %d bytes, got %d", isfshaxInfoSize, len(b))
	}
	info.Magic = binary.LittleEndian.Uint32(b[0:4])
	copy(info.Slots[:], b[4:4+Redundancy])
	off := 4 + Redundancy
	info.Generation = binary.LittleEndian.Uint32(b[off : off+4])
	info.GenerationBase = binary.LittleEndian.Uint32(b[off+4 : off+8])
	info.Index = binary.LittleEndian.Uint32(b[off+8 : off+12])
	return info, nil
}

func (info IsfshaxInfo) toBytes() []byte {
	b := make([]byte, isfshaxInfoSize)
	binary.LittleEndian.PutUint32(b[0:4], info.Magic)
	copy(b[4:4+Redundancy], info.Slots[:])
	off := 4 + Redundancy
	binary.LittleEndian.PutUint32(b[off:off+4], info.Generation)
	binary.LittleEndian.PutUint32(b[off+4:off+8], info.GenerationBase)
	binary.LittleEndian.PutUint32(b[off+8:off+12], info.Index)
	return b
}

// valid reports whether this record carries the isfshax magic.
func (info IsfshaxInfo) valid() bool {
	return info.Magic == isfshaxMagic
}

// slotBad reports whether slot i has been marked permanently unusable.
func (info IsfshaxInfo) slotBad(i int) bool {
	return info.Slots[i]&badSlotBit == badSlotBit
}

// markSlotBad sets the bad-slot bit for slot i, in place.
func (info *IsfshaxInfo) markSlotBad(i int) {
	info.Slots[i] |= badSlotBit
}

func (info IsfshaxInfo) equal(o IsfshaxInfo) bool {
	return info == o
}

// isfshaxInfo decodes the isfshax bookkeeping record packed into this
// superblock's tail.
func (s *Superblock) isfshaxInfo() (IsfshaxInfo, error) {
	return isfshaxInfoFromBytes(s.Tail[:])
}

// setIsfshaxInfo re-encodes info into this superblock's tail.
func (s *Superblock) setIsfshaxInfo(info IsfshaxInfo) {
	copy(s.Tail[:], info.toBytes())
}
