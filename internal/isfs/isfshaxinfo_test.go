package isfs

import (
	"testing"

	"github.com/go-test/deep"
)

func TestIsfshaxInfoRoundTrip(t *testing.T) {
	info := IsfshaxInfo{
		Magic:          isfshaxMagic,
		Slots:          [Redundancy]uint8{0, 1, 2 | badSlotBit, 3},
		Generation:     10,
		GenerationBase: 0x100,
		Index:          1,
	}

	got, err := isfshaxInfoFromBytes(info.toBytes())
	if err != nil {
		t.Fatalf("isfshaxInfoFromBytes: %v", err)
	}
	if diff := deep.Equal(got, info); diff != nil {
		t.Fatalf("round trip mismatch: %v", diff)
	}
	if !got.valid() {
		t.Fatalf("expected magic to validate")
	}
}

func TestIsfshaxInfoSlotBadAndMark(t *testing.T) {
	var info IsfshaxInfo
	if info.slotBad(0) {
		t.Fatalf("slot 0 should start clean")
	}
	info.markSlotBad(0)
	if !info.slotBad(0) {
		t.Fatalf("expected slot 0 to be marked bad")
	}
}

func TestSuperblockIsfshaxInfoRoundTrip(t *testing.T) {
	s := newTestSuperblock(magicSFFS, 1)
	info := IsfshaxInfo{Magic: isfshaxMagic, Generation: 5, GenerationBase: 0x200, Index: 2}
	s.setIsfshaxInfo(info)

	got, err := s.isfshaxInfo()
	if err != nil {
		t.Fatalf("isfshaxInfo: %v", err)
	}
	if diff := deep.Equal(got, info); diff != nil {
		t.Fatalf("round trip mismatch: %v", diff)
	}
}
