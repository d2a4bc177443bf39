package isfs

import (
	"encoding/binary"
	"fmt"
)

// SuperblockSize is the total on-disk size of one superblock slot,
// occupying ISFSSUPER_CLUSTERS (0x10) clusters (super.h).
const SuperblockSize = 0x40000

// SuperblockClusters is the number of clusters one superblock slot spans.
const SuperblockClusters = 0x10

const (
	headerSize = 0xC
	fatOffset  = headerSize
	fatSize    = ClusterCount * 2
	fstOffset  = fatOffset + fatSize
	fstSize    = FSTEntries * fstRecordSize
	tailOffset = fstOffset + fstSize
	tailSize   = SuperblockSize - tailOffset
)

// Superblock version magics, grounded on original_source/stage2/isfs/super.c's
// isfs_get_super_version.
const (
	magicSFFS = "SFFS"
	magicSFS1 = "SFS!"
)

// header is the fixed 12-byte prologue of every superblock slot, grounded
// on original_source/stage2/isfs/super.h's isfs_hdr.
type header struct {
	magic      [4]byte
	generation uint32
	x1         uint32
}

func headerFromBytes(b []byte) header {
	var h header
	copy(h.magic[:], b[0:4])
	h.generation = binary.LittleEndian.Uint32(b[4:8])
	h.x1 = binary.LittleEndian.Uint32(b[8:12])
	return h
}

func (h header) toBytes() []byte {
	b := make([]byte, headerSize)
	copy(b[0:4], h.magic[:])
	binary.LittleEndian.PutUint32(b[4:8], h.generation)
	binary.LittleEndian.PutUint32(b[8:12], h.x1)
	return b
}

// version returns 0 for "SFFS", 1 for "SFS!", or -1 for anything else,
// matching isfs_get_super_version.
func (h header) version() int {
	switch string(h.magic[:]) {
	case magicSFFS:
		return 0
	case magicSFS1:
		return 1
	default:
		return -1
	}
}

// Superblock is one loaded 0x40000-byte slot: a header, the cluster
// allocation table, the flat FST tree, and a 20-byte tail that either goes
// unused (plain ISFS) or carries an IsfshaxInfo record (isfshax volumes).
//
// Grounded on the teacher's superblock.go (filesystem/ext4/superblock.go):
// same fromBytes/toBytes-at-fixed-offsets shape, radically smaller and
// flatter layout.
type Superblock struct {
	Header header
	FAT    fat
	FST    fstTable
	Tail   [tailSize]byte
}

func SuperblockFromBytes(b []byte) (*Superblock, error) {
	if len(b) != SuperblockSize {
		return nil, fmt.Errorf("isfs: superblock must be %d bytes, got %d", SuperblockSize, len(b))
	}

	s := &Superblock{Header: headerFromBytes(b[0:headerSize])}

	f, err := fatFromBytes(b[fatOffset : fatOffset+fatSize])
	if err != nil {
		return nil, err
	}
	s.FAT = f

	t, err := fstTableFromBytes(b[fstOffset : fstOffset+fstSize])
	if err != nil {
		return nil, err
	}
	s.FST = t

	copy(s.Tail[:], b[tailOffset:])
	return s, nil
}

func (s *Superblock) toBytes() []byte {
	b := make([]byte, SuperblockSize)
	copy(b[0:headerSize], s.Header.toBytes())
	copy(b[fatOffset:fatOffset+fatSize], s.FAT.toBytes())
	copy(b[fstOffset:fstOffset+fstSize], s.FST.toBytes())
	copy(b[tailOffset:], s.Tail[:])
	return b
}

// generation returns the slot's header generation counter.
func (s *Superblock) generation() uint32 {
	return s.Header.generation
}
