package isfs

import (
	"encoding/binary"
	"fmt"

	"github.com/isfshax/isfshax/internal/nand"
)

// hmacMetaClusterOffset is where the cluster field sits inside the
// 64-byte HMAC seed used for superblock reads/writes, grounded on
// original_source/stage2/isfs/hmac_seed.h's isfs_hmac_meta.
const hmacMetaClusterOffset = 0x12

// superblockHMACSeed builds the fixed 64-byte seed isfs_read_super/
// isfs_write_super feed ahead of the superblock payload: all zero except
// a little-endian cluster number at byte offset 0x12.
func superblockHMACSeed(cluster int) []byte {
	seed := make([]byte, hmacSeedSize)
	binary.LittleEndian.PutUint16(seed[hmacMetaClusterOffset:hmacMetaClusterOffset+2], uint16(cluster))
	return seed
}

// readSuper loads superblock slot index from v, verifying its HMAC.
// Grounded on isfs_read_super.
func readSuper(v *VolumeContext, index int) (*Superblock, Grade, error) {
	cluster := slotClusterStart(index)
	seed := superblockHMACSeed(cluster)

	buf := make([]byte, SuperblockSize)
	grade, err := v.ReadVolume(cluster, SuperblockClusters, flagHMAC, seed, buf)
	if err != nil {
		return nil, GradeOK, err
	}

	super, err := SuperblockFromBytes(buf)
	if err != nil {
		return nil, GradeOK, err
	}
	return super, grade, nil
}

// writeSuper persists super to slot index, with HMAC and post-write
// readback verification. Grounded on isfs_write_super.
func writeSuper(v *VolumeContext, super *Superblock, index int) error {
	cluster := slotClusterStart(index)
	seed := superblockHMACSeed(cluster)
	return v.WriteVolume(cluster, SuperblockClusters, flagHMAC|flagReadback, seed, super.toBytes())
}

// findSuper scans every slot of v for the newest superblock whose
// generation falls within [minGeneration, maxGeneration), verifying only
// its version magic (not its full HMAC, since only cluster 0 of the slot
// is read). Grounded on isfs_find_super.
func findSuper(v *VolumeContext, minGeneration, maxGeneration uint32) (index int, generation uint32, err error) {
	best := -1
	var bestGeneration uint32

	for i := 0; i < superCount; i++ {
		cluster := slotClusterStart(i)
		buf := make([]byte, nand.ClusterSize)

		if _, readErr := v.ReadVolume(cluster, 1, 0, nil, buf); readErr != nil {
			continue
		}

		h := headerFromBytes(buf[0:headerSize])
		if h.version() < 0 {
			continue
		}

		gen := h.generation
		if gen < bestGeneration || gen < minGeneration || gen >= maxGeneration {
			continue
		}

		best = i
		bestGeneration = gen
	}

	if best == -1 {
		return -1, 0, fmt.Errorf("isfs: no superblock found in generation range [%#x, %#x)", minGeneration, maxGeneration)
	}
	return best, bestGeneration, nil
}

// loadSuper repeatedly narrows the generation ceiling to the newest slot
// found until one of them actually reads back successfully (a found slot
// may still fail its own HMAC check, in which case the next-newest is
// tried). Grounded on isfs_load_super.
func loadSuper(v *VolumeContext, minGeneration, maxGeneration uint32) (*Superblock, int, uint32, error) {
	ceiling := maxGeneration

	for {
		index, generation, err := findSuper(v, minGeneration, ceiling)
		if err != nil {
			return nil, -1, 0, fmt.Errorf("isfs: load superblock: %w", err)
		}

		super, _, err := readSuper(v, index)
		if err == nil {
			return super, index, generation, nil
		}

		ceiling = generation
	}
}

// commitSuper writes super back to the volume, advancing its generation
// and rotating to the next free, non-bad slot after index. If a candidate
// slot's write fails, it is marked bad and the generation is bumped again
// before trying the next one. Grounded on isfs_commit_super.
//
// The free/bad state of every slot is read through a slotTable built from
// super.FAT once up front, rather than re-walking the FAT on every
// candidate in the rotation.
func commitSuper(v *VolumeContext, super *Superblock, index int) error {
	super.Header.generation++

	slots := newSlotTable()
	slots.refresh(super.FAT)

	for i := 1; i <= superCount; i++ {
		candidate := (index + i) & (superCount - 1)

		if !slots.isFree(candidate) {
			continue
		}

		if err := writeSuper(v, super, candidate); err == nil {
			return nil
		}

		slots.markBad(&super.FAT, candidate)
		super.Header.generation++
	}

	return fmt.Errorf("isfs: commit superblock: no free slot accepted the write")
}
