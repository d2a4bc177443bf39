package isfs

import "github.com/bits-and-blooms/bitset"

// superCount is the number of superblock slots a volume reserves at the
// tail of its cluster space (volume.c's isfs_ctx.super_count for the SLC
// volume).
const superCount = 64

// slotTable caches which of a volume's superblock slots are currently
// free (all 16 of their FAT entries read ISFS_FAT_RESERVED) versus
// already marked bad, so Commit doesn't have to re-walk the FAT for
// every candidate slot. The FAT itself remains authoritative; this is a
// read-through cache that commitSuper builds from the FAT when a commit
// begins and keeps in sync by markBad.
//
// Grounded on the teacher's bitset usage in filesystem/ext4/blockgroup.go
// (inodeBitmap/blockBitmap), here applied at slot granularity instead of
// inode/block granularity.
type slotTable struct {
	free *bitset.BitSet
	bad  *bitset.BitSet
}

func newSlotTable() *slotTable {
	return &slotTable{
		free: bitset.New(superCount),
		bad:  bitset.New(superCount),
	}
}

// slotClusterStart returns the first cluster of super-slot index, per
// super.c's cluster = CLUSTER_COUNT - (super_count-index)*ISFSSUPER_CLUSTERS.
func slotClusterStart(index int) int {
	return ClusterCount - (superCount-index)*SuperblockClusters
}

// checkSlot reports whether all 16 FAT entries for slot index read
// ISFS_FAT_RESERVED, meaning no file currently claims that space and a
// new superblock may be written there. Grounded on isfs_super_check_slot.
func checkSlot(f fat, index int) bool {
	start := slotClusterStart(index)
	for c := start; c < start+SuperblockClusters; c++ {
		if f[c] != fatReserved {
			return false
		}
	}
	return true
}

// markSlotBad sets all 16 FAT entries for slot index to ISFS_FAT_BAD, so
// no future checkSlot call will ever consider it free again. Grounded on
// isfs_super_mark_bad_slot.
func markSlotBad(f *fat, index int) {
	start := slotClusterStart(index)
	for c := start; c < start+SuperblockClusters; c++ {
		f[c] = fatBad
	}
}

// refresh rebuilds the cache from the authoritative FAT.
func (t *slotTable) refresh(f fat) {
	for i := 0; i < superCount; i++ {
		t.free.SetTo(uint(i), checkSlot(f, i))
		t.bad.SetTo(uint(i), !checkSlot(f, i))
	}
}

// markBad mutates f to mark slot index bad and updates the cache to match.
func (t *slotTable) markBad(f *fat, index int) {
	markSlotBad(f, index)
	t.free.Clear(uint(index))
	t.bad.Set(uint(index))
}

func (t *slotTable) isFree(index int) bool {
	return t.free.Test(uint(index))
}
