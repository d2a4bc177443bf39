// Package nand models the raw page/spare-addressable NAND media layer
// that sits underneath the ISFS volume codec.
//
// Grounded on trustelem-go-diskfs/filesystem/ext4/util.go (size constants)
// and original_source/stage2/nand.{c,h} (page/cluster/block geometry, ECC).
package nand

const (
	// PageSize is the data portion of a single NAND page.
	PageSize = 0x800
	// SpareSize is the out-of-band area attached to every page.
	SpareSize = 0x40
	// PageCount is the total number of pages addressable on a volume.
	PageCount = 0x40000

	// ClusterPages is the number of pages making up one cluster.
	ClusterPages = 8
	// ClusterSize is the data size, in bytes, of one cluster.
	ClusterSize = PageSize * ClusterPages
	// ClusterCount is the total number of clusters on a volume.
	ClusterCount = PageCount / ClusterPages

	// BlockClusters is the number of clusters making up one erase block.
	BlockClusters = 8
	// BlockPages is the number of pages making up one erase block.
	BlockPages = ClusterPages * BlockClusters
	// BlockSize is the data size, in bytes, of one erase block.
	BlockSize = ClusterSize * BlockClusters
	// BlockCount is the total number of erase blocks on a volume.
	BlockCount = PageCount / BlockPages

	// eccStoredOffset is where the page's ECC tag lives within the public spare area.
	// This is the only ECC-related region callers ever see; it is written by
	// WritePage and checked by ReadPage.
	eccStoredOffset = 0x30
	// eccSize is the size, in bytes, of one ECC tag.
	eccSize = 0x10

	// Bank selects which physical NAND bank a device operates against.
	BankSLCCompat Bank = 1
	BankSLC       Bank = 2
)

// Bank identifies a physical NAND bank, selected once per volume mount.
type Bank uint32
