package isfs

import "fmt"

// FAT sentinel values, grounded on original_source/stage2/isfs/super.h.
const (
	fatLast     uint16 = 0xFFFB
	fatReserved uint16 = 0xFFFC
	fatBad      uint16 = 0xFFFD
	fatEmpty    uint16 = 0xFFFE
)

// ClusterCount is the number of FAT entries (and clusters) on a volume.
const ClusterCount = 0x8000

// fat is the cluster allocation table: one uint16 link per cluster.
type fat [ClusterCount]uint16

func fatFromBytes(b []byte) (fat, error) {
	var f fat
	if len(b) != ClusterCount*2 {
		return f, fmt.Errorf("isfs: FAT must be %d bytes, got %d", ClusterCount*2, len(b))
	}
	for i := range f {
		f[i] = uint16(b[i*2]) | uint16(b[i*2+1])<<8
	}
	return f, nil
}

func (f fat) toBytes() []byte {
	b := make([]byte, ClusterCount*2)
	for i, v := range f {
		b[i*2] = byte(v)
		b[i*2+1] = byte(v >> 8)
	}
	return b
}

// next returns the cluster chained after cluster, and whether that link
// terminates the chain.
func (f fat) next(cluster uint16) (next uint16, last bool) {
	v := f[cluster]
	return v, v == fatLast
}

// walk advances a starting cluster n cluster-links forward, as isfs_seek
// does when locating the cluster holding a given file offset.
func (f fat) walk(start uint16, n int) (uint16, error) {
	cluster := start
	for i := 0; i < n; i++ {
		next, last := f.next(cluster)
		if last {
			return 0, fmt.Errorf("isfs: FAT chain ended early after %d of %d links", i, n)
		}
		cluster = next
	}
	return cluster, nil
}
