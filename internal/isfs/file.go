package isfs

import (
	"fmt"
	"io"

	"github.com/isfshax/isfshax/internal/nand"
)

// File is a read-only handle onto one FST entry, shaped after the
// teacher's io.Reader/Seeker/Closer file handle (filesystem/ext4/file.go),
// but walking a FAT cluster chain instead of an ext4 extent tree.
type File struct {
	volume   *VolumeContext
	fatTable fat
	entry    *fstEntry
	offset   int64
	cluster  uint16
}

func openFile(v *VolumeContext, fatTable fat, entry *fstEntry) (*File, error) {
	if !entry.isFile() {
		return nil, fmt.Errorf("isfs: %q is not a file", entry.nameString())
	}
	return &File{volume: v, fatTable: fatTable, entry: entry, cluster: entry.sub}, nil
}

// Read implements io.Reader. Grounded on original_source/stage2/isfs/isfs.c's
// isfs_read.
func (f *File) Read(p []byte) (int, error) {
	size := int64(len(p))
	remaining := int64(f.entry.size) - f.offset
	if remaining <= 0 {
		return 0, io.EOF
	}
	if size > remaining {
		size = remaining
	}

	total := int64(0)
	for size > 0 {
		pos := f.offset % int64(nand.ClusterSize)
		copyLen := int64(nand.ClusterSize) - pos
		if copyLen > size {
			copyLen = size
		}

		cluster, _, err := f.volume.readCluster(int(f.cluster))
		if err != nil {
			return int(total), fmt.Errorf("isfs: read: %w", err)
		}
		copy(p[total:total+copyLen], cluster[pos:pos+copyLen])

		f.offset += copyLen
		total += copyLen
		size -= copyLen

		if pos+copyLen >= int64(nand.ClusterSize) {
			next, last := f.fatTable.next(f.cluster)
			if last {
				break
			}
			f.cluster = next
		}
	}

	return int(total), nil
}

// Seek implements io.Seeker. Bounds checking follows isfs_seek: a target
// offset past the file size is rejected, and so is one that would go
// negative.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	size := int64(f.entry.size)

	switch whence {
	case io.SeekStart:
		if offset < 0 || offset > size {
			return f.offset, fmt.Errorf("isfs: seek: offset %d out of range [0, %d]", offset, size)
		}
		f.offset = offset
	case io.SeekCurrent:
		if f.offset+offset > size {
			return f.offset, fmt.Errorf("isfs: seek: offset out of range")
		}
		if f.offset+offset < 0 {
			return f.offset, fmt.Errorf("isfs: seek: offset overflow")
		}
		f.offset += offset
	case io.SeekEnd:
		if size+offset > size {
			return f.offset, fmt.Errorf("isfs: seek: offset out of range")
		}
		if offset+size < 0 {
			return f.offset, fmt.Errorf("isfs: seek: offset overflow")
		}
		f.offset = size + offset
	default:
		return f.offset, fmt.Errorf("isfs: seek: invalid whence %d", whence)
	}

	cluster := f.entry.sub
	remaining := f.offset
	for remaining >= int64(nand.ClusterSize) {
		cluster, _ = f.fatTable.next(cluster)
		remaining -= int64(nand.ClusterSize)
	}
	f.cluster = cluster

	return f.offset, nil
}

// Close implements io.Closer. File handles hold no OS resources of their
// own, matching the teacher's File.Close.
func (f *File) Close() error {
	return nil
}

// Size returns the file's size in bytes, per its FST entry.
func (f *File) Size() int64 {
	return int64(f.entry.size)
}
