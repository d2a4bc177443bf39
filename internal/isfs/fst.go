package isfs

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FSTEntries is the number of fixed-size file-system-table records packed
// into a superblock (super.h: isfs_super.fst[6143]).
const FSTEntries = 6143

// fstRecordSize is the on-disk size of one FST entry (super.h: isfs_fst,
// static-asserted to 0x20 bytes in the source).
const fstRecordSize = 0x20

const (
	fstTypeFile = 1
	fstTypeDir  = 2
)

// fstNone is the sib/sub sentinel meaning "no link" (super.h uses 0xFFFF
// for an FST index that points nowhere).
const fstNone uint16 = 0xFFFF

// fstEntry is one record of the flat, index-addressed FST tree. Unlike the
// teacher's directoryEntry (filesystem/ext4/directoryentry.go), which is a
// variable-length record referencing a separate inode, isfshax packs name,
// type, size and tree links into one fixed 32-byte record addressed by
// array index rather than pointer.
type fstEntry struct {
	name [12]byte
	mode uint8
	attr uint8
	sub  uint16 // first cluster (files) or first child FST index (dirs)
	sib  uint16 // next sibling FST index, or fstNone
	size uint32 // file size in bytes; unused for directories
	x1   uint16
	uid  uint16
	gid  uint16
	x3   uint32
}

func fstEntryFromBytes(b []byte) (*fstEntry, error) {
	if len(b) != fstRecordSize {
		return nil, fmt.Errorf("isfs: FST entry must be %d bytes, got %d", fstRecordSize, len(b))
	}
	e := &fstEntry{
		mode: b[12],
		attr: b[13],
		sub:  binary.LittleEndian.Uint16(b[14:16]),
		sib:  binary.LittleEndian.Uint16(b[16:18]),
		size: binary.LittleEndian.Uint32(b[18:22]),
		x1:   binary.LittleEndian.Uint16(b[22:24]),
		uid:  binary.LittleEndian.Uint16(b[24:26]),
		gid:  binary.LittleEndian.Uint16(b[26:28]),
		x3:   binary.LittleEndian.Uint32(b[28:32]),
	}
	copy(e.name[:], b[0:12])
	return e, nil
}

func (e *fstEntry) toBytes() []byte {
	b := make([]byte, fstRecordSize)
	copy(b[0:12], e.name[:])
	b[12] = e.mode
	b[13] = e.attr
	binary.LittleEndian.PutUint16(b[14:16], e.sub)
	binary.LittleEndian.PutUint16(b[16:18], e.sib)
	binary.LittleEndian.PutUint32(b[18:22], e.size)
	binary.LittleEndian.PutUint16(b[22:24], e.x1)
	binary.LittleEndian.PutUint16(b[24:26], e.uid)
	binary.LittleEndian.PutUint16(b[26:28], e.gid)
	binary.LittleEndian.PutUint32(b[28:32], e.x3)
	return b
}

// entryType returns the low two bits of mode, per isfs_fst_get_type.
func (e *fstEntry) entryType() uint8 {
	return e.mode & 3
}

func (e *fstEntry) isFile() bool {
	return e.entryType() == fstTypeFile
}

func (e *fstEntry) isDir() bool {
	return e.entryType() == fstTypeDir
}

// nameString returns the entry's name with trailing NUL padding stripped.
func (e *fstEntry) nameString() string {
	n := strings.IndexByte(string(e.name[:]), 0)
	if n < 0 {
		n = len(e.name)
	}
	return string(e.name[:n])
}

func (e *fstEntry) equal(o *fstEntry) bool {
	if o == nil {
		return false
	}
	return *e == *o
}

// fstTable is the full, index-addressed FST array.
type fstTable [FSTEntries]*fstEntry

func fstTableFromBytes(b []byte) (fstTable, error) {
	var t fstTable
	if len(b) != FSTEntries*fstRecordSize {
		return t, fmt.Errorf("isfs: FST table must be %d bytes, got %d", FSTEntries*fstRecordSize, len(b))
	}
	for i := range t {
		e, err := fstEntryFromBytes(b[i*fstRecordSize : (i+1)*fstRecordSize])
		if err != nil {
			return t, err
		}
		t[i] = e
	}
	return t, nil
}

func (t fstTable) toBytes() []byte {
	b := make([]byte, FSTEntries*fstRecordSize)
	for i, e := range t {
		copy(b[i*fstRecordSize:(i+1)*fstRecordSize], e.toBytes())
	}
	return b
}

// findFST resolves a '/'-separated path against the tree rooted at index
// root, matching original_source/stage2/isfs/super.c's isfs_find_fst: at
// each level, siblings are walked to exhaustion via sib before the search
// fails, and the match is by name plus the segment's position in the path
// (a file match is only accepted as the final segment; a directory match
// recurses into its sub as the new root for the next segment).
func (t fstTable) findFST(root uint16, path string) (uint16, *fstEntry, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		if root == fstNone || int(root) >= len(t) {
			return fstNone, nil, fmt.Errorf("isfs: root entry not found")
		}
		return root, t[root], nil
	}

	if root == fstNone || int(root) >= len(t) {
		return fstNone, nil, fmt.Errorf("isfs: root entry not found")
	}
	// the first segment is matched among root's children, not root's own
	// sibling chain (root represents "/" itself, not an entry within it).
	cursor := t[root].sub
	for i, seg := range segments {
		idx, entry, err := t.findSibling(cursor, seg)
		if err != nil {
			return fstNone, nil, err
		}
		last := i == len(segments)-1
		if last {
			return idx, entry, nil
		}
		if !entry.isDir() {
			return fstNone, nil, fmt.Errorf("isfs: %q is not a directory", seg)
		}
		cursor = entry.sub
	}
	return fstNone, nil, fmt.Errorf("isfs: empty path")
}

// findSibling walks the sibling chain starting at first, looking for name.
func (t fstTable) findSibling(first uint16, name string) (uint16, *fstEntry, error) {
	idx := first
	for idx != fstNone {
		if int(idx) >= len(t) || t[idx] == nil {
			return fstNone, nil, fmt.Errorf("isfs: FST index %d out of range", idx)
		}
		entry := t[idx]
		if entry.nameString() == name {
			return idx, entry, nil
		}
		idx = entry.sib
	}
	return fstNone, nil, fmt.Errorf("isfs: %q not found", name)
}
