package isfs

import "fmt"

// Dir is a cursor over one directory's children, walking the FST sibling
// chain starting at the directory's sub index. Grounded on
// original_source/stage2/isfs/isfs.c's isfs_diropen/isfs_dirread.
type Dir struct {
	table *fstTable
	dir   *fstEntry
	child uint16 // FST index of the next child to yield, or fstNone
}

func openDir(table *fstTable, dir *fstEntry) (*Dir, error) {
	if !dir.isDir() {
		return nil, fmt.Errorf("isfs: %q is not a directory", dir.nameString())
	}
	if dir.sub == fstNone {
		return nil, fmt.Errorf("isfs: %q has no child listing", dir.nameString())
	}
	return &Dir{table: table, dir: dir, child: dir.sub}, nil
}

// Read returns the next child entry, or nil once the listing is
// exhausted. Grounded on isfs_dirread.
func (d *Dir) Read() *fstEntry {
	if d.child == fstNone {
		return nil
	}
	entry := d.table[d.child]
	d.child = entry.sib
	return entry
}

// Reset rewinds the cursor back to the directory's first child without
// closing and reopening the handle.
//
// Supplemented from original_source/stage2/isfs/isfs.c's isfs_dirreset,
// dropped by the distillation.
func (d *Dir) Reset() {
	d.child = d.dir.sub
}

// Close releases the handle. Dir holds no OS resources, matching
// File.Close.
func (d *Dir) Close() error {
	return nil
}
