package isfs

// NewEmptySuperblock returns a fresh, valid superblock containing only an
// empty root directory: generation 1, every FAT entry reserved, every FST
// slot empty except the root. For seeding a brand-new volume image; the
// boot-time read/refresh path never constructs one of these itself.
func NewEmptySuperblock() *Superblock {
	s := &Superblock{Header: header{generation: 1}}
	copy(s.Header.magic[:], magicSFFS)

	for i := range s.FAT {
		s.FAT[i] = fatReserved
	}
	for i := range s.FST {
		s.FST[i] = &fstEntry{sib: fstNone, sub: fstNone}
	}
	s.FST[0].mode = fstTypeDir

	return s
}

// CommitInitial writes super directly to volume v's slot 0, bypassing the
// isfshax generation-rotation bookkeeping real superblock writes go
// through. For fixture generation tooling only.
func CommitInitial(v *VolumeContext, super *Superblock) error {
	return writeSuper(v, super, 0)
}
