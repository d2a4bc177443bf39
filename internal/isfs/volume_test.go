package isfs

import (
	"bytes"
	"io"
	"testing"

	"github.com/isfshax/isfshax/internal/nand"
)

// buildMountableSuperblock writes a single file ("sys/isfshax.bin") into a
// fresh superblock's FST/FAT and commits it to volume v's slot 0, so
// loadSuper can find it via the normal generation scan.
func buildMountableSuperblock(t *testing.T, v *VolumeContext, content []byte) {
	t.Helper()
	s := newTestSuperblock(magicSFFS, 1)

	root := s.FST[0]
	root.mode = fstTypeDir
	root.sub = 1
	root.sib = fstNone

	sysDir := s.FST[1]
	sysDir.mode = fstTypeDir
	copy(sysDir.name[:], "sys")
	sysDir.sub = 2
	sysDir.sib = fstNone

	file := s.FST[2]
	file.mode = fstTypeFile
	copy(file.name[:], "isfshax.bin")
	file.sub = 0
	file.sib = fstNone
	file.size = uint32(len(content))

	clusterCount := (len(content) + nand.ClusterSize - 1) / nand.ClusterSize
	for i := 0; i < clusterCount; i++ {
		if i == clusterCount-1 {
			s.FAT[i] = fatLast
		} else {
			s.FAT[i] = uint16(i + 1)
		}
	}

	if err := writeSuper(v, s, 0); err != nil {
		t.Fatalf("writeSuper: %v", err)
	}

	for i := 0; i < clusterCount; i++ {
		start := i * nand.ClusterSize
		end := start + nand.ClusterSize
		var chunk [nand.ClusterSize]byte
		if start < len(content) {
			copy(chunk[:], content[start:min(end, len(content))])
		}
		if err := v.WriteVolume(i, 1, flagEncrypted, nil, chunk[:]); err != nil {
			t.Fatalf("WriteVolume(cluster %d): %v", i, err)
		}
	}
}

func TestManagerMountStatOpenOpenDir(t *testing.T) {
	v := newTestVolume()
	v.Name = "slc"
	content := bytes.Repeat([]byte{0x5A}, nand.ClusterSize+10)
	buildMountableSuperblock(t, v, content)

	m := NewManager()
	m.Register(v)
	if err := m.Mount("slc"); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	entry, err := m.Stat("slc:/sys/isfshax.bin")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !entry.isFile() || entry.size != uint32(len(content)) {
		t.Fatalf("Stat returned unexpected entry %+v", entry)
	}

	file, err := m.Open("slc:/sys/isfshax.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("file content mismatch")
	}

	dir, err := m.OpenDir("slc:/sys")
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	child := dir.Read()
	if child == nil || child.nameString() != "isfshax.bin" {
		t.Fatalf("expected child \"isfshax.bin\", got %+v", child)
	}
}

func TestManagerSessionIDChangesAcrossRemounts(t *testing.T) {
	v := newTestVolume()
	v.Name = "slc"
	buildMountableSuperblock(t, v, bytes.Repeat([]byte{0x01}, nand.ClusterSize))

	m := NewManager()
	m.Register(v)

	if err := m.Mount("slc"); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	first, err := m.SessionID("slc")
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	if first == "" {
		t.Fatalf("expected a non-empty session id")
	}

	if err := m.Mount("slc"); err != nil {
		t.Fatalf("Mount (again): %v", err)
	}
	second, err := m.SessionID("slc")
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	if first == second {
		t.Fatalf("expected a fresh session id on remount")
	}
}

func TestManagerResolvePathRejectsUnknownVolume(t *testing.T) {
	m := NewManager()
	if _, _, err := m.ResolvePath("nope:/x"); err == nil {
		t.Fatalf("expected error for unknown volume")
	}
}

func TestManagerOpenFailsWhenUnmounted(t *testing.T) {
	v := newTestVolume()
	v.Name = "slc"
	m := NewManager()
	m.Register(v)
	if _, err := m.Open("slc:/sys/isfshax.bin"); err == nil {
		t.Fatalf("expected error opening a path on an unmounted volume")
	}
}

func TestManagerUnmountClearsAccess(t *testing.T) {
	v := newTestVolume()
	v.Name = "slc"
	content := bytes.Repeat([]byte{0x11}, nand.ClusterSize)
	buildMountableSuperblock(t, v, content)

	m := NewManager()
	m.Register(v)
	if err := m.Mount("slc"); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	m.Unmount()

	if _, err := m.Stat("slc:/sys/isfshax.bin"); err == nil {
		t.Fatalf("expected error after Unmount")
	}
}
