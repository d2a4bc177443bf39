package isfs

import (
	"bytes"
	"io"
	"testing"

	"github.com/isfshax/isfshax/internal/nand"
)

// writeFileClusters writes content (assumed a multiple of nand.ClusterSize)
// across a FAT chain starting at cluster 0, encrypted (as File reads expect)
// but unauthenticated, and returns the populated FAT.
func writeFileClusters(t *testing.T, v *VolumeContext, content []byte) fat {
	t.Helper()
	if len(content)%nand.ClusterSize != 0 {
		t.Fatalf("content length must be a multiple of ClusterSize")
	}
	clusterCount := len(content) / nand.ClusterSize

	var f fat
	for i := range f {
		f[i] = fatReserved
	}
	for i := 0; i < clusterCount; i++ {
		if i == clusterCount-1 {
			f[i] = fatLast
		} else {
			f[i] = uint16(i + 1)
		}
		chunk := content[i*nand.ClusterSize : (i+1)*nand.ClusterSize]
		if err := v.WriteVolume(i, 1, flagEncrypted, nil, chunk); err != nil {
			t.Fatalf("WriteVolume(cluster %d): %v", i, err)
		}
	}
	return f
}

func TestFileReadWholeAndInChunks(t *testing.T) {
	v := newTestVolume()
	content := make([]byte, nand.ClusterSize*3)
	for i := range content {
		content[i] = byte(i)
	}
	f := writeFileClusters(t, v, content)

	entry := makeEntry("payload", fstTypeFile, 0, fstNone, uint32(len(content)))
	file, err := openFile(v, f, entry)
	if err != nil {
		t.Fatalf("openFile: %v", err)
	}

	got, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("file content mismatch")
	}
}

// P6: seek(offset) then read(n) matches reading the whole file and slicing.
func TestFileSeekThenReadMatchesWholeReadSlice(t *testing.T) {
	v := newTestVolume()
	content := make([]byte, nand.ClusterSize*3)
	for i := range content {
		content[i] = byte(i * 3)
	}
	f := writeFileClusters(t, v, content)
	entry := makeEntry("payload", fstTypeFile, 0, fstNone, uint32(len(content)))

	offset := int64(nand.ClusterSize + 100)
	n := 50

	file, err := openFile(v, f, entry)
	if err != nil {
		t.Fatalf("openFile: %v", err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(file, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}

	want := content[offset : offset+int64(n)]
	if !bytes.Equal(buf, want) {
		t.Fatalf("seek+read mismatch: got %v, want %v", buf, want)
	}
}

func TestFileSeekRejectsOutOfRangeOffset(t *testing.T) {
	v := newTestVolume()
	content := make([]byte, nand.ClusterSize)
	f := writeFileClusters(t, v, content)
	entry := makeEntry("payload", fstTypeFile, 0, fstNone, uint32(len(content)))

	file, err := openFile(v, f, entry)
	if err != nil {
		t.Fatalf("openFile: %v", err)
	}
	if _, err := file.Seek(int64(len(content)+1), io.SeekStart); err == nil {
		t.Fatalf("expected error seeking past end of file")
	}
}

func TestOpenFileRejectsDirectoryEntry(t *testing.T) {
	v := newTestVolume()
	var f fat
	entry := makeEntry("dir", fstTypeDir, fstNone, fstNone, 0)
	if _, err := openFile(v, f, entry); err == nil {
		t.Fatalf("expected error opening a directory entry as a file")
	}
}
