// Package payload orchestrates the SD-then-NAND fallback that hands the
// loaded image off to the signed-image verifier.
//
// Grounded on original_source/stage2/main.c's load_payload_sd,
// load_payload_nand, and _main.
package payload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/isfshax/isfshax/internal/ancast"
	"github.com/isfshax/isfshax/internal/isfs"
)

// sdFileName and nandPath name the payload file on each source, matching
// main.c's hardcoded "isfshax.bin" / "slc:/sys/isfshax.bin".
const (
	sdFileName = "isfshax.bin"
	nandPath   = "slc:/sys/isfshax.bin"
)

// RemovableMedia is the minimal surface the loader needs from a mounted
// FAT-formatted SD card: root-relative file reads, and mount/unmount
// bracketing each attempt (sdcard_init/f_mount and f_mount(0)/sdcard_exit
// in the source).
type RemovableMedia interface {
	Mount() error
	ReadFile(name string) ([]byte, error)
	Unmount() error
}

// Loader reuses one destination buffer across both load attempts, mirroring
// the source's fixed ANCAST_ADDRESS_IOP staging area: each attempt zeroes
// it before copying in, so a short image on the second source never leaves
// a longer prior attempt's trailing bytes behind for the verifier to read.
//
// Supplemented from main.c's ancast_iop_clear calls preceding each load
// attempt, dropped by the distillation.
type Loader struct {
	dest []byte
}

// NewLoader allocates a Loader with a destination buffer capacity bytes
// long, the largest payload image it will accept.
func NewLoader(capacity int) *Loader {
	return &Loader{dest: make([]byte, capacity)}
}

func (l *Loader) zero() {
	for i := range l.dest {
		l.dest[i] = 0
	}
}

// stage copies content into the zeroed destination buffer and returns the
// prefix actually used, or an error if it doesn't fit.
func (l *Loader) stage(content []byte) ([]byte, error) {
	l.zero()
	if len(content) > len(l.dest) {
		return nil, fmt.Errorf("payload: image is %d bytes, exceeds staging capacity %d", len(content), len(l.dest))
	}
	copy(l.dest, content)
	return l.dest[:len(content)], nil
}

// LoadFromSD attempts to read and verify the payload from removable media.
// Grounded on main.c's load_payload_sd. A zero vector with a nil error is
// the normal "nothing usable here" outcome; only genuine staging failures
// are returned as errors.
func (l *Loader) LoadFromSD(media RemovableMedia) (uint32, error) {
	if err := media.Mount(); err != nil {
		return 0, nil
	}
	defer media.Unmount()

	content, err := media.ReadFile(sdFileName)
	if err != nil || len(content) == 0 {
		return 0, nil
	}

	staged, err := l.stage(content)
	if err != nil {
		return 0, err
	}
	vector, err := ancast.Verify(staged)
	if err != nil {
		return 0, nil
	}
	return vector, nil
}

// LoadFromNAND attempts to read and verify the payload from the mounted
// NAND volume manager. Grounded on main.c's load_payload_nand.
func (l *Loader) LoadFromNAND(volumes *isfs.Manager) (uint32, error) {
	file, err := volumes.Open(nandPath)
	if err != nil {
		return 0, nil
	}
	defer file.Close()

	if file.Size() == 0 {
		return 0, nil
	}
	content := make([]byte, file.Size())
	if _, err := io.ReadFull(file, content); err != nil {
		return 0, nil
	}

	staged, err := l.stage(content)
	if err != nil {
		return 0, err
	}
	vector, err := ancast.Verify(staged)
	if err != nil {
		return 0, nil
	}
	return vector, nil
}

// Run attempts SD first, falling back to NAND only if SD produced a zero
// entry vector, matching _main's fallback order.
func (l *Loader) Run(media RemovableMedia, volumes *isfs.Manager) (uint32, error) {
	vector, err := l.LoadFromSD(media)
	if err != nil {
		return 0, err
	}
	if vector != 0 {
		return vector, nil
	}
	return l.LoadFromNAND(volumes)
}

// DirMedia implements RemovableMedia over a host directory standing in
// for an SD card's FAT root, for the simulator binary and integration
// tests that have no real removable media to mount.
type DirMedia struct {
	Root string
}

func (d *DirMedia) Mount() error {
	info, err := os.Stat(d.Root)
	if err != nil {
		return fmt.Errorf("payload: mount %s: %w", d.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("payload: mount %s: %w", d.Root, errors.New("not a directory"))
	}
	return nil
}

func (d *DirMedia) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Root, name))
}

func (d *DirMedia) Unmount() error {
	return nil
}

