package nand

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// ImageDevice is a Device backed by a flat *os.File laid out as PageCount
// consecutive (PageSize+SpareSize) records. It stands in for the real NAND controller in tests and in the
// simulator binary.
//
// Grounded on the teacher's util.File abstraction (disk/disk.go in the
// wider go-diskfs tree): a single backing handle, opened once, addressed
// by byte offset.
type ImageDevice struct {
	f        *os.File
	writable bool
	bank     Bank
	locked   bool
}

const recordSize = PageSize + SpareSize

// OpenImageDevice opens path as a NAND image. writable gates WritePage and
// EraseBlock, mirroring the source's NAND_WRITE_ENABLED build-time gate as
// a runtime capability instead.
//
// The device takes an advisory lock on the backing file for the lifetime
// of the handle: exclusive when writable, so exactly one writer may ever
// be mid-operation against a given NAND image (the "controller is a
// hardware singleton" property of the real part), and shared when
// read-only, so several read-only handles may coexist.
func OpenImageDevice(path string, writable bool) (*ImageDevice, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("nand: open image: %w", err)
	}

	lockFlag := unix.LOCK_SH
	if writable {
		lockFlag = unix.LOCK_EX
	}
	if err := unix.Flock(int(f.Fd()), lockFlag|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("nand: image is in use: %w", err)
	}

	return &ImageDevice{f: f, writable: writable, locked: true}, nil
}

// CreateImageDevice creates a new, fully-erased (all 0xFF) NAND image of
// the standard geometry at path, opening it for read-write access.
func CreateImageDevice(path string) (*ImageDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("nand: create image: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("nand: image is in use: %w", err)
	}

	erasedRecord := make([]byte, recordSize)
	for i := range erasedRecord {
		erasedRecord[i] = 0xFF
	}
	for i := 0; i < PageCount; i++ {
		if _, err := f.WriteAt(erasedRecord, int64(i)*recordSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("nand: initialize image: %w", err)
		}
	}

	return &ImageDevice{f: f, writable: true, locked: true}, nil
}

func (d *ImageDevice) pageOffset(index int) int64 {
	return int64(index) * recordSize
}

// ReadPage implements Device.
func (d *ImageDevice) ReadPage(index int, data, spare []byte) (ReadGrade, error) {
	if len(data) != PageSize {
		return ReadOK, fmt.Errorf("nand: ReadPage: data must be %d bytes, got %d", PageSize, len(data))
	}
	if len(spare) != SpareSize {
		return ReadOK, fmt.Errorf("nand: ReadPage: spare must be %d bytes, got %d", SpareSize, len(spare))
	}

	record := make([]byte, recordSize)
	if _, err := d.f.ReadAt(record, d.pageOffset(index)); err != nil && err != io.EOF {
		return ReadOK, fmt.Errorf("nand: read page %d: %w", index, err)
	}
	copy(data, record[:PageSize])
	copy(spare, record[PageSize:PageSize+SpareSize])

	var stored [eccSize]byte
	copy(stored[:], spare[eccStoredOffset:eccStoredOffset+eccSize])
	computed := generateECC(data)

	if stored == computed {
		return ReadOK, nil
	}

	corrected, uncorrectable := correctPage(data, stored, computed)
	if uncorrectable {
		return ReadOK, ErrUncorrectable
	}
	if corrected {
		return ReadCorrected, nil
	}
	return ReadOK, nil
}

// WritePage implements Device.
func (d *ImageDevice) WritePage(index int, data, spare []byte) error {
	if !d.writable {
		return ErrNotWritable
	}
	if len(data) != PageSize {
		return fmt.Errorf("nand: WritePage: data must be %d bytes, got %d", PageSize, len(data))
	}
	if len(spare) != SpareSize {
		return fmt.Errorf("nand: WritePage: spare must be %d bytes, got %d", SpareSize, len(spare))
	}

	tag := generateECC(data)

	record := make([]byte, recordSize)
	copy(record[:PageSize], data)
	copy(record[PageSize:PageSize+SpareSize], spare)
	// Byte 0 of the spare is always 0xFF on a real write, regardless of what
	// the caller passed in; original_source/stage2/nand.c's nand_write_page
	// stamps it before handing the spare to the controller.
	record[PageSize] = 0xFF
	copy(record[PageSize+eccStoredOffset:PageSize+eccStoredOffset+eccSize], tag[:])

	if _, err := d.f.WriteAt(record, d.pageOffset(index)); err != nil {
		return fmt.Errorf("nand: write page %d: %w", index, err)
	}
	return nil
}

// EraseBlock implements Device.
func (d *ImageDevice) EraseBlock(index int) error {
	if !d.writable {
		return ErrNotWritable
	}
	if index < 0 || index >= BlockCount {
		return fmt.Errorf("nand: erase block %d out of range", index)
	}

	erasedRecord := make([]byte, recordSize)
	for i := range erasedRecord {
		erasedRecord[i] = 0xFF
	}

	first := index * BlockPages
	for p := first; p < first+BlockPages; p++ {
		if _, err := d.f.WriteAt(erasedRecord, d.pageOffset(p)); err != nil {
			return fmt.Errorf("nand: erase block %d: %w", index, err)
		}
	}
	return nil
}

// SelectBank implements Device.
func (d *ImageDevice) SelectBank(bank Bank) error {
	d.bank = bank
	return nil
}

// Close implements Device.
func (d *ImageDevice) Close() error {
	if d.locked {
		unix.Flock(int(d.f.Fd()), unix.LOCK_UN)
		d.locked = false
	}
	return d.f.Close()
}
