package isfs

import (
	"fmt"

	"github.com/isfshax/isfshax/internal/nand"
)

// memDevice is a minimal in-memory nand.Device for exercising the codec and
// mount logic without going through real ECC arithmetic (covered separately
// by internal/nand's own tests). Pages read back exactly what was written;
// EraseBlock resets to the all-0xFF erased pattern.
type memDevice struct {
	data      [][]byte
	spare     [][]byte
	bank      nand.Bank
	failPages map[int]bool
}

// failPage makes every future WritePage at the given page index fail,
// simulating a NAND page that has gone bad out from under a commit/refresh
// in progress.
func (d *memDevice) failPage(index int) {
	if d.failPages == nil {
		d.failPages = make(map[int]bool)
	}
	d.failPages[index] = true
}

func newMemDevice() *memDevice {
	d := &memDevice{
		data:  make([][]byte, nand.PageCount),
		spare: make([][]byte, nand.PageCount),
	}
	for i := range d.data {
		d.data[i] = make([]byte, nand.PageSize)
		d.spare[i] = make([]byte, nand.SpareSize)
		for j := range d.data[i] {
			d.data[i][j] = 0xFF
		}
		for j := range d.spare[i] {
			d.spare[i][j] = 0xFF
		}
	}
	return d
}

func (d *memDevice) ReadPage(index int, data, spare []byte) (nand.ReadGrade, error) {
	copy(data, d.data[index])
	copy(spare, d.spare[index])
	return nand.ReadOK, nil
}

func (d *memDevice) WritePage(index int, data, spare []byte) error {
	if d.failPages[index] {
		return fmt.Errorf("memDevice: simulated write failure at page %d", index)
	}
	copy(d.data[index], data)
	copy(d.spare[index], spare)
	return nil
}

func (d *memDevice) EraseBlock(index int) error {
	first := index * nand.BlockPages
	for p := first; p < first+nand.BlockPages; p++ {
		for j := range d.data[p] {
			d.data[p][j] = 0xFF
		}
		for j := range d.spare[p] {
			d.spare[p][j] = 0xFF
		}
	}
	return nil
}

func (d *memDevice) SelectBank(bank nand.Bank) error {
	d.bank = bank
	return nil
}

func (d *memDevice) Close() error {
	return nil
}
