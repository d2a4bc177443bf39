package isfs

import "fmt"

// Refresh implements the isfshax wear-levelling recommit: it detects
// whether the superblock boot1 loaded at power-on shows ECC-correction
// drift against the isfshax bookkeeping it carries, and if so, rewrites
// that superblock to the next isfshax slot with an incremented
// generation so a future boot sees the corrected copy as authoritative.
//
// boot1 is a snapshot of the isfshax_super image the first-stage loader
// already read into memory before handing off control; it cannot be
// rewritten in place (the real hardware equivalent lives at a fixed,
// read-only-from-here address), only used to seed the scan.
//
// Grounded on original_source/stage2/isfs/isfshax.c's isfshax_refresh.
// The "iteration restarts from scratch" behavior on a curindex write
// failure follows the distilled spec's explicit resolution of that case,
// rather than the source's own off-by-one loop-counter reset.
func Refresh(v *VolumeContext, boot1 *Superblock) error {
	boot1Info, err := boot1.isfshaxInfo()
	if err != nil {
		return fmt.Errorf("isfs: refresh: %w", err)
	}

	// the header generation still matches the isfshax bookkeeping: boot1
	// did not recommit because of ECC errors, so there is nothing to heal.
	if boot1.Header.generation == boot1Info.Generation {
		return nil
	}

	curindex := int(boot1Info.Index)
	var super *Superblock
	found := false
	for offs := 0; offs < Redundancy; offs++ {
		index := (curindex + offs) & (Redundancy - 1)
		slot := int(boot1Info.Slots[index] &^ badSlotBit)

		if s, _, err := readSuper(v, slot); err == nil {
			curindex = index
			super = s
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("isfs: refresh: no valid isfshax superblock slot could be loaded")
	}

	info, err := super.isfshaxInfo()
	if err != nil {
		return fmt.Errorf("isfs: refresh: %w", err)
	}

	// if the last valid generation in the current window is reached,
	// rewrite all isfshax slots starting from a lower generation.
	generation := super.Header.generation + 1
	count := 1
	if generation >= info.GenerationBase+GenerationRange {
		generation = info.GenerationBase
		count = Redundancy
	}

	written := 0
	for offs := 1; offs <= Redundancy && written < count; offs++ {
		index := (curindex + offs) & (Redundancy - 1)
		slot := int(info.Slots[index] &^ badSlotBit)

		if info.Slots[index]&badSlotBit != 0 {
			continue
		}
		// if the slot currently in use is being rewritten, ensure at
		// least one other slot was already successfully written first.
		if index == curindex && written == 0 {
			continue
		}

		info.Index = uint32(index)
		info.Generation = generation
		super.Header.generation = generation
		super.setIsfshaxInfo(info)

		if err := writeSuper(v, super, slot); err == nil {
			generation++
			written++
			continue
		}

		// the slot went bad during the write: mark it and move the
		// generation window forward so the stale copy there is never
		// preferred over what we're about to write elsewhere.
		info.Slots[index] |= badSlotBit
		info.GenerationBase += GenerationRange
		generation = info.GenerationBase
		super.setIsfshaxInfo(info)

		if index == curindex {
			offs = 0
			written = 0
		}
	}

	if written == 0 {
		return fmt.Errorf("isfs: refresh: failed to write any isfshax superblock slot")
	}
	return nil
}
