package nand

import "encoding/binary"

// subpageSize is the granularity at which one ECC tag word is computed;
// PageSize/subpageSize == eccSize/4, i.e. one uint32 per 512 bytes.
const subpageSize = PageSize / (eccSize / 4)

// eccAllErased is the sentinel stored-ECC value for an erased, never-written subpage.
const eccAllErased = 0xFFFFFFFF

// subpageECC computes the controller-style ECC word for one 512-byte subpage.
//
// It packs two independent, linear (XOR-additive over set-bit positions)
// accumulators into one word: the upper 16 bits track the address of any
// single differing bit directly, the lower 16 bits track its bitwise
// complement. A single-bit difference between two subpages therefore always
// XORs the two tags into a syndrome whose two 12-bit halves are exact
// complements of one another, which is the property nand_ecc_correct (and,
// here, correctSubpage) relies on to both detect and locate the bit.
func subpageECC(data []byte) uint32 {
	var pos, comp uint32
	for byteIdx, b := range data {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) == 0 {
				continue
			}
			p := uint32(byteIdx<<3 | bit)
			pos ^= p
			comp ^= (^p) & 0xFFF
		}
	}
	return pos<<16 | (comp & 0xFFF)
}

// generateECC computes the 16-byte ECC tag the controller would produce
// when programming a page, one word per 512-byte subpage.
func generateECC(data []byte) [eccSize]byte {
	var tag [eccSize]byte
	for i := 0; i < eccSize/4; i++ {
		word := subpageECC(data[i*subpageSize : (i+1)*subpageSize])
		binary.LittleEndian.PutUint32(tag[i*4:i*4+4], word)
	}
	return tag
}

// correctPage compares a stored ECC tag against one freshly computed over
// data, repairing any single-bit errors in place per subpage.
//
// It returns corrected=true if at least one subpage was repaired, and
// uncorrectable=true if any subpage's error could not be resolved to a
// single bit flip (data is left partially repaired in that case, matching
// the source's early return once an uncorrectable subpage is hit).
func correctPage(data []byte, stored, computed [eccSize]byte) (corrected, uncorrectable bool) {
	for i := 0; i < eccSize/4; i++ {
		storedWord := binary.LittleEndian.Uint32(stored[i*4 : i*4+4])
		computedWord := binary.LittleEndian.Uint32(computed[i*4 : i*4+4])

		if storedWord == computedWord {
			continue
		}
		// erased subpages are never corrected
		if storedWord == eccAllErased {
			continue
		}

		syndrome := (storedWord ^ computedWord) & 0x0FFF0FFF
		if syndrome&(syndrome-1) == 0 {
			// a single stray bit in the ECC tag itself, not the data
			continue
		}

		odd := uint16(syndrome >> 16)
		even := uint16(syndrome)
		if odd^even != 0xFFF {
			return corrected, true
		}

		subpage := data[i*subpageSize : (i+1)*subpageSize]
		byteOffset := odd >> 3
		bitOffset := odd & 7
		subpage[byteOffset] ^= 1 << bitOffset
		corrected = true
	}
	return corrected, false
}
