// Package ancast verifies the signed-image envelope a payload loader reads
// off removable media or NAND before handing control to it.
//
// Grounded on original_source/stage2/ancast.{c,h}'s ancast_iop_load.
package ancast

import (
	"crypto/sha1"
	"encoding/binary"
	"errors"
)

const (
	// Magic is the 32-bit value every envelope must open with.
	Magic uint32 = 0xEFA282D9

	// signatureType is the only signature-block type this loader accepts.
	signatureType uint32 = 0x02

	// TargetIOP is the required device-target nibble in the ancast header.
	TargetIOP uint8 = 0x02

	sigOffsetFieldOffset = 0x08
	headerOffset         = 0x1A0

	// headerSize is sizeof(ancast_header): 2+1+1+4+4+4+20+4+56 bytes.
	headerSize = 0x60

	deviceFieldOffset   = 4
	bodySizeFieldOffset = 12
	bodyHashFieldOffset = 16
	bodyHashSize        = sha1.Size

	// iosHeaderSizeFieldOffset is ios_header.header_size's offset within
	// the body (the first field of the struct).
	iosHeaderSizeFieldOffset = 0
)

// ErrTooSmall reports a buffer too short to even contain the fixed-format
// fields this verifier reads, which is a structural bug in the caller
// rather than a signed-image validation failure.
var ErrTooSmall = errors.New("ancast: buffer too small to contain a header")

// Verify checks buffer against the signed-image envelope format and
// returns the entry vector a loader should transfer control to.
//
// A zero return with a nil error is the spec's "skip this source" signal:
// wrong magic, wrong signature type, wrong device target, or a body-hash
// mismatch are all treated as "this image isn't usable", never a crash.
// Only a buffer too short to hold the fields being read returns an error.
//
// The entry vector is modeled as a byte offset into buffer rather than an
// absolute load address: mapping the verified body into a fixed physical
// address range is a hardware memory-map detail with no counterpart here.
func Verify(buffer []byte) (entryVector uint32, err error) {
	if len(buffer) < headerOffset+headerSize {
		return 0, ErrTooSmall
	}

	magic := binary.BigEndian.Uint32(buffer[0:4])
	if magic != Magic {
		return 0, nil
	}

	sigOffset := binary.BigEndian.Uint32(buffer[sigOffsetFieldOffset : sigOffsetFieldOffset+4])
	if int(sigOffset)+4 > len(buffer) {
		return 0, ErrTooSmall
	}
	sigType := binary.BigEndian.Uint32(buffer[sigOffset : sigOffset+4])
	if sigType != signatureType {
		return 0, nil
	}

	header := buffer[headerOffset : headerOffset+headerSize]
	device := binary.BigEndian.Uint32(header[deviceFieldOffset : deviceFieldOffset+4])
	target := uint8(device >> 4)
	if target != TargetIOP {
		return 0, nil
	}

	bodySize := binary.BigEndian.Uint32(header[bodySizeFieldOffset : bodySizeFieldOffset+4])
	bodyStart := headerOffset + headerSize
	if int(bodySize) < 0 || bodyStart+int(bodySize) > len(buffer) {
		return 0, ErrTooSmall
	}
	body := buffer[bodyStart : bodyStart+int(bodySize)]

	wantHash := header[bodyHashFieldOffset : bodyHashFieldOffset+bodyHashSize]
	gotHash := sha1.Sum(body)
	for i := 0; i < bodyHashSize; i++ {
		if wantHash[i] != gotHash[i] {
			return 0, nil
		}
	}

	if len(body) < iosHeaderSizeFieldOffset+4 {
		return 0, ErrTooSmall
	}
	iosHeaderSize := binary.BigEndian.Uint32(body[iosHeaderSizeFieldOffset : iosHeaderSizeFieldOffset+4])

	return uint32(bodyStart) + iosHeaderSize, nil
}
