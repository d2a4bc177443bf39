package cryptoengine

import (
	"crypto/hmac"
	"crypto/sha1"
	"hash"
)

// hmacSHA1 wraps the stdlib's crypto/hmac over crypto/sha1. The stdlib
// already implements the exact ipad/opad construction the source's
// hand-rolled hmac_init/hmac_update/hmac_final perform over its own SHA-1,
// so there is nothing to reimplement here beyond the Init/Update/Final
// shape the rest of the codec expects.
type hmacSHA1 struct {
	h hash.Hash
}

// NewHMACSHA1 constructs an HMAC-SHA1 engine. Call Init before first use.
func NewHMACSHA1() KeyedHash {
	return &hmacSHA1{}
}

func (h *hmacSHA1) Init(key []byte) {
	h.h = hmac.New(sha1.New, key)
}

func (h *hmacSHA1) Update(data []byte) {
	h.h.Write(data)
}

func (h *hmacSHA1) Final() []byte {
	sum := h.h.Sum(nil)
	h.h = nil
	return sum
}

func (h *hmacSHA1) Size() int {
	return sha1.Size
}
