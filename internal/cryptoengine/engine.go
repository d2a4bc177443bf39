// Package cryptoengine provides the two primitives the volume codec layers
// on top of raw NAND pages: AES-128-CBC with explicit IV chaining control,
// and HMAC-SHA1 with an incremental init/update/final interface.
//
// Grounded on original_source/stage2/aes.{c,h} and original_source/stage2/hmac.{c,h}:
// the hardware AES engine keeps its IV register across calls unless told to
// reset it (aes_empty_iv) or explicitly loaded (aes_set_iv), and the HMAC
// implementation is the textbook ipad/opad construction over a block hash.
package cryptoengine

// CBC is an AES-128-CBC engine whose IV behaves like the hardware engine
// it stands in for: it persists across calls unless reset.
type CBC interface {
	// Reset clears the engine's IV register to all zero bytes.
	Reset()
	// SetIV loads an explicit 16-byte IV into the engine's IV register.
	SetIV(iv []byte)
	// Encrypt encrypts src into dst (len must be a multiple of the AES
	// block size). If chain is false the IV register is cleared to zero
	// first; if true, the register (as left by the previous call) is used.
	Encrypt(dst, src []byte, chain bool)
	// Decrypt is the inverse of Encrypt, with the same chain semantics.
	Decrypt(dst, src []byte, chain bool)
}

// KeyedHash is an incremental HMAC engine.
type KeyedHash interface {
	// Init begins a new HMAC computation under key.
	Init(key []byte)
	// Update feeds additional message bytes into the running computation.
	Update(data []byte)
	// Final returns the HMAC digest and resets the engine.
	Final() []byte

	// Size returns the digest size in bytes.
	Size() int
}
