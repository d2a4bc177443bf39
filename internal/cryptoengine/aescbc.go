package cryptoengine

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AESBlockSize is the AES block size in bytes, and therefore the IV size.
const AESBlockSize = aes.BlockSize

// aesCBC is the stdlib-backed CBC implementation: crypto/aes for the block
// cipher, crypto/cipher for the CBC block mode. The hardware engine keeps
// its IV register loaded between calls; aesCBC reproduces that by holding
// the last block's output (or input, for decrypt) as the IV for the next
// call whenever chain is requested.
type aesCBC struct {
	block cipher.Block
	iv    [AESBlockSize]byte
}

// NewAESCBC constructs a CBC engine under a 128-bit key.
func NewAESCBC(key []byte) (CBC, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: new AES cipher: %w", err)
	}
	return &aesCBC{block: block}, nil
}

func (c *aesCBC) Reset() {
	c.iv = [AESBlockSize]byte{}
}

func (c *aesCBC) SetIV(iv []byte) {
	copy(c.iv[:], iv)
}

func (c *aesCBC) Encrypt(dst, src []byte, chain bool) {
	if !chain {
		c.Reset()
	}
	mode := cipher.NewCBCEncrypter(c.block, c.iv[:])
	mode.CryptBlocks(dst, src)
	copy(c.iv[:], dst[len(dst)-AESBlockSize:])
}

func (c *aesCBC) Decrypt(dst, src []byte, chain bool) {
	if !chain {
		c.Reset()
	}
	// CBC decryption needs the *input* ciphertext's last block as the next
	// IV; capture it before CryptBlocks overwrites dst (which may alias src).
	var nextIV [AESBlockSize]byte
	copy(nextIV[:], src[len(src)-AESBlockSize:])

	mode := cipher.NewCBCDecrypter(c.block, c.iv[:])
	mode.CryptBlocks(dst, src)

	c.iv = nextIV
}
