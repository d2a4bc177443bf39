package cryptoengine

import (
	"bytes"
	"testing"
)

func TestHMACSHA1IncrementalMatchesSinglePass(t *testing.T) {
	key := []byte("super-seed-key-0123456789abcdef")
	msg := []byte("the quick brown fox jumps over the lazy dog, twice")

	whole := NewHMACSHA1()
	whole.Init(key)
	whole.Update(msg)
	wantDigest := whole.Final()

	incremental := NewHMACSHA1()
	incremental.Init(key)
	incremental.Update(msg[:10])
	incremental.Update(msg[10:30])
	incremental.Update(msg[30:])
	gotDigest := incremental.Final()

	if !bytes.Equal(wantDigest, gotDigest) {
		t.Fatalf("incremental HMAC does not match single-pass HMAC")
	}
	if len(wantDigest) != incremental.Size() {
		t.Fatalf("digest length %d does not match reported Size() %d", len(wantDigest), incremental.Size())
	}
}

func TestHMACSHA1DifferentKeysDiffer(t *testing.T) {
	msg := []byte("identical message")

	a := NewHMACSHA1()
	a.Init([]byte("key-a"))
	a.Update(msg)
	digestA := a.Final()

	b := NewHMACSHA1()
	b.Init([]byte("key-b"))
	b.Update(msg)
	digestB := b.Final()

	if bytes.Equal(digestA, digestB) {
		t.Fatalf("different keys produced identical HMAC digests")
	}
}
