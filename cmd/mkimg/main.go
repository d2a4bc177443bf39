// Command mkimg builds a fully-erased NAND image fixture and commits a
// single-volume superblock into slot 0, for seeding integration tests and
// manual isfshax-sim runs without hand-crafting a binary fixture.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/isfshax/isfshax/internal/isfs"
	"github.com/isfshax/isfshax/internal/nand"
)

func main() {
	var (
		outPath string
		keyHex  string
	)
	flag.StringVar(&outPath, "out", "nand.img", "output NAND image path")
	flag.StringVar(&keyHex, "key-seed", "mkimg-fixture-key", "deterministic seed for the volume's AES/HMAC key material")
	flag.Parse()

	if err := run(outPath, keyHex); err != nil {
		fmt.Fprintln(os.Stderr, "mkimg:", err)
		os.Exit(1)
	}
}

func run(outPath, keySeed string) error {
	tmp, err := os.CreateTemp("", "mkimg-*.img")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	device, err := nand.CreateImageDevice(tmpPath)
	if err != nil {
		return fmt.Errorf("create image device: %w", err)
	}

	ctx := &isfs.VolumeContext{
		Name:   "slc",
		Device: device,
		Bank:   0,
		Key:    deriveKey(keySeed),
	}
	copy(ctx.HMACKey[:], deriveHMACKey(keySeed))

	super := isfs.NewEmptySuperblock()
	if err := isfs.CommitInitial(ctx, super); err != nil {
		device.Close()
		return fmt.Errorf("commit initial superblock: %w", err)
	}
	device.Close()

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("read built image: %w", err)
	}

	return atomic.WriteFile(outPath, bytes.NewReader(data))
}

// deriveKey and deriveHMACKey stretch a human-readable seed string into
// fixed-size key material for fixture generation; a real board's keys
// come from one-time-programmable fuses, out of scope here.
func deriveKey(seed string) [16]byte {
	var key [16]byte
	stretch(seed, key[:])
	return key
}

func deriveHMACKey(seed string) []byte {
	key := make([]byte, 20)
	stretch("hmac:"+seed, key)
	return key
}

func stretch(seed string, out []byte) {
	for i := range out {
		out[i] = seed[i%len(seed)] ^ byte(i)
	}
}
