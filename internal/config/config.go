// Package config loads the board configuration the simulator needs but
// real firmware hardcodes: which NAND volumes exist, which bank and key
// file back each one, and how many superblock slots it carries.
//
// Grounded on calvinalkan-agent-task's internal/ticket/config.go: hujson
// is standardized to plain JSON and then unmarshaled, with defaults
// applied before validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// defaultSuperCount mirrors original_source/stage2/isfs/super.h's
// SUPERBLOCK_NUM (64 redundant slots per volume).
const defaultSuperCount = 64

// Volume names one simulated NAND volume: its bank, key material source,
// and slot count.
type Volume struct {
	Name        string `json:"name"`
	Bank        uint32 `json:"bank"`
	KeyFile     string `json:"key_file"`
	HMACKeyFile string `json:"hmac_key_file"`
	SuperCount  int    `json:"super_count,omitempty"`
}

// Board is the top-level simulated board configuration: a NAND image
// backing every volume, and the volumes themselves.
type Board struct {
	NANDImage string   `json:"nand_image"`
	SDRoot    string   `json:"sd_root,omitempty"`
	Volumes   []Volume `json:"volumes"`
}

// Load reads and parses a hujson (JSON with comments and trailing
// commas) board configuration file from path.
func Load(path string) (Board, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Board{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return Board{}, fmt.Errorf("config: %s is not valid JSONC: %w", path, err)
	}

	var b Board
	if err := json.Unmarshal(standardized, &b); err != nil {
		return Board{}, fmt.Errorf("config: %s: %w", path, err)
	}

	for i := range b.Volumes {
		if b.Volumes[i].SuperCount == 0 {
			b.Volumes[i].SuperCount = defaultSuperCount
		}
	}

	if err := b.validate(); err != nil {
		return Board{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return b, nil
}

func (b Board) validate() error {
	if b.NANDImage == "" {
		return fmt.Errorf("nand_image is required")
	}
	if len(b.Volumes) == 0 {
		return fmt.Errorf("at least one volume is required")
	}
	seen := make(map[string]bool, len(b.Volumes))
	for _, v := range b.Volumes {
		if v.Name == "" {
			return fmt.Errorf("volume with empty name")
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate volume name %q", v.Name)
		}
		seen[v.Name] = true
		if v.KeyFile == "" {
			return fmt.Errorf("volume %q: key_file is required", v.Name)
		}
		if v.HMACKeyFile == "" {
			return fmt.Errorf("volume %q: hmac_key_file is required", v.Name)
		}
	}
	return nil
}

// ReadKey reads a raw 16-byte AES key from path.
func ReadKey(path string) ([16]byte, error) {
	var key [16]byte
	data, err := os.ReadFile(path)
	if err != nil {
		return key, fmt.Errorf("config: read key %s: %w", path, err)
	}
	if len(data) != len(key) {
		return key, fmt.Errorf("config: key %s is %d bytes, want %d", path, len(data), len(key))
	}
	copy(key[:], data)
	return key, nil
}

// ReadHMACKey reads a raw HMAC-SHA1 key from path.
func ReadHMACKey(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read hmac key %s: %w", path, err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("config: hmac key %s is %d bytes, want %d", path, len(data), size)
	}
	return data, nil
}
