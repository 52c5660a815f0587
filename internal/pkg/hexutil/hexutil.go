// Package hexutil provides utilities for the 0x-prefixed hex encoding used on
// the transaction wire format (amounts, asset IDs, script bytes).
//
// This package is intentionally placed in internal/pkg to allow imports from
// both adapters and services without violating hexagonal architecture principles.
package hexutil

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ParseUint64 parses a hex-encoded string to uint64.
// Handles both "0x" prefixed and non-prefixed hex strings.
func ParseUint64(hexNum string) (uint64, error) {
	hexNum = strings.TrimPrefix(hexNum, "0x")
	return strconv.ParseUint(hexNum, 16, 64)
}

// FormatUint64 encodes v as a 0x-prefixed hex string.
func FormatUint64(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// Decode parses a 0x-prefixed hex byte string.
func Decode(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("missing 0x prefix: %q", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	return b, nil
}

// Encode returns the 0x-prefixed hex encoding of b.
func Encode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// IsValid reports whether s is a 0x-prefixed hex string with an even number of
// hex digits. The empty payload "0x" is valid.
func IsValid(s string) bool {
	if !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}
