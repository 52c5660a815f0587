package hexutil

import (
	"bytes"
	"testing"
)

func TestParseUint64(t *testing.T) {
	tests := []struct {
		input    string
		expected uint64
	}{
		{"0x0", 0},
		{"0x1", 1},
		{"0xa", 10},
		{"0x3e8", 1000},
		{"0x3b9aca00", 1_000_000_000},
		{"0xFF", 255},
		{"ff", 255},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			result, err := ParseUint64(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestParseUint64_Invalid(t *testing.T) {
	for _, input := range []string{"", "0x", "0xzz", "not_hex"} {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseUint64(input); err == nil {
				t.Errorf("expected error for %q", input)
			}
		})
	}
}

func TestFormatUint64(t *testing.T) {
	if got := FormatUint64(1000); got != "0x3e8" {
		t.Errorf("expected 0x3e8, got %s", got)
	}
	if got := FormatUint64(0); got != "0x0" {
		t.Errorf("expected 0x0, got %s", got)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	enc := Encode(raw)
	if enc != "0xdeadbeef" {
		t.Fatalf("unexpected encoding: %s", enc)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(dec, raw) {
		t.Errorf("round trip mismatch: %x != %x", dec, raw)
	}
}

func TestDecode_MissingPrefix(t *testing.T) {
	if _, err := Decode("deadbeef"); err == nil {
		t.Error("expected error for missing prefix")
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"0x", true},
		{"0xdeadbeef", true},
		{"0xABCDEF", true},
		{"deadbeef", false},
		{"0xzz", false},
		{"0xabc", false}, // odd digit count
	}
	for _, tc := range tests {
		if got := IsValid(tc.input); got != tc.want {
			t.Errorf("IsValid(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
