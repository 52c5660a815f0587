package entity

import (
	"strings"
	"testing"
)

func validEscrowConfig() EscrowConfig {
	return EscrowConfig{
		AssetIn:       testAssetA,
		AssetOut:      testAssetB,
		MinimumOutput: 1000,
		Recipient:     testOwner,
	}
}

func TestEscrowConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EscrowConfig)
		wantErr bool
	}{
		{"valid", func(c *EscrowConfig) {}, false},
		{"bad assetIn", func(c *EscrowConfig) { c.AssetIn = "xx" }, true},
		{"bad assetOut", func(c *EscrowConfig) { c.AssetOut = "" }, true},
		{"bad recipient", func(c *EscrowConfig) { c.Recipient = "nope" }, true},
		{"zero minimum", func(c *EscrowConfig) { c.MinimumOutput = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validEscrowConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeriveAddress_Deterministic(t *testing.T) {
	cfg := validEscrowConfig()

	first, err := cfg.DeriveAddress()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cfg.DeriveAddress()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("derivation not deterministic: %s != %s", first, second)
	}
	if !strings.HasPrefix(first, "0x") || len(first) != 2+64 {
		t.Errorf("expected 32-byte hex address, got %q", first)
	}
}

func TestDeriveAddress_EachConstantMatters(t *testing.T) {
	base := validEscrowConfig()
	baseAddr, err := base.DeriveAddress()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mutations := map[string]func(*EscrowConfig){
		"assetIn":       func(c *EscrowConfig) { c.AssetIn = testAssetB },
		"assetOut":      func(c *EscrowConfig) { c.AssetOut = testAssetA },
		"minimumOutput": func(c *EscrowConfig) { c.MinimumOutput = 1001 },
		"recipient":     func(c *EscrowConfig) { c.Recipient = testOwner2 },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := validEscrowConfig()
			mutate(&cfg)
			addr, err := cfg.DeriveAddress()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if addr == baseAddr {
				t.Errorf("changing %s did not change the derived address", name)
			}
		})
	}
}

func TestEscrowParams_Validate(t *testing.T) {
	fundingTx := NewScriptTransaction()

	valid := EscrowParams{
		Address:   testOwner,
		Config:    validEscrowConfig(),
		FundingTx: fundingTx,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := valid
	missing.FundingTx = nil
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing funding transaction")
	}

	badAddr := valid
	badAddr.Address = "not-hex"
	if err := badAddr.Validate(); err == nil {
		t.Error("expected error for malformed address")
	}
}
