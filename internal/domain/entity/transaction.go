package entity

import (
	"encoding/json"
	"fmt"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/hexutil"
)

// ZeroTxPointer is the placeholder transaction pointer required on inputs of an
// unsubmitted transaction.
const ZeroTxPointer = "0x00000000000000000000000000000000"

// EmptyWitness is the placeholder occupying a witness slot before a signature
// is attached.
const EmptyWitness = "0x"

// InputType discriminates transaction inputs on the wire.
type InputType int

// Supported input types. Message inputs are not accepted by the solver.
const (
	InputTypeCoin     InputType = 0
	InputTypeContract InputType = 1
)

// OutputType discriminates transaction outputs on the wire.
type OutputType int

// Supported output types.
const (
	OutputTypeCoin     OutputType = 0
	OutputTypeContract OutputType = 1
	OutputTypeChange   OutputType = 2
	OutputTypeVariable OutputType = 3
)

// Amount is a u64 ledger amount that marshals as a 0x-hex string, matching the
// transaction wire format. Plain JSON numbers are also accepted on decode since
// some client SDKs emit output amounts either way.
type Amount uint64

// MarshalJSON encodes the amount as a 0x-hex string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.FormatUint64(uint64(a)))
}

// UnmarshalJSON decodes a 0x-hex string or a plain JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := hexutil.ParseUint64(s)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", s, err)
		}
		*a = Amount(v)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid amount %s", data)
	}
	*a = Amount(n)
	return nil
}

// Input is a transaction input. The populated fields depend on Type: coin
// inputs carry the spent resource and its witness binding, contract inputs
// only name the contract.
type Input struct {
	Type InputType

	// Coin input fields.
	ID           string
	Owner        string
	Amount       Amount
	AssetID      string
	WitnessIndex int

	// Contract input fields.
	ContractID string
}

type inputWire struct {
	Type         InputType `json:"type"`
	ID           string    `json:"id,omitempty"`
	Owner        string    `json:"owner,omitempty"`
	Amount       *Amount   `json:"amount,omitempty"`
	AssetID      string    `json:"assetId,omitempty"`
	TxPointer    string    `json:"txPointer,omitempty"`
	WitnessIndex *int      `json:"witnessIndex,omitempty"`
	ContractID   string    `json:"contractId,omitempty"`
}

// MarshalJSON emits only the fields relevant to the input's type.
func (in Input) MarshalJSON() ([]byte, error) {
	w := inputWire{Type: in.Type, TxPointer: ZeroTxPointer}
	switch in.Type {
	case InputTypeCoin:
		amount := in.Amount
		witnessIndex := in.WitnessIndex
		w.ID = in.ID
		w.Owner = in.Owner
		w.Amount = &amount
		w.AssetID = in.AssetID
		w.WitnessIndex = &witnessIndex
	case InputTypeContract:
		w.ContractID = in.ContractID
	default:
		return nil, fmt.Errorf("unsupported input type %d", in.Type)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes either input variant.
func (in *Input) UnmarshalJSON(data []byte) error {
	var w inputWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	in.Type = w.Type
	in.ID = w.ID
	in.Owner = w.Owner
	in.AssetID = w.AssetID
	in.ContractID = w.ContractID
	if w.Amount != nil {
		in.Amount = *w.Amount
	}
	if w.WitnessIndex != nil {
		in.WitnessIndex = *w.WitnessIndex
	}
	return nil
}

// Output is a transaction output. The populated fields depend on Type.
type Output struct {
	Type OutputType

	// Coin output fields (To and AssetID are shared with change outputs).
	To      string
	Amount  Amount
	AssetID string

	// Contract output fields.
	InputIndex int
}

type outputWire struct {
	Type       OutputType `json:"type"`
	To         string     `json:"to,omitempty"`
	Amount     *Amount    `json:"amount,omitempty"`
	AssetID    string     `json:"assetId,omitempty"`
	InputIndex *int       `json:"inputIndex,omitempty"`
}

// MarshalJSON emits only the fields relevant to the output's type.
func (out Output) MarshalJSON() ([]byte, error) {
	w := outputWire{Type: out.Type}
	switch out.Type {
	case OutputTypeCoin:
		amount := out.Amount
		w.To = out.To
		w.Amount = &amount
		w.AssetID = out.AssetID
	case OutputTypeChange:
		w.To = out.To
		w.AssetID = out.AssetID
	case OutputTypeContract:
		inputIndex := out.InputIndex
		w.InputIndex = &inputIndex
	case OutputTypeVariable:
	default:
		return nil, fmt.Errorf("unsupported output type %d", out.Type)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes any output variant.
func (out *Output) UnmarshalJSON(data []byte) error {
	var w outputWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out.Type = w.Type
	out.To = w.To
	out.AssetID = w.AssetID
	if w.Amount != nil {
		out.Amount = *w.Amount
	}
	if w.InputIndex != nil {
		out.InputIndex = *w.InputIndex
	}
	return nil
}

// Resource is a spendable unit of a given asset held at a given address, as
// reported by the ledger.
type Resource struct {
	ID      string
	Owner   string
	Amount  uint64
	AssetID string
}

// ScriptTransaction is the in-progress settlement transaction being assembled:
// ordered inputs, ordered outputs, witness list and fee parameters. It is
// mutated in place by the fill pipeline and is never shared across requests.
type ScriptTransaction struct {
	Script     string   `json:"script"`
	ScriptData string   `json:"scriptData"`
	GasLimit   Amount   `json:"gasLimit"`
	MaxFee     Amount   `json:"maxFee"`
	Inputs     []Input  `json:"inputs"`
	Outputs    []Output `json:"outputs"`
	Witnesses  []string `json:"witnesses"`
	Type       int      `json:"type"`
}

// NewScriptTransaction returns an empty script transaction.
func NewScriptTransaction() *ScriptTransaction {
	return &ScriptTransaction{
		Script:     "0x",
		ScriptData: "0x",
		Inputs:     []Input{},
		Outputs:    []Output{},
		Witnesses:  []string{},
	}
}

// Validate performs structural checks on a caller-supplied transaction:
// recognised input/output types, well-formed hex fields and witness indices
// that point into the witness list.
func (tx *ScriptTransaction) Validate() error {
	if tx.Type != 0 {
		return fmt.Errorf("unsupported transaction type %d", tx.Type)
	}
	if !hexutil.IsValid(tx.Script) || !hexutil.IsValid(tx.ScriptData) {
		return fmt.Errorf("script and scriptData must be 0x-hex encoded")
	}
	for i, in := range tx.Inputs {
		switch in.Type {
		case InputTypeCoin:
			if !hexutil.IsValid(in.ID) || !hexutil.IsValid(in.Owner) || !hexutil.IsValid(in.AssetID) {
				return fmt.Errorf("input %d: malformed coin input", i)
			}
			if in.WitnessIndex < 0 || in.WitnessIndex >= len(tx.Witnesses) {
				return fmt.Errorf("input %d: witness index %d out of range", i, in.WitnessIndex)
			}
		case InputTypeContract:
			if !hexutil.IsValid(in.ContractID) {
				return fmt.Errorf("input %d: malformed contract id", i)
			}
		default:
			return fmt.Errorf("input %d: unsupported type %d", i, in.Type)
		}
	}
	for i, out := range tx.Outputs {
		switch out.Type {
		case OutputTypeCoin, OutputTypeContract, OutputTypeChange, OutputTypeVariable:
		default:
			return fmt.Errorf("output %d: unsupported type %d", i, out.Type)
		}
	}
	for i, w := range tx.Witnesses {
		if !hexutil.IsValid(w) {
			return fmt.Errorf("witness %d: not 0x-hex encoded", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the transaction. The fill pipeline works on a
// clone so a failed attempt never leaves partial mutations on the request.
func (tx *ScriptTransaction) Clone() *ScriptTransaction {
	cp := *tx
	cp.Inputs = append([]Input(nil), tx.Inputs...)
	cp.Outputs = append([]Output(nil), tx.Outputs...)
	cp.Witnesses = append([]string(nil), tx.Witnesses...)
	return &cp
}

// AddResources appends coin inputs spending the given resources. All resources
// owned by the same address share one witness slot; a new empty slot is
// appended for owners not yet present among the coin inputs.
func (tx *ScriptTransaction) AddResources(resources []Resource) {
	for _, res := range resources {
		tx.Inputs = append(tx.Inputs, Input{
			Type:         InputTypeCoin,
			ID:           res.ID,
			Owner:        res.Owner,
			Amount:       Amount(res.Amount),
			AssetID:      res.AssetID,
			WitnessIndex: tx.witnessIndexForOwner(res.Owner),
		})
	}
}

func (tx *ScriptTransaction) witnessIndexForOwner(owner string) int {
	for _, in := range tx.Inputs {
		if in.Type == InputTypeCoin && in.Owner == owner {
			return in.WitnessIndex
		}
	}
	tx.Witnesses = append(tx.Witnesses, EmptyWitness)
	return len(tx.Witnesses) - 1
}

// AddCoinOutput appends a coin output paying amount of assetID to the address.
func (tx *ScriptTransaction) AddCoinOutput(to string, amount uint64, assetID string) {
	tx.Outputs = append(tx.Outputs, Output{
		Type:    OutputTypeCoin,
		To:      to,
		Amount:  Amount(amount),
		AssetID: assetID,
	})
}

// AddChangeOutput appends a change output returning unspent assetID to the
// address. The ledger fills in the amount on execution.
func (tx *ScriptTransaction) AddChangeOutput(to string, assetID string) {
	tx.Outputs = append(tx.Outputs, Output{
		Type:    OutputTypeChange,
		To:      to,
		AssetID: assetID,
	})
}

// ClearOutputs discards all outputs. The fill pipeline rebuilds the output
// list from scratch so caller-supplied outputs never survive into the
// settlement transaction.
func (tx *ScriptTransaction) ClearOutputs() {
	tx.Outputs = tx.Outputs[:0]
}

// CoinInputTotal sums the coin input amounts for the given asset.
func (tx *ScriptTransaction) CoinInputTotal(assetID string) uint64 {
	var total uint64
	for _, in := range tx.Inputs {
		if in.Type == InputTypeCoin && in.AssetID == assetID {
			total += uint64(in.Amount)
		}
	}
	return total
}

// WitnessIndexForAsset returns the witness slot bound to the first coin input
// spending the given asset, or false if no such input exists.
func (tx *ScriptTransaction) WitnessIndexForAsset(assetID string) (int, bool) {
	for _, in := range tx.Inputs {
		if in.Type == InputTypeCoin && in.AssetID == assetID {
			return in.WitnessIndex, true
		}
	}
	return 0, false
}

// SetWitness places a signature into an existing witness slot.
func (tx *ScriptTransaction) SetWitness(index int, witness string) error {
	if index < 0 || index >= len(tx.Witnesses) {
		return fmt.Errorf("witness index %d out of range (have %d slots)", index, len(tx.Witnesses))
	}
	tx.Witnesses[index] = witness
	return nil
}
