package settlement

import (
	"errors"
	"fmt"
)

// Code classifies a fill failure. Codes are part of the API contract: they are
// returned verbatim to callers and recorded on the audit trail.
type Code string

// Failure codes.
const (
	// CodeBackpressure: no funding identity available. The only
	// caller-retryable outcome; retry with backoff.
	CodeBackpressure Code = "backpressure"

	// CodeValidation: malformed or missing fields, unknown asset, schema
	// mismatch. Not retryable without fixing the input.
	CodeValidation Code = "validation_error"

	// CodeInvalidEscrowParameters: the escrow address does not match the
	// address derived from the request's own configuration. Possible tampering
	// or stale config; never silently corrected.
	CodeInvalidEscrowParameters Code = "invalid_escrow_parameters"

	// CodeInsufficientFunds: the caller's inputs do not cover the sell amount.
	CodeInsufficientFunds Code = "insufficient_funds"

	// CodeInsufficientEscrowFunds: no single escrow-owned resource covers the
	// sell amount.
	CodeInsufficientEscrowFunds Code = "insufficient_escrow_funds"

	// CodeInsufficientLiquidity: the solver's own balance cannot cover the
	// buy leg.
	CodeInsufficientLiquidity Code = "insufficient_liquidity"

	// CodeWitnessBinding: no input binds the solver's witness slot to the buy
	// asset. Internal invariant violation; fatal, never retried.
	CodeWitnessBinding Code = "witness_binding_failure"

	// CodeLedger: the ledger collaborator failed during estimation, funding,
	// signing or submission. The engine surfaces it without retrying.
	CodeLedger Code = "ledger_error"
)

// Error is a classified fill failure.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func failf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapf(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// CodeOf extracts the failure code from an error returned by FillOrder.
// Unclassified errors map to CodeLedger.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeLedger
}
