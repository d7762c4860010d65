package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/mtlnet/mtl/jsonx"
)

// Code identifies the first rule a transaction or block violated.
type Code string

const (
	// Catch-all
	CodeInternal Code = "internal_error"

	// Encoding errors
	CodeDecode Code = "decode_error"

	// Transaction validation errors
	CodeInvalidTransactionType   Code = "invalid_transaction_type"
	CodeTickerAlreadyInitialized Code = "ticker_already_initialized"
	CodeTickerNotInitialized     Code = "ticker_not_initialized"
	CodeInsufficientBalance      Code = "insufficient_balance"
	CodeInvalidNonce             Code = "invalid_nonce"

	// Transaction authentication errors
	CodeInvalidTransactionHash Code = "invalid_transaction_hash"
	CodeInvalidSignature       Code = "invalid_signature"

	// Block structure errors
	CodeInvalidBlockHash   Code = "invalid_block_hash"
	CodeInvalidBlockNumber Code = "invalid_block_number"
	CodeInvalidParentHash  Code = "invalid_parent_hash"

	// Balance arithmetic errors
	CodeBalanceOverflow  Code = "balance_overflow"
	CodeBalanceUnderflow Code = "balance_underflow"

	// Host surface errors
	CodeRateLimited Code = "rate_limited"
	CodeNotFound    Code = "not_found"
)

// LedgerError is a coded error suitable for wire transport: Error()
// renders the code and message as JSON.
type LedgerError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *LedgerError) Error() string {
	out, _ := jsonx.Marshal(LedgerError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(out)
}

// Is matches any LedgerError carrying the same code, so callers can use
// stdlib errors.Is against a sentinel built with New(code, "").
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	return ok && t.Code == e.Code
}

// New creates a LedgerError with the given code and message
func New(code Code, message string) *LedgerError {
	return &LedgerError{Code: code, Message: message}
}

// Newf creates a LedgerError with a formatted message
func Newf(code Code, format string, args ...interface{}) *LedgerError {
	return &LedgerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, unwrapping as needed. Errors that
// did not originate here report CodeInternal.
func CodeOf(err error) Code {
	var le *LedgerError
	if stderrors.As(err, &le) {
		return le.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
