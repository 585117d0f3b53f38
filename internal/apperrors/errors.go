// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure kind the API layer can map to a status and
// clients can branch on.
type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeForbidden           Code = "FORBIDDEN"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeInvalidPercentages  Code = "INVALID_PERCENTAGES"
	CodeAlreadyLive         Code = "ALREADY_LIVE"
	CodeEpisodeNotLive      Code = "EPISODE_NOT_LIVE"
	CodeMintingDisabled     Code = "MINTING_DISABLED"
	CodeSupplyExceeded      Code = "SUPPLY_EXCEEDED"
	CodePriceNotSet         Code = "PRICE_NOT_SET"
	CodeAlreadyPaid         Code = "ALREADY_PAID"
	CodeNothingToWithdraw   Code = "NOTHING_TO_WITHDRAW"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeSettlementFailed    Code = "SETTLEMENT_FAILED"
	CodeMintFailed          Code = "MINT_FAILED"
	CodeInternal            Code = "INTERNAL_ERROR"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the failure code from err, unwrapping as needed.
// Unknown errors report CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
