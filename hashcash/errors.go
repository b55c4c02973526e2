// Package hashcash implements the Hashcash v1 stamp format: minting a
// partial SHA-1 preimage, formatting/parsing its textual token, and
// verifying a token against a resource, bit, and validity policy.
package hashcash

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrInvalidTokLen     ErrorCode = "INVALID_TOK_LEN"
	ErrRNGFailed         ErrorCode = "RNG_FAILED"
	ErrInvalidTime       ErrorCode = "INVALID_TIME"
	ErrTooManyTries      ErrorCode = "TOO_MANY_TRIES"
	ErrInvalidTimeWidth  ErrorCode = "INVALID_TIME_WIDTH"
	ErrValidInFuture     ErrorCode = "VALID_IN_FUTURE"
	ErrExpired           ErrorCode = "EXPIRED"
	ErrInvalid           ErrorCode = "INVALID"
	ErrWrongResource     ErrorCode = "WRONG_RESOURCE"
	ErrInsufficientBits  ErrorCode = "INSUFFICIENT_BITS"
	ErrUnsupportedVers   ErrorCode = "UNSUPPORTED_VERSION"
	ErrRegexpError       ErrorCode = "REGEXP_ERROR"
	ErrInternal          ErrorCode = "INTERNAL_ERROR"
)

// Error carries a taxonomy code alongside a human-readable message, in the
// same shape as consensus.TxError in the node package this client grew out
// of: a short code for programmatic dispatch, a message for diagnostics.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// CodeOf extracts the ErrorCode from err, if it is (or wraps) an *Error.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if err == nil {
		return "", false
	}
	if !errors.As(err, &e) || e == nil {
		return "", false
	}
	return e.Code, true
}
