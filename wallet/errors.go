// Package wallet implements the flat-file, append-only RPOW store: a
// wallet is a bare concatenation of encoded rpow.Blob records, mutated
// under a whole-file advisory lock and never indexed.
package wallet

import "fmt"

type ErrorCode string

const (
	ErrOpenFailed ErrorCode = "OPEN_FAILED"
	ErrIO         ErrorCode = "IO_ERROR"
	ErrCorrupt    ErrorCode = "CORRUPT_BLOB"
)

// Error pairs a taxonomy code with a diagnostic message, the same shape as
// hashcash.Error and consensus.TxError before it.
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

// CodeOf extracts the ErrorCode from err, if it is a *Error.
func CodeOf(err error) (ErrorCode, bool) {
	e, ok := err.(*Error)
	if !ok || e == nil {
		return "", false
	}
	return e.Code, true
}
