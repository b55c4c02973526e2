package exchange

import (
	"context"
	"fmt"
	"os"

	"rpow.dev/client/rpow"
	"rpow.dev/client/wallet"
)

type ErrorCode string

const (
	ErrTokenNotFound ErrorCode = "TOKEN_NOT_FOUND"
	ErrRemote        ErrorCode = "REMOTE_ERROR"
)

type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// recorder is the subset of *ledger.Ledger the orchestrator depends on; a
// nil recorder disables A5 recording entirely.
type recorder interface {
	Record(kind string, ins, outs []int8, opErr error) error
}

// Orchestrator is C6: it owns a wallet handle, a Signer, and an optional
// diagnostic ledger.
type Orchestrator struct {
	Wallet *wallet.Store
	Signer Signer
	Ledger recorder
}

// Exchange takes the requested input denominations from the wallet, calls
// Signer.Exchange as the single atomic boundary with the server, and on
// success appends the returned blobs. A failed take or a failed signer
// call re-appends every blob already taken, in reverse order, so the
// wallet again holds the same blobs (re-appended at the end of the file).
// Once the signer call has succeeded, a failure to append a returned blob
// is reported on stderr and not rolled back.
func (o *Orchestrator) Exchange(ctx context.Context, ins, outs []int8) ([]rpow.Blob, error) {
	taken, err := o.takeAll(ins)
	if err != nil {
		o.record("exchange", ins, outs, err)
		return nil, err
	}

	newBlobs, err := o.Signer.Exchange(ctx, ins, outs)
	if err != nil {
		o.rollback(taken)
		wrapped := &Error{Code: ErrRemote, Msg: err.Error()}
		o.record("exchange", ins, outs, wrapped)
		return nil, wrapped
	}

	for _, b := range newBlobs {
		if aerr := o.Wallet.Append(b); aerr != nil {
			// The server has already committed the exchange; a failure to
			// persist a returned blob is reported but not rolled back —
			// re-taking already-consumed inputs would double-spend them
			// against a server that no longer recognizes them.
			fmt.Fprintf(os.Stderr, "exchange: failed to append returned blob value=%d: %v\n", b.Value, aerr)
		}
	}

	o.record("exchange", ins, outs, nil)
	return newBlobs, nil
}

// takeAll takes one blob per requested input value, in order. On the first
// miss it re-appends every blob already taken, in reverse order, and
// returns ErrTokenNotFound.
func (o *Orchestrator) takeAll(ins []int8) ([]rpow.Blob, error) {
	taken := make([]rpow.Blob, 0, len(ins))
	for _, v := range ins {
		blob, found, err := o.Wallet.TakeByValue(v)
		if err != nil {
			o.rollback(taken)
			return nil, err
		}
		if !found {
			o.rollback(taken)
			return nil, &Error{Code: ErrTokenNotFound, Msg: fmt.Sprintf("no blob of value %d", v)}
		}
		taken = append(taken, blob)
	}
	return taken, nil
}

// rollback re-appends every already-taken blob in reverse order.
func (o *Orchestrator) rollback(taken []rpow.Blob) {
	for i := len(taken) - 1; i >= 0; i-- {
		if err := o.Wallet.Append(taken[i]); err != nil {
			fmt.Fprintf(os.Stderr, "exchange: rollback append failed for value=%d: %v\n", taken[i].Value, err)
		}
	}
}

// record writes a best-effort A5 ledger entry. A ledger write failure is
// logged to stderr and never affects the exchange's own outcome; the
// wallet lock has already been released by this point (lock order:
// wallet before ledger, never the reverse).
func (o *Orchestrator) record(kind string, ins, outs []int8, opErr error) {
	if o.Ledger == nil {
		return
	}
	if err := o.Ledger.Record(kind, ins, outs, opErr); err != nil {
		fmt.Fprintf(os.Stderr, "exchange: ledger record failed: %v\n", err)
	}
}
