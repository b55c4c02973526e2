// Package signertest provides an in-memory exchange.Signer for C6/C7 unit
// tests, including the ability to fail the Nth call so callers can
// exercise the rollback invariant.
package signertest

import (
	"context"
	"fmt"

	"rpow.dev/client/exchange"
	"rpow.dev/client/rpow"
)

// Signer is a mock exchange.Signer. It does not validate value
// conservation (that is the real server's job); it simply mints one blob
// per requested output denomination.
type Signer struct {
	PubKey []byte

	calls    int
	FailAt   int // FailAt == 0 disables failure; call N fails when calls == FailAt.
	FailWith error

	Calls []Call
}

// Call records one Exchange invocation for assertions in tests.
type Call struct {
	Ins  []int8
	Outs []int8
}

func New() *Signer {
	return &Signer{PubKey: []byte("mock-signer-pubkey")}
}

func (s *Signer) Exchange(ctx context.Context, ins, outs []int8) ([]rpow.Blob, error) {
	s.calls++
	s.Calls = append(s.Calls, Call{Ins: append([]int8{}, ins...), Outs: append([]int8{}, outs...)})

	if s.FailAt != 0 && s.calls == s.FailAt {
		if s.FailWith != nil {
			return nil, s.FailWith
		}
		return nil, fmt.Errorf("signertest: call %d configured to fail", s.calls)
	}

	blobs := make([]rpow.Blob, len(outs))
	for i, v := range outs {
		blobs[i] = rpow.Blob{
			Value:   v,
			ID:      []byte(fmt.Sprintf("mock-%d-%d", s.calls, i)),
			Payload: []byte("mock-signed-payload"),
		}
	}
	return blobs, nil
}

func (s *Signer) GetKeys(ctx context.Context) ([]byte, error) {
	return s.PubKey, nil
}

func (s *Signer) GetStat(ctx context.Context) (exchange.Status, error) {
	return exchange.Status{ExchangesDone: uint64(s.calls)}, nil
}
