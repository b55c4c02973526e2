// Package ledger is a diagnostic-only audit trail of past exchange
// attempts and the continuous generator's tuning state. It is never
// authoritative for wallet contents: no wallet decision reads it back, it
// only supports "status" reporting and the generator's
// across-restart genval memory.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketExchanges = []byte("exchanges")
	bucketGenerator = []byte("generator")
)

// Entry is one recorded exchange attempt.
type Entry struct {
	Time int64  `json:"time"`
	Kind string `json:"kind"`
	Ins  []int8 `json:"ins"`
	Outs []int8 `json:"outs"`
	OK   bool   `json:"ok"`
	Err  string `json:"err,omitempty"`
}

// GeneratorState is the continuous generator's persisted tuning state.
type GeneratorState struct {
	GenVal        int8  `json:"gen_val"`
	LastBatchSecs int64 `json:"last_batch_seconds"`
}

// Ledger wraps a bbolt database holding the exchanges and generator
// buckets.
type Ledger struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the ledger database at path, with the
// same bolt.Options{Timeout: 1s} as store.Open.
func Open(path string) (*Ledger, error) {
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("ledger: open bbolt: %w", err)
	}
	l := &Ledger{db: bdb}
	if err := l.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketExchanges, bucketGenerator} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", string(b), err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record appends one exchange-attempt entry, keyed by the bucket's
// monotonic sequence number. opErr may be nil for a successful attempt.
func (l *Ledger) Record(kind string, ins, outs []int8, opErr error) error {
	e := Entry{
		Time: time.Now().Unix(),
		Kind: kind,
		Ins:  ins,
		Outs: outs,
		OK:   opErr == nil,
	}
	if opErr != nil {
		e.Err = opErr.Error()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("ledger: encode entry: %w", err)
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketExchanges)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), b)
	})
}

// Recent returns up to n most-recently recorded entries, newest last.
func (l *Ledger) Recent(n int) ([]Entry, error) {
	var out []Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketExchanges)
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Cursor walked newest-to-oldest; reverse so callers see chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LoadGeneratorState returns the persisted generator tuning state, or the
// zero value with ok=false if none has been recorded yet.
func (l *Ledger) LoadGeneratorState() (state GeneratorState, ok bool, err error) {
	err = l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketGenerator).Get([]byte("state"))
		if v == nil {
			return nil
		}
		if uerr := json.Unmarshal(v, &state); uerr != nil {
			return uerr
		}
		ok = true
		return nil
	})
	return state, ok, err
}

// SaveGeneratorState persists the generator's current genval and last
// batch duration.
func (l *Ledger) SaveGeneratorState(state GeneratorState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("ledger: encode generator state: %w", err)
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGenerator).Put([]byte("state"), b)
	})
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		k[i] = byte(seq)
		seq >>= 8
	}
	return k
}
