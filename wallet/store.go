package wallet

import (
	"fmt"
	"io"
	"os"
	"sort"

	"rpow.dev/client/rpow"
)

// Store is a handle on one wallet file. It owns the path, not the file
// descriptor: every operation opens, locks, acts, and closes in its own
// critical section, so no state is held between calls beyond the path
// itself.
type Store struct {
	path string
}

// Open returns a handle on the wallet file at path. The file is created
// (but left empty) if it does not yet exist; Open itself takes no lock.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, newErr(ErrOpenFailed, err.Error())
	}
	_ = f.Close()
	return &Store{path: path}, nil
}

// Append writes one blob to the end of the wallet file under an exclusive
// lock, flushing before the lock is released.
func (s *Store) Append(b rpow.Blob) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return newErr(ErrOpenFailed, err.Error())
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return newErr(ErrIO, fmt.Sprintf("lock: %v", err))
	}
	defer unlockFile(f)

	enc, err := rpow.Encode(b)
	if err != nil {
		return newErr(ErrCorrupt, err.Error())
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return newErr(ErrIO, err.Error())
	}
	if _, err := f.Write(enc); err != nil {
		return newErr(ErrIO, err.Error())
	}
	if err := f.Sync(); err != nil {
		return newErr(ErrIO, err.Error())
	}
	return nil
}

// TakeByValue scans the wallet from the start for the first blob whose
// Value == v, removes it by shifting the remainder of the file leftward
// over the hole and truncating, and returns it. It returns found=false
// without mutating the file if no blob of that value exists, and aborts
// without mutation on a corrupt trailing record (a deserialization
// failure terminates the scan, per the store's documented failure mode).
func (s *Store) TakeByValue(v int8) (blob rpow.Blob, found bool, err error) {
	f, err := os.OpenFile(s.path, os.O_RDWR, 0o600)
	if err != nil {
		if os.IsNotExist(err) {
			return rpow.Blob{}, false, nil
		}
		return rpow.Blob{}, false, newErr(ErrOpenFailed, err.Error())
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return rpow.Blob{}, false, newErr(ErrIO, fmt.Sprintf("lock: %v", err))
	}
	defer unlockFile(f)

	data, err := readAll(f)
	if err != nil {
		return rpow.Blob{}, false, newErr(ErrIO, err.Error())
	}

	pos := 0
	for pos < len(data) {
		b, consumed, derr := rpow.Decode(data[pos:])
		if derr != nil {
			// A corrupt trailing record: stop scanning, file untouched.
			return rpow.Blob{}, false, nil
		}
		if b.Value == v {
			rest := append(append([]byte{}, data[:pos]...), data[pos+consumed:]...)
			if err := rewriteTruncate(f, rest); err != nil {
				return rpow.Blob{}, false, newErr(ErrIO, err.Error())
			}
			return b, true, nil
		}
		pos += consumed
	}
	return rpow.Blob{}, false, nil
}

// CountByValue performs a linear scan and returns the number of blobs held
// at each denomination. A blob whose Value falls outside
// [rpow.ValueMin, rpow.ValueMax] is logged to stderr and skipped, not
// counted and not removed; a corrupt trailing record truncates the count,
// matching TakeByValue's scan-abort behavior.
func (s *Store) CountByValue() (map[int8]int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int8]int{}, nil
		}
		return nil, newErr(ErrOpenFailed, err.Error())
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return nil, newErr(ErrIO, fmt.Sprintf("lock: %v", err))
	}
	defer unlockFile(f)

	data, err := readAll(f)
	if err != nil {
		return nil, newErr(ErrIO, err.Error())
	}

	counts := map[int8]int{}
	pos := 0
	for pos < len(data) {
		b, consumed, derr := rpow.Decode(data[pos:])
		if derr != nil {
			break
		}
		if !b.ValueInRange() {
			fmt.Fprintf(os.Stderr, "wallet: skipping rpow with invalid value %d\n", b.Value)
			pos += consumed
			continue
		}
		counts[b.Value]++
		pos += consumed
	}
	return counts, nil
}

// Values returns the sorted set of denominations currently held with a
// non-zero count, a convenience built on CountByValue for the count
// command.
func (s *Store) Values() ([]int8, error) {
	counts, err := s.CountByValue()
	if err != nil {
		return nil, err
	}
	out := make([]int8, 0, len(counts))
	for v := range counts {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func readAll(f *os.File) ([]byte, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// rewriteTruncate overwrites f's contents with data and truncates the file
// to len(data), implementing the "shift the tail left over the hole"
// removal invariant without closing and reopening the descriptor (the
// lock is held throughout by the caller).
func rewriteTruncate(f *os.File, data []byte) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Truncate(int64(len(data))); err != nil {
		return err
	}
	return f.Sync()
}
