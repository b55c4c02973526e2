package wallet

import (
	"path/filepath"
	"testing"

	"rpow.dev/client/rpow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "wallet.dat"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestAppendAndCountByValue(t *testing.T) {
	s := openTestStore(t)
	for _, v := range []int8{1, 1, 1, 2} {
		if err := s.Append(rpow.Blob{Value: v, ID: []byte("x"), Payload: []byte("y")}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	counts, err := s.CountByValue()
	if err != nil {
		t.Fatalf("CountByValue: %v", err)
	}
	if counts[1] != 3 || counts[2] != 1 {
		t.Fatalf("counts = %+v, want {1:3, 2:1}", counts)
	}
}

func TestTakeByValueOnEmptyWalletReturnsNoneWithoutMutation(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.TakeByValue(5)
	if err != nil {
		t.Fatalf("TakeByValue: %v", err)
	}
	if found {
		t.Fatal("expected found=false on empty wallet")
	}
	counts, err := s.CountByValue()
	if err != nil {
		t.Fatalf("CountByValue: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected no blobs, got %+v", counts)
	}
}

func TestTakeByValueRemovesExactlyOneAndPreservesOthers(t *testing.T) {
	s := openTestStore(t)
	blobs := []rpow.Blob{
		{Value: 1, ID: []byte("a"), Payload: []byte("A")},
		{Value: 2, ID: []byte("b"), Payload: []byte("B")},
		{Value: 1, ID: []byte("c"), Payload: []byte("C")},
	}
	for _, b := range blobs {
		if err := s.Append(b); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	taken, found, err := s.TakeByValue(1)
	if err != nil {
		t.Fatalf("TakeByValue: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if string(taken.ID) != "a" {
		t.Fatalf("expected first matching blob (id=a), got id=%s", taken.ID)
	}

	counts, err := s.CountByValue()
	if err != nil {
		t.Fatalf("CountByValue: %v", err)
	}
	if counts[1] != 1 || counts[2] != 1 {
		t.Fatalf("counts after take = %+v, want {1:1, 2:1}", counts)
	}

	// The remaining value-1 blob must be the untaken one.
	remaining, found, err := s.TakeByValue(1)
	if err != nil || !found {
		t.Fatalf("TakeByValue second: found=%v err=%v", found, err)
	}
	if string(remaining.ID) != "c" {
		t.Fatalf("expected remaining blob id=c, got %s", remaining.ID)
	}
}

func TestAppendTakeMultisetInvariant(t *testing.T) {
	s := openTestStore(t)
	appended := []rpow.Blob{
		{Value: 3, ID: []byte("1")},
		{Value: 3, ID: []byte("2")},
		{Value: 4, ID: []byte("3")},
	}
	for _, b := range appended {
		if err := s.Append(b); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	taken, found, err := s.TakeByValue(4)
	if err != nil || !found {
		t.Fatalf("TakeByValue: found=%v err=%v", found, err)
	}
	if err := s.Append(taken); err != nil {
		t.Fatalf("re-Append: %v", err)
	}

	counts, err := s.CountByValue()
	if err != nil {
		t.Fatalf("CountByValue: %v", err)
	}
	if counts[3] != 2 || counts[4] != 1 {
		t.Fatalf("counts = %+v, want {3:2, 4:1}", counts)
	}
}

func TestCountByValueSkipsOutOfRangeWithoutRemoving(t *testing.T) {
	s := openTestStore(t)
	blobs := []rpow.Blob{
		{Value: 1, ID: []byte("a")},
		{Value: rpow.ValueMax + 5, ID: []byte("bad")},
		{Value: 2, ID: []byte("b")},
	}
	for _, b := range blobs {
		if err := s.Append(b); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	counts, err := s.CountByValue()
	if err != nil {
		t.Fatalf("CountByValue: %v", err)
	}
	if counts[1] != 1 || counts[2] != 1 {
		t.Fatalf("counts = %+v, want {1:1, 2:1}", counts)
	}
	if _, ok := counts[rpow.ValueMax+5]; ok {
		t.Fatalf("out-of-range value must not be counted, got %+v", counts)
	}

	// The out-of-range blob must still be on disk: a count-time skip is not
	// a removal.
	if _, found, err := s.TakeByValue(rpow.ValueMax + 5); err != nil || !found {
		t.Fatalf("expected the skipped blob still present: found=%v err=%v", found, err)
	}
}

func TestValuesSorted(t *testing.T) {
	s := openTestStore(t)
	for _, v := range []int8{5, -2, 0, 3} {
		if err := s.Append(rpow.Blob{Value: v}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	values, err := s.Values()
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	want := []int8{-2, 0, 3, 5}
	if len(values) != len(want) {
		t.Fatalf("values = %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("values = %v, want %v", values, want)
		}
	}
}
