package keymgr

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/sha3"
)

type stubFetcher struct {
	pub []byte
	err error
}

func (s stubFetcher) GetKeys(ctx context.Context) ([]byte, error) {
	return s.pub, s.err
}

func TestFetchAndStoreThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.json")
	m := NewWithClock(path, func() int64 { return 1722441600 })

	pub := []byte("a-fake-signer-public-key")
	if err := m.FetchAndStore(context.Background(), stubFetcher{pub: pub}); err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}

	kf, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if kf.Version != KeyFileVersion {
		t.Fatalf("Version = %q, want %q", kf.Version, KeyFileVersion)
	}
	want := sha3.Sum256(pub)
	if kf.KeyIDHex != hex.EncodeToString(want[:]) {
		t.Fatalf("KeyIDHex = %s, want %s", kf.KeyIDHex, hex.EncodeToString(want[:]))
	}
	if string(kf.PubKey) != string(pub) {
		t.Fatal("PubKey mismatch after round trip")
	}
	if kf.FetchedAt != 1722441600 {
		t.Fatalf("FetchedAt = %d, want 1722441600", kf.FetchedAt)
	}
}

func TestFetchAndStoreRejectsEmptyKey(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "key.json"))
	err := m.FetchAndStore(context.Background(), stubFetcher{pub: nil})
	if err == nil {
		t.Fatal("expected error for empty public key")
	}
}

func TestLoadRejectsUnrecognizedVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.json")
	m := New(path)
	if err := m.FetchAndStore(context.Background(), stubFetcher{pub: []byte("k")}); err != nil {
		t.Fatalf("FetchAndStore: %v", err)
	}
	kf, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	kf.Version = "bogus"
	if err := writeAtomic(path, *kf); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unrecognized version")
	}
}
