// Package keymgr manages the signing service's public key file: fetching
// it once, fingerprinting it, and persisting it atomically so a later
// process start can trust it without a network round trip.
package keymgr

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
)

// KeyFileVersion is the only KeyFile.Version this package writes or
// accepts.
const KeyFileVersion = "RPOWKSv1"

// KeyFile is the persisted record of a trusted signer public key.
type KeyFile struct {
	Version   string `json:"version"`
	PubKey    []byte `json:"pubkey"`
	KeyIDHex  string `json:"key_id_hex"`
	FetchedAt int64  `json:"fetched_at_unix"`
}

// keyFetcher is the subset of exchange.Signer this package depends on; it
// is satisfied by exchange.Signer without an import cycle.
type keyFetcher interface {
	GetKeys(ctx context.Context) ([]byte, error)
}

// Manager owns the key file path.
type Manager struct {
	path string
	now  func() int64
}

// New returns a Manager rooted at path. now defaults to the wall clock at
// FetchAndStore time; tests may override it via NewWithClock.
func New(path string) *Manager {
	return &Manager{path: path, now: func() int64 { return time.Now().Unix() }}
}

// NewWithClock is New with an injectable clock, for deterministic tests.
func NewWithClock(path string, now func() int64) *Manager {
	return &Manager{path: path, now: now}
}

// FetchAndStore calls signer.GetKeys, computes the SHA3-256 fingerprint of
// the returned public key, and writes a KeyFile atomically (write-temp,
// fsync, rename, fsync directory — mirroring writeManifestAtomic).
func (m *Manager) FetchAndStore(ctx context.Context, signer keyFetcher) error {
	pub, err := signer.GetKeys(ctx)
	if err != nil {
		return fmt.Errorf("keymgr: GetKeys: %w", err)
	}
	if len(pub) == 0 {
		return fmt.Errorf("keymgr: signer returned an empty public key")
	}

	id := sha3.Sum256(pub)
	kf := KeyFile{
		Version:   KeyFileVersion,
		PubKey:    pub,
		KeyIDHex:  hex.EncodeToString(id[:]),
		FetchedAt: m.now(),
	}
	return writeAtomic(m.path, kf)
}

// Load reads and decodes the key file, rejecting an unrecognized Version.
func (m *Manager) Load() (*KeyFile, error) {
	b, err := os.ReadFile(m.path) // #nosec G304 -- path is operator-configured, not user input.
	if err != nil {
		return nil, fmt.Errorf("keymgr: read: %w", err)
	}
	var kf KeyFile
	if err := json.Unmarshal(b, &kf); err != nil {
		return nil, fmt.Errorf("keymgr: decode: %w", err)
	}
	if kf.Version != KeyFileVersion {
		return nil, fmt.Errorf("keymgr: unrecognized key file version %q", kf.Version)
	}
	return &kf, nil
}

func writeAtomic(path string, kf KeyFile) error {
	b, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("keymgr: encode: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(path)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) // #nosec G304 -- tmp path derived from operator-controlled KeyPath.
	if err != nil {
		return fmt.Errorf("keymgr: open tmp: %w", err)
	}
	_, werr := f.Write(b)
	serr := f.Sync()
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("keymgr: write tmp: %w", werr)
	}
	if serr != nil {
		return fmt.Errorf("keymgr: fsync tmp: %w", serr)
	}
	if cerr != nil {
		return fmt.Errorf("keymgr: close tmp: %w", cerr)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("keymgr: rename: %w", err)
	}

	d, err := os.Open(dir) // #nosec G304 -- dir derived from operator-controlled KeyPath.
	if err != nil {
		return fmt.Errorf("keymgr: fsync dir open: %w", err)
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return fmt.Errorf("keymgr: fsync dir: %w", err)
	}
	return d.Close()
}
