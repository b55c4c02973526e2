package hashcash

import (
	"context"
	"testing"
	"time"
)

func TestMintZeroBitsSucceedsOnFirstTrial(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	res, err := Mint(context.Background(), now, 6, "alice@example.com", 0, 0, "")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if res.Tries != 1 {
		t.Fatalf("Tries = %d, want 1 for bits=0", res.Tries)
	}
	if _, err := Parse(res.Token); err != nil {
		t.Fatalf("minted token does not parse: %v", err)
	}
}

func TestMintProducesSufficientBits(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	const bits = 16
	res, err := Mint(context.Background(), now, 6, "bob@example.com", bits, 0, "")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if got := CountBits(res.Token); got < bits {
		t.Fatalf("CountBits(token) = %d, want >= %d", got, bits)
	}
}

func TestMintRejectsBadWidth(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	if _, err := Mint(context.Background(), now, 7, "alice", 0, 0, ""); err == nil {
		t.Fatal("expected error for unsupported width")
	}
}

func TestMintRejectsEmptyResource(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	if _, err := Mint(context.Background(), now, 6, "", 0, 0, ""); err == nil {
		t.Fatal("expected error for empty resource")
	}
}

func TestMintHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	// A high bit count at the first tier forces enough outer iterations that
	// the context gets polled before the 8-hex-digit tier is exhausted.
	_, err := Mint(ctx, now, 6, "alice@example.com", 28, 0, "")
	if err == nil {
		t.Fatal("expected context cancellation to surface as an error")
	}
}

func TestSearchFindsMatchWithinTier(t *testing.T) {
	token, tries, found, err := search(context.Background(), "1:0:260731:alice:::", 0, 8)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !found {
		t.Fatal("expected a match for bits=0")
	}
	if tries != 1 {
		t.Fatalf("tries = %d, want 1", tries)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
}

func TestMatchesBits(t *testing.T) {
	zero := make([]byte, 20)
	if !matchesBits(zero, 160) {
		t.Fatal("all-zero digest should match 160 bits")
	}
	nonzero := make([]byte, 20)
	nonzero[2] = 0x01
	if matchesBits(nonzero, 24) {
		t.Fatal("digest with a set bit in the third byte should not match 24 bits")
	}
	if !matchesBits(nonzero, 20) {
		t.Fatal("digest should match a requirement shorter than the first set bit")
	}
}
