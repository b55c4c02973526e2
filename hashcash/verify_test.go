package hashcash

import (
	"context"
	"testing"
	"time"
)

func mustMint(t *testing.T, now time.Time, resource string, bits int) string {
	t.Helper()
	res, err := Mint(context.Background(), now, 6, resource, bits, 0, "")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return res.Token
}

func TestCheckAcceptsFreshValidToken(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	token := mustMint(t, now, "alice@example.com", 16)

	remaining, err := Check(token, CheckParams{
		Resource:       "alice@example.com",
		MatchKind:      MatchLiteral,
		Now:            now.Add(time.Hour),
		ValidityPeriod: int64(2 * timeDay),
		Grace:          int64(timeHour),
		RequiredBits:   16,
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if remaining <= 0 {
		t.Fatalf("remaining = %d, want > 0", remaining)
	}
}

func TestCheckOrderInvalidBeforeAnythingElse(t *testing.T) {
	_, err := Check("not-a-token", CheckParams{RequiredBits: 0})
	code, ok := CodeOf(err)
	if !ok || code != ErrInvalid {
		t.Fatalf("code = %v, want ErrInvalid", code)
	}
}

func TestCheckRejectsUnsupportedVersion(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	token := mustMint(t, now, "alice", 0)
	// Mutate the version field from 1 to 2.
	mutated := "2" + token[1:]
	_, err := Check(mutated, CheckParams{Now: now})
	code, ok := CodeOf(err)
	if !ok || code != ErrUnsupportedVers {
		t.Fatalf("code = %v, want ErrUnsupportedVers", code)
	}
}

func TestCheckRejectsWrongResource(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	token := mustMint(t, now, "alice@example.com", 0)
	_, err := Check(token, CheckParams{
		Resource:  "bob@example.com",
		MatchKind: MatchLiteral,
		Now:       now,
	})
	code, ok := CodeOf(err)
	if !ok || code != ErrWrongResource {
		t.Fatalf("code = %v, want ErrWrongResource", code)
	}
}

func TestCheckRejectsInsufficientBits(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	token := mustMint(t, now, "alice@example.com", 0)
	_, err := Check(token, CheckParams{Now: now, RequiredBits: 40})
	code, ok := CodeOf(err)
	if !ok || code != ErrInsufficientBits {
		t.Fatalf("code = %v, want ErrInsufficientBits", code)
	}
}

func TestCheckDetectsExpiry(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	token := mustMint(t, now, "alice@example.com", 0)
	_, err := Check(token, CheckParams{
		Now:            now.Add(3 * 24 * time.Hour),
		ValidityPeriod: int64(timeDay),
		Grace:          0,
	})
	code, ok := CodeOf(err)
	if !ok || code != ErrExpired {
		t.Fatalf("code = %v, want ErrExpired", code)
	}
}

func TestCheckDetectsValidInFuture(t *testing.T) {
	future := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	token := mustMint(t, future, "alice@example.com", 0)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	_, err := Check(token, CheckParams{
		Now:            now,
		ValidityPeriod: int64(timeDay),
		Grace:          0,
	})
	code, ok := CodeOf(err)
	if !ok || code != ErrValidInFuture {
		t.Fatalf("code = %v, want ErrValidInFuture", code)
	}
}

func TestCountBitsMatchesMintedStrength(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	token := mustMint(t, now, "alice@example.com", 12)
	if got := CountBits(token); got < 12 {
		t.Fatalf("CountBits = %d, want >= 12", got)
	}
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, str string
		want         bool
	}{
		{"alice", "alice", true},
		{"al*ce", "alice", true},
		{"al*ce", "alabaster-dice", true},
		{"al*ce", "bob", false},
		{"*", "anything", true},
		{"a*b*c", "axxbyyc", true},
		{"a*b*c", "axxbyy", false},
	}
	for _, c := range cases {
		if got := globMatch(c.pattern, c.str); got != c.want {
			t.Fatalf("globMatch(%q, %q) = %v, want %v", c.pattern, c.str, got, c.want)
		}
	}
}

func TestEmailWildcardMatch(t *testing.T) {
	cases := []struct {
		pattern, candidate string
		want               bool
	}{
		{"*@example.com", "alice@example.com", true},
		{"*@example.com", "alice@other.com", false},
		{"alice@*.com", "alice@example.com", true},
		{"alice", "alice", true},
	}
	for _, c := range cases {
		if got := emailWildcardMatch(c.pattern, c.candidate); got != c.want {
			t.Fatalf("emailWildcardMatch(%q, %q) = %v, want %v", c.pattern, c.candidate, got, c.want)
		}
	}
}

func TestRegexpMatch(t *testing.T) {
	ok, err := regexpMatch(`alice@.*\.com`, "alice@example.com")
	if err != nil {
		t.Fatalf("regexpMatch: %v", err)
	}
	if !ok {
		t.Fatal("expected match")
	}

	_, err = regexpMatch(`(unterminated`, "alice")
	if err == nil {
		t.Fatal("expected a compile error for unterminated group")
	}
}

func TestCheckSurfacesRegexpError(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	token := mustMint(t, now, "alice@example.com", 0)
	_, err := Check(token, CheckParams{
		Resource:  "(unterminated",
		MatchKind: MatchRegexp,
		Now:       now,
	})
	code, ok := CodeOf(err)
	if !ok || code != ErrRegexpError {
		t.Fatalf("code = %v, want ErrRegexpError", code)
	}
}
