package hashcash

import (
	"context"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // SHA-1 is the Hashcash v1 wire format, not a security primitive choice.
	"encoding"
	"fmt"
	"math/big"
	"time"
)

// counterTierWidths are the hex-digit widths of the three successive
// search tiers: 8 hex digits (32 bits), 16 (64 bits), 24 (96 bits). A
// tier is exhausted before the next is tried.
var counterTierWidths = [3]int{8, 16, 24}

const maxBits = 8 * sha1.Size // 160

// A single Mint call gives up with ErrTooManyTries only after all three
// tiers are exhausted; that is effectively unreachable in practice (16^24
// evaluations at the 96-bit tier alone).

// Result is the outcome of a successful mint: the token text and the
// number of SHA-1 evaluations it took to find it.
type Result struct {
	Token string
	Tries uint64
}

// Mint searches for a Hashcash v1 token whose SHA-1 digest has at least
// bits leading zero bits, rooted at a resource name and a UTC timestamp
// truncated to width digits. anonPeriod, if non-zero, adds a uniform
// random offset in [min(0,anonPeriod), max(0,anonPeriod)] seconds to now
// before truncation (the historical client gated this behind a disabled
// #if 0; this implementation always honors it). ctx is polled inside each
// counter tier, once every 65536 outer counter values; the 16-way inner
// loop is never interrupted.
func Mint(ctx context.Context, now time.Time, width int, resource string, bits int, anonPeriod int64, ext string) (Result, error) {
	if resource == "" {
		return Result{}, newErr(ErrInternal, "resource must not be empty")
	}
	if now.Unix() < 0 {
		return Result{}, newErr(ErrInvalidTime, "now must not precede the epoch")
	}
	if bits > maxBits {
		return Result{}, newErr(ErrInvalidTokLen, fmt.Sprintf("bits %d exceeds %d", bits, maxBits))
	}
	if width != 6 && width != 10 && width != 12 {
		return Result{}, newErr(ErrInvalidTimeWidth, fmt.Sprintf("width %d not in {6,10,12}", width))
	}

	randBytes := make([]byte, 8) // two 32-bit words, 16 lowercase hex digits once encoded.
	if _, err := rand.Read(randBytes); err != nil {
		return Result{}, newErr(ErrRNGFailed, err.Error())
	}

	offset, err := anonOffset(anonPeriod)
	if err != nil {
		return Result{}, err
	}
	mintTime := now.Add(time.Duration(offset) * time.Second)
	mintTime = RoundOff(mintTime, 12-width)
	stamp := ToStamp(mintTime, width)

	prefix := fmt.Sprintf("%d:%d:%s:%s:%s:%s:", FormatVersion, bits, stamp, resource, ext, randHexOf(randBytes))

	var triesBefore uint64
	for _, tierWidth := range counterTierWidths {
		token, tries, found, err := search(ctx, prefix, bits, tierWidth)
		if err != nil {
			return Result{}, err
		}
		if found {
			return Result{Token: token, Tries: triesBefore + tries}, nil
		}
		triesBefore += tries
	}
	return Result{}, newErr(ErrTooManyTries, "exhausted 96-bit search space")
}

func randHexOf(b []byte) string {
	return fmt.Sprintf("%x", b)
}

// anonOffset draws a uniform integer offset in [min(0,p), max(0,p)].
func anonOffset(p int64) (int64, error) {
	if p == 0 {
		return 0, nil
	}
	lo, hi := p, int64(0)
	if p > 0 {
		lo, hi = 0, p
	}
	span := hi - lo + 1
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, newErr(ErrRNGFailed, err.Error())
	}
	return lo + n.Int64(), nil
}

// search performs one tier of the counter search: counterWidth hex digits,
// iterated as an (counterWidth-1)-digit outer prefix times a 16-way inner
// loop over the final hex nibble. For each outer value it computes a SHA-1
// state over prefix+outerHex once (the precompute), then clones that state
// 16 times, appending one of the 16 possible trailing nibbles each time —
// the "clone, feed one byte, finalize" optimization is what makes the
// inner loop ~16x cheaper than hashing the full string per candidate.
func search(ctx context.Context, prefix string, bits int, counterWidth int) (token string, tries uint64, found bool, err error) {
	outerDigits := counterWidth - 1
	outer := big.NewInt(0)
	limit := new(big.Int).Exp(big.NewInt(16), big.NewInt(int64(outerDigits)), nil)

	checkEvery := 1 << 16 // poll ctx every 65536 outer iterations to bound overhead
	iterCount := 0

	for outer.Cmp(limit) < 0 {
		if ctx != nil {
			iterCount++
			if iterCount%checkEvery == 0 {
				select {
				case <-ctx.Done():
					return "", tries, false, ctx.Err()
				default:
				}
			}
		}

		outerHex := formatHexDigits(outer, outerDigits)
		base := prefix + outerHex

		h := sha1.New() //nolint:gosec
		h.Write([]byte(base))
		state, merr := h.(encoding.BinaryMarshaler).MarshalBinary()
		if merr != nil {
			return "", tries, false, newErr(ErrInternal, merr.Error())
		}

		for j := 0; j < 16; j++ {
			clone := sha1.New() //nolint:gosec
			if uerr := clone.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); uerr != nil {
				return "", tries, false, newErr(ErrInternal, uerr.Error())
			}
			lastChar := hexDigits[j]
			clone.Write([]byte{lastChar})
			digest := clone.Sum(nil)
			tries++

			if matchesBits(digest, bits) {
				return base + string(lastChar), tries, true, nil
			}
		}

		outer.Add(outer, big.NewInt(1))
	}
	return "", tries, false, nil
}

const hexDigits = "0123456789abcdef"

func formatHexDigits(v *big.Int, digits int) string {
	s := v.Text(16)
	if len(s) >= digits {
		return s[len(s)-digits:]
	}
	pad := make([]byte, digits-len(s))
	for i := range pad {
		pad[i] = '0'
	}
	return string(pad) + s
}

// matchesBits reports whether digest's first bits bits are all zero,
// most-significant-bit first within each byte. bits <= 0 always matches;
// bits > len(digest)*8 never matches.
func matchesBits(digest []byte, bits int) bool {
	if bits <= 0 {
		return true
	}
	if bits > len(digest)*8 {
		return false
	}
	fullBytes := bits / 8
	for i := 0; i < fullBytes; i++ {
		if digest[i] != 0 {
			return false
		}
	}
	rem := bits % 8
	if rem == 0 {
		return true
	}
	mask := byte(0xFF << uint(8-rem))
	return digest[fullBytes]&mask == 0
}
