package hashcash

import (
	"crypto/sha1" //nolint:gosec // Hashcash v1 wire format fixes SHA-1, not a security choice.
	"regexp"
	"strings"
	"time"
)

// MatchKind selects how a token's resource field is compared against a
// caller-supplied pattern.
type MatchKind int

const (
	MatchLiteral MatchKind = iota
	MatchWildcard
	MatchRegexp
)

// CountBits returns the number of leading zero bits of SHA-1(token),
// most-significant-bit first within each byte.
func CountBits(token string) int {
	digest := sha1.Sum([]byte(token)) //nolint:gosec
	count := 0
	for _, b := range digest {
		if b == 0 {
			count += 8
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if (b>>uint(bit))&1 != 0 {
				return count
			}
			count++
		}
		break
	}
	return count
}

// ValidityResult names the special value ValidFor can return on success.
// A not-yet-valid or expired token is reported through an *Error with code
// ErrValidInFuture or ErrExpired, never through a negative return value.
type ValidityResult int

const (
	ValidForever ValidityResult = 0
)

// ValidFor mirrors hashcash_valid_for: it returns (secondsRemaining, nil)
// when the token is currently valid or valid forever (secondsRemaining==0
// meaning ValidForever), and a non-nil *Error with code ErrValidInFuture
// or ErrExpired otherwise.
func ValidFor(tokenTime time.Time, validityPeriod, grace int64, now time.Time) (int64, error) {
	if validityPeriod == 0 {
		return int64(ValidForever), nil
	}
	tokenUnix := tokenTime.Unix()
	nowUnix := now.Unix()

	if tokenUnix > nowUnix+grace {
		return 0, newErr(ErrValidInFuture, "token time is in the future beyond the grace window")
	}
	expiry := tokenUnix + validityPeriod
	if remaining := expiry + grace - nowUnix; remaining > 0 {
		return remaining, nil
	}
	return 0, newErr(ErrExpired, "token has expired")
}

// CheckParams bundles the policy a token is checked against.
type CheckParams struct {
	Resource       string
	MatchKind      MatchKind
	Now            time.Time
	ValidityPeriod int64
	Grace          int64
	RequiredBits   int
}

// Check parses token, validates its version, matches its resource field
// against params.Resource under params.MatchKind, checks its effective bit
// count against params.RequiredBits, and finally its validity window. The
// checks run in that order, returning the first applicable error:
// ErrInvalid, ErrUnsupportedVers, ErrWrongResource/ErrRegexpError,
// ErrInsufficientBits, then whatever ValidFor returns. On success it
// returns the same value ValidFor would (remaining seconds, or
// ValidForever).
func Check(token string, params CheckParams) (int64, error) {
	fields, err := Parse(token)
	if err != nil {
		return 0, err
	}
	tokenTime, ok := FromStamp(fields.Stamp, params.Now)
	if !ok {
		return 0, newErr(ErrInvalid, "malformed stamp")
	}

	if fields.Version != FormatVersion {
		return 0, newErr(ErrUnsupportedVers, "unsupported token version")
	}

	if params.Resource != "" {
		matched, err := resourceMatch(params.MatchKind, fields.Resource, params.Resource)
		if err != nil {
			return 0, newErr(ErrRegexpError, err.Error())
		}
		if !matched {
			return 0, newErr(ErrWrongResource, "resource does not match")
		}
	}

	counted := CountBits(token)
	effective := counted
	if fields.Bits < effective {
		effective = fields.Bits
	}
	if effective < params.RequiredBits {
		return 0, newErr(ErrInsufficientBits, "effective bits below requirement")
	}

	return ValidFor(tokenTime, params.ValidityPeriod, params.Grace, params.Now)
}

func resourceMatch(kind MatchKind, tokenResource, pattern string) (bool, error) {
	switch kind {
	case MatchLiteral:
		return tokenResource == pattern, nil
	case MatchWildcard:
		return emailWildcardMatch(pattern, tokenResource), nil
	case MatchRegexp:
		return regexpMatch(pattern, tokenResource)
	default:
		return false, nil
	}
}

// regexpMatch binds an unanchored pattern by prepending '^' and appending
// '$' if the caller did not, matching the historical client's POSIX
// regexp binding behavior, then compiles and matches with Go's RE2 engine.
func regexpMatch(pattern, s string) (bool, error) {
	bound := pattern
	if !strings.HasPrefix(bound, "^") {
		bound = "^" + bound
	}
	if !strings.HasSuffix(bound, "$") {
		bound = bound + "$"
	}
	re, err := regexp.Compile(bound)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

// emailWildcardMatch implements the email-style glob match: the pattern
// and candidate are each split on '@' (pattern may omit '@'; if it has
// one, the candidate must too). The user part is glob-matched; the domain
// part is glob-matched label by label on '.', and both sides must have
// the same number of labels.
func emailWildcardMatch(pattern, candidate string) bool {
	patUser, patDom, patHasAt := splitAt(pattern)
	candUser, candDom, candHasAt := splitAt(candidate)

	if patHasAt && !candHasAt {
		return false
	}
	if !globMatch(patUser, candUser) {
		return false
	}
	if !patHasAt {
		return true
	}

	patLabels := strings.Split(patDom, ".")
	candLabels := strings.Split(candDom, ".")
	if len(patLabels) != len(candLabels) {
		return false
	}
	for i := range patLabels {
		if !globMatch(patLabels[i], candLabels[i]) {
			return false
		}
	}
	return true
}

func splitAt(s string) (user, domain string, hasAt bool) {
	idx := strings.IndexByte(s, '@')
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

// globMatch implements '*' meaning "zero or more characters": the pattern
// is tokenized on '*'; the first token must prefix str, the last token
// must suffix str, and the remaining tokens must occur in order,
// non-overlapping, somewhere in between.
func globMatch(pattern, str string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == str
	}
	tokens := strings.Split(pattern, "*")
	first, last, middle := tokens[0], tokens[len(tokens)-1], tokens[1:len(tokens)-1]

	if !strings.HasPrefix(str, first) {
		return false
	}
	if !strings.HasSuffix(str, last) {
		return false
	}
	pos := len(first)
	end := len(str) - len(last)
	if pos > end {
		// first/last overlap in the region they each must occupy.
		return first == "" && last == "" && len(tokens) == 2
	}
	window := str[pos:end]
	for _, tok := range middle {
		if tok == "" {
			continue
		}
		idx := strings.Index(window, tok)
		if idx < 0 {
			return false
		}
		window = window[idx+len(tok):]
	}
	return true
}
