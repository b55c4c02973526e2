package hashcash

import (
	"strconv"
	"strings"
)

// validStrChars are the characters allowed in the rand and counter fields:
// '.', '/', digits and letters. This client only ever emits the hex-digit
// subset, but parse accepts every character listed here.
const validStrChars = "./0123456789" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz"

// FormatVersion is the only Hashcash token version this package produces
// or accepts.
const FormatVersion = 1

// Fields are the seven colon-separated components of a Hashcash v1 token.
type Fields struct {
	Version  int
	Bits     int
	Stamp    string
	Resource string
	Ext      string
	Rand     string
	Counter  string
}

// Format joins fields into canonical token text.
func Format(f Fields) string {
	return strings.Join([]string{
		strconv.Itoa(f.Version),
		strconv.Itoa(f.Bits),
		f.Stamp,
		f.Resource,
		f.Ext,
		f.Rand,
		f.Counter,
	}, ":")
}

// Parse splits token text into its seven fields. It never mutates the
// input (a non-destructive split, unlike the original C client's strtok
// rewrite of ':' into NUL); the returned string fields are substrings of
// token.
// Returns an *Error with code ErrInvalid on any structural violation:
// wrong field count, a non-numeric version/bits, or a rand/counter byte
// outside validStrChars.
func Parse(token string) (Fields, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 7 {
		return Fields{}, newErr(ErrInvalid, "token must have exactly 7 fields")
	}

	version, err := strconv.Atoi(parts[0])
	if err != nil || version < 0 {
		return Fields{}, newErr(ErrInvalid, "bad version field")
	}
	bits, err := strconv.Atoi(parts[1])
	if err != nil || bits < 0 {
		return Fields{}, newErr(ErrInvalid, "bad bits field")
	}

	rnd, counter := parts[5], parts[6]
	if !allValidStrChars(rnd) || !allValidStrChars(counter) {
		return Fields{}, newErr(ErrInvalid, "rand/counter contain invalid characters")
	}

	return Fields{
		Version:  version,
		Bits:     bits,
		Stamp:    parts[2],
		Resource: parts[3],
		Ext:      parts[4],
		Rand:     rnd,
		Counter:  counter,
	}, nil
}

func allValidStrChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(validStrChars, s[i]) < 0 {
			return false
		}
	}
	return true
}
