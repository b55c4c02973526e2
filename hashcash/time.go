package hashcash

import (
	"time"
)

// Time width policy. Widths below are the only ones to_stamp/from_stamp
// accept; the Mint entry point further restricts the widths it will search
// at (see mint.go).
const (
	timeMinute = 60
	timeHour   = 60 * timeMinute
	timeDay    = 24 * timeHour
	timeYear   = 365 * timeDay
	timeMonth  = timeYear / 12
)

// ValidityToWidth returns the coarsest stamp width that still bounds a
// validity period of validityPeriod seconds, per the table in §3 of the
// spec this package implements. validityPeriod == 0 (forever) uses the
// default width of 6 (YYMMDD).
func ValidityToWidth(validityPeriod int64) int {
	if validityPeriod < 0 {
		return 0
	}
	if validityPeriod == 0 {
		return 6
	}
	switch {
	case validityPeriod < 2*timeMinute:
		return 12
	case validityPeriod < 2*timeHour:
		return 10
	case validityPeriod < 2*timeDay:
		return 8
	case validityPeriod < 2*timeMonth:
		return 6
	case validityPeriod < 2*timeYear:
		return 4
	default:
		return 2
	}
}

// RoundOff zeroes the time components finer than digits, following the
// fallthrough cascade of the original switch: 10 clears the month onward,
// 8 the day onward, 6 the hour onward, 4 the minute onward, 2 the second.
// Any other digits value is a no-op. Operates purely on a UTC calendar
// breakdown; it never touches process environment (see SPEC_FULL.md).
func RoundOff(t time.Time, digits int) time.Time {
	u := t.UTC()
	y, mo, d := u.Date()
	hh, mm, ss := u.Clock()

	switch digits {
	case 10:
		mo = time.January
		fallthrough
	case 8:
		d = 1
		fallthrough
	case 6:
		hh = 0
		fallthrough
	case 4:
		mm = 0
		fallthrough
	case 2:
		ss = 0
	default:
		return t
	}
	return time.Date(y, mo, d, hh, mm, ss, 0, time.UTC)
}

// ToStamp formats t as a truncated UTC stamp YY[MM[DD[hh[mm[ss]]]]],
// stopping after length digits (length/2 pairs). length must be even, in
// [2,12]; any other
// value returns the empty string.
func ToStamp(t time.Time, length int) string {
	if length < 2 || length > 12 || length%2 != 0 {
		return ""
	}
	u := t.UTC()
	y, mo, d := u.Date()
	hh, mm, ss := u.Clock()

	parts := []int{y % 100, int(mo), d, hh, mm, ss}
	n := length / 2
	out := make([]byte, 0, length)
	for i := 0; i < n; i++ {
		out = appendTwoDigits(out, parts[i])
	}
	return string(out)
}

func appendTwoDigits(dst []byte, v int) []byte {
	if v < 0 {
		v = 0
	}
	v %= 100
	return append(dst, byte('0'+v/10), byte('0'+v%10))
}

// FromStamp parses a stamp of even length 2..12 into an absolute UTC time.
// A two-digit year is resolved to the calendar century nearest refNow,
// adjusted by a full century if that would place the result more than 50
// years away. Components beyond the supplied length default to the start
// of the period (month=January, day=1, hour/min/sec=0). Returns ok=false
// on malformed input (odd length, out-of-range length, non-digit bytes, or
// a calendar field out of its valid range).
func FromStamp(s string, refNow time.Time) (t time.Time, ok bool) {
	n := len(s)
	if n < 2 || n > 12 || n%2 != 0 {
		return time.Time{}, false
	}

	digitPair := func(i int) (int, bool) {
		if i+1 >= len(s) {
			return 0, false
		}
		c0, c1 := s[i], s[i+1]
		if c0 < '0' || c0 > '9' || c1 < '0' || c1 > '9' {
			return 0, false
		}
		return int(c0-'0')*10 + int(c1-'0'), true
	}

	yy, ok := digitPair(0)
	if !ok {
		return time.Time{}, false
	}
	year := resolveCentury(yy, refNow)

	month := 1
	day := 1
	hour, minute, second := 0, 0, 0

	if n > 2 {
		mo, ok := digitPair(2)
		if !ok || mo < 1 || mo > 12 {
			return time.Time{}, false
		}
		month = mo
	}
	if n > 4 {
		dd, ok := digitPair(4)
		if !ok || dd < 1 || dd > 31 {
			return time.Time{}, false
		}
		day = dd
	}
	if n > 6 {
		hh, ok := digitPair(6)
		if !ok || hh > 23 {
			return time.Time{}, false
		}
		hour = hh
	}
	if n > 8 {
		mm, ok := digitPair(8)
		if !ok || mm > 59 {
			return time.Time{}, false
		}
		minute = mm
	}
	if n > 10 {
		ss, ok := digitPair(10)
		if !ok || ss > 60 {
			return time.Time{}, false
		}
		second = ss
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
}

// resolveCentury picks the calendar century for a 2-digit year offset that
// places the result within 50 years of refNow, per §8's boundary test.
func resolveCentury(yy int, refNow time.Time) int {
	currentYear := refNow.UTC().Year()
	currentOffset := currentYear % 100
	currentCentury := currentYear - currentOffset
	year := currentCentury + yy

	if year-currentYear > 50 {
		year -= 100
	} else if year-currentYear < -50 {
		year += 100
	}
	return year
}
