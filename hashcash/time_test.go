package hashcash

import (
	"testing"
	"time"
)

func TestToStampFromStampRoundTrip(t *testing.T) {
	ref := time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		width  int
		moment time.Time
	}{
		{"YY", 2, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"YYMM", 4, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"YYMMDD", 6, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)},
		{"YYMMDDhh", 8, time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)},
		{"YYMMDDhhmm", 10, time.Date(2026, 3, 17, 9, 41, 0, 0, time.UTC)},
		{"YYMMDDhhmmss", 12, time.Date(2026, 3, 17, 9, 41, 53, 0, time.UTC)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stamp := ToStamp(c.moment, c.width)
			if len(stamp) != c.width {
				t.Fatalf("ToStamp length = %d, want %d", len(stamp), c.width)
			}
			got, ok := FromStamp(stamp, ref)
			if !ok {
				t.Fatalf("FromStamp(%q) failed to parse", stamp)
			}
			if !got.Equal(c.moment) {
				t.Fatalf("FromStamp(%q) = %v, want %v", stamp, got, c.moment)
			}
		})
	}
}

func TestFromStampRejectsMalformed(t *testing.T) {
	ref := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	bad := []string{"", "1", "123", "9999999999999", "ab", "999999"}
	for _, s := range bad {
		if _, ok := FromStamp(s, ref); ok {
			t.Fatalf("FromStamp(%q) unexpectedly succeeded", s)
		}
	}
}

func TestResolveCenturyBoundary(t *testing.T) {
	// refNow is year 2026; both candidates for a two-digit year of 76 (1976
	// and 2076) are exactly 50 years away, so either is accepted here.
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	year := resolveCentury(76, ref)
	if year != 2076 && year != 1976 {
		t.Fatalf("resolveCentury(76, 2026) = %d, want 1976 or 2076", year)
	}

	// 30 is unambiguously within 50 years of 2026 as 2030.
	if got := resolveCentury(30, ref); got != 2030 {
		t.Fatalf("resolveCentury(30, 2026) = %d, want 2030", got)
	}
	// 90 is closer to 1990 than 2090 relative to 2026.
	if got := resolveCentury(90, ref); got != 1990 {
		t.Fatalf("resolveCentury(90, 2026) = %d, want 1990", got)
	}
}

func TestValidityToWidth(t *testing.T) {
	cases := []struct {
		period int64
		width  int
	}{
		{0, 6},
		{30, 12},
		{3 * timeHour, 8},
		{3 * timeDay, 6},
		{3 * timeMonth, 4},
		{3 * timeYear, 2},
	}
	for _, c := range cases {
		if got := ValidityToWidth(c.period); got != c.width {
			t.Fatalf("ValidityToWidth(%d) = %d, want %d", c.period, got, c.width)
		}
	}
}

func TestRoundOff(t *testing.T) {
	moment := time.Date(2026, 7, 31, 9, 41, 53, 0, time.UTC)
	got := RoundOff(moment, 6)
	want := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("RoundOff(_, 6) = %v, want %v", got, want)
	}
}
