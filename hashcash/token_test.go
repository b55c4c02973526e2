package hashcash

import "testing"

func TestFormatParseRoundTrip(t *testing.T) {
	f := Fields{
		Version:  1,
		Bits:     20,
		Stamp:    "260731",
		Resource: "alice@example.com",
		Ext:      "",
		Rand:     "aGVsbG8",
		Counter:  "1a2b3c",
	}
	token := Format(f)
	got, err := Parse(token)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", token, err)
	}
	if got != f {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
}

func TestParseRejectsWrongFieldCount(t *testing.T) {
	_, err := Parse("1:20:260731:alice:ext:rand")
	if err == nil {
		t.Fatal("expected error for 6-field token")
	}
	if code, ok := CodeOf(err); !ok || code != ErrInvalid {
		t.Fatalf("code = %v, want ErrInvalid", code)
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	_, err := Parse("x:20:260731:alice:ext:rand:1")
	if err == nil {
		t.Fatal("expected error for non-numeric version")
	}
}

func TestParseRejectsInvalidCharacters(t *testing.T) {
	_, err := Parse("1:20:260731:alice:ext:ra nd:1")
	if err == nil {
		t.Fatal("expected error for space in rand field")
	}
}
