package jsonfix

import (
	"encoding/json"
	"testing"
)

// roundTrip decodes `"` + escaped + `"` as a JSON string literal.
func roundTrip(t *testing.T, s string) string {
	t.Helper()
	var got string
	if err := json.Unmarshal([]byte(`"`+EscapeString(s)+`"`), &got); err != nil {
		t.Fatalf("decode escaped %q: %v", s, err)
	}
	return got
}

func TestEscapeStringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"plain", "hello world"},
		{"whitespace only", " \t\n "},
		{"quotes", `she said "hello" twice`},
		{"backslash", `C:\path\to\file`},
		{"backslash before quote", `ends with \"`},
		{"newlines", "line one\nline two\r\nline three"},
		{"tabs and controls", "a\tb\bc\fd"},
		{"del", "before\x7fafter"},
		{"unicode", "caf\u00e9 — na\u00efve"},
		{"mixed", "He said \"go\"\n\tand left.\\"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundTrip(t, tt.in); got != tt.in {
				t.Errorf("round trip = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestEscapeStringAllControlChars(t *testing.T) {
	for c := byte(0); c < 0x20; c++ {
		in := "x" + string(rune(c)) + "y"
		if got := roundTrip(t, in); got != in {
			t.Errorf("control 0x%02x: round trip = %q, want %q", c, got, in)
		}
	}
}

func TestEscapeStringOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`a"b`, `a\"b`},
		{"a\nb", `a\nb`},
		{`a\b`, `a\\b`},
		{"a\x01b", `a\u0001b`},
		{"a\x7fb", `a\u007fb`},
	}
	for _, tt := range tests {
		if got := EscapeString(tt.in); got != tt.want {
			t.Errorf("EscapeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
