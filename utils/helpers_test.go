package utils

import "testing"

func TestCompactSpaces(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name untouched", "A. Bērziņš", "A. Bērziņš"},
		{"leading and trailing padding", "  A. Bērziņš ", "A. Bērziņš"},
		{"internal double spaces", "A.  Bērziņš", "A. Bērziņš"},
		{"tabs and mixed whitespace", "A.\t Bērziņš", "A. Bērziņš"},
		{"whitespace only", "   ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompactSpaces(tt.input); got != tt.want {
				t.Errorf("CompactSpaces(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"null bytes removed", "abc\x00def", "abcdef"},
		{"whitespace trimmed", "  abc  ", "abc"},
		{"clean input untouched", "abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeString(tt.input); got != tt.want {
				t.Errorf("SanitizeString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
