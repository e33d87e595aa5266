package utils

import "strings"

// CompactSpaces trims a value and collapses internal whitespace runs. Source
// entity names arrive with stray padding and double spaces; canonical rows
// are keyed by the compacted form so "A.  Bērziņš " and "A. Bērziņš" are the
// same teacher.
func CompactSpaces(value string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(value)), " ")
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	// Remove null bytes and control characters
	input = strings.ReplaceAll(input, "\x00", "")

	// Trim whitespace
	input = strings.TrimSpace(input)

	return input
}
