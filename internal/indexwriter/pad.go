package indexwriter

import "strings"

// PadLeft pads a string with a character on the left to reach the target length.
// Longer strings are returned unchanged.
func PadLeft(s string, length int, padChar rune) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-len(s)) + s
}

// PadRight pads a string with a character on the right to reach the target length.
// Longer strings are returned unchanged.
func PadRight(s string, length int, padChar rune) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(string(padChar), length-len(s))
}

// lastN returns the last n bytes of s, or s itself when shorter.
func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
