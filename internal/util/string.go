package util

import "strings"

// TruncateRunes truncates a string to maxRunes characters (rune-based, not
// byte-based) without appending an ellipsis; the cut text feeds a prompt,
// not a UI.
func TruncateRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// Normalize performs basic string normalization (lowercase + trim)
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SanitizeKey normalizes a derived identity fragment for use as a lookup key:
// lowercased, with separators and punctuation dropped so that cosmetic URL
// differences map to the same key.
func SanitizeKey(s string) string {
	s = Normalize(s)
	if s == "" {
		return ""
	}

	var builder strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '/', '?', '#', '&', '=', '.', '-', '_', ':':
			continue
		default:
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
