package validators

import "strings"

// SanitizeString trims whitespace, strips control characters, and truncates
// to maxLen runes. Used for free-text fields that end up in audit rows.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, input)
	cleaned = strings.TrimSpace(cleaned)
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			return string(runes[:maxLen])
		}
	}
	return cleaned
}
