package runtime

import "strings"

// FormatKey turns a field name into an expression identifier: every
// character outside [A-Za-z0-9_] becomes an underscore, so "card-number"
// is visible to enableWhen expressions as card_number.
func FormatKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
