package broker

import "strings"

// Normalize maps a logical destination name onto the naming rules every
// transport accepts: lowercase, with runs of anything outside [a-z0-9]
// collapsed to a single hyphen. "Stock Deduction" and "stock_deduction" both
// land on "stock-deduction".
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	hyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
