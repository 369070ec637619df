package models

import "strings"

// Slugify normalizes a note title into its vault slug: lowercase ASCII with
// spaces and underscores mapped to hyphens, everything else stripped.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r == ' ' || r == '_':
			b.WriteByte('-')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
