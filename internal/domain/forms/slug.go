package forms

import "strings"

// Slug lowercases s and collapses every run of non-alphanumeric characters
// into a single separator. Leading/trailing separators are trimmed.
func Slug(s, sep string) string {
	var b strings.Builder
	lastSep := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep {
				b.WriteString(sep)
				lastSep = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), sep)
}

// normKey reduces a posted or stored key to a comparable form so that
// "Patient Weight", "patient_weight" and "patient-weight" all match.
func normKey(s string) string {
	return Slug(s, "_")
}
