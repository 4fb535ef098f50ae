package fileutil

import "strings"

// SanitizeID strips characters that are unsafe in file and object paths,
// keeping letters, digits, dash, underscore, and dot. Anything else becomes
// an underscore; runs collapse to a single one.
func SanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(id))
	lastUnderscore := false
	for _, r := range id {
		safe := r == '-' || r == '.' ||
			(r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z')
		switch {
		case safe:
			b.WriteRune(r)
			lastUnderscore = false
		case lastUnderscore:
		default:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_.")
}
