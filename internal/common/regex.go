package common

import "regexp"

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// IsIdentifier reports whether s is safe to embed in a storage field name:
// lowercase ASCII letters, digits and underscores, starting with a letter.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
