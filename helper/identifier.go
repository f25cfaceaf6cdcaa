package helper

import "regexp"

// Project and directory-link identifiers are 24-character lowercase hex
// strings (document store object IDs). They are validated before any
// lookup so malformed input never reaches a backend query.
var identifierPattern = regexp.MustCompile(`^[a-f0-9]{24}$`)

// ValidIdentifier reports whether s is a well-formed record identifier.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}
