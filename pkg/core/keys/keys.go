// Package keys maps link store concepts onto store keys.
//
// Link paths and user ids are used as their own keys. Paths begin with "/"
// and user ids are email addresses, so neither collides with the reserved
// prefixes below.
package keys

import "strings"

const (
	// Separator joins a namespace prefix to the rest of a key.
	Separator = ":"

	// Complete is the ordered set holding the autocomplete index.
	Complete = "complete" + Separator + "links"

	targetPrefix = "target" + Separator
)

// Link returns the key of the record for path.
func Link(path string) string {
	return path
}

// User returns the key of the ownership list for userID.
func User(userID string) string {
	return userID
}

// Target returns the key of the reverse index set for a target URL.
func Target(url string) string {
	return targetPrefix + url
}

// TargetPattern returns a scan pattern over reverse index keys whose target
// matches the glob fragment.
func TargetPattern(glob string) string {
	return targetPrefix + glob
}

// TargetFromKey extracts the target URL from a reverse index key.
func TargetFromKey(key string) (string, bool) {
	return strings.CutPrefix(key, targetPrefix)
}

// EscapeGlob quotes the characters that are special in scan patterns.
func EscapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
