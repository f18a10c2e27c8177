// Package knol fingerprints note content so re-uploads can be compared
// against what is already stored.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize cleans note content before hashing. It normalizes line endings,
// drops trailing whitespace on every line and trims the whole text, so that
// re-saving a file in another editor does not count as a change.
func Normalize(content string) string {
	c := strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(c, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Fingerprint returns the SHA-256 of the normalized content as a hex string.
// A nil content has no fingerprint.
func Fingerprint(content *string) string {
	if content == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(Normalize(*content)))
	return fmt.Sprintf("%x", sum)
}
