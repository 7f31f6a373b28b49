package utils

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// SanitizeFilename strips characters that are not letters, digits,
// underscores, whitespace or hyphens, then trims surrounding whitespace.
// Letters and digits from any script survive. Sanitizing an already
// sanitized name is a no-op.
func SanitizeFilename(filename string) string {
	return strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(filename, ""))
}
