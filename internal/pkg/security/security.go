// Package security provides input validation and log redaction helpers.
package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// MaxIdentifierLength is the Postgres identifier limit.
const MaxIdentifierLength = 63

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTableName checks that name is a plain SQL identifier, safe to
// splice into a statement or URL path.
func ValidateTableName(name string) error {
	if name == "" {
		return errors.ConfigurationError("table name is required")
	}
	if len(name) > MaxIdentifierLength {
		return errors.ConfigurationError(fmt.Sprintf("table name longer than %d characters", MaxIdentifierLength))
	}
	if !identifierRegex.MatchString(name) {
		return errors.ConfigurationError(fmt.Sprintf("invalid table name: %q", SanitizeForLog(name)))
	}
	return nil
}

// MaskSecret keeps the first and last four characters of long secrets and
// hides short ones entirely.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 12 {
		return "[REDACTED]"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// SanitizeForLog escapes line breaks, drops other control characters and
// truncates to 200 runes.
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, 200)
}

// SanitizeForLogWithLength sanitizes a string for logging with a custom max length.
func SanitizeForLogWithLength(s string, maxLen int) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(min(len(s), maxLen+10))

	count := 0
	for _, r := range s {
		if count >= maxLen {
			b.WriteString("...")
			break
		}

		switch r {
		case '\n':
			b.WriteString("\\n")
			count += 2
		case '\r':
			b.WriteString("\\r")
			count += 2
		case '\t':
			b.WriteString("\\t")
			count += 2
		default:
			if !unicode.IsControl(r) {
				b.WriteRune(r)
				count++
			}
		}
	}

	return b.String()
}
