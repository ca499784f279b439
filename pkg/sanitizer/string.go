package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeDescription trims the text but keeps inner line breaks.
func NormalizeDescription(description string) string {
	return strings.TrimSpace(description)
}

func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// NormalizeEnum lowercases and trims tagged values such as booking types.
func NormalizeEnum(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
