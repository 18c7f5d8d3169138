package grading

import (
	"regexp"
	"strings"
)

// SectionMarker prefixes the numeric part of a section label in question keys.
const SectionMarker = "§"

var sectionNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)*`)

// SectionLabel reduces a raw section label such as "Section 2.5 exercises" to "§2.5".
// Labels without a number yield an empty string.
func SectionLabel(raw string) string {
	number := sectionNumberPattern.FindString(raw)
	if number == "" {
		return ""
	}
	return SectionMarker + number
}

// QuestionID keeps only ASCII letters, digits, dots and dashes of a raw question identifier.
func QuestionID(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(raw))
}

// QuestionKey builds the composite key for a question, e.g. "§2.5 T6".
func QuestionKey(section, id string) string {
	return strings.TrimSpace(SectionLabel(section) + " " + QuestionID(id))
}
