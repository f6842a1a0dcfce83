package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// CollapseWhitespace trims s and folds every run of whitespace into one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(limit int) Strategy {
	return func(s string) string {
		runes := []rune(s)
		if len(runes) <= limit {
			return s
		}
		return strings.TrimSpace(string(runes[:limit]))
	}
}

// MaxReasonLength caps cancellation and refund reasons.
const MaxReasonLength = 1000

// SanitizeReason cleans free text entered for cancellations, rejections and
// refund requests before it is stored and echoed into notifications.
func SanitizeReason(input string) string {
	p := Pipeline{
		stripControl,
		CollapseWhitespace,
		truncateRunes(MaxReasonLength),
	}
	return p.Apply(input)
}

// SanitizeID trims identifiers taken from paths and webhook payloads.
func SanitizeID(input string) string {
	return strings.TrimSpace(stripControl(input))
}
