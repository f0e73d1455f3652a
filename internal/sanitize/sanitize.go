// Package sanitize strips prompt-injection vectors from user-supplied text
// before it reaches moderation, storage, or a generative provider.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe  = regexp.MustCompile("```[\\s\\S]*?```")
	urlRe        = regexp.MustCompile(`(?i)https?://\S+`)
	emailRe      = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.[A-Za-z]{2,}\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Clean removes code fences and backticks, URLs and e-mail addresses,
// collapses whitespace, and clamps the result to maxLen runes.
func Clean(text string, maxLen int) string {
	if text == "" {
		return text
	}
	cleaned := codeFenceRe.ReplaceAllString(text, " ")
	cleaned = strings.ReplaceAll(cleaned, "`", " ")
	cleaned = urlRe.ReplaceAllString(cleaned, " ")
	cleaned = emailRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))

	runes := []rune(cleaned)
	if len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}
