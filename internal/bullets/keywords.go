package bullets

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxKeywords caps the number of job-description keywords used for emphasis.
const MaxKeywords = 8

// minKeywordLen is exclusive: tokens must be longer than this many runes.
const minKeywordLen = 3

var nonKeywordChars = regexp.MustCompile(`[^\p{L}\p{N}_\s/+.()\-]`)

// ExtractKeywords returns up to MaxKeywords distinct lower-case tokens from the
// job description, longest first. Equal lengths are ordered lexically so the
// result depends only on the input text.
func ExtractKeywords(jobDescription string) []string {
	cleaned := nonKeywordChars.ReplaceAllString(strings.ToLower(jobDescription), " ")

	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) <= minKeywordLen {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}

	sort.Slice(tokens, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(tokens[i]), utf8.RuneCountInString(tokens[j])
		if li != lj {
			return li > lj
		}
		return tokens[i] < tokens[j]
	})

	if len(tokens) > MaxKeywords {
		tokens = tokens[:MaxKeywords]
	}
	return tokens
}
