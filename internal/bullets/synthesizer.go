// Package bullets builds experience-enhancement bullets from an analysis result.
package bullets

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"cvanalyzer/internal/types"
)

// Suffix is appended to synthesized bullets that lack terminal punctuation.
const Suffix = " to improve reliability and customer outcomes."

// DefaultVerb prefixes synthesized bullets that do not open with an action verb.
const DefaultVerb = "Implemented"

// ActionVerbs is the allow-list of opening verbs that are kept as written.
var ActionVerbs = []string{
	"Built", "Led", "Implemented", "Automated", "Optimized", "Designed", "Owned",
	"Introduced", "Developed", "Resolved", "Reduced", "Improved", "Created",
	"Maintained", "Collaborated",
}

const terminalPunctuation = ".?!)"

// Synthesize returns the oracle's bullets unchanged when present, otherwise one
// synthesized bullet per improvement suggestion. The output depends only on
// the arguments.
func Synthesize(result types.AnalysisResult, jobDescription string) []types.Bullet {
	if len(result.ExperienceEnhancement) > 0 {
		out := make([]types.Bullet, 0, len(result.ExperienceEnhancement))
		for _, line := range result.ExperienceEnhancement {
			out = append(out, types.Bullet{Spans: []types.Span{{Text: line}}})
		}
		return out
	}

	keywords := ExtractKeywords(jobDescription)
	out := make([]types.Bullet, 0, len(result.ImprovementSuggestions))
	for _, suggestion := range result.ImprovementSuggestions {
		suggestion = strings.TrimSpace(suggestion)
		if suggestion == "" {
			continue
		}
		out = append(out, synthesizeOne(suggestion, keywords))
	}
	return out
}

func synthesizeOne(suggestion string, keywords []string) types.Bullet {
	spans := emphasize(suggestion, keywords)

	last, _ := utf8.DecodeLastRuneInString(suggestion)
	if !strings.ContainsRune(terminalPunctuation, last) {
		spans = appendPlain(spans, Suffix)
	}

	if !startsWithActionVerb(suggestion) {
		spans[0].Text = lowerFirst(spans[0].Text)
		spans = append([]types.Span{{Text: DefaultVerb + " "}}, spans...)
		spans = mergePlain(spans)
	}

	return types.Bullet{Spans: spans}
}

// emphasize splits text into spans, marking case-insensitive whole-word
// keyword matches. Longer keywords win at a given position.
func emphasize(text string, keywords []string) []types.Span {
	runes := []rune(text)
	kwRunes := make([][]rune, len(keywords))
	for i, kw := range keywords {
		kwRunes[i] = []rune(kw)
	}

	var (
		spans []types.Span
		plain []rune
	)
	for i := 0; i < len(runes); {
		n := matchAt(runes, i, kwRunes)
		if n == 0 {
			plain = append(plain, runes[i])
			i++
			continue
		}
		if len(plain) > 0 {
			spans = append(spans, types.Span{Text: string(plain)})
			plain = plain[:0]
		}
		spans = append(spans, types.Span{Text: string(runes[i : i+n]), Emphasized: true})
		i += n
	}
	if len(plain) > 0 {
		spans = append(spans, types.Span{Text: string(plain)})
	}
	return spans
}

// matchAt returns the rune length of the keyword matching at position i, or 0.
func matchAt(runes []rune, i int, keywords [][]rune) int {
	for _, kw := range keywords {
		n := len(kw)
		if n == 0 || i+n > len(runes) {
			continue
		}
		if !strings.EqualFold(string(runes[i:i+n]), string(kw)) {
			continue
		}
		if isWordRune(kw[0]) && i > 0 && isWordRune(runes[i-1]) {
			continue
		}
		if isWordRune(kw[n-1]) && i+n < len(runes) && isWordRune(runes[i+n]) {
			continue
		}
		return n
	}
	return 0
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func startsWithActionVerb(text string) bool {
	word := firstWord(text)
	for _, verb := range ActionVerbs {
		if strings.EqualFold(word, verb) {
			return true
		}
	}
	return false
}

func firstWord(text string) string {
	end := strings.IndexFunc(text, func(r rune) bool { return !isWordRune(r) })
	if end < 0 {
		return text
	}
	return text[:end]
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func appendPlain(spans []types.Span, text string) []types.Span {
	if n := len(spans); n > 0 && !spans[n-1].Emphasized {
		spans[n-1].Text += text
		return spans
	}
	return append(spans, types.Span{Text: text})
}

func mergePlain(spans []types.Span) []types.Span {
	out := spans[:0:0]
	for _, s := range spans {
		if n := len(out); n > 0 && !s.Emphasized && !out[n-1].Emphasized {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}
