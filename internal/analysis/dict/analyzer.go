// Package dict detects English questions asking for the meaning of a
// word so they can be answered from the dictionary table instead of the
// language model.
package dict

import (
	"regexp"
	"strings"
)

var queryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`what (?:does|is) .+? mean(?:\?|$)`),
	regexp.MustCompile(`meaning of .+`),
	regexp.MustCompile(`define .+`),
	regexp.MustCompile(`definition of .+`),
	regexp.MustCompile(`.+ meaning(?:\?|$)`),
}

var termPatterns = []*regexp.Regexp{
	regexp.MustCompile(`what (?:does|is) ['"]?(.+?)['"]? mean(?:\?|$)`),
	regexp.MustCompile(`meaning of ['"]?(.+?)['"]?(?:\?|$)`),
	regexp.MustCompile(`define ['"]?(.+?)['"]?(?:\?|$)`),
	regexp.MustCompile(`definition of ['"]?(.+?)['"]?(?:\?|$)`),
	regexp.MustCompile(`['"]?(.+?)['"]? meaning(?:\?|$)`),
}

var keywords = []*regexp.Regexp{
	regexp.MustCompile(`\bmeaning\b`),
	regexp.MustCompile(`\bdefinition\b`),
	regexp.MustCompile(`\bdefine\b`),
	regexp.MustCompile(`\bdictionary\b`),
}

// Dialect questions mention the regions or the word dialect itself and
// belong to the dialect lookup, not the dictionary.
var dialectIndicators = []string{
	"dialect", "dialects", "male", "huvadhoo", "addu", "regional",
}

// Phrases that mark a translation request rather than a lookup, which
// the model handles better than a single-word dictionary hit.
var translationPhrases = []string{
	"dhivehi word for", "in dhivehi", "translate", "translation to", "how to say",
}

var articles = regexp.MustCompile(`\b(the|a|an|this|that)\b`)

// IsDefinitionQuery reports whether content asks what a word means.
func IsDefinitionQuery(content string) bool {
	lower := strings.ToLower(content)

	for _, indicator := range dialectIndicators {
		if strings.Contains(lower, indicator) {
			return false
		}
	}
	for _, phrase := range translationPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	for _, p := range queryPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	for _, keyword := range keywords {
		if keyword.MatchString(lower) {
			return true
		}
	}
	return false
}

// ExtractTerm pulls the word the user is asking about out of the question.
func ExtractTerm(content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, p := range termPatterns {
		m := p.FindStringSubmatch(lower)
		if len(m) < 2 {
			continue
		}
		term := strings.TrimSpace(m[1])
		if cleaned := strings.TrimSpace(articles.ReplaceAllString(term, "")); cleaned != "" {
			term = strings.Join(strings.Fields(cleaned), " ")
		}
		if term != "" {
			return term, true
		}
	}

	// A bare single word is treated as a lookup of that word.
	if words := strings.Fields(content); len(words) == 1 {
		return strings.ToLower(strings.Trim(words[0], `'"?.!`)), true
	}
	return "", false
}
