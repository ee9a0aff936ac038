// Package dialect detects English questions about regional Dhivehi
// dialects so they can be answered from the word table instead of the
// language model.
package dialect

import (
	"regexp"
	"strings"
)

var queryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`how (?:do you|to) say .+ in .+dialect`),
	regexp.MustCompile(`how (?:do you|to) say .+ in (male|huvadhoo|addu)`),
	regexp.MustCompile(`what is .+ in .+dialect`),
	regexp.MustCompile(`what is .+ in (male|huvadhoo|addu)`),
	regexp.MustCompile(`translate .+ to (male|huvadhoo|addu)`),
	regexp.MustCompile(`.+ in (male|huvadhoo|addu) dialect`),
	regexp.MustCompile(`maldivian dialect`),
	regexp.MustCompile(`dhivehi dialect`),
	regexp.MustCompile(`regional dialect`),
}

var termPatterns = []*regexp.Regexp{
	regexp.MustCompile(`how (?:do you|to) say ['"]?([^'"?]+?)['"]? in (?:the )?(?:male|huvadhoo|addu|.+dialect)`),
	regexp.MustCompile(`what is ['"]?([^'"?]+?)['"]? in (?:the )?(?:male|huvadhoo|addu|.+dialect)`),
	regexp.MustCompile(`translate ['"]?([^'"?]+?)['"]? to (?:male|huvadhoo|addu|dialects)`),
	regexp.MustCompile(`['"]?([^'"?]+?)['"]? in (?:male|huvadhoo|addu) dialect`),
}

var familyTerms = []string{
	"mother", "father", "brother", "sister", "son", "daughter",
	"grandmother", "grandfather", "aunt", "uncle",
}

var dialectContext = []string{
	"dialect", "translate", "huvadhoo", "addu", "male", "maldivian", "dhivehi",
}

// IsDialectQuery reports whether content is an English question about
// dialect words. Messages containing Thaana or Arabic script never match:
// the lookup table is keyed by English terms.
func IsDialectQuery(content string) bool {
	if containsNonLatin(content) {
		return false
	}

	lower := strings.ToLower(content)
	for _, p := range queryPatterns {
		if p.MatchString(lower) {
			return true
		}
	}

	hasFamilyTerm := false
	for _, term := range familyTerms {
		if strings.Contains(lower, term) {
			hasFamilyTerm = true
			break
		}
	}
	if !hasFamilyTerm {
		return false
	}
	for _, keyword := range dialectContext {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// ExtractTerm pulls the word the user is asking about out of the question.
func ExtractTerm(content string) (string, bool) {
	lower := strings.ToLower(content)
	for _, p := range termPatterns {
		if m := p.FindStringSubmatch(lower); len(m) > 1 {
			term := strings.TrimSpace(m[1])
			if term != "" {
				return term, true
			}
		}
	}

	// Fall back to a known family term mentioned anywhere in the message.
	for _, term := range familyTerms {
		if strings.Contains(lower, term) {
			return term, true
		}
	}
	return "", false
}

func containsNonLatin(text string) bool {
	for _, r := range text {
		// Thaana script.
		if r >= 0x0780 && r <= 0x07BF {
			return true
		}
		// Arabic script, often mixed into Dhivehi text.
		if r >= 0x0600 && r <= 0x06FF {
			return true
		}
	}
	return false
}
