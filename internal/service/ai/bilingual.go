package ai

import (
	"regexp"
	"strings"
)

// Sections tagged onto streamed chunks. The client renders the English
// part first and the Dhivehi part after a blank line.
const (
	SectionEnglish = "english"
	SectionDhivehi = "dhivehi"
	SectionError   = "error"
)

// Chunk is one unit of a sectioned streaming response.
type Chunk struct {
	Text          string `json:"chunk"`
	Section       string `json:"section,omitempty"`
	SectionChange bool   `json:"section_change,omitempty"`
	Error         bool   `json:"error,omitempty"`
	EndOfStream   bool   `json:"end_of_stream,omitempty"`
}

var thaanaPattern = regexp.MustCompile(`[\x{0780}-\x{07BF}]`)

// disallowed matches everything outside Thaana, Latin letters, digits, and
// basic punctuation (including the Arabic comma/semicolon used in Dhivehi).
var disallowed = regexp.MustCompile("[^\\x{0780}-\\x{07BF}a-zA-Z0-9.,!?؛،\\s()\\[\\]\"'`]")

// Loanwords the model keeps slipping into the Dhivehi section, mapped to
// their Dhivehi equivalents.
var replacements = [][2]string{
	{"بالکل", "ހަމަ"},
	{"ތަންކިޔޫ", "ޝުކުރިއްޔާ"},
	{"ސޮރީ", "މާފުކުރައްވާ"},
}

// CleanDhivehiText strips foreign-script characters from the Dhivehi
// section and swaps known loanwords for Dhivehi equivalents.
func CleanDhivehiText(text string) string {
	cleaned := disallowed.ReplaceAllString(text, "")
	for _, r := range replacements {
		cleaned = strings.ReplaceAll(cleaned, r[0], r[1])
	}
	return cleaned
}

// ContainsThaana reports whether text carries any Thaana-script rune.
func ContainsThaana(text string) bool {
	return thaanaPattern.MatchString(text)
}

// SectionSplitter tags a stream of raw model chunks with their bilingual
// section. Replies are English first; the first Thaana rune flips the
// stream into the Dhivehi section for good and emits a section_change
// marker so clients can start a new paragraph.
type SectionSplitter struct {
	dhivehiStarted bool
}

// Split converts one raw model chunk into zero or more tagged chunks.
func (s *SectionSplitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	var out []Chunk
	if !s.dhivehiStarted && ContainsThaana(text) {
		s.dhivehiStarted = true
		out = append(out, Chunk{Text: "", Section: SectionDhivehi, SectionChange: true})
	}

	if s.dhivehiStarted {
		cleaned := CleanDhivehiText(text)
		if strings.TrimSpace(cleaned) != "" {
			out = append(out, Chunk{Text: cleaned, Section: SectionDhivehi})
		}
		return out
	}

	if strings.TrimSpace(text) != "" {
		out = append(out, Chunk{Text: text, Section: SectionEnglish})
	}
	return out
}
