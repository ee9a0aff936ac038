package ai

import (
	"strings"
	"testing"
)

func TestSectionSplitterTagsSections(t *testing.T) {
	s := &SectionSplitter{}

	first := s.Split("Hello! The word is ")
	if len(first) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(first))
	}
	if first[0].Section != SectionEnglish {
		t.Fatalf("expected english section, got %s", first[0].Section)
	}

	second := s.Split("ޝުކުރިއްޔާ")
	if len(second) != 2 {
		t.Fatalf("expected section marker + content, got %d chunks", len(second))
	}
	if !second[0].SectionChange || second[0].Section != SectionDhivehi {
		t.Fatalf("expected dhivehi section_change marker, got %+v", second[0])
	}
	if second[1].Section != SectionDhivehi {
		t.Fatalf("expected dhivehi content chunk, got %+v", second[1])
	}

	// Once Dhivehi starts the splitter never flips back.
	third := s.Split("more text")
	if len(third) != 1 || third[0].Section != SectionDhivehi {
		t.Fatalf("expected trailing chunks to stay in dhivehi section, got %+v", third)
	}
}

func TestSectionSplitterSkipsEmptyChunks(t *testing.T) {
	s := &SectionSplitter{}
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil for empty chunk, got %+v", got)
	}
	if got := s.Split("   "); got != nil {
		t.Fatalf("expected nil for whitespace chunk, got %+v", got)
	}
}

func TestCleanDhivehiText(t *testing.T) {
	in := "ތިޔަ بالکل ރަނގަޅު"
	out := CleanDhivehiText(in)
	if strings.Contains(out, "بالکل") {
		t.Fatalf("expected loanword removed, got %q", out)
	}
	if !ContainsThaana(out) {
		t.Fatalf("expected Thaana preserved, got %q", out)
	}
}
