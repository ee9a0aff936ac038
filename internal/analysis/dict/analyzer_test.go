package dict

import "testing"

func TestIsDefinitionQuery(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"what does dhoni mean?", true},
		{"What is the meaning of boduberu", true},
		{"define joali", true},
		{"definition of feyli?", true},
		{"atoll meaning", true},
		{"is there a dictionary entry for roshi", true},
		{"what does mother mean in addu dialect", false},
		{"translate house to dialects", false},
		{"what is the dhivehi word for meaning", false},
		{"how to say thank you, meaning politely", false},
		{"hello, how are you?", false},
	}

	for _, tc := range cases {
		if got := IsDefinitionQuery(tc.content); got != tc.want {
			t.Errorf("IsDefinitionQuery(%q) = %v, want %v", tc.content, got, tc.want)
		}
	}
}

func TestExtractDefinitionTerm(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"what does dhoni mean?", "dhoni"},
		{"meaning of the atoll", "atoll"},
		{"define 'joali'", "joali"},
		{"definition of boduberu", "boduberu"},
		{"feyli meaning?", "feyli"},
		{"thaana", "thaana"},
	}

	for _, tc := range cases {
		got, ok := ExtractTerm(tc.content)
		if !ok {
			t.Fatalf("ExtractTerm(%q) found nothing", tc.content)
		}
		if got != tc.want {
			t.Errorf("ExtractTerm(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}

	if _, ok := ExtractTerm("tell me about the weather today"); ok {
		t.Error("expected no term for unrelated message")
	}
}
