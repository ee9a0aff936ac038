package dialect

import "testing"

func TestIsDialectQuery(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"How do you say mother in Addu dialect?", true},
		{"what is father in huvadhoo", true},
		{"translate sister to male", true},
		{"tell me about maldivian dialect differences", true},
		{"my mother wants to translate this", true},
		{"what is the best beach in the Maldives", false},
		{"hello, how are you?", false},
		{"މަންމަ ކިހިނެއް ކިޔަނީ", false},
	}

	for _, tc := range cases {
		if got := IsDialectQuery(tc.content); got != tc.want {
			t.Errorf("IsDialectQuery(%q) = %v, want %v", tc.content, got, tc.want)
		}
	}
}

func TestExtractTerm(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"How do you say mother in Addu dialect?", "mother"},
		{"translate 'sister' to huvadhoo", "sister"},
		{"what is grandmother in male", "grandmother"},
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

	if _, ok := ExtractTerm("completely unrelated"); ok {
		t.Error("expected no term for unrelated message")
	}
}
