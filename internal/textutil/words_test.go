package textutil

import "testing"

func TestWordCount(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello", 1},
		{"hello world", 2},
		{"  spaced   out  ", 2},
		{"你好", 2},
		{"你好 world", 3},
		{"word你好word", 4},
	}
	for _, tc := range cases {
		if got := WordCount(tc.text); got != tc.want {
			t.Errorf("WordCount(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestTruncateToWords(t *testing.T) {
	cases := []struct {
		text string
		max  int
		want string
	}{
		{"one two three four", 2, "one two"},
		{"one two", 5, "one two"},
		{"one two", 0, ""},
		{"你好世界", 2, "你好"},
	}
	for _, tc := range cases {
		if got := TruncateToWords(tc.text, tc.max); got != tc.want {
			t.Errorf("TruncateToWords(%q, %d) = %q, want %q", tc.text, tc.max, got, tc.want)
		}
	}
}

func TestSanitizeFileNameAndToken(t *testing.T) {
	if got := SanitizeFileName(`a/b:c*d?e`); got != "a-b-c-de" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	if got := SanitizeToken("Video Post #12"); got != "video_post__12" {
		t.Fatalf("SanitizeToken = %q", got)
	}
}
