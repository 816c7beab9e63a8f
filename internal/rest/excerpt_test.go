package rest

import (
	"strings"
	"testing"
)

func TestExcerptExtractor_Extract(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		expected string
	}{
		{
			name:     "First paragraph after title",
			markdown: "# Title\nThis is the first paragraph\n\nMore content",
			expected: "This is the first paragraph",
		},
		{
			name:     "Multi-line first paragraph",
			markdown: "# Title\nFirst line of paragraph.\nSecond line of paragraph.\n\nSecond paragraph",
			expected: "First line of paragraph. Second line of paragraph.",
		},
		{
			name:     "Skip empty lines after title",
			markdown: "# Title\n\n\nThis is the content after blank lines",
			expected: "This is the content after blank lines",
		},
		{
			name:     "Multiple headings",
			markdown: "# Title\n## Subtitle\nFirst paragraph content",
			expected: "First paragraph content",
		},
		{
			name:     "Stop at code block",
			markdown: "# Title\nFirst paragraph\n```\ncode\n```",
			expected: "First paragraph",
		},
		{
			name:     "Skip leading code block",
			markdown: "```go\nx := 1\n```\n\nAfter the code",
			expected: "After the code",
		},
		{
			name:     "Stop at list",
			markdown: "# Title\nIntro text\n- List item",
			expected: "Intro text",
		},
		{
			name:     "Skip leading list",
			markdown: "- one\n- two\n\nAfter the list",
			expected: "After the list",
		},
		{
			name:     "Stop at horizontal rule",
			markdown: "# Title\nContent before rule\n***\nAfter",
			expected: "Content before rule",
		},
		{
			name:     "Skip leading table",
			markdown: "| Col1 | Col2 |\n| --- | --- |\n| a | b |\n\nAfter the table",
			expected: "After the table",
		},
		{
			name:     "Truncate long paragraph",
			markdown: "# Title\nThis is a very long paragraph that exceeds the maximum length limit and should be truncated at a word boundary to ensure that the snippet looks clean and professional without cutting words in the middle which would look unprofessional.",
			expected: "This is a very long paragraph that exceeds the maximum length limit and should be truncated at a word boundary to ensure that the snippet looks clean and professional without cutting words in the...",
		},
		{
			name:     "Only title, no content",
			markdown: "# Title",
			expected: "",
		},
		{
			name:     "Empty markdown",
			markdown: "",
			expected: "",
		},
		{
			name:     "No title, direct content",
			markdown: "This is content without a title.\nSecond line.",
			expected: "This is content without a title. Second line.",
		},
		{
			name:     "Inline formatting is stripped",
			markdown: "# Title\nThis has **bold**, *italic* and `code` text.",
			expected: "This has bold, italic and code text.",
		},
		{
			name:     "Links keep their text, images are dropped",
			markdown: "See ![diagram](img.png)[the docs](https://example.com) now.",
			expected: "See the docs now.",
		},
	}

	extractor := NewExcerptExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractor.Extract(tt.markdown); got != tt.expected {
				t.Errorf("Extract() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTruncateExcerpt_CountsRunes(t *testing.T) {
	word := strings.Repeat("é", 10)
	excerpt := strings.TrimSpace(strings.Repeat(word+" ", 25))

	got := truncateExcerpt(excerpt)

	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncateExcerpt() = %q, want trailing ellipsis", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n > maxExcerptLength {
		t.Errorf("excerpt has %d runes, want at most %d", n, maxExcerptLength)
	}
	if strings.Contains(got, "�") {
		t.Errorf("truncateExcerpt() split a rune: %q", got)
	}
}
