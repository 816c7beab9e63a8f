package application

import (
	"context"
	"testing"

	"github.com/dfryer1193/newsroom/blog/domain"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{
			name:     "simple title",
			title:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "surrounding and repeated whitespace",
			title:    "  Hello \t  World  ",
			expected: "hello-world",
		},
		{
			name:     "punctuation is dropped",
			title:    "Go 1.25: what's new?",
			expected: "go-125-whats-new",
		},
		{
			name:     "diacritics are folded",
			title:    "Crème Brûlée für Ångström",
			expected: "creme-brulee-fur-angstrom",
		},
		{
			name:     "compatibility characters are decomposed",
			title:    "ﬁnal ﬁle",
			expected: "final-file",
		},
		{
			name:     "hyphen runs collapse",
			title:    "a - b -- c",
			expected: "a-b-c",
		},
		{
			name:     "leading and trailing hyphens are trimmed",
			title:    "--breaking--",
			expected: "breaking",
		},
		{
			name:     "nothing usable falls back",
			title:    "日本語 !!!",
			expected: "post",
		},
		{
			name:     "empty title falls back",
			title:    "",
			expected: "post",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.title); got != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.expected)
			}
		})
	}
}

func insertWithSlug(t *testing.T, repo domain.PostRepository, slug string) {
	t.Helper()
	p := &domain.Post{
		Slug:      slug,
		AuthorID:  "alice",
		Content:   domain.Content{Title: slug, Body: "body"},
		Lifecycle: domain.Lifecycle{Status: domain.StatusDraft},
		CreatedAt: testStart,
		UpdatedAt: testStart,
	}
	if _, err := repo.Insert(context.Background(), p); err != nil {
		t.Fatalf("Insert(%q) failed: %v", slug, err)
	}
}

func TestSlugAllocator_Allocate(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		exclude  []string
		expected string
	}{
		{
			name:     "free base",
			expected: "hello-world",
		},
		{
			name:     "base taken",
			existing: []string{"hello-world"},
			expected: "hello-world-2",
		},
		{
			name:     "first gap wins",
			existing: []string{"hello-world", "hello-world-2", "hello-world-4"},
			expected: "hello-world-3",
		},
		{
			name:     "excluded candidates are skipped",
			exclude:  []string{"hello-world", "hello-world-2"},
			expected: "hello-world-3",
		},
		{
			name:     "exclusions and existing combine",
			existing: []string{"hello-world"},
			exclude:  []string{"hello-world-2"},
			expected: "hello-world-3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)
			for _, slug := range tt.existing {
				insertWithSlug(t, repo, slug)
			}

			got, err := NewSlugAllocator(repo, 0).Allocate(context.Background(), "Hello World", tt.exclude...)
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Allocate() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSlugAllocator_ProbesAreBounded(t *testing.T) {
	repo := newTestRepo(t)
	insertWithSlug(t, repo, "busy")
	insertWithSlug(t, repo, "busy-2")
	insertWithSlug(t, repo, "busy-3")

	_, err := NewSlugAllocator(repo, 3).Allocate(context.Background(), "Busy")
	if !domain.IsKind(err, domain.KindInternal) {
		t.Fatalf("Allocate() error = %v, want internal error", err)
	}
}
