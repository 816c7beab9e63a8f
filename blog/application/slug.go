package application

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dfryer1193/newsroom/blog/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMaxProbes = 1000
	fallbackSlug     = "post"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace   = regexp.MustCompile(`\s+`)
	slugHyphens      = regexp.MustCompile(`-{2,}`)
)

// SlugAllocator derives URL slugs from titles and finds one that is not yet
// taken. The probe is optimistic: the store's unique index decides, and the
// caller retries with the losing candidate excluded.
type SlugAllocator struct {
	repo      domain.PostRepository
	maxProbes int
}

func NewSlugAllocator(repo domain.PostRepository, maxProbes int) *SlugAllocator {
	if maxProbes <= 0 {
		maxProbes = DefaultMaxProbes
	}
	return &SlugAllocator{
		repo:      repo,
		maxProbes: maxProbes,
	}
}

// Allocate returns the first free candidate of base, base-2, base-3, ...
// Candidates listed in exclude are skipped even if the store reports them free.
func (a *SlugAllocator) Allocate(ctx context.Context, title string, exclude ...string) (string, error) {
	base := Slugify(title)

	skip := make(map[string]struct{}, len(exclude))
	for _, s := range exclude {
		skip[s] = struct{}{}
	}

	for n := 1; n <= a.maxProbes; n++ {
		candidate := base
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", base, n)
		}

		if _, excluded := skip[candidate]; excluded {
			continue
		}

		_, err := a.repo.FindBySlug(ctx, candidate)
		if domain.IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", domain.NewInternalError("failed to probe slug "+candidate, err)
		}
	}

	return "", domain.NewInternalError(fmt.Sprintf("no free slug for %q after %d probes", base, a.maxProbes), nil)
}

// Slugify folds title to lower-case ASCII, keeping letters, digits and single
// hyphens. A title with nothing left becomes "post".
//
// Two choices go beyond plain lower-casing. Letters are decomposed with NFKD
// and their combining marks dropped, so "Crème" becomes "creme" rather than
// "cr-me". Any run of separators collapses to one hyphen, so "a - b" becomes
// "a-b" rather than "a---b".
func Slugify(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	s := strings.ToLower(folded)
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return fallbackSlug
	}
	return s
}
