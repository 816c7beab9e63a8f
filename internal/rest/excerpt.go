package rest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const maxExcerptLength = 200

// ExcerptExtractor derives a plain-text excerpt from a markdown body: the text
// of the first paragraph, truncated at a word boundary.
type ExcerptExtractor struct {
	markdown goldmark.Markdown
}

func NewExcerptExtractor() *ExcerptExtractor {
	return &ExcerptExtractor{
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
		),
	}
}

func (e *ExcerptExtractor) Extract(body string) string {
	source := []byte(body)
	doc := e.markdown.Parser().Parse(text.NewReader(source))

	para := firstParagraph(doc)
	if para == nil {
		return ""
	}

	return truncateExcerpt(strings.Join(strings.Fields(paragraphText(para, source)), " "))
}

func firstParagraph(doc ast.Node) ast.Node {
	var found ast.Node
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n.Kind() {
		case ast.KindParagraph:
			found = n
			return ast.WalkStop, nil
		case ast.KindList, east.KindTable:
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	return found
}

func paragraphText(para ast.Node, source []byte) string {
	var b strings.Builder
	ast.Walk(para, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(source))
		case *ast.Image, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	return b.String()
}

func truncateExcerpt(excerpt string) string {
	runes := []rune(excerpt)
	if len(runes) <= maxExcerptLength {
		return excerpt
	}

	excerpt = string(runes[:maxExcerptLength])
	if lastSpace := strings.LastIndexAny(excerpt, " \t"); lastSpace > 0 {
		excerpt = excerpt[:lastSpace]
	}
	return excerpt + "..."
}
