package utils

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// StripCodeFence returns the body of the first fenced code block in a
// model reply, or the trimmed reply when it has none.
func StripCodeFence(input string) string {
	source := []byte(input)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var body string
	found := false
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		body = b.String()
		found = true
		return ast.WalkStop, nil
	})
	if found {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(input)
}
