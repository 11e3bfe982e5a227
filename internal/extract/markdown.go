package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type mdBlock struct {
	text  string
	tight bool // joined to the previous block with a single newline
}

// markdownText renders a markdown document as plain text. Headings keep their "#" prefix,
// inline markup is dropped, and thematic breaks become "---" section markers.
func markdownText(src []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []mdBlock
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(inlineText(node, src))
			if title != "" {
				blocks = append(blocks, mdBlock{text: strings.Repeat("#", node.Level) + " " + title})
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			body := strings.TrimSpace(inlineText(node, src))
			if body == "" {
				return ast.WalkSkipChildren, nil
			}
			b := mdBlock{text: body}
			if item, ok := node.Parent().(*ast.ListItem); ok && node.PreviousSibling() == nil {
				b.text = "- " + body
				if list, ok := item.Parent().(*ast.List); ok && list.IsTight && item.PreviousSibling() != nil {
					b.tight = true
				}
			}
			blocks = append(blocks, b)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var sb strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(src))
			}
			if code := strings.TrimRight(sb.String(), "\n"); code != "" {
				blocks = append(blocks, mdBlock{text: code})
			}
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			blocks = append(blocks, mdBlock{text: "---"})
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			if b.tight {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString(b.text)
	}
	return sb.String(), nil
}

func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	writeInline(n, src, &sb)
	return sb.String()
}

func writeInline(n ast.Node, src []byte, sb *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.URL(src))
		case *ast.RawHTML:
		default:
			writeInline(c, src, sb)
		}
	}
}
