// Package page provides the readable text of local documents.
package page

import (
	"bytes"
	"strings"

	"github.com/dgnsrekt/readaloud/utils"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Extract returns the narratable text of a markdown document: headings,
// paragraphs, list items and quotes, one block per line. Front matter, code
// blocks, HTML and images are left out.
func Extract(source []byte) string {
	source = utils.RemoveFrontmatter(source)
	doc := md.Parser().Parse(text.NewReader(source))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindThematicBreak:
			return ast.WalkSkipChildren, nil
		case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock:
			if s := strings.Join(strings.Fields(inlineText(n, source)), " "); s != "" {
				blocks = append(blocks, s)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return Normalize(strings.Join(blocks, "\n"))
}

// Normalize puts text in Unicode normal form C so that chunk lengths and
// highlights agree with what is displayed.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	writeInline(&buf, n, source)
	return buf.String()
}

func writeInline(buf *bytes.Buffer, n ast.Node, source []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			buf.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(c.Value)
		case *ast.AutoLink:
			buf.Write(c.Label(source))
		case *ast.Image, *ast.RawHTML:
			// not spoken
		default:
			writeInline(buf, c, source)
		}
	}
}
