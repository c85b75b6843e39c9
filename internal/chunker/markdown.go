package chunker

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// section is a top-level heading and everything up to the next one.
type section struct {
	start int    // byte offset of the heading line
	path  string // "# Title > ## Sub"
}

type markdownParser struct {
	md goldmark.Markdown
}

func newMarkdownParser() *markdownParser {
	return &markdownParser{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// sections returns the heading boundaries of src in document order. Only
// block-level headings of the document count, so a "#" inside a fenced code
// block never starts a section.
func (m *markdownParser) sections(src []byte) ([]section, error) {
	doc := m.md.Parser().Parse(text.NewReader(src))

	tree, err := toc.Inspect(doc, src,
		toc.MinDepth(1),
		toc.MaxDepth(6),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}
	paths := make(map[string]string)
	collectPaths(tree.Items, nil, paths)

	var out []section
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			continue
		}
		id, ok := heading.AttributeString("id")
		if !ok {
			continue
		}
		idBytes, ok := id.([]byte)
		if !ok {
			continue
		}
		out = append(out, section{
			start: lineStart(src, heading.Lines().At(0).Start),
			path:  paths[string(idBytes)],
		})
	}
	return out, nil
}

// collectPaths records the header path of every TOC item by ID.
func collectPaths(items toc.Items, ancestors []string, paths map[string]string) {
	for _, item := range items {
		current := append(append([]string(nil), ancestors...), string(item.Title))
		if len(item.ID) > 0 {
			paths[string(item.ID)] = formatHeaderPath(current)
		}
		if len(item.Items) > 0 {
			collectPaths(item.Items, current, paths)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	if len(path) == 0 {
		return ""
	}

	parts := make([]string, 0, len(path))
	for i, segment := range path {
		parts = append(parts, fmt.Sprintf("%s %s", strings.Repeat("#", i+1), segment))
	}
	return strings.Join(parts, " > ")
}

func lineStart(src []byte, pos int) int {
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

// sectionSpans cuts content at section starts. Text before the first heading
// becomes its own span.
func sectionSpans(content string, sections []section) []span {
	var spans []span
	prev := 0
	for _, s := range sections {
		if s.start > prev {
			spans = append(spans, span{text: content[prev:s.start], offset: prev})
		}
		prev = s.start
	}
	if prev < len(content) {
		spans = append(spans, span{text: content[prev:], offset: prev})
	}
	return spans
}

// sectionAt returns the header path of the section containing offset.
func sectionAt(sections []section, offset int) string {
	i := sort.Search(len(sections), func(i int) bool { return sections[i].start > offset })
	if i == 0 {
		return ""
	}
	return sections[i-1].path
}
