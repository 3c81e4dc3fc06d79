package source

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Literate is the result of reducing a .chtl.md document to code
type Literate struct {
	// Code has one line per markdown line; only lines inside chtl fences are kept.
	Code   string
	Title  string
	Meta   map[string]any
	Blocks int
}

// ExtractLiterate keeps the fenced code blocks tagged chtl. The title comes from
// front matter, falling back to the first level-1 heading.
func ExtractLiterate(content string) (*Literate, error) {
	meta, body, err := parseFrontMatter(content)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	src := []byte(body)
	doc := md.Parser().Parse(text.NewReader(src))

	lines := make([]string, strings.Count(content, "\n")+1)
	starts := lineStarts(src)
	skipped := strings.Count(content[:len(content)-len(body)], "\n")
	result := &Literate{Meta: meta}

	if title, ok := meta["title"].(string); ok {
		result.Title = title
	}

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && result.Title == "" {
				result.Title = headingText(node, src)
			}
		case *ast.FencedCodeBlock:
			if !isCHTLCodeBlock(node, src) {
				return ast.WalkSkipChildren, nil
			}

			result.Blocks++

			for i := 0; i < node.Lines().Len(); i++ {
				seg := node.Lines().At(i)
				line := lineOf(starts, seg.Start) + skipped
				if line < len(lines) {
					lines[line] = strings.TrimRight(string(seg.Value(src)), "\r\n")
				}
			}

			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Blocks == 0 {
		return nil, ErrNoCodeBlocks
	}

	result.Code = strings.Join(lines, "\n")

	return result, nil
}

func isCHTLCodeBlock(block *ast.FencedCodeBlock, src []byte) bool {
	lang := strings.ToLower(string(block.Language(src)))
	return lang == "chtl"
}

func headingText(heading *ast.Heading, src []byte) string {
	var b strings.Builder

	for c := heading.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
		}
	}

	return strings.TrimSpace(b.String())
}

func lineStarts(src []byte) []int {
	starts := []int{0}

	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}

// lineOf returns the zero-based line containing offset
func lineOf(starts []int, offset int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo
}

// parseFrontMatter splits a leading "---" delimited YAML block from content
func parseFrontMatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, "---\n") {
		return map[string]any{}, content, nil
	}

	endIndex := strings.Index(content[4:], "\n---")
	if endIndex == -1 {
		return nil, "", fmt.Errorf("%w: missing closing ---", ErrInvalidFrontMatter)
	}

	endIndex += 4

	var frontMatter map[string]any
	if err := yaml.Unmarshal([]byte(content[4:endIndex]), &frontMatter); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidFrontMatter, err)
	}

	if frontMatter == nil {
		frontMatter = map[string]any{}
	}

	return frontMatter, content[endIndex+4:], nil
}
