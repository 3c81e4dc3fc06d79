// Package rawgen passes HTML, text and unknown-origin fragments through to the
// document body.
package rawgen

import (
	"context"
	"html"
	"strings"

	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
)

// Compiler handles one of HTML, TEXT or UNKNOWN
type Compiler struct {
	fragmentType scanner.FragmentType
}

// New returns a pass-through compiler for t
func New(t scanner.FragmentType) *Compiler {
	return &Compiler{fragmentType: t}
}

func (c *Compiler) SupportedType() scanner.FragmentType {
	return c.fragmentType
}

// Compile returns HTML and unknown-origin content verbatim. Text is trimmed,
// stripped of one enclosing pair of quotes and escaped, unless it is
// whitespace only.
func (c *Compiler) Compile(_ context.Context, fragment dispatcher.Fragment) dispatcher.CompilationResult {
	content := fragment.Own()

	if c.fragmentType != scanner.TEXT {
		return dispatcher.Succeeded(content, scanner.HTML)
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return dispatcher.Succeeded(content, scanner.HTML)
	}

	return dispatcher.Succeeded(html.EscapeString(unquote(trimmed)), scanner.HTML)
}

// unquote strips the quotes of a text consisting of exactly one string literal
func unquote(s string) string {
	if len(s) < 2 || (s[0] != '"' && s[0] != '\'') || s[len(s)-1] != s[0] {
		return s
	}

	body := s[1 : len(s)-1]

	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case s[0]:
			return s
		}
	}

	return strings.NewReplacer(`\`+s[:1], s[:1], `\\`, `\`).Replace(body)
}
