// Package chtljsgen lowers CHTL-JS constructs (enhanced selectors, the ->
// operator, vir and the listen / delegate / animate family) to plain JavaScript.
package chtljsgen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
)

// Sentinel errors
var (
	ErrEmptySelector     = errors.New("empty enhanced selector")
	ErrUnterminatedBlock = errors.New("unterminated block")
)

// keyword blocks and the runtime helpers they call
var blockHelpers = map[string]string{
	"listen":      "chtlListen",
	"delegate":    "chtlDelegate",
	"animate":     "chtlAnimate",
	"iNeverAway":  "chtlNeverAway",
	"printMylove": "chtlPrintMylove",
}

// Compiler is the built-in CHTL-JS compiler
type Compiler struct{}

// New creates a CHTL-JS compiler
func New() *Compiler {
	return &Compiler{}
}

func (c *Compiler) SupportedType() scanner.FragmentType {
	return scanner.CHTL_JS
}

func (c *Compiler) Compile(ctx context.Context, fragment dispatcher.Fragment) dispatcher.CompilationResult {
	if err := ctx.Err(); err != nil {
		return dispatcher.Failed(err.Error(), scanner.JAVASCRIPT)
	}

	out, err := Lower(fragment.Own())
	if err != nil {
		return dispatcher.Failed(err.Error(), scanner.JAVASCRIPT)
	}

	return dispatcher.Succeeded(out, scanner.JAVASCRIPT)
}

// Prelude returns the runtime the lowered helpers call into
func (c *Compiler) Prelude() string {
	return prelude
}

// Lower rewrites every CHTL-JS construct in src; plain JavaScript is copied.
func Lower(src string) (string, error) {
	var b strings.Builder

	b.Grow(len(src))

	i := 0
	for i < len(src) {
		c := src[i]

		switch {
		case c == '"' || c == '\'' || c == '`':
			end := stringEnd(src, i)
			b.WriteString(src[i:end])
			i = end
		case c == '/' && i+1 < len(src) && (src[i+1] == '/' || src[i+1] == '*'):
			end := commentEnd(src, i)
			b.WriteString(src[i:end])
			i = end
		case c == '{' && strings.HasPrefix(src[i:], "{{"):
			end, ok := selectorEnd(src, i)
			if !ok {
				b.WriteByte(c)
				i++
				continue
			}

			js, err := lowerSelector(src[i+2 : end-2])
			if err != nil {
				return "", err
			}

			b.WriteString(js)
			i = end
		case c == '-' && i+1 < len(src) && src[i+1] == '>':
			b.WriteByte('.')
			i += 2
		case isIdentStart(c) && (i == 0 || !isIdentPart(src[i-1]) && src[i-1] != '.'):
			end := identEnd(src, i)
			word := src[i:end]

			if word == "vir" {
				b.WriteString("const")
				i = end
				continue
			}

			helper, ok := blockHelpers[word]
			open := skipSpace(src, end)

			if !ok || open >= len(src) || src[open] != '{' {
				b.WriteString(word)
				i = end
				continue
			}

			end, ok = balancedEnd(src, open)
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrUnterminatedBlock, word)
			}

			body, err := Lower(src[open:end])
			if err != nil {
				return "", err
			}

			b.WriteString(helper)
			b.WriteByte('(')
			b.WriteString(body)
			b.WriteByte(')')
			i = end
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String(), nil
}

// lowerSelector turns the text between {{ and }} into a DOM query
func lowerSelector(sel string) (string, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return "", ErrEmptySelector
	}

	if strings.HasSuffix(sel, "]") {
		if open := strings.LastIndexByte(sel, '['); open > 0 {
			index := strings.TrimSpace(sel[open+1 : len(sel)-1])
			if _, err := strconv.Atoi(index); err == nil {
				base := strings.TrimSpace(sel[:open])
				return fmt.Sprintf("document.querySelectorAll(%s)[%s]", quote(base), index), nil
			}
		}
	}

	if strings.HasPrefix(sel, "#") && isSimpleName(sel[1:]) {
		return fmt.Sprintf("document.getElementById(%s)", quote(sel[1:])), nil
	}

	return fmt.Sprintf("document.querySelector(%s)", quote(sel)), nil
}

func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func isSimpleName(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if !isIdentPart(s[i]) && s[i] != '-' {
			return false
		}
	}

	return true
}

func selectorEnd(src string, i int) (int, bool) {
	depth := 0

	for j := i; j < len(src); j++ {
		switch src[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j + 1, strings.HasSuffix(src[:j+1], "}}") && j+1-i >= 4
			}
		case '\n':
			return 0, false
		}
	}

	return 0, false
}

// balancedEnd returns the offset just past the brace matching src[open]
func balancedEnd(src string, open int) (int, bool) {
	depth := 0

	for j := open; j < len(src); {
		switch c := src[j]; {
		case c == '"' || c == '\'' || c == '`':
			j = stringEnd(src, j)
			continue
		case c == '/' && j+1 < len(src) && (src[j+1] == '/' || src[j+1] == '*'):
			j = commentEnd(src, j)
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return j + 1, true
			}
		}
		j++
	}

	return 0, false
}

func stringEnd(src string, i int) int {
	delim := src[i]

	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case delim:
			return j + 1
		}
	}

	return len(src)
}

func commentEnd(src string, i int) int {
	if src[i+1] == '/' {
		if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
			return i + nl
		}
		return len(src)
	}

	if end := strings.Index(src[i+2:], "*/"); end >= 0 {
		return i + 2 + end + 2
	}

	return len(src)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func identEnd(src string, i int) int {
	for i < len(src) && isIdentPart(src[i]) {
		i++
	}

	return i
}

func skipSpace(src string, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}

	return i
}
