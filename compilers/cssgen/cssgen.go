// Package cssgen compiles raw CSS fragments. The whole buffer handed over by
// the dispatcher (merged stylesheet + fragment) is checked; only the fragment's
// own part is emitted.
package cssgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
)

const mediaType = "text/css"

// Options configures the CSS compiler
type Options struct {
	// Minify emits the fragment minified; text that fails to minify is kept as is
	Minify bool
	// Strict runs the full CSS grammar instead of the lexical check
	Strict bool
}

// Compiler is the built-in CSS compiler
type Compiler struct {
	options  Options
	minifier *minify.M
}

// New creates a CSS compiler
func New(options ...Options) *Compiler {
	var opts Options
	if len(options) > 0 {
		opts = options[0]
	}

	m := minify.New()
	m.AddFunc(mediaType, mincss.Minify)

	return &Compiler{options: opts, minifier: m}
}

func (c *Compiler) SupportedType() scanner.FragmentType {
	return scanner.CSS
}

func (c *Compiler) Compile(ctx context.Context, fragment dispatcher.Fragment) dispatcher.CompilationResult {
	if err := ctx.Err(); err != nil {
		return dispatcher.Failed(err.Error(), scanner.CSS)
	}

	var err error
	if c.options.Strict {
		err = checkGrammar(fragment.Content)
	} else {
		err = checkTokens(fragment.Content)
	}

	if err != nil {
		return dispatcher.Failed(describe(err, fragment), scanner.CSS)
	}

	own := fragment.Own()
	if !c.options.Minify {
		return dispatcher.Succeeded(own, scanner.CSS)
	}

	minified, err := c.minifier.String(mediaType, own)
	if err != nil {
		return dispatcher.Succeeded(own, scanner.CSS)
	}

	return dispatcher.Succeeded(minified, scanner.CSS)
}

// Minify minifies a whole stylesheet
func (c *Compiler) Minify(s string) (string, error) {
	return c.minifier.String(mediaType, s)
}

type syntaxError struct {
	offset  int
	message string
}

func (e *syntaxError) Error() string {
	return e.message
}

// checkTokens reports lexical breakage only: bad strings, bad urls and
// unterminated comments.
func checkTokens(s string) error {
	lexer := css.NewLexer(parse.NewInputString(s))
	offset := 0

	for {
		tt, data := lexer.Next()

		switch tt {
		case css.ErrorToken:
			if err := lexer.Err(); err != nil && !errors.Is(err, io.EOF) {
				return &syntaxError{offset: offset, message: err.Error()}
			}

			return nil
		case css.BadStringToken:
			return &syntaxError{offset: offset, message: "unterminated string"}
		case css.BadURLToken:
			return &syntaxError{offset: offset, message: "malformed url"}
		case css.CommentToken:
			if !strings.HasSuffix(string(data), "*/") || len(data) < 4 {
				return &syntaxError{offset: offset, message: "unterminated comment"}
			}
		}

		offset += len(data)
	}
}

// checkGrammar additionally checks braces and rejects any parser error
func checkGrammar(s string) error {
	if err := checkTokens(s); err != nil {
		return err
	}

	if err := checkBraces(s); err != nil {
		return err
	}

	p := css.NewParser(parse.NewInputString(s), false)

	for {
		gt, _, _ := p.Next()
		if gt != css.ErrorGrammar {
			continue
		}

		err := p.Err()
		if err == nil || errors.Is(err, io.EOF) {
			break
		}

		var perr *parse.Error
		if errors.As(err, &perr) {
			return &syntaxError{offset: lineOffset(s, perr.Line), message: perr.Message}
		}

		return &syntaxError{offset: len(s), message: err.Error()}
	}

	return nil
}

func checkBraces(s string) error {
	lexer := css.NewLexer(parse.NewInputString(s))
	depth, offset := 0, 0

	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			break
		}

		switch tt {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth < 0 {
				return &syntaxError{offset: offset, message: "unexpected }"}
			}
		}

		offset += len(data)
	}

	if depth > 0 {
		return &syntaxError{offset: offset, message: "missing }"}
	}

	return nil
}

// lineOffset returns the offset of the first byte of 1-based line
func lineOffset(s string, line int) int {
	offset := 0
	for ; line > 1; line-- {
		i := strings.IndexByte(s[offset:], '\n')
		if i < 0 {
			return len(s)
		}
		offset += i + 1
	}

	return offset
}

// describe renders a syntax error with a line number relative to the fragment
func describe(err error, fragment dispatcher.Fragment) string {
	var se *syntaxError
	if !errors.As(err, &se) {
		return "css syntax error: " + err.Error()
	}

	if se.offset < fragment.ContextLen {
		return fmt.Sprintf("css syntax error in merged stylesheet: %s", se.message)
	}

	own := fragment.Content[fragment.ContextLen:min(se.offset, len(fragment.Content))]

	return fmt.Sprintf("css syntax error: %s at line %d", se.message, strings.Count(own, "\n")+1)
}
