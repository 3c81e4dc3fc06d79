// Package jsgen compiles raw JavaScript fragments against the merged script
// produced by the lowering phase.
package jsgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/minify/v2"
	minjs "github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
)

const mediaType = "application/javascript"

// Options configures the JavaScript compiler
type Options struct {
	Minify bool
	// Strict parses the whole buffer as a script; otherwise only lexical
	// errors such as unterminated strings fail the fragment.
	Strict bool
}

// Compiler is the built-in JavaScript compiler
type Compiler struct {
	options  Options
	minifier *minify.M
}

// New creates a JavaScript compiler
func New(options ...Options) *Compiler {
	var opts Options
	if len(options) > 0 {
		opts = options[0]
	}

	m := minify.New()
	m.AddFunc(mediaType, minjs.Minify)

	return &Compiler{options: opts, minifier: m}
}

func (c *Compiler) SupportedType() scanner.FragmentType {
	return scanner.JAVASCRIPT
}

func (c *Compiler) Compile(ctx context.Context, fragment dispatcher.Fragment) dispatcher.CompilationResult {
	if err := ctx.Err(); err != nil {
		return dispatcher.Failed(err.Error(), scanner.JAVASCRIPT)
	}

	var err error
	if c.options.Strict {
		err = checkParse(fragment.Content)
	} else {
		err = checkTokens(fragment.Content)
	}

	if err != nil {
		return dispatcher.Failed(describe(err, fragment), scanner.JAVASCRIPT)
	}

	own := fragment.Own()
	if !c.options.Minify {
		return dispatcher.Succeeded(own, scanner.JAVASCRIPT)
	}

	minified, err := c.minifier.String(mediaType, own)
	if err != nil {
		return dispatcher.Succeeded(own, scanner.JAVASCRIPT)
	}

	return dispatcher.Succeeded(minified, scanner.JAVASCRIPT)
}

// Minify minifies a whole script
func (c *Compiler) Minify(s string) (string, error) {
	return c.minifier.String(mediaType, s)
}

// checkTokens lexes s, rereading a slash as a regular expression wherever an
// expression may start.
func checkTokens(s string) error {
	lexer := js.NewLexer(parse.NewInputString(s))
	prev := js.ErrorToken

	for {
		tt, _ := lexer.Next()

		if (tt == js.DivToken || tt == js.DivEqToken) && regexAllowed(prev) {
			tt, _ = lexer.RegExp()
		}

		switch tt {
		case js.ErrorToken:
			err := lexer.Err()
			if err == nil || errors.Is(err, io.EOF) {
				return nil
			}

			return err
		case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
			continue
		}

		prev = tt
	}
}

func regexAllowed(prev js.TokenType) bool {
	switch prev {
	case js.ErrorToken:
		return true
	case js.CloseParenToken, js.CloseBracketToken, js.CloseBraceToken:
		return false
	case js.ThisToken, js.SuperToken, js.NullToken, js.TrueToken, js.FalseToken:
		return false
	}

	return js.IsPunctuator(prev) || js.IsOperator(prev) || js.IsReservedWord(prev)
}

func checkParse(s string) error {
	_, err := js.Parse(parse.NewInputString(s), js.Options{})
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// describe renders a parse error with a line number relative to the fragment
func describe(err error, fragment dispatcher.Fragment) string {
	var perr *parse.Error
	if !errors.As(err, &perr) {
		return "js syntax error: " + err.Error()
	}

	prefixLines := strings.Count(fragment.Content[:fragment.ContextLen], "\n")
	if perr.Line <= prefixLines {
		return fmt.Sprintf("js syntax error in merged script: %s", perr.Message)
	}

	return fmt.Sprintf("js syntax error: %s at line %d", perr.Message, perr.Line-prefixLines)
}
