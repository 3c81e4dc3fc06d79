// Package chtlgen lowers CHTL slices to HTML. Each slice is compiled on its
// own: the block stack recorded by the scanner tells the compiler which
// elements are already open.
package chtlgen

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	pc "github.com/shibukawa/parsercombinator"

	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
)

// Sentinel errors
var (
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrMisplacedAttribute   = errors.New("misplaced attribute")
	ErrUnexpectedToken      = errors.New("unexpected token")
	ErrUnterminatedString   = errors.New("unterminated string")
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// Compiler is the built-in CHTL compiler
type Compiler struct{}

// New creates a CHTL compiler
func New() *Compiler {
	return &Compiler{}
}

func (c *Compiler) SupportedType() scanner.FragmentType {
	return scanner.CHTL
}

func (c *Compiler) Compile(ctx context.Context, fragment dispatcher.Fragment) dispatcher.CompilationResult {
	slice := fragment.Slice
	if slice.Content == "" {
		slice.Content = fragment.Own()
		slice.Line, slice.Column = 1, 1
	}

	outType := scanner.HTML
	switch {
	case slice.Context.IsStyle():
		outType = scanner.CSS
	case slice.Context.IsScript():
		outType = scanner.JAVASCRIPT
	}

	if err := ctx.Err(); err != nil {
		return dispatcher.Failed(err.Error(), outType)
	}

	out, err := Render(slice)
	if err != nil {
		return dispatcher.Failed(err.Error(), outType)
	}

	return dispatcher.Succeeded(out, outType)
}

// Render lowers one CHTL slice
func Render(slice scanner.CodeSlice) (string, error) {
	r := newRenderer(slice)

	switch {
	case slice.Comment == scanner.COMMENT_GENERATOR:
		if r.suppressed() {
			return "", nil
		}

		text := strings.TrimSpace(strings.TrimPrefix(slice.Content, "--"))
		r.closeStartTag()
		r.out.WriteString("<!-- " + strings.ReplaceAll(text, "--", "- -") + " -->")

		return r.out.String(), nil
	case slice.IsComment():
		return "", nil
	case slice.Marker != scanner.MARKER_NONE:
		if err := r.marker(slice.Marker); err != nil {
			return "", err
		}

		return r.out.String(), nil
	}

	if err := r.run(slice.Content, slice.Line, slice.Column); err != nil {
		return "", err
	}

	return r.out.String(), nil
}

type frame struct {
	block scanner.BlockType
	name  string
}

type renderer struct {
	frames  []frame
	pending scanner.BlockType
	out     strings.Builder

	// start tag of the top frame is still accepting attributes
	tagOpen bool
}

// newRenderer rebuilds the block stack at the start of slice. The start tag of
// an inherited element stays open until its first child, so attributes may
// continue after a comment.
func newRenderer(slice scanner.CodeSlice) *renderer {
	r := &renderer{pending: slice.Pending}
	for _, f := range slice.Frames {
		r.frames = append(r.frames, frame{block: f.Type, name: f.Name})
	}

	if n := len(slice.Frames); n > 0 && !r.suppressed() {
		top := slice.Frames[n-1]
		r.tagOpen = top.Type == scanner.BLOCK_ELEMENT && top.Children == 0
	}

	return r
}

// suppressed reports whether output is discarded: definitions, imports and
// configuration produce no markup.
func (r *renderer) suppressed() bool {
	if definition(r.pending) {
		return true
	}

	for _, f := range r.frames {
		if definition(f.block) {
			return true
		}
	}

	return false
}

func definition(block scanner.BlockType) bool {
	switch block {
	case scanner.BLOCK_TEMPLATE, scanner.BLOCK_CUSTOM, scanner.BLOCK_CONFIGURATION,
		scanner.BLOCK_NAMESPACE, scanner.BLOCK_IMPORT:
		return true
	}

	return false
}

func (r *renderer) marker(kind scanner.MarkerKind) error {
	if r.suppressed() {
		return nil
	}

	switch kind {
	case scanner.MARKER_AT_ELEMENT, scanner.MARKER_AT_STYLE, scanner.MARKER_AT_VAR:
		return fmt.Errorf("%w: %s usage outside a definition", ErrUnsupportedConstruct, kind)
	case scanner.MARKER_STYLE, scanner.MARKER_SCRIPT, scanner.MARKER_TEXT:
		// keyword blocks are the first child of the enclosing element
		r.closeStartTag()
	}

	return nil
}

func (r *renderer) run(src string, line, col int) error {
	pctx := pc.NewParseContext[token]()
	pctx.OrMode = pc.OrModeFast

	tokens := tokenize(src, line, col)

	for _, t := range tokens {
		if t.Val.kind == STRING && !t.Val.terminated {
			return fmt.Errorf("%w at %d:%d", ErrUnterminatedString, t.Pos.Line, t.Pos.Col)
		}
	}

	for len(tokens) > 0 {
		first := tokens[0]

		consumed, match, err := statement(pctx, tokens)
		if err != nil || consumed == 0 {
			return fmt.Errorf("%w %q at %d:%d", ErrUnexpectedToken, first.Raw, first.Pos.Line, first.Pos.Col)
		}

		if err := r.apply(match); err != nil {
			return fmt.Errorf("%w at %d:%d", err, first.Pos.Line, first.Pos.Col)
		}

		tokens = tokens[consumed:]
	}

	return nil
}

func (r *renderer) apply(match []pc.Token[token]) error {
	if len(match) == 0 {
		return nil
	}

	head := match[0]

	switch head.Type {
	case stmtElement:
		r.open(head.Val.text)
	case stmtOpen:
		r.open("")
	case stmtClose:
		return r.close()
	case stmtAttribute:
		return r.attribute(head.Val.text, valueOf(match))
	case stmtStatement:
		if match[len(match)-1].Val.kind == SEMICOLON {
			r.pending = scanner.BLOCK_NONE
		}
	}

	return nil
}

func (r *renderer) open(name string) {
	if r.pending != scanner.BLOCK_NONE {
		r.closeStartTag()
		r.frames = append(r.frames, frame{block: r.pending, name: name})
		r.pending = scanner.BLOCK_NONE

		return
	}

	if name == "" {
		r.closeStartTag()
		r.frames = append(r.frames, frame{block: scanner.BLOCK_NONE})

		return
	}

	suppressed := r.suppressed()
	r.closeStartTag()
	r.frames = append(r.frames, frame{block: scanner.BLOCK_ELEMENT, name: name})

	if !suppressed {
		r.out.WriteString("<" + name)
		r.tagOpen = true
	}
}

func (r *renderer) close() error {
	if len(r.frames) == 0 {
		return fmt.Errorf("%w %q", ErrUnexpectedToken, "}")
	}

	r.closeStartTag()

	top := r.frames[len(r.frames)-1]
	r.frames = r.frames[:len(r.frames)-1]

	if top.block == scanner.BLOCK_ELEMENT && !r.suppressed() && !voidElements[strings.ToLower(top.name)] {
		r.out.WriteString("</" + top.name + ">")
	}

	return nil
}

func (r *renderer) attribute(name, value string) error {
	if r.suppressed() {
		return nil
	}

	if name == "text" {
		r.closeStartTag()
		r.out.WriteString(html.EscapeString(value))

		return nil
	}

	if len(r.frames) == 0 || r.frames[len(r.frames)-1].block != scanner.BLOCK_ELEMENT {
		return fmt.Errorf("%w: %q outside an element", ErrMisplacedAttribute, name)
	}

	if !r.tagOpen {
		return fmt.Errorf("%w: %q of <%s> must precede its content", ErrMisplacedAttribute, name, r.frames[len(r.frames)-1].name)
	}

	r.out.WriteString(" " + name + `="` + html.EscapeString(value) + `"`)

	return nil
}

func (r *renderer) closeStartTag() {
	if r.tagOpen {
		r.out.WriteByte('>')
		r.tagOpen = false
	}
}

func valueOf(match []pc.Token[token]) string {
	var b strings.Builder

	for _, t := range match {
		if t.Type != partValue {
			continue
		}

		if t.Val.kind == STRING {
			return unquote(t.Val.text)
		}

		b.WriteString(t.Raw)
	}

	return strings.TrimSpace(b.String())
}
