package chtlgen

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
	"github.com/chtl-lang/chtl/testhelper"
)

// renderSource scans src and lowers the markup-bearing slices in order.
// Style and script slices are left to their own compilers.
func renderSource(t *testing.T, src string) (string, error) {
	t.Helper()

	slices, err := scanner.New().Scan(src)
	require.NoError(t, err)

	var b strings.Builder

	for _, s := range slices {
		if s.Context.IsStyle() || s.Context.IsScript() {
			continue
		}

		switch s.Type {
		case scanner.CHTL:
			out, err := Render(s)
			if err != nil {
				return "", err
			}
			b.WriteString(out)
		case scanner.TEXT:
			b.WriteString(strings.TrimSpace(s.Content))
		case scanner.HTML:
			b.WriteString(s.Content)
		}
	}

	return b.String(), nil
}

func TestRenderSource(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "element with attributes",
			source: `div { id: box; class = "a b"; span { text: "hi"; } }`,
			want:   `<div id="box" class="a b"><span>hi</span></div>`,
		},
		{
			name:   "unquoted value with punctuation",
			source: `img { src: a.png; alt: "x"; }`,
			want:   `<img src="a.png" alt="x">`,
		},
		{
			name:   "void element without attributes",
			source: "p { br { } }",
			want:   "<p><br></p>",
		},
		{
			name:   "attributes continue after a comment",
			source: "div {\n  // note\n  id: a;\n  p { }\n}",
			want:   `<div id="a"><p></p></div>`,
		},
		{
			name:   "generator comment",
			source: "-- hello\ndiv { }",
			want:   "<!-- hello --><div></div>",
		},
		{
			name:   "text block",
			source: "p { text { Hello World } }",
			want:   "<p>Hello World</p>",
		},
		{
			name:   "escaped text attribute",
			source: `p { text: "a < b"; }`,
			want:   "<p>a &lt; b</p>",
		},
		{
			name:   "template definition produces no markup",
			source: "[Template] @Element Box { div { } }\nspan { }",
			want:   "<span></span>",
		},
		{
			name:   "import statement",
			source: "[Import] @Chtl from \"lib.chtl\";\ndiv { }",
			want:   "<div></div>",
		},
		{
			name:   "origin block inside an element",
			source: "div { [Origin] @Html { <b>x</b> } }",
			want:   "<div> <b>x</b> </div>",
		},
		{
			name: "nested list" + testhelper.Caller(t),
			source: testhelper.Dedent(t, `
				ul {
					class: menu;
					// entries
					li { text: "One"; }
					li { text: "Two"; }
				}
			`),
			want: `<ul class="menu"><li>One</li><li>Two</li></ul>`,
		},
		{
			name:   "local style closes the start tag",
			source: "div { style { color: red; } span { } }",
			want:   "<div><span></span></div>",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := renderSource(t, test.source)
			require.NoError(t, err)
			// whitespace between statements is not significant
			assert.Equal(t, test.want, strings.Join(strings.Fields(got), " "))
		})
	}
}

func TestRenderSourceErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{name: "attribute after content" + testhelper.Caller(t), source: "div { style { color: red; } id: x; }", want: ErrMisplacedAttribute},
		{name: "template usage" + testhelper.Caller(t), source: "body { @Element Box; }", want: ErrUnsupportedConstruct},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := renderSource(t, test.source)
			assert.True(t, errors.Is(err, test.want), "got %v", err)
		})
	}
}

func TestRenderInheritedFrames(t *testing.T) {
	div := scanner.FrameInfo{Type: scanner.BLOCK_ELEMENT, Name: "div"}

	t.Run("open start tag", func(t *testing.T) {
		out, err := Render(scanner.CodeSlice{
			Type:    scanner.CHTL,
			Context: scanner.ELEMENT_BODY,
			Content: " class: x; }",
			Frames:  []scanner.FrameInfo{div},
			Line:    1,
			Column:  1,
		})
		assert.NoError(t, err)
		assert.Equal(t, ` class="x"></div>`, out)
	})

	t.Run("start tag already closed", func(t *testing.T) {
		closed := div
		closed.Children = 1

		_, err := Render(scanner.CodeSlice{
			Type:    scanner.CHTL,
			Context: scanner.ELEMENT_BODY,
			Content: "class: x;",
			Frames:  []scanner.FrameInfo{closed},
			Line:    1,
			Column:  1,
		})
		assert.IsError(t, err, ErrMisplacedAttribute)
	})

	t.Run("keyword marker closes the start tag", func(t *testing.T) {
		out, err := Render(scanner.CodeSlice{
			Type:    scanner.CHTL,
			Context: scanner.ELEMENT_BODY,
			Content: "style {",
			Marker:  scanner.MARKER_STYLE,
			Frames:  []scanner.FrameInfo{div},
		})
		assert.NoError(t, err)
		assert.Equal(t, ">", out)
	})

	t.Run("pending definition", func(t *testing.T) {
		out, err := Render(scanner.CodeSlice{
			Type:    scanner.CHTL,
			Content: " Box { div { } }",
			Pending: scanner.BLOCK_TEMPLATE,
			Line:    1,
			Column:  1,
		})
		assert.NoError(t, err)
		assert.Equal(t, "", out)
	})
}

func TestRenderFailures(t *testing.T) {
	t.Run("unterminated string", func(t *testing.T) {
		_, err := Render(scanner.CodeSlice{
			Type:    scanner.CHTL,
			Content: `id: "abc`,
			Frames:  []scanner.FrameInfo{{Type: scanner.BLOCK_ELEMENT, Name: "div"}},
			Line:    3,
			Column:  5,
		})
		assert.IsError(t, err, ErrUnterminatedString)
		assert.Contains(t, err.Error(), "at 3:9")
	})

	t.Run("attribute at top level", func(t *testing.T) {
		_, err := Render(scanner.CodeSlice{Type: scanner.CHTL, Content: "id: x;", Line: 1, Column: 1})
		assert.IsError(t, err, ErrMisplacedAttribute)
	})

	t.Run("unbalanced close", func(t *testing.T) {
		_, err := Render(scanner.CodeSlice{Type: scanner.CHTL, Content: "}", Line: 1, Column: 1})
		assert.IsError(t, err, ErrUnexpectedToken)
	})
}

func TestCompileSourceType(t *testing.T) {
	c := New()
	assert.Equal(t, scanner.CHTL, c.SupportedType())

	tests := []struct {
		name    string
		context scanner.SliceContext
		want    scanner.FragmentType
	}{
		{name: "element body", context: scanner.ELEMENT_BODY, want: scanner.HTML},
		{name: "local style", context: scanner.LOCAL_STYLE, want: scanner.CSS},
		{name: "global script", context: scanner.GLOBAL_SCRIPT, want: scanner.JAVASCRIPT},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			slice := scanner.CodeSlice{Type: scanner.CHTL, Context: test.context, Content: " ", Line: 1, Column: 1}
			result := c.Compile(context.Background(), dispatcher.Fragment{Type: scanner.CHTL, Content: " ", Slice: slice})
			assert.True(t, result.Success)
			assert.Equal(t, test.want, result.SourceType)
		})
	}
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New().Compile(ctx, dispatcher.Fragment{Type: scanner.CHTL, Content: "div { }"})
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "canceled")
}

func TestCompileWritesNothingToStderr(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	stderr := os.Stderr
	os.Stderr = w
	t.Cleanup(func() { os.Stderr = stderr })

	captured := make(chan []byte)
	go func() {
		b, _ := io.ReadAll(r)
		captured <- b
	}()

	slices, err := scanner.New().Scan("div { id: box; class = \"a b\"; span { text: \"hi\"; } }")
	require.NoError(t, err)

	c := New()
	for _, s := range slices {
		if s.Type != scanner.CHTL {
			continue
		}
		result := c.Compile(context.Background(), dispatcher.Fragment{Type: s.Type, Content: s.Content, Slice: s})
		assert.True(t, result.Success, result.ErrorMessage)
	}

	os.Stderr = stderr
	require.NoError(t, w.Close())

	assert.Equal(t, "", string(<-captured))
}
