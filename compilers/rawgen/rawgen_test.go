package rawgen

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		typ     scanner.FragmentType
		content string
		want    string
	}{
		{name: "html verbatim", typ: scanner.HTML, content: "  <div class=\"a\">x</div>\n", want: "  <div class=\"a\">x</div>\n"},
		{name: "unknown verbatim", typ: scanner.UNKNOWN, content: "<template>{{ a }}</template>", want: "<template>{{ a }}</template>"},
		{name: "text escaped", typ: scanner.TEXT, content: "  a < b & c  ", want: "a &lt; b &amp; c"},
		{name: "quoted text", typ: scanner.TEXT, content: ` "Hello <World>" `, want: "Hello &lt;World&gt;"},
		{name: "escaped quote", typ: scanner.TEXT, content: `'it\'s'`, want: "it&#39;s"},
		{name: "two literals kept", typ: scanner.TEXT, content: `"a" and "b"`, want: "&#34;a&#34; and &#34;b&#34;"},
		{name: "whitespace kept", typ: scanner.TEXT, content: "\n  \n", want: "\n  \n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := New(test.typ)
			assert.Equal(t, test.typ, c.SupportedType())

			result := c.Compile(context.Background(), dispatcher.Fragment{Type: test.typ, Content: test.content})
			assert.True(t, result.Success)
			assert.Equal(t, test.want, result.Output)
			assert.Equal(t, scanner.HTML, result.SourceType)
		})
	}
}
