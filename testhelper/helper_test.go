package testhelper

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestDedent(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "spaces",
			src: `
    div {
        id: a;
    }
`,
			want: "div {\n    id: a;\n}\n",
		},
		{
			name: "tabs",
			src:  "\n\t\tp {\n\t\t\ttext: x;\n\t\t}",
			want: "p {\n    text: x;\n}",
		},
		{
			name: "blank lines keep no indentation",
			src:  "\n  a\n\n  b",
			want: "a\n\nb",
		},
		{
			name: "no indentation",
			src:  "a\n b",
			want: "a\n b",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, Dedent(t, test.src))
		})
	}
}

func TestCaller(t *testing.T) {
	got := Caller(t)
	assert.True(t, strings.HasPrefix(got, " (helper_test.go:"), got)
	assert.True(t, strings.HasSuffix(got, ")"))
}
