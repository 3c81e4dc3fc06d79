package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{name: "plain utf-8", raw: []byte("div {}"), want: "div {}"},
		{name: "utf-8 bom", raw: append([]byte{0xEF, 0xBB, 0xBF}, "div {}"...), want: "div {}"},
		{name: "utf-16 little endian", raw: []byte{0xFF, 0xFE, 'd', 0, 'i', 0, 'v', 0}, want: "div"},
		{name: "utf-16 big endian", raw: []byte{0xFE, 0xFF, 0, 'd', 0, 'i', 0, 'v'}, want: "div"},
		{name: "multibyte", raw: []byte("text: \"日本語\";"), want: "text: \"日本語\";"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Decode(test.raw)
			assert.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestDecodeRejectsInvalidUTF8(t *testing.T) {
	_, err := Decode([]byte{'a', 0xC3, 0x28})
	assert.IsError(t, err, ErrInvalidSource)
}

const literateDoc = "---\n" +
	"title: Home\n" +
	"---\n" +
	"# Welcome\n" +
	"\n" +
	"Some prose.\n" +
	"\n" +
	"```chtl\n" +
	"div {\n" +
	"    text: \"hi\";\n" +
	"}\n" +
	"```\n" +
	"\n" +
	"```css\n" +
	".ignored {}\n" +
	"```\n"

func TestExtractLiterate(t *testing.T) {
	lit, err := ExtractLiterate(literateDoc)
	require.NoError(t, err)

	lines := strings.Split(lit.Code, "\n")

	assert.Equal(t, strings.Count(literateDoc, "\n")+1, len(lines))
	assert.Equal(t, "div {", lines[8])
	assert.Equal(t, "    text: \"hi\";", lines[9])
	assert.Equal(t, "}", lines[10])
	assert.NotContains(t, lit.Code, "ignored")
	assert.NotContains(t, lit.Code, "prose")
	assert.Equal(t, "Home", lit.Title)
	assert.Equal(t, 1, lit.Blocks)
}

func TestExtractLiterateHeadingTitle(t *testing.T) {
	lit, err := ExtractLiterate("# Landing Page\n\n```chtl\nspan {}\n```\n")
	require.NoError(t, err)

	assert.Equal(t, "Landing Page", lit.Title)
	assert.Equal(t, "span {}", strings.Split(lit.Code, "\n")[3])
}

func TestExtractLiterateErrors(t *testing.T) {
	_, err := ExtractLiterate("# Nothing here\n\n```js\nx()\n```\n")
	assert.IsError(t, err, ErrNoCodeBlocks)

	_, err = ExtractLiterate("---\ntitle: broken\n\n```chtl\ndiv {}\n```\n")
	assert.IsError(t, err, ErrInvalidFrontMatter)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "index.chtl")
	require.NoError(t, os.WriteFile(plain, append([]byte{0xEF, 0xBB, 0xBF}, "div {}"...), 0o644))

	doc, err := ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, "div {}", doc.Text)
	assert.False(t, doc.Literate)
	assert.Equal(t, "", doc.Title)

	literate := filepath.Join(dir, "home.chtl.md")
	require.NoError(t, os.WriteFile(literate, []byte(literateDoc), 0o644))

	doc, err = ReadFile(literate)
	require.NoError(t, err)
	assert.True(t, doc.Literate)
	assert.Equal(t, "Home", doc.Title)
	assert.Contains(t, doc.Text, "div {")

	_, err = ReadFile(filepath.Join(dir, "missing.chtl"))
	assert.Error(t, err)
}

func TestPathHelpers(t *testing.T) {
	assert.True(t, IsSource("a/b.chtl"))
	assert.True(t, IsSource("a/b.CHTL.md"))
	assert.False(t, IsSource("a/b.md"))
	assert.True(t, IsLiterate("x.chtl.md"))
	assert.False(t, IsLiterate("x.chtl"))

	assert.Equal(t, "about-us", BaseName("pages/about-us.chtl.md"))
	assert.Equal(t, "index", BaseName("index.chtl"))
	assert.Equal(t, "About Us", TitleFromPath("pages/about-us.chtl"))
	assert.Equal(t, "My Page", TitleFromPath("my_page.chtl.md"))
}
