package generator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/alecthomas/assert/v2"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl/dispatcher"
)

func compiled() *dispatcher.Result {
	return &dispatcher.Result{
		Success: true,
		HTML:    `<!-- banner --><div id="app">Hello</div>`,
		CSS:     "#app { color: red; }",
		JS:      "console.log('ready');",
	}
}

func readDocument(t *testing.T, path string) (string, *goquery.Document) {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	require.NoError(t, err)

	return string(data), doc
}

func TestWriteInline(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dist")

	files, err := Write(Page{Title: "Home", Result: compiled()}, OutputOptions{Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, Files{HTML: filepath.Join(dir, "index.html")}, files)

	_, doc := readDocument(t, files.HTML)
	assert.Equal(t, "Home", doc.Find("title").Text())
	assert.Equal(t, "Hello", doc.Find("div#app").Text())
	assert.Contains(t, doc.Find("style").Text(), "#app { color: red; }")
	assert.Contains(t, doc.Find("script").Text(), "console.log('ready');")
}

func TestWriteSplit(t *testing.T) {
	dir := t.TempDir()

	files, err := Write(Page{Title: "About", Result: compiled()}, OutputOptions{Dir: dir, Name: "about", Split: true})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "about.html"), files.HTML)
	assert.Equal(t, filepath.Join(dir, "about.css"), files.CSS)
	assert.Equal(t, filepath.Join(dir, "about.js"), files.JS)

	_, doc := readDocument(t, files.HTML)
	href, _ := doc.Find(`link[rel="stylesheet"]`).Attr("href")
	assert.Equal(t, "about.css", href)
	src, _ := doc.Find("script").Attr("src")
	assert.Equal(t, "about.js", src)
	assert.Equal(t, 0, doc.Find("style").Length())

	css, err := os.ReadFile(files.CSS)
	require.NoError(t, err)
	assert.Equal(t, "#app { color: red; }\n", string(css))
}

func TestWriteSplitWithoutAssets(t *testing.T) {
	dir := t.TempDir()

	files, err := Write(Page{Result: &dispatcher.Result{Success: true, HTML: "<p>x</p>"}}, OutputOptions{Dir: dir, Split: true})
	require.NoError(t, err)

	assert.Equal(t, "", files.CSS)
	assert.Equal(t, "", files.JS)

	_, doc := readDocument(t, files.HTML)
	assert.Equal(t, dispatcher.DefaultTitle, doc.Find("title").Text())
	assert.Equal(t, 0, doc.Find("link").Length())
	assert.Equal(t, 0, doc.Find("script").Length())
}

func TestWriteMinified(t *testing.T) {
	dir := t.TempDir()

	files, err := Write(Page{Title: "Home", Result: compiled()}, OutputOptions{Dir: dir, MinifyHTML: true})
	require.NoError(t, err)

	raw, doc := readDocument(t, files.HTML)
	assert.NotContains(t, raw, "\n    <meta")
	assert.Contains(t, raw, "<!-- banner -->")
	assert.Contains(t, raw, "</html>")
	assert.Contains(t, doc.Find("style").Text(), "#app{color:red}")
	assert.Equal(t, "Hello", doc.Find("div#app").Text())
}

func TestWriteErrors(t *testing.T) {
	tests := []struct {
		name string
		page Page
		opts OutputOptions
		want error
	}{
		{name: "no result", page: Page{}, want: ErrNoResult},
		{name: "failed compilation", page: Page{Result: &dispatcher.Result{ErrorMessage: "boom"}}, want: ErrFailedDocument},
		{name: "path in name", page: Page{Result: compiled()}, opts: OutputOptions{Name: "../x"}, want: ErrInvalidName},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.opts.Dir = t.TempDir()
			_, err := Write(test.page, test.opts)
			assert.IsError(t, err, test.want)
		})
	}
}

func TestWriteAllowErrors(t *testing.T) {
	dir := t.TempDir()

	files, err := Write(Page{Result: &dispatcher.Result{HTML: "<p>partial</p>"}}, OutputOptions{Dir: dir, AllowErrors: true})
	require.NoError(t, err)

	_, doc := readDocument(t, files.HTML)
	assert.Equal(t, "partial", doc.Find("p").Text())
}

func TestLinkedEscapesTitle(t *testing.T) {
	doc := Linked("", "", "", "a < b")
	assert.Contains(t, doc, "<title>a &lt; b</title>")
}
