package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/alecthomas/assert/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl"
	"github.com/chtl-lang/chtl/scanner"
)

func quietContext() *Context {
	return &Context{Config: "chtl.yaml", Quiet: true, Logger: zerolog.Nop()}
}

func TestInitAndCompile(t *testing.T) {
	t.Chdir(t.TempDir())

	ctx := quietContext()
	require.NoError(t, (&InitCmd{}).Run(ctx))

	assert.True(t, fileExists("chtl.yaml"))
	assert.True(t, fileExists(filepath.Join("src", "index.chtl")))

	_, err := chtl.LoadConfig("chtl.yaml")
	require.NoError(t, err)

	require.NoError(t, (&CompileCmd{}).Run(ctx))

	data, err := os.ReadFile(filepath.Join("dist", "index.html"))
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "Index", doc.Find("title").Text())
	assert.Equal(t, "Hello CHTL", doc.Find("div#app.card h1").Text())
	assert.Equal(t, "Click me", doc.Find("div#app button").Text())
	assert.Contains(t, doc.Find("style").Text(), ".card")
	assert.Contains(t, doc.Find("script").Text(), "document.querySelector('.card button')")
}

func TestInitRefusesToOverwrite(t *testing.T) {
	t.Chdir(t.TempDir())

	ctx := quietContext()
	require.NoError(t, (&InitCmd{}).Run(ctx))

	err := (&InitCmd{}).Run(ctx)
	assert.IsError(t, err, ErrProjectExists)

	assert.NoError(t, (&InitCmd{Force: true}).Run(ctx))
}

func TestCompileSplitOutput(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, writeFile(filepath.Join("pages", "about-us.chtl"), "p { text: \"About\"; style { p { color: red; } } }\n"))

	err := (&CompileCmd{Files: []string{"pages"}, Output: "out", Split: true}).Run(quietContext())
	require.NoError(t, err)

	html, err := os.ReadFile(filepath.Join("out", "about-us.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), `<link rel="stylesheet" href="about-us.css">`)
	assert.Contains(t, string(html), "<title>About Us</title>")

	css, err := os.ReadFile(filepath.Join("out", "about-us.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "color: red;")

	assert.False(t, fileExists(filepath.Join("out", "about-us.js")))
}

func TestCompileReportsFailures(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, writeFile("broken.chtl", "div { style { .a { content: \"x\n; } } }\n"))

	err := (&CompileCmd{Files: []string{"broken.chtl"}}).Run(quietContext())
	assert.IsError(t, err, ErrCompilationErrors)
	assert.False(t, fileExists(filepath.Join("dist", "broken.html")))
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, writeFile(filepath.Join("src", "ok.chtl"), "div { }\n"))
	assert.NoError(t, (&ValidateCmd{}).Run(quietContext()))

	require.NoError(t, writeFile(filepath.Join("src", "bad.chtl"), "div {\n"))
	err := (&ValidateCmd{}).Run(quietContext())
	assert.IsError(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "1 of 2 files")
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"a.chtl", "b.chtl.md", "notes.txt", filepath.Join("sub", "c.chtl")} {
		require.NoError(t, writeFile(filepath.Join(dir, name), "div { }"))
	}

	files, err := collectFiles([]string{dir, filepath.Join(dir, "a.chtl")})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.chtl"),
		filepath.Join(dir, "b.chtl.md"),
		filepath.Join(dir, "sub", "c.chtl"),
	}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing")})
	assert.IsError(t, err, chtl.ErrNoInputFiles)

	empty := t.TempDir()
	_, err = collectFiles([]string{empty})
	assert.IsError(t, err, chtl.ErrNoInputFiles)
}

func TestWriteSlices(t *testing.T) {
	slices, err := scanner.New().Scan("-- hi\ndiv { style { color: red; } }")
	require.NoError(t, err)

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeSlices(&out, slices, "table"))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		assert.Equal(t, len(slices)+1, len(lines))
		assert.True(t, strings.HasPrefix(lines[0], "TYPE"))
		assert.Contains(t, out.String(), "LOCAL_STYLE")
		assert.Contains(t, out.String(), "STYLE")
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeSlices(&out, slices, "json"))

		var views []sliceView
		require.NoError(t, json.Unmarshal(out.Bytes(), &views))
		require.Equal(t, len(slices), len(views))
		assert.Equal(t, "GENERATOR", views[0].Comment)
		assert.Equal(t, "-- hi", strings.TrimSpace(views[0].Content))
	})

	t.Run("unknown format", func(t *testing.T) {
		err := writeSlices(&bytes.Buffer{}, slices, "xml")
		assert.IsError(t, err, ErrInvalidOutputFormat)
	})
}

func TestPreview(t *testing.T) {
	assert.Equal(t, `"a\nb"`, preview("a\nb"))
	assert.Equal(t, `"`+strings.Repeat("x", previewWidth)+`"...`, preview(strings.Repeat("x", previewWidth+5)))
}
