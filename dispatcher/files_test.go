package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/stretchr/testify/require"

	"github.com/chtl-lang/chtl/scanner"
)

func textRegistry(t *testing.T) Registry {
	t.Helper()

	return mustRegistry(t,
		CompilerFunc{Type: scanner.TEXT, Func: func(_ context.Context, f Fragment) CompilationResult {
			return Succeeded(strings.TrimSpace(f.Content), scanner.HTML)
		}},
		CompilerFunc{Type: scanner.CHTL, Func: func(_ context.Context, f Fragment) CompilationResult {
			return Succeeded("", scanner.HTML)
		}},
	)
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "about-us.chtl")
	require.NoError(t, os.WriteFile(plain, []byte("hello there"), 0o644))

	literate := filepath.Join(dir, "home.chtl.md")
	require.NoError(t, os.WriteFile(literate, []byte("# Home Page\n\n```chtl\nwelcome home\n```\n"), 0o644))

	missing := filepath.Join(dir, "missing.chtl")

	d := New(textRegistry(t), Options{Parallel: true, Workers: 2})
	results := d.CompileFiles(context.Background(), []string{plain, literate, missing})

	require.Equal(t, 3, len(results))

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "About Us", results[0].Title)
	assert.Contains(t, results[0].Result.Document, "<title>About Us</title>")
	assert.Contains(t, results[0].Result.HTML, "hello there")

	assert.NoError(t, results[1].Err)
	assert.Equal(t, "Home Page", results[1].Title)
	assert.Contains(t, results[1].Result.HTML, "welcome home")

	assert.Error(t, results[2].Err)
	assert.Equal(t, missing, results[2].Path)
}

func TestCompileFileConfiguredTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.chtl")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o644))

	d := New(textRegistry(t), Options{Title: "Configured"})
	result := d.CompileFile(context.Background(), path)

	require.NoError(t, result.Err)
	assert.Equal(t, "Configured", result.Title)
}
