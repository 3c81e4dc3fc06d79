// Package source loads CHTL input files: plain .chtl sources in any of the
// supported encodings and literate .chtl.md documents.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sentinel errors
var (
	ErrInvalidSource      = errors.New("source is not valid UTF-8 or UTF-16")
	ErrInvalidFrontMatter = errors.New("invalid front matter")
	ErrNoCodeBlocks       = errors.New("literate source contains no chtl code blocks")
)

// File extensions recognized as CHTL input
const (
	Extension         = ".chtl"
	LiterateExtension = ".chtl.md"
)

// Document is a decoded input file
type Document struct {
	Path     string
	Text     string
	Title    string
	Literate bool
	Meta     map[string]any
}

// ReadFile reads and decodes path. Literate files are reduced to their chtl
// code blocks with the surrounding prose blanked, so line numbers still match.
func ReadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc := &Document{Path: path, Text: text}

	if IsLiterate(path) {
		lit, err := ExtractLiterate(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		doc.Text = lit.Code
		doc.Title = lit.Title
		doc.Meta = lit.Meta
		doc.Literate = true
	}

	return doc, nil
}

// IsLiterate reports whether path names a literate source
func IsLiterate(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), LiterateExtension)
}

// IsSource reports whether path names any CHTL input
func IsSource(path string) bool {
	return IsLiterate(path) || strings.EqualFold(filepath.Ext(path), Extension)
}

// BaseName strips the directory and CHTL extension: "pages/about-us.chtl.md" -> "about-us"
func BaseName(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)

	switch {
	case strings.HasSuffix(lower, LiterateExtension):
		return base[:len(base)-len(LiterateExtension)]
	case strings.HasSuffix(lower, Extension):
		return base[:len(base)-len(Extension)]
	default:
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
}

// TitleFromPath derives a page title from a file name: "about-us.chtl" -> "About Us"
func TitleFromPath(path string) string {
	name := strings.NewReplacer("-", " ", "_", " ").Replace(BaseName(path))
	name = strings.Join(strings.Fields(name), " ")

	return cases.Title(language.English).String(name)
}
