// Package generator writes compiled pages to disk.
package generator

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	minjs "github.com/tdewolff/minify/v2/js"

	"github.com/chtl-lang/chtl/dispatcher"
)

// Sentinel errors
var (
	ErrNoResult       = errors.New("no compilation result")
	ErrInvalidName    = errors.New("invalid output name")
	ErrMinifyFailed   = errors.New("html minification failed")
	ErrWriteFailed    = errors.New("failed to write output")
	ErrFailedDocument = errors.New("document has compilation errors")
)

// OutputOptions controls where and how a page is written
type OutputOptions struct {
	// Dir is created when missing; defaults to the current directory
	Dir string
	// Name is the file name without extension; defaults to "index"
	Name string
	// Split writes CSS and JS next to the HTML file instead of inlining them
	Split bool
	// MinifyHTML minifies the HTML file, including inline style and script
	MinifyHTML bool
	// AllowErrors writes documents of failed compilations as well
	AllowErrors bool
}

// Page is the input of Write
type Page struct {
	Title  string
	Result *dispatcher.Result
}

// Files lists the paths written; CSS and JS are empty unless split output produced them
type Files struct {
	HTML string
	CSS  string
	JS   string
}

// Write renders page and writes it according to opts
func Write(page Page, opts OutputOptions) (Files, error) {
	if page.Result == nil {
		return Files{}, ErrNoResult
	}

	if !page.Result.Success && !opts.AllowErrors {
		return Files{}, fmt.Errorf("%w: %s", ErrFailedDocument, page.Result.ErrorMessage)
	}

	name := opts.Name
	if name == "" {
		name = "index"
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Files{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Files{}, fmt.Errorf("%w: failed to create output directory %s: %w", ErrWriteFailed, dir, err)
	}

	files := Files{HTML: filepath.Join(dir, name+".html")}

	var document string

	if opts.Split {
		var cssHref, jsHref string

		if page.Result.CSS != "" {
			cssHref = name + ".css"
			files.CSS = filepath.Join(dir, cssHref)
		}

		if page.Result.JS != "" {
			jsHref = name + ".js"
			files.JS = filepath.Join(dir, jsHref)
		}

		document = Linked(page.Result.HTML, cssHref, jsHref, page.Title)
	} else {
		document = dispatcher.Assemble(page.Result.HTML, page.Result.CSS, page.Result.JS, page.Title)
	}

	if opts.MinifyHTML {
		minified, err := MinifyHTML(document)
		if err != nil {
			return Files{}, err
		}
		document = minified
	}

	if err := writeFile(files.HTML, document); err != nil {
		return Files{}, err
	}

	if files.CSS != "" {
		if err := writeFile(files.CSS, page.Result.CSS+"\n"); err != nil {
			return Files{}, err
		}
	}

	if files.JS != "" {
		if err := writeFile(files.JS, page.Result.JS+"\n"); err != nil {
			return Files{}, err
		}
	}

	return files, nil
}

const linkedTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
%s</head>
<body>
%s
%s</body>
</html>
`

// Linked builds a document referencing external stylesheet and script files.
// An empty href omits the reference.
func Linked(body, cssHref, jsHref, title string) string {
	if title == "" {
		title = dispatcher.DefaultTitle
	}

	var link, script string

	if cssHref != "" {
		link = `    <link rel="stylesheet" href="` + html.EscapeString(cssHref) + `">` + "\n"
	}

	if jsHref != "" {
		script = `    <script src="` + html.EscapeString(jsHref) + `"></script>` + "\n"
	}

	return fmt.Sprintf(linkedTemplate, html.EscapeString(title), link, body, script)
}

var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), minjs.Minify)
	m.Add("text/html", &minhtml.Minifier{
		KeepComments:     true,
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})

	return m
}

// MinifyHTML minifies a complete document. Generator comments are kept.
func MinifyHTML(document string) (string, error) {
	out, err := minifier.String("text/html", document)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMinifyFailed, err)
	}

	return out, nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}

	return nil
}
