package dispatcher

import (
	"html"
	"strings"
)

// Placeholders replaced by Assemble.
// The CSS and JS markers are comments of their own grammar.
const (
	CSSPlaceholder  = "/* CSS_PLACEHOLDER */"
	HTMLPlaceholder = "<!-- HTML_CONTENT_PLACEHOLDER -->"
	JSPlaceholder   = "/* JS_PLACEHOLDER */"

	DefaultTitle = "CHTL Generated Page"
)

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{TITLE}}</title>
    <style>
` + CSSPlaceholder + `
    </style>
</head>
<body>
` + HTMLPlaceholder + `
    <script>
` + JSPlaceholder + `
    </script>
</body>
</html>
`

// Assemble places body, CSS and JS into the page template.
// JS is substituted first so placeholder-like text in earlier parts survives.
func Assemble(body, css, js, title string) string {
	if title == "" {
		title = DefaultTitle
	}

	doc := strings.Replace(documentTemplate, "{{TITLE}}", html.EscapeString(title), 1)
	doc = strings.Replace(doc, JSPlaceholder, js, 1)
	doc = strings.Replace(doc, HTMLPlaceholder, body, 1)

	return strings.Replace(doc, CSSPlaceholder, css, 1)
}
