package scanner

import "fmt"

// MarkerKind identifies a CHTL or CHTL-JS marker a slice spans
type MarkerKind int

const (
	MARKER_NONE MarkerKind = iota

	// Bracketed keywords
	MARKER_TEMPLATE
	MARKER_CUSTOM
	MARKER_CONFIGURATION
	MARKER_ORIGIN
	MARKER_IMPORT
	MARKER_NAMESPACE
	MARKER_INFO
	MARKER_EXPORT

	// Bare keywords opening a block
	MARKER_TEXT
	MARKER_STYLE
	MARKER_SCRIPT

	// @-tags
	MARKER_AT_STYLE
	MARKER_AT_ELEMENT
	MARKER_AT_VAR
	MARKER_AT_HTML
	MARKER_AT_JAVASCRIPT
	MARKER_AT_CHTL
	MARKER_AT_CJMOD
	MARKER_AT_CONFIG
	MARKER_AT_ORIGIN_TYPE // user-declared origin type such as @Vue

	// CHTL-JS
	MARKER_ENHANCED_SELECTOR // {{ ... }}
	MARKER_ARROW             // ->
	MARKER_VIR
	MARKER_LISTEN
	MARKER_DELEGATE
	MARKER_ANIMATE
	MARKER_INEVERAWAY
	MARKER_PRINTMYLOVE
)

var markerNames = map[MarkerKind]string{
	MARKER_NONE:              "NONE",
	MARKER_TEMPLATE:          "[Template]",
	MARKER_CUSTOM:            "[Custom]",
	MARKER_CONFIGURATION:     "[Configuration]",
	MARKER_ORIGIN:            "[Origin]",
	MARKER_IMPORT:            "[Import]",
	MARKER_NAMESPACE:         "[Namespace]",
	MARKER_INFO:              "[Info]",
	MARKER_EXPORT:            "[Export]",
	MARKER_TEXT:              "text",
	MARKER_STYLE:             "style",
	MARKER_SCRIPT:            "script",
	MARKER_AT_STYLE:          "@Style",
	MARKER_AT_ELEMENT:        "@Element",
	MARKER_AT_VAR:            "@Var",
	MARKER_AT_HTML:           "@Html",
	MARKER_AT_JAVASCRIPT:     "@JavaScript",
	MARKER_AT_CHTL:           "@Chtl",
	MARKER_AT_CJMOD:          "@CJmod",
	MARKER_AT_CONFIG:         "@Config",
	MARKER_AT_ORIGIN_TYPE:    "@<origin>",
	MARKER_ENHANCED_SELECTOR: "{{}}",
	MARKER_ARROW:             "->",
	MARKER_VIR:               "vir",
	MARKER_LISTEN:            "listen",
	MARKER_DELEGATE:          "delegate",
	MARKER_ANIMATE:           "animate",
	MARKER_INEVERAWAY:        "iNeverAway",
	MARKER_PRINTMYLOVE:       "printMylove",
}

// String returns the marker's source spelling
func (k MarkerKind) String() string {
	if name, ok := markerNames[k]; ok {
		return name
	}

	return fmt.Sprintf("MarkerKind(%d)", int(k))
}

// IsCHTLJS reports whether k belongs to the CHTL-JS marker set
func (k MarkerKind) IsCHTLJS() bool {
	return k >= MARKER_ENHANCED_SELECTOR
}

type markerClass int

const (
	classBracket markerClass = iota
	classKeyword
	classAtTag
	classCHTLJS
)

type marker struct {
	kind  MarkerKind
	class markerClass
	// block is the frame a following `{` opens
	block BlockType
	// hasBody marks CHTL-JS keywords that take a `{ ... }` argument block
	hasBody bool
}

type trieNode struct {
	next   map[byte]*trieNode
	marker *marker
}

// markerTrie dispatches on the bytes at an offset instead of testing every marker in turn
type markerTrie struct {
	root trieNode
}

func newMarkerTrie() *markerTrie {
	return &markerTrie{root: trieNode{next: map[byte]*trieNode{}}}
}

func (t *markerTrie) insert(text string, m marker) {
	node := &t.root
	for i := 0; i < len(text); i++ {
		child, ok := node.next[text[i]]
		if !ok {
			child = &trieNode{next: map[byte]*trieNode{}}
			node.next[text[i]] = child
		}
		node = child
	}
	node.marker = &m
}

// match returns the longest marker starting at src[offset:] and its byte length
func (t *markerTrie) match(src string, offset int) (marker, int, bool) {
	var (
		found  *marker
		length int
	)

	node := &t.root
	for i := offset; i < len(src); i++ {
		child, ok := node.next[src[i]]
		if !ok {
			break
		}
		node = child
		if node.marker != nil {
			found = node.marker
			length = i - offset + 1
		}
	}

	if found == nil {
		return marker{}, 0, false
	}

	return *found, length, true
}

// startsMarker is the O(1) pre-check on the first byte
func (t *markerTrie) startsMarker(c byte) bool {
	_, ok := t.root.next[c]
	return ok
}

var (
	chtlMarkers   = newMarkerTrie()
	chtljsMarkers = newMarkerTrie()
)

func init() {
	bracketed := []struct {
		text  string
		kind  MarkerKind
		block BlockType
	}{
		{"[Template]", MARKER_TEMPLATE, BLOCK_TEMPLATE},
		{"[Custom]", MARKER_CUSTOM, BLOCK_CUSTOM},
		{"[Configuration]", MARKER_CONFIGURATION, BLOCK_CONFIGURATION},
		{"[Origin]", MARKER_ORIGIN, BLOCK_ORIGIN},
		{"[Import]", MARKER_IMPORT, BLOCK_IMPORT},
		{"[Namespace]", MARKER_NAMESPACE, BLOCK_NAMESPACE},
		{"[Info]", MARKER_INFO, BLOCK_CONFIGURATION},
		{"[Export]", MARKER_EXPORT, BLOCK_CONFIGURATION},
	}
	for _, b := range bracketed {
		chtlMarkers.insert(b.text, marker{kind: b.kind, class: classBracket, block: b.block})
	}

	keywords := []struct {
		text  string
		kind  MarkerKind
		block BlockType
	}{
		{"text", MARKER_TEXT, BLOCK_TEXT},
		{"style", MARKER_STYLE, BLOCK_STYLE},
		{"script", MARKER_SCRIPT, BLOCK_SCRIPT},
	}
	for _, k := range keywords {
		chtlMarkers.insert(k.text, marker{kind: k.kind, class: classKeyword, block: k.block})
	}

	atTags := map[string]MarkerKind{
		"@Style":      MARKER_AT_STYLE,
		"@Element":    MARKER_AT_ELEMENT,
		"@Var":        MARKER_AT_VAR,
		"@Html":       MARKER_AT_HTML,
		"@JavaScript": MARKER_AT_JAVASCRIPT,
		"@Chtl":       MARKER_AT_CHTL,
		"@CJmod":      MARKER_AT_CJMOD,
		"@Config":     MARKER_AT_CONFIG,
	}
	for text, kind := range atTags {
		chtlMarkers.insert(text, marker{kind: kind, class: classAtTag})
	}

	chtljsMarkers.insert("->", marker{kind: MARKER_ARROW, class: classCHTLJS})
	chtljsMarkers.insert("vir", marker{kind: MARKER_VIR, class: classCHTLJS})
	for text, kind := range map[string]MarkerKind{
		"listen":      MARKER_LISTEN,
		"delegate":    MARKER_DELEGATE,
		"animate":     MARKER_ANIMATE,
		"iNeverAway":  MARKER_INEVERAWAY,
		"printMylove": MARKER_PRINTMYLOVE,
	} {
		chtljsMarkers.insert(text, marker{kind: kind, class: classCHTLJS, hasBody: true})
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// identEnd returns the end offset of the identifier run starting at offset
func identEnd(src string, offset int) int {
	i := offset
	for i < len(src) && isIdentPart(src[i]) {
		i++
	}

	return i
}

// skipSpace returns the first non-whitespace offset at or after offset
func skipSpace(src string, offset int) int {
	for offset < len(src) && isSpace(src[offset]) {
		offset++
	}

	return offset
}
