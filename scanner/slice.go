package scanner

import (
	"fmt"
	"iter"
)

// FragmentType is the grammar a slice is classified as
type FragmentType int

const (
	CHTL FragmentType = iota
	CHTL_JS
	CSS
	JAVASCRIPT
	HTML
	TEXT
	UNKNOWN

	// FragmentTypeCount is the number of fragment types; it sizes fixed lookup tables
	FragmentTypeCount int = iota
)

// String returns the string representation of FragmentType
func (t FragmentType) String() string {
	switch t {
	case CHTL:
		return "CHTL"
	case CHTL_JS:
		return "CHTL_JS"
	case CSS:
		return "CSS"
	case JAVASCRIPT:
		return "JAVASCRIPT"
	case HTML:
		return "HTML"
	case TEXT:
		return "TEXT"
	case UNKNOWN:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("FragmentType(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared fragment types
func (t FragmentType) Valid() bool {
	return t >= CHTL && int(t) < FragmentTypeCount
}

// SliceContext is the compilation context derived from the block stack
type SliceContext int

const (
	TOP_LEVEL SliceContext = iota
	ELEMENT_BODY
	LOCAL_STYLE
	GLOBAL_STYLE
	LOCAL_SCRIPT
	GLOBAL_SCRIPT
	ORIGIN_BLOCK
	TEMPLATE_BODY
	CUSTOM_BODY
	CONFIGURATION_BODY
	NAMESPACE_BODY
	IMPORT_BODY
	TEXT_BODY
)

// String returns the string representation of SliceContext
func (c SliceContext) String() string {
	switch c {
	case TOP_LEVEL:
		return "TOP_LEVEL"
	case ELEMENT_BODY:
		return "ELEMENT_BODY"
	case LOCAL_STYLE:
		return "LOCAL_STYLE"
	case GLOBAL_STYLE:
		return "GLOBAL_STYLE"
	case LOCAL_SCRIPT:
		return "LOCAL_SCRIPT"
	case GLOBAL_SCRIPT:
		return "GLOBAL_SCRIPT"
	case ORIGIN_BLOCK:
		return "ORIGIN_BLOCK"
	case TEMPLATE_BODY:
		return "TEMPLATE_BODY"
	case CUSTOM_BODY:
		return "CUSTOM_BODY"
	case CONFIGURATION_BODY:
		return "CONFIGURATION_BODY"
	case NAMESPACE_BODY:
		return "NAMESPACE_BODY"
	case IMPORT_BODY:
		return "IMPORT_BODY"
	case TEXT_BODY:
		return "TEXT_BODY"
	default:
		return fmt.Sprintf("SliceContext(%d)", int(c))
	}
}

// IsStyle reports whether c is a local or global style context
func (c SliceContext) IsStyle() bool {
	return c == LOCAL_STYLE || c == GLOBAL_STYLE
}

// IsScript reports whether c is a local or global script context
func (c SliceContext) IsScript() bool {
	return c == LOCAL_SCRIPT || c == GLOBAL_SCRIPT
}

// IsCHTL reports whether CHTL statements (elements, attributes, keyword blocks) may appear in c
func (c SliceContext) IsCHTL() bool {
	switch c {
	case TOP_LEVEL, ELEMENT_BODY, TEMPLATE_BODY, CUSTOM_BODY, CONFIGURATION_BODY, NAMESPACE_BODY, IMPORT_BODY:
		return true
	}
	return false
}

// CommentKind distinguishes the comment families
type CommentKind int

const (
	COMMENT_NONE         CommentKind = iota
	COMMENT_NON_SEMANTIC             // `//` and `/* */`, dropped by generation
	COMMENT_GENERATOR                // `--`, survives to output
)

// String returns the string representation of CommentKind
func (k CommentKind) String() string {
	switch k {
	case COMMENT_NONE:
		return "NONE"
	case COMMENT_NON_SEMANTIC:
		return "NON_SEMANTIC"
	case COMMENT_GENERATOR:
		return "GENERATOR"
	default:
		return fmt.Sprintf("CommentKind(%d)", int(k))
	}
}

// Position represents a location in the source
type Position struct {
	Line   int // 1-based
	Column int // 1-based, in runes
	Offset int // byte offset
}

// String returns "line:column"
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// FrameInfo is an immutable copy of one block frame. Children lets a
// compiler tell whether an element's start tag is still accepting attributes.
type FrameInfo struct {
	Type     BlockType
	Name     string
	Origin   string
	Children int
}

// CodeSlice is one classified, contiguous run of source text.
// Start is inclusive and End exclusive, both byte offsets into the scanned source.
type CodeSlice struct {
	Type    FragmentType
	Content string
	Start   int
	End     int
	Line    int
	Column  int
	Context SliceContext

	Comment CommentKind
	Marker  MarkerKind
	// Origin is the declared embedded type inside [Origin] blocks ("Html", "Style", "Vue", ...)
	Origin string
	// Frames is the enclosing block stack at Start, outermost first
	Frames []FrameInfo
	// Pending is the block a bracketed marker left open when the slice started;
	// the first `{` in Content opens that block instead of an element.
	Pending BlockType
}

// Position returns the start position of the slice
func (s CodeSlice) Position() Position {
	return Position{Line: s.Line, Column: s.Column, Offset: s.Start}
}

// Len returns the byte length of the slice
func (s CodeSlice) Len() int {
	return s.End - s.Start
}

// IsComment reports whether the slice records a comment
func (s CodeSlice) IsComment() bool {
	return s.Comment != COMMENT_NONE
}

// WithContent returns a copy of s carrying content instead of its own.
// The receiver is not modified.
func (s CodeSlice) WithContent(content string) CodeSlice {
	s.Content = content
	s.Frames = append([]FrameInfo(nil), s.Frames...)

	return s
}

func (s CodeSlice) String() string {
	return fmt.Sprintf("%s[%s] %d-%d %q", s.Type, s.Context, s.Start, s.End, s.Content)
}

// SliceIterator uses Go 1.24 iterator pattern
type SliceIterator iter.Seq2[CodeSlice, error]
