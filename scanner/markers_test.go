package scanner

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestMarkerTrieMatch(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		trie   *markerTrie
		kind   MarkerKind
		length int
		ok     bool
	}{
		{"template", "[Template] x", chtlMarkers, MARKER_TEMPLATE, 10, true},
		{"configuration", "[Configuration]{", chtlMarkers, MARKER_CONFIGURATION, 15, true},
		{"unknown bracket", "[type=text]", chtlMarkers, MARKER_NONE, 0, false},
		{"partial bracket", "[Templ", chtlMarkers, MARKER_NONE, 0, false},
		{"at tag", "@JavaScript box", chtlMarkers, MARKER_AT_JAVASCRIPT, 11, true},
		{"keyword", "style {", chtlMarkers, MARKER_STYLE, 5, true},
		{"keyword prefix of word", "textarea", chtlMarkers, MARKER_TEXT, 4, true},
		{"arrow", "->listen", chtljsMarkers, MARKER_ARROW, 2, true},
		{"listen", "listen {", chtljsMarkers, MARKER_LISTEN, 6, true},
		{"printMylove", "printMylove{}", chtljsMarkers, MARKER_PRINTMYLOVE, 11, true},
		{"minus", "- 1", chtljsMarkers, MARKER_NONE, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, n, ok := tt.trie.match(tt.input, 0)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, m.kind)
			assert.Equal(t, tt.length, n)
		})
	}
}

func TestMarkerTrieBlocks(t *testing.T) {
	m, _, ok := chtlMarkers.match("[Origin]", 0)
	assert.True(t, ok)
	assert.Equal(t, BLOCK_ORIGIN, m.block)

	m, _, ok = chtljsMarkers.match("animate", 0)
	assert.True(t, ok)
	assert.True(t, m.hasBody)

	m, _, ok = chtljsMarkers.match("vir", 0)
	assert.True(t, ok)
	assert.False(t, m.hasBody)
}

func TestMarkerKindString(t *testing.T) {
	assert.Equal(t, "[Import]", MARKER_IMPORT.String())
	assert.Equal(t, "->", MARKER_ARROW.String())
	assert.True(t, MARKER_VIR.IsCHTLJS())
	assert.False(t, MARKER_AT_VAR.IsCHTLJS())
}
