package scanner

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Options are options for the scanner.
// Comments are emitted as whole slices and are exempt from MaxSliceSize.
type Options struct {
	InitialSliceSize    int
	MaxSliceSize        int
	MinSliceSize        int
	MergeAdjacentSlices bool
	DebugMode           bool
	Logger              *zerolog.Logger
}

// DefaultOptions returns the scanner defaults
func DefaultOptions() Options {
	return Options{
		InitialSliceSize:    1024,
		MaxSliceSize:        8192,
		MinSliceSize:        64,
		MergeAdjacentSlices: true,
	}
}

// Stats summarizes one scan
type Stats struct {
	Slices      int
	ByType      [FragmentTypeCount]int
	Merged      int
	SizeFlushes int
	Elapsed     time.Duration
}

// UnifiedScanner partitions mixed CHTL / CHTL-JS / CSS / JS source into typed slices
type UnifiedScanner struct {
	options Options
	logger  zerolog.Logger
}

// New creates a new UnifiedScanner
func New(options ...Options) *UnifiedScanner {
	opts := DefaultOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	if opts.InitialSliceSize <= 0 {
		opts.InitialSliceSize = 1024
	}

	if opts.MaxSliceSize < opts.InitialSliceSize {
		opts.MaxSliceSize = max(8192, opts.InitialSliceSize)
	}

	if opts.MinSliceSize <= 0 || opts.MinSliceSize > opts.InitialSliceSize {
		opts.MinSliceSize = min(64, opts.InitialSliceSize)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &UnifiedScanner{options: opts, logger: logger}
}

// Options returns the effective options
func (u *UnifiedScanner) Options() Options {
	return u.options
}

// Scan partitions source into ordered, contiguous slices
func (u *UnifiedScanner) Scan(source string) ([]CodeSlice, error) {
	slices, _, err := u.ScanWithStats(source)
	return slices, err
}

// ScanWithStats is Scan plus statistics about the run
func (u *UnifiedScanner) ScanWithStats(source string) ([]CodeSlice, Stats, error) {
	started := time.Now()

	s := newSession(source, u.options)

	slices, err := s.run()
	if err != nil {
		if u.options.DebugMode {
			u.logger.Debug().Err(err).Int("offset", len(source)).Msg("scan failed")
		}

		return nil, Stats{}, err
	}

	var stats Stats

	if u.options.MergeAdjacentSlices {
		slices, stats.Merged = mergeAdjacent(source, slices, u.options.MaxSliceSize)
	}

	stats.Slices = len(slices)
	stats.SizeFlushes = s.sizeFlushes
	stats.Elapsed = time.Since(started)

	for _, slice := range slices {
		stats.ByType[slice.Type]++
	}

	if u.options.DebugMode {
		types := zerolog.Dict()
		for t := range FragmentTypeCount {
			if stats.ByType[t] > 0 {
				types = types.Int(FragmentType(t).String(), stats.ByType[t])
			}
		}

		u.logger.Debug().
			Int("bytes", len(source)).
			Int("slices", stats.Slices).
			Int("merged", stats.Merged).
			Int("size_flushes", stats.SizeFlushes).
			Dict("types", types).
			Dur("elapsed", stats.Elapsed).
			Msg("scan complete")
	}

	return slices, stats, nil
}

// Slices returns an iterator of slices
func (u *UnifiedScanner) Slices(source string) SliceIterator {
	return func(yield func(CodeSlice, error) bool) {
		slices, err := u.Scan(source)
		if err != nil {
			yield(CodeSlice{}, err)
			return
		}

		for _, slice := range slices {
			if !yield(slice, nil) {
				return
			}
		}
	}
}

type pendingBlock struct {
	block  BlockType
	origin string
	active bool
}

// session holds all mutable state of one scan
type session struct {
	src   string
	opts  Options
	state *ScannerState

	slices []CodeSlice

	pos       int
	line      int
	col       int
	lineBlank bool

	// in-progress slice
	start        Position
	startCtx     SliceContext
	startOrigin  string
	startFrames  []FrameInfo
	startPending BlockType

	pending pendingBlock

	// last identifier consumed in a CHTL-capable context
	wordStart       int
	wordEnd         int
	wordPos         Position
	wordAtStatement bool

	// last significant (non-whitespace, non-comment) byte
	lastSig    byte
	lastSigPos int

	sizeFlushes int
}

func newSession(src string, opts Options) *session {
	return &session{
		src:        src,
		opts:       opts,
		state:      NewScannerState(),
		slices:     make([]CodeSlice, 0, len(src)/64+1),
		line:       1,
		col:        1,
		lineBlank:  true,
		wordEnd:    -1,
		lastSigPos: -1,
	}
}

func (s *session) run() ([]CodeSlice, error) {
	s.beginSlice()

	for s.pos < len(s.src) {
		if delim, ok := s.state.InString(); ok {
			s.scanString(delim)
			continue
		}

		ctx := s.state.Context()
		if ctx == ORIGIN_BLOCK {
			s.scanOrigin()
			continue
		}

		if s.scanComment(ctx) {
			continue
		}

		c := s.src[s.pos]

		switch {
		case s.opensString(c, ctx):
			s.state.EnterString(c)
			s.advance(1)
			continue
		case ctx.IsScript():
			if s.scanCHTLJSMarker() {
				continue
			}
		case ctx != TEXT_BODY:
			if s.scanCHTLMarker(ctx) {
				s.maybeSizeFlush()
				continue
			}
		}

		switch c {
		case '{':
			s.openBrace(ctx)
		case '}':
			s.closeBrace()
		default:
			if c == ';' && s.pending.active {
				s.pending = pendingBlock{}
			}

			s.advance(1)

			if !isSpace(c) {
				s.markSignificant(c)
			}
		}

		s.maybeSizeFlush()
	}

	s.flush()

	if err := s.state.CheckBalanced(); err != nil {
		return nil, err
	}

	return s.slices, nil
}

func (s *session) position() Position {
	return Position{Line: s.line, Column: s.col, Offset: s.pos}
}

func (s *session) advance(n int) {
	s.advanceTo(min(s.pos+n, len(s.src)))
}

func (s *session) advanceTo(end int) {
	for ; s.pos < end; s.pos++ {
		c := s.src[s.pos]
		switch {
		case c == '\n':
			s.line++
			s.col = 1
			s.lineBlank = true
		case utf8.RuneStart(c):
			s.col++
			if !isSpace(c) {
				s.lineBlank = false
			}
		}
	}
}

func (s *session) markSignificant(c byte) {
	s.lastSig = c
	s.lastSigPos = s.pos - 1
}

// atStatementStart reports whether only whitespace or comments separate the
// position from the start of input or the previous `{`, `}` or `;`.
func (s *session) atStatementStart() bool {
	switch s.lastSig {
	case 0, '{', '}', ';':
		return true
	}
	return false
}

// wordPrecedes reports whether the last significant token is an identifier
// that started a statement, as in `div {`.
func (s *session) wordPrecedes() bool {
	return s.wordAtStatement && s.wordEnd-1 == s.lastSigPos
}

func (s *session) beginSlice() {
	s.start = s.position()
	s.startCtx = s.state.Context()
	s.startOrigin = s.state.Origin()
	s.startFrames = s.state.Snapshot()
	s.startPending = BLOCK_NONE
	if s.pending.active {
		s.startPending = s.pending.block
	}
}

// emit records [start, pos) as a slice and begins the next one
func (s *session) emit(sliceType FragmentType, markerKind MarkerKind, comment CommentKind) {
	if s.pos > s.start.Offset {
		s.slices = append(s.slices, CodeSlice{
			Type:    sliceType,
			Content: s.src[s.start.Offset:s.pos],
			Start:   s.start.Offset,
			End:     s.pos,
			Line:    s.start.Line,
			Column:  s.start.Column,
			Context: s.startCtx,
			Comment: comment,
			Marker:  markerKind,
			Origin:  s.startOrigin,
			Frames:  s.startFrames,
			Pending: s.startPending,
		})
	}

	s.beginSlice()
}

// flush emits the in-progress slice with its type resolved from context
func (s *session) flush() {
	if s.pos == s.start.Offset {
		s.beginSlice()
		return
	}

	content := s.src[s.start.Offset:s.pos]
	s.emit(determineSliceType(content, s.startCtx, s.startOrigin, s.startPending != BLOCK_NONE), MARKER_NONE, COMMENT_NONE)
}

func (s *session) maybeSizeFlush() {
	n := s.pos - s.start.Offset
	if n < s.opts.InitialSliceSize || s.pos >= len(s.src) || !utf8.RuneStart(s.src[s.pos]) {
		return
	}

	if n < s.opts.MaxSliceSize && !s.atSafeBoundary() {
		return
	}

	s.flush()
	s.sizeFlushes++
}

// atSafeBoundary reports whether splitting here keeps statements of the active grammar whole
func (s *session) atSafeBoundary() bool {
	if _, ok := s.state.InString(); ok {
		return false
	}

	last := s.src[s.pos-1]

	if s.state.Context().IsCHTL() {
		return last == '}'
	}

	if top := s.state.Top(); top != nil && top.BraceDepth > 1 {
		return false
	}

	return last == '\n' || last == ';' || last == '}'
}

// opensString reports whether c starts a string literal in ctx.
// Outside scripts an apostrophe directly after a word character is prose, not a quote.
func (s *session) opensString(c byte, ctx SliceContext) bool {
	switch c {
	case '"':
		return true
	case '`':
		return ctx.IsScript()
	case '\'':
		if ctx.IsScript() || s.pos == 0 {
			return true
		}
		prev := s.src[s.pos-1]
		return !isIdentPart(prev) && prev < utf8.RuneSelf
	}
	return false
}

func (s *session) scanString(delim byte) {
	breakAtNewline := delim != '`' && (s.state.Context().IsStyle() || s.state.Context().IsScript())

	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' {
			s.advance(2)
			continue
		}

		if c == '\n' && breakAtNewline {
			s.state.ExitString()
			return
		}

		s.advance(1)

		if c == delim {
			s.state.ExitString()
			s.markSignificant(c)
			return
		}

		s.maybeSizeFlush()
	}
}

// scanComment consumes one comment at pos and records it as its own slice
func (s *session) scanComment(ctx SliceContext) bool {
	c := s.src[s.pos]
	if s.pos+1 >= len(s.src) {
		return false
	}
	next := s.src[s.pos+1]

	var (
		end  int
		kind CommentKind
	)

	switch {
	case c == '/' && next == '*':
		idx := strings.Index(s.src[s.pos+2:], "*/")
		if idx < 0 {
			end = len(s.src)
		} else {
			end = s.pos + 2 + idx + 2
		}
		kind = COMMENT_NON_SEMANTIC
	case c == '/' && next == '/' && s.lineCommentAllowed():
		end = lineEnd(s.src, s.pos)
		kind = COMMENT_NON_SEMANTIC
	case c == '-' && next == '-' && ctx.IsCHTL() && s.lineBlank:
		end = lineEnd(s.src, s.pos)
		kind = COMMENT_GENERATOR
	default:
		return false
	}

	s.flush()

	if top := s.state.Top(); top != nil && kind == COMMENT_GENERATOR {
		top.Children++
	}

	s.advanceTo(end)
	s.emit(CHTL, MARKER_NONE, kind)

	return true
}

// lineCommentAllowed rejects `//` glued to a preceding token such as in `http://`
func (s *session) lineCommentAllowed() bool {
	if s.pos == 0 {
		return true
	}

	prev := s.src[s.pos-1]

	return isSpace(prev) || strings.IndexByte(";{}", prev) >= 0
}

func lineEnd(src string, offset int) int {
	if idx := strings.IndexByte(src[offset:], '\n'); idx >= 0 {
		return offset + idx
	}

	return len(src)
}

// scanCHTLMarker handles bracketed markers, @-tags, keyword blocks and identifiers
func (s *session) scanCHTLMarker(ctx SliceContext) bool {
	c := s.src[s.pos]

	switch {
	case c == '[':
		m, n, ok := chtlMarkers.match(s.src, s.pos)
		if !ok || m.class != classBracket {
			return false
		}

		s.flush()
		s.advance(n)
		s.markSignificant(']')
		s.emit(CHTL, m.kind, COMMENT_NONE)
		s.pending = pendingBlock{block: m.block, active: true}
		s.beginSlice()

		return true

	case c == '@':
		end := identEnd(s.src, s.pos+1)
		if end == s.pos+1 {
			return false
		}

		m, n, ok := chtlMarkers.match(s.src, s.pos)
		known := ok && m.class == classAtTag && s.pos+n == end
		originType := s.pending.active && s.pending.block == BLOCK_ORIGIN

		if !known && !originType {
			return false
		}

		kind := MARKER_AT_ORIGIN_TYPE
		if known {
			kind = m.kind
		}

		s.flush()
		tag := s.src[s.pos+1 : end]
		s.advanceTo(end)
		s.markSignificant('a')
		s.emit(CHTL, kind, COMMENT_NONE)

		if originType {
			s.pending.origin = tag
		}

		return true

	case isIdentStart(c):
		if s.pos > 0 && isIdentPart(s.src[s.pos-1]) {
			return false
		}

		end := identEnd(s.src, s.pos)
		atStatement := s.atStatementStart()

		if ctx.IsCHTL() && atStatement {
			if m, n, ok := chtlMarkers.match(s.src, s.pos); ok && m.class == classKeyword && s.pos+n == end {
				if brace := skipSpace(s.src, end); brace < len(s.src) && s.src[brace] == '{' {
					s.openKeywordBlock(m, end, brace)
					return true
				}
			}
		}

		if ctx.IsCHTL() && atStatement && s.src[s.pos:end] == "text" {
			if next := skipSpace(s.src, end); next < len(s.src) && (s.src[next] == ':' || s.src[next] == '=') {
				if top := s.state.Top(); top != nil {
					top.Children++
				}
			}
		}

		s.wordStart = s.pos
		s.wordPos = s.position()
		s.wordAtStatement = atStatement && ctx.IsCHTL()
		s.advanceTo(end)
		s.wordEnd = end
		s.markSignificant(c)

		return true
	}

	return false
}

// openKeywordBlock emits `style {` / `script {` / `text {` as one CHTL slice and enters the block
func (s *session) openKeywordBlock(m marker, nameEnd, brace int) {
	s.pending = pendingBlock{}
	s.flush()

	pos := s.position()
	name := s.src[s.pos:nameEnd]
	context := s.state.ContextFor(m.block)

	s.advanceTo(brace + 1)
	s.markSignificant('{')
	s.emit(CHTL, m.kind, COMMENT_NONE)

	frame := s.state.PushBlock(m.block, name, context)
	frame.Pos = pos
	s.state.IncreaseBraceDepth()

	s.beginSlice()
}

func (s *session) openBrace(ctx SliceContext) {
	pos := s.position()

	switch {
	case s.pending.active:
		p := s.pending
		s.pending = pendingBlock{}

		name := ""
		if s.wordEnd-1 == s.lastSigPos {
			name = s.src[s.wordStart:s.wordEnd]
		}

		context := s.state.ContextFor(p.block)
		s.advance(1)

		if p.block.switchesGrammar() {
			s.emit(CHTL, MARKER_NONE, COMMENT_NONE)
		}

		frame := s.state.PushBlock(p.block, name, context)
		frame.Origin = p.origin
		frame.Pos = pos
		s.state.IncreaseBraceDepth()

		if p.block.switchesGrammar() {
			s.beginSlice()
		}

	case ctx.IsCHTL() && s.wordPrecedes():
		s.advance(1)
		frame := s.state.PushBlock(BLOCK_ELEMENT, s.src[s.wordStart:s.wordEnd], ELEMENT_BODY)
		frame.Pos = s.wordPos
		s.state.IncreaseBraceDepth()

	default:
		s.advance(1)
		if s.state.Depth() == 0 {
			frame := s.state.PushBlock(BLOCK_NONE, "", TOP_LEVEL)
			frame.Pos = pos
		}
		s.state.IncreaseBraceDepth()
	}

	s.markSignificant('{')
}

func (s *session) closeBrace() {
	top := s.state.Top()

	switch {
	case top == nil:
		// stray closer at top level stays content
		s.advance(1)

	case top.BraceDepth == 1 && top.Type.switchesGrammar():
		s.flush()
		s.advance(1)
		s.state.DecreaseBraceDepth()
		s.emit(CHTL, MARKER_NONE, COMMENT_NONE)
		_, _ = s.state.PopBlock()
		s.beginSlice()

	default:
		s.advance(1)
		if s.state.DecreaseBraceDepth() == 0 {
			_, _ = s.state.PopBlock()
		}
	}

	s.markSignificant('}')
}

func (s *session) scanOrigin() {
	top := s.state.Top()
	c := s.src[s.pos]

	switch {
	case c == '"' || c == '\'':
		if top.Origin == "JavaScript" || top.Origin == "Style" {
			s.state.EnterString(c)
		}
		s.advance(1)
	case c == '`':
		if top.Origin == "JavaScript" {
			s.state.EnterString(c)
		}
		s.advance(1)
	case c == '{':
		s.advance(1)
		s.state.IncreaseBraceDepth()
	case c == '}':
		s.closeBrace()
	default:
		s.advance(1)
	}

	s.maybeSizeFlush()
}

// scanCHTLJSMarker handles {{ }} selectors, -> and CHTL-JS keywords inside scripts
func (s *session) scanCHTLJSMarker() bool {
	c := s.src[s.pos]

	if c == '{' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '{' {
		end, ok := s.enhancedSelectorEnd(s.pos)
		if !ok {
			return false
		}

		s.emitCHTLJS(MARKER_ENHANCED_SELECTOR, end)

		return true
	}

	if !chtljsMarkers.startsMarker(c) {
		return false
	}

	if isIdentStart(c) && s.pos > 0 {
		prev := s.src[s.pos-1]
		if isIdentPart(prev) || prev == '.' || prev == '$' {
			return false
		}
	}

	m, n, ok := chtljsMarkers.match(s.src, s.pos)
	if !ok {
		return false
	}

	end := s.pos + n
	if isIdentStart(c) && end < len(s.src) && isIdentPart(s.src[end]) {
		return false
	}

	if m.hasBody {
		if brace := skipSpace(s.src, end); brace < len(s.src) && s.src[brace] == '{' {
			if close, ok := s.balancedEnd(brace); ok {
				end = close
			}
		}
	}

	s.emitCHTLJS(m.kind, end)

	return true
}

func (s *session) emitCHTLJS(kind MarkerKind, end int) {
	s.flush()
	last := s.src[end-1]
	s.advanceTo(end)
	s.markSignificant(last)
	s.emit(CHTL_JS, kind, COMMENT_NONE)
}

// enhancedSelectorEnd finds the `}}` matching the `{{` at offset, counting nested pairs
func (s *session) enhancedSelectorEnd(offset int) (int, bool) {
	limit := min(len(s.src), offset+s.opts.MaxSliceSize)
	depth := 0

	for i := offset; i+1 < limit; {
		switch {
		case s.src[i] == '{' && s.src[i+1] == '{':
			depth++
			i += 2
		case s.src[i] == '}' && s.src[i+1] == '}':
			depth--
			i += 2
			if depth == 0 {
				return i, true
			}
		case s.src[i] == '\n':
			return 0, false
		default:
			i++
		}
	}

	return 0, false
}

// balancedEnd returns the offset after the `}` matching the `{` at offset, skipping strings
func (s *session) balancedEnd(offset int) (int, bool) {
	limit := min(len(s.src), offset+s.opts.MaxSliceSize)
	depth := 0

	var delim byte

	for i := offset; i < limit; i++ {
		c := s.src[i]

		if delim != 0 {
			switch c {
			case '\\':
				i++
			case delim:
				delim = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			delim = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}

	return 0, false
}

// determineSliceType resolves the type of a slice without an explicit marker from its context
func determineSliceType(content string, ctx SliceContext, origin string, forceCHTL bool) FragmentType {
	switch {
	case ctx.IsStyle():
		return CSS
	case ctx.IsScript():
		return JAVASCRIPT
	case ctx == ORIGIN_BLOCK:
		return OriginFragmentType(origin)
	case ctx == TEXT_BODY:
		return TEXT
	case ctx != TOP_LEVEL:
		return CHTL
	}

	if forceCHTL || looksLikeCHTL(content) {
		return CHTL
	}

	return TEXT
}

// OriginFragmentType maps a declared origin type to the fragment type of its body
func OriginFragmentType(origin string) FragmentType {
	switch origin {
	case "Html":
		return HTML
	case "Style":
		return CSS
	case "JavaScript":
		return JAVASCRIPT
	default:
		return UNKNOWN
	}
}

// looksLikeCHTL reports whether content starts with a CHTL marker or an
// identifier followed by `{`, `:`, `=` or `;`.
func looksLikeCHTL(content string) bool {
	i := skipSpace(content, 0)
	if i >= len(content) {
		return false
	}

	if m, n, ok := chtlMarkers.match(content, i); ok {
		end := i + n
		if m.class == classBracket || end >= len(content) || !isIdentPart(content[end]) {
			return true
		}
	}

	if !isIdentStart(content[i]) {
		return false
	}

	next := skipSpace(content, identEnd(content, i))

	return next < len(content) && strings.IndexByte("{:=;", content[next]) >= 0
}

// mergeAdjacent joins neighbouring plain slices sharing type and context
func mergeAdjacent(src string, slices []CodeSlice, maxSize int) ([]CodeSlice, int) {
	if len(slices) < 2 {
		return slices, 0
	}

	merged := 0
	out := make([]CodeSlice, 0, len(slices))

	for _, slice := range slices {
		if n := len(out); n > 0 && mergeable(out[n-1], slice, maxSize) {
			prev := &out[n-1]
			prev.End = slice.End
			prev.Content = src[prev.Start:prev.End]
			merged++

			continue
		}

		out = append(out, slice)
	}

	return out, merged
}

func mergeable(a, b CodeSlice, maxSize int) bool {
	return a.Type == b.Type &&
		a.Context == b.Context &&
		a.Origin == b.Origin &&
		b.Pending == BLOCK_NONE &&
		a.Marker == MARKER_NONE && b.Marker == MARKER_NONE &&
		!a.IsComment() && !b.IsComment() &&
		a.End == b.Start &&
		b.End-a.Start <= maxSize
}
