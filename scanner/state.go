package scanner

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrUnterminatedBlock = errors.New("unterminated block")
	ErrUnbalancedBlock   = errors.New("block popped with open braces")
	ErrEmptyBlockStack   = errors.New("block stack is empty")
)

// BlockType is the kind of a block frame on the scanner stack
type BlockType int

const (
	BLOCK_NONE BlockType = iota
	BLOCK_ELEMENT
	BLOCK_STYLE
	BLOCK_SCRIPT
	BLOCK_TEMPLATE
	BLOCK_CUSTOM
	BLOCK_CONFIGURATION
	BLOCK_ORIGIN
	BLOCK_NAMESPACE
	BLOCK_IMPORT
	BLOCK_TEXT
	BLOCK_COMMENT
)

// String returns the string representation of BlockType
func (t BlockType) String() string {
	switch t {
	case BLOCK_NONE:
		return "NONE"
	case BLOCK_ELEMENT:
		return "ELEMENT"
	case BLOCK_STYLE:
		return "STYLE"
	case BLOCK_SCRIPT:
		return "SCRIPT"
	case BLOCK_TEMPLATE:
		return "TEMPLATE"
	case BLOCK_CUSTOM:
		return "CUSTOM"
	case BLOCK_CONFIGURATION:
		return "CONFIGURATION"
	case BLOCK_ORIGIN:
		return "ORIGIN"
	case BLOCK_NAMESPACE:
		return "NAMESPACE"
	case BLOCK_IMPORT:
		return "IMPORT"
	case BLOCK_TEXT:
		return "TEXT"
	case BLOCK_COMMENT:
		return "COMMENT"
	default:
		return fmt.Sprintf("BlockType(%d)", int(t))
	}
}

// switchesGrammar reports whether the body of a block of this type is not CHTL,
// so its opener and closer must be emitted as separate CHTL slices.
func (t BlockType) switchesGrammar() bool {
	switch t {
	case BLOCK_STYLE, BLOCK_SCRIPT, BLOCK_TEXT, BLOCK_ORIGIN:
		return true
	}
	return false
}

// BlockFrame is one entry of the scanner's block stack
type BlockFrame struct {
	Type       BlockType
	Name       string
	BraceDepth int
	Context    SliceContext
	Origin     string
	Pos        Position

	// Children counts output-bearing children seen directly inside this frame:
	// nested blocks, generator comments and text attributes
	Children int
}

// UnterminatedBlockError is returned when input ends with open blocks
type UnterminatedBlockError struct {
	Type BlockType
	Name string
	Pos  Position
}

func (e *UnterminatedBlockError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %s opened at %s", ErrUnterminatedBlock, e.Type, e.Pos)
	}

	return fmt.Sprintf("%s: %s %q opened at %s", ErrUnterminatedBlock, e.Type, e.Name, e.Pos)
}

func (e *UnterminatedBlockError) Unwrap() error {
	return ErrUnterminatedBlock
}

// ScannerState tracks nested block context and string state for one scan
type ScannerState struct {
	frames      []BlockFrame
	stringDelim byte
}

// NewScannerState creates an empty state
func NewScannerState() *ScannerState {
	return &ScannerState{frames: make([]BlockFrame, 0, 16)}
}

// PushBlock pushes a frame with brace depth 0 and returns it
func (s *ScannerState) PushBlock(blockType BlockType, name string, context SliceContext) *BlockFrame {
	if top := s.Top(); top != nil {
		top.Children++
	}

	s.frames = append(s.frames, BlockFrame{
		Type:    blockType,
		Name:    name,
		Context: context,
	})

	return &s.frames[len(s.frames)-1]
}

// PopBlock removes the innermost frame. Its braces must already be balanced.
func (s *ScannerState) PopBlock() (BlockFrame, error) {
	if len(s.frames) == 0 {
		return BlockFrame{}, ErrEmptyBlockStack
	}

	top := s.frames[len(s.frames)-1]
	if top.BraceDepth != 0 {
		return top, fmt.Errorf("%w: %s depth %d", ErrUnbalancedBlock, top.Type, top.BraceDepth)
	}

	s.frames = s.frames[:len(s.frames)-1]

	return top, nil
}

// Top returns the innermost frame, or nil when the stack is empty
func (s *ScannerState) Top() *BlockFrame {
	if len(s.frames) == 0 {
		return nil
	}

	return &s.frames[len(s.frames)-1]
}

// Depth returns the number of open frames
func (s *ScannerState) Depth() int {
	return len(s.frames)
}

// IncreaseBraceDepth affects only the innermost frame
func (s *ScannerState) IncreaseBraceDepth() {
	if top := s.Top(); top != nil {
		top.BraceDepth++
	}
}

// DecreaseBraceDepth affects only the innermost frame and returns its new depth
func (s *ScannerState) DecreaseBraceDepth() int {
	top := s.Top()
	if top == nil {
		return 0
	}

	if top.BraceDepth > 0 {
		top.BraceDepth--
	}

	return top.BraceDepth
}

// EnterString marks a string literal opened by delim as active
func (s *ScannerState) EnterString(delim byte) {
	s.stringDelim = delim
}

// ExitString closes the active string literal
func (s *ScannerState) ExitString() {
	s.stringDelim = 0
}

// InString returns the active string delimiter
func (s *ScannerState) InString() (byte, bool) {
	return s.stringDelim, s.stringDelim != 0
}

// Context returns the context of the innermost frame
func (s *ScannerState) Context() SliceContext {
	if top := s.Top(); top != nil {
		return top.Context
	}

	return TOP_LEVEL
}

// Origin returns the declared origin type of the innermost frame
func (s *ScannerState) Origin() string {
	if top := s.Top(); top != nil {
		return top.Origin
	}

	return ""
}

// insideElement reports whether any open frame is an element
func (s *ScannerState) insideElement() bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Type == BLOCK_ELEMENT {
			return true
		}
	}

	return false
}

// ContextFor derives the context a new frame of blockType would get at the current position
func (s *ScannerState) ContextFor(blockType BlockType) SliceContext {
	switch blockType {
	case BLOCK_ELEMENT:
		return ELEMENT_BODY
	case BLOCK_STYLE:
		if s.insideElement() {
			return LOCAL_STYLE
		}
		return GLOBAL_STYLE
	case BLOCK_SCRIPT:
		if s.insideElement() {
			return LOCAL_SCRIPT
		}
		return GLOBAL_SCRIPT
	case BLOCK_ORIGIN:
		return ORIGIN_BLOCK
	case BLOCK_TEMPLATE:
		return TEMPLATE_BODY
	case BLOCK_CUSTOM:
		return CUSTOM_BODY
	case BLOCK_CONFIGURATION:
		return CONFIGURATION_BODY
	case BLOCK_NAMESPACE:
		return NAMESPACE_BODY
	case BLOCK_IMPORT:
		return IMPORT_BODY
	case BLOCK_TEXT:
		return TEXT_BODY
	default:
		return s.Context()
	}
}

// Snapshot copies the current stack, outermost first
func (s *ScannerState) Snapshot() []FrameInfo {
	if len(s.frames) == 0 {
		return nil
	}

	frames := make([]FrameInfo, len(s.frames))
	for i, f := range s.frames {
		frames[i] = FrameInfo{Type: f.Type, Name: f.Name, Origin: f.Origin, Children: f.Children}
	}

	return frames
}

// CheckBalanced returns an UnterminatedBlockError for the innermost open frame
func (s *ScannerState) CheckBalanced() error {
	top := s.Top()
	if top == nil {
		return nil
	}

	return &UnterminatedBlockError{Type: top.Type, Name: top.Name, Pos: top.Pos}
}
