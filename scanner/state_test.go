package scanner

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestScannerStateStack(t *testing.T) {
	s := NewScannerState()
	assert.Equal(t, TOP_LEVEL, s.Context())
	assert.Zero(t, s.Top())

	s.PushBlock(BLOCK_ELEMENT, "div", s.ContextFor(BLOCK_ELEMENT))
	s.IncreaseBraceDepth()
	assert.Equal(t, ELEMENT_BODY, s.Context())

	assert.Equal(t, LOCAL_STYLE, s.ContextFor(BLOCK_STYLE))
	assert.Equal(t, LOCAL_SCRIPT, s.ContextFor(BLOCK_SCRIPT))

	s.PushBlock(BLOCK_STYLE, "style", s.ContextFor(BLOCK_STYLE))
	s.IncreaseBraceDepth()
	s.IncreaseBraceDepth()

	// braces belong to the innermost frame only
	assert.Equal(t, 2, s.Top().BraceDepth)
	assert.Equal(t, 1, s.frames[0].BraceDepth)

	_, err := s.PopBlock()
	assert.True(t, errors.Is(err, ErrUnbalancedBlock))

	assert.Equal(t, 1, s.DecreaseBraceDepth())
	assert.Equal(t, 0, s.DecreaseBraceDepth())

	frame, err := s.PopBlock()
	assert.NoError(t, err)
	assert.Equal(t, BLOCK_STYLE, frame.Type)
	assert.Equal(t, 1, s.Depth())
}

func TestScannerStateGlobalContexts(t *testing.T) {
	s := NewScannerState()

	tests := []struct {
		block BlockType
		want  SliceContext
	}{
		{BLOCK_STYLE, GLOBAL_STYLE},
		{BLOCK_SCRIPT, GLOBAL_SCRIPT},
		{BLOCK_ORIGIN, ORIGIN_BLOCK},
		{BLOCK_TEMPLATE, TEMPLATE_BODY},
		{BLOCK_CUSTOM, CUSTOM_BODY},
		{BLOCK_CONFIGURATION, CONFIGURATION_BODY},
		{BLOCK_NAMESPACE, NAMESPACE_BODY},
		{BLOCK_IMPORT, IMPORT_BODY},
		{BLOCK_TEXT, TEXT_BODY},
		{BLOCK_NONE, TOP_LEVEL},
	}

	for _, tt := range tests {
		t.Run(tt.block.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, s.ContextFor(tt.block))
		})
	}
}

func TestScannerStateStyleInsideTemplateElement(t *testing.T) {
	s := NewScannerState()
	s.PushBlock(BLOCK_TEMPLATE, "Box", TEMPLATE_BODY)
	assert.Equal(t, GLOBAL_STYLE, s.ContextFor(BLOCK_STYLE))

	s.PushBlock(BLOCK_ELEMENT, "div", ELEMENT_BODY)
	assert.Equal(t, LOCAL_STYLE, s.ContextFor(BLOCK_STYLE))
}

func TestScannerStateStrings(t *testing.T) {
	s := NewScannerState()

	_, in := s.InString()
	assert.False(t, in)

	s.EnterString('\'')
	delim, in := s.InString()
	assert.True(t, in)
	assert.Equal(t, byte('\''), delim)

	s.ExitString()
	_, in = s.InString()
	assert.False(t, in)
}

func TestScannerStateCheckBalanced(t *testing.T) {
	s := NewScannerState()
	assert.NoError(t, s.CheckBalanced())

	f := s.PushBlock(BLOCK_ELEMENT, "div", ELEMENT_BODY)
	f.Pos = Position{Line: 3, Column: 5, Offset: 20}

	err := s.CheckBalanced()
	assert.EqualError(t, err, `unterminated block: ELEMENT "div" opened at 3:5`)

	_, err = NewScannerState().PopBlock()
	assert.IsError(t, err, ErrEmptyBlockStack)
}

func TestPushBlockCountsChildren(t *testing.T) {
	s := NewScannerState()
	s.PushBlock(BLOCK_ELEMENT, "ul", ELEMENT_BODY)
	s.IncreaseBraceDepth()

	for range 3 {
		s.PushBlock(BLOCK_ELEMENT, "li", ELEMENT_BODY)
		s.IncreaseBraceDepth()
		s.DecreaseBraceDepth()
		_, err := s.PopBlock()
		assert.NoError(t, err)
	}

	assert.Equal(t, 3, s.Top().Children)
	assert.Equal(t, 3, s.Snapshot()[0].Children)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewScannerState()
	s.PushBlock(BLOCK_ORIGIN, "x", ORIGIN_BLOCK).Origin = "Html"

	snap := s.Snapshot()
	s.Top().Name = "changed"

	assert.Equal(t, []FrameInfo{{Type: BLOCK_ORIGIN, Name: "x", Origin: "Html"}}, snap)
}
