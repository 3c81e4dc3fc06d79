package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/chtl-lang/chtl/scanner"
)

// Sentinel errors
var (
	ErrNoCompilerForFragmentType = errors.New("no compiler registered for fragment type")
	ErrDuplicateCompiler         = errors.New("compiler already registered for fragment type")
	ErrInvalidFragmentType       = errors.New("invalid fragment type")
	ErrFragmentTimeout           = errors.New("fragment compilation timed out")
	ErrCompilerPanic             = errors.New("compiler panicked")
	ErrCompilationFailed         = errors.New("compilation failed")
	ErrMisplacedFragment         = errors.New("CHTL-JS fragment outside a script block")
)

// Fragment is the unit of work handed to a Compiler
type Fragment struct {
	Type    scanner.FragmentType
	Content string
	Start   int
	End     int

	// ContextLen is the number of leading Content bytes holding merged output of
	// earlier fragments; the fragment's own text is Content[ContextLen:].
	ContextLen int

	Slice scanner.CodeSlice
}

// Own returns the fragment's own text without the merged prefix
func (f Fragment) Own() string {
	return f.Content[f.ContextLen:]
}

// CompilationResult is produced by a Compiler for one fragment.
// SourceType names the grammar of Output: CSS and JAVASCRIPT results feed the
// merged stylesheet and script, everything else is document markup.
type CompilationResult struct {
	Success      bool
	Output       string
	ErrorMessage string
	SourceType   scanner.FragmentType
}

// Succeeded builds a successful result
func Succeeded(output string, sourceType scanner.FragmentType) CompilationResult {
	return CompilationResult{Success: true, Output: output, SourceType: sourceType}
}

// Failed builds a failed result
func Failed(message string, sourceType scanner.FragmentType) CompilationResult {
	return CompilationResult{ErrorMessage: message, SourceType: sourceType}
}

// Compiler turns one fragment into output text or an error
type Compiler interface {
	SupportedType() scanner.FragmentType
	Compile(ctx context.Context, fragment Fragment) CompilationResult
}

// PreludeProvider is implemented by compilers whose output relies on a runtime
// that must appear once at the head of the merged script.
type PreludeProvider interface {
	Prelude() string
}

// CompilerFunc adapts a function to the Compiler interface
type CompilerFunc struct {
	Type scanner.FragmentType
	Func func(ctx context.Context, fragment Fragment) CompilationResult
}

func (c CompilerFunc) SupportedType() scanner.FragmentType {
	return c.Type
}

func (c CompilerFunc) Compile(ctx context.Context, fragment Fragment) CompilationResult {
	return c.Func(ctx, fragment)
}

// Registry holds one compiler per fragment type; lookup is an index, not a search
type Registry [scanner.FragmentTypeCount]Compiler

// NewRegistry registers all compilers
func NewRegistry(compilers ...Compiler) (Registry, error) {
	var r Registry

	for _, c := range compilers {
		if err := r.Register(c); err != nil {
			return Registry{}, err
		}
	}

	return r, nil
}

// Register places c at its supported type
func (r *Registry) Register(c Compiler) error {
	t := c.SupportedType()
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidFragmentType, int(t))
	}

	if r[t] != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateCompiler, t)
	}

	r[t] = c

	return nil
}

// Lookup returns the compiler for t
func (r *Registry) Lookup(t scanner.FragmentType) (Compiler, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFragmentType, int(t))
	}

	if r[t] == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCompilerForFragmentType, t)
	}

	return r[t], nil
}

// Has reports whether a compiler is registered for t
func (r *Registry) Has(t scanner.FragmentType) bool {
	return t.Valid() && r[t] != nil
}
