package chtl

import (
	"errors"

	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
	"github.com/chtl-lang/chtl/source"
)

// Common errors used throughout the CHTL toolchain
var (
	// ErrConfigValidation is returned when configuration validation fails
	ErrConfigValidation = errors.New("configuration validation failed")
	// ErrNoInputFiles indicates no .chtl or .chtl.md file was found to compile.
	ErrNoInputFiles = errors.New("no input files")

	// Scanner errors

	// ErrUnterminatedBlock is the fatal scan error for a block left open at end of input.
	ErrUnterminatedBlock = scanner.ErrUnterminatedBlock
	// ErrUnbalancedBlock indicates a block was popped while it still had open braces.
	ErrUnbalancedBlock = scanner.ErrUnbalancedBlock

	// Dispatcher errors

	// ErrNoCompilerForFragmentType indicates a slice type has no registered compiler.
	ErrNoCompilerForFragmentType = dispatcher.ErrNoCompilerForFragmentType
	// ErrDuplicateCompiler indicates two compilers were registered for one fragment type.
	ErrDuplicateCompiler = dispatcher.ErrDuplicateCompiler
	// ErrCompilationFailed is the message of a failed fragment that gave no reason.
	ErrCompilationFailed = dispatcher.ErrCompilationFailed
	// ErrFragmentTimeout indicates a fragment exceeded the per-fragment time limit.
	ErrFragmentTimeout = dispatcher.ErrFragmentTimeout
	// ErrMisplacedFragment indicates a CHTL-JS fragment outside a script block.
	ErrMisplacedFragment = dispatcher.ErrMisplacedFragment

	// Source errors

	// ErrInvalidSource indicates input bytes are neither UTF-8 nor BOM-marked UTF-16.
	ErrInvalidSource = source.ErrInvalidSource
	// ErrNoCodeBlocks indicates a literate file without chtl code blocks.
	ErrNoCodeBlocks = source.ErrNoCodeBlocks
)
