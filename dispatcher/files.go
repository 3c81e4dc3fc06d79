package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/chtl-lang/chtl/scanner"
	"github.com/chtl-lang/chtl/source"
)

// FileResult is the compilation of one input file
type FileResult struct {
	Path   string
	Title  string
	Result *Result
	Err    error
}

// CompileFile reads path (plain .chtl or literate .chtl.md) and compiles it.
// The page title is taken from the file, then the configured title, then the file name.
func (d *Dispatcher) CompileFile(ctx context.Context, path string) FileResult {
	doc, err := source.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}

	title := doc.Title
	if title == "" {
		title = d.options.Title
	}

	if title == "" {
		title = source.TitleFromPath(path)
	}

	result := d.CompileSource(ctx, doc.Text)
	result.Document = Assemble(result.HTML, result.CSS, result.JS, title)

	return FileResult{Path: path, Title: title, Result: result}
}

// CompileFiles compiles each path; file-level parallelism follows the Parallel option
func (d *Dispatcher) CompileFiles(ctx context.Context, paths []string) []FileResult {
	results := make([]FileResult, len(paths))

	var g errgroup.Group
	if d.options.Parallel {
		g.SetLimit(d.options.Workers)
	} else {
		g.SetLimit(1)
	}

	for i, path := range paths {
		g.Go(func() error {
			results[i] = d.CompileFile(ctx, path)
			return nil
		})
	}

	_ = g.Wait()

	return results
}

// ValidateFragmentCompatibility reports slices no registered compiler can
// handle and CHTL-JS slices found outside a script block.
func (d *Dispatcher) ValidateFragmentCompatibility(slices []scanner.CodeSlice) error {
	var errs []error

	for _, s := range slices {
		if !d.registry.Has(s.Type) {
			errs = append(errs, fmt.Errorf("%w: %s (Position: %d-%d)", ErrNoCompilerForFragmentType, s.Type, s.Start, s.End))
		}

		if s.Type == scanner.CHTL_JS && !s.Context.IsScript() {
			errs = append(errs, fmt.Errorf("%w: %s (Position: %d-%d)", ErrMisplacedFragment, s.Context, s.Start, s.End))
		}
	}

	return errors.Join(errs...)
}
