package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/chtl-lang/chtl/scanner"
)

// Phase identifies the step of the protocol a fragment was compiled in
type Phase int

const (
	// PhaseLowering compiles CHTL, CHTL-JS and markup fragments
	PhaseLowering Phase = iota
	// PhaseMerged compiles raw CSS / JS fragments with the merged prefix prepended
	PhaseMerged
)

func (p Phase) String() string {
	if p == PhaseMerged {
		return "merged"
	}
	return "lowering"
}

// Options configures a Dispatcher
type Options struct {
	Parallel        bool
	Workers         int
	FragmentTimeout time.Duration
	CacheSize       int
	DebugMode       bool
	Title           string
	Logger          *zerolog.Logger
	Scanner         *scanner.UnifiedScanner
}

// DefaultOptions returns the dispatcher defaults
func DefaultOptions() Options {
	return Options{
		Workers:         runtime.NumCPU(),
		FragmentTimeout: 5 * time.Second,
		CacheSize:       256,
	}
}

// Outcome pairs a slice with the result of compiling it
type Outcome struct {
	Slice  scanner.CodeSlice
	Result CompilationResult
	Phase  Phase
}

// Stage1Output is everything the merged phase depends on
type Stage1Output struct {
	MergedCSS string
	MergedJS  string
	Outcomes  []Outcome
}

// Stage2Output holds the merged phase results in scan order
type Stage2Output struct {
	Outcomes []Outcome
}

// Result is the outcome of one CompileFragments / CompileSource call
type Result struct {
	RunID   string
	Success bool

	HTML      string
	CSS       string
	JS        string
	MergedCSS string
	MergedJS  string
	Document  string

	Outcomes     []Outcome
	Errors       []string
	ErrorMessage string
	ScanError    error
	Report       Report
}

// Dispatcher owns one compiler per fragment type and runs the two-phase protocol
type Dispatcher struct {
	registry Registry
	options  Options
	scanner  *scanner.UnifiedScanner
	logger   zerolog.Logger
	cache    *resultCache

	mu         sync.Mutex
	lastErrors []string
}

// New creates a Dispatcher. The registry is read-only afterwards.
func New(registry Registry, options ...Options) *Dispatcher {
	opts := DefaultOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	sc := opts.Scanner
	if sc == nil {
		sc = scanner.New()
	}

	return &Dispatcher{
		registry: registry,
		options:  opts,
		scanner:  sc,
		logger:   logger,
		cache:    newResultCache(opts.CacheSize),
	}
}

// Errors returns the fragment errors of the last run
func (d *Dispatcher) Errors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.lastErrors...)
}

// ClearErrors forgets the errors of the last run
func (d *Dispatcher) ClearErrors() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastErrors = nil
}

// CompileSource scans source, compiles all fragments and assembles the HTML document
func (d *Dispatcher) CompileSource(ctx context.Context, source string) *Result {
	slices, err := d.scanner.Scan(source)
	if err != nil {
		result := &Result{
			RunID:        uuid.NewString(),
			ScanError:    err,
			Errors:       []string{err.Error()},
			ErrorMessage: err.Error(),
		}
		result.Document = Assemble("", "", "", d.options.Title)
		result.Report = newReport(result, 0)
		d.remember(result.Errors)

		return result
	}

	result := d.CompileFragments(ctx, slices)
	result.Document = Assemble(result.HTML, result.CSS, result.JS, d.options.Title)

	return result
}

// CompileFragments runs the lowering phase, merges its CSS / JS output and
// compiles every raw CSS / JS slice against the merged prefix.
func (d *Dispatcher) CompileFragments(ctx context.Context, slices []scanner.CodeSlice) *Result {
	started := time.Now()
	runID := uuid.NewString()
	logger := d.logger.With().Str("run", runID).Logger()

	stage1 := d.Stage1(ctx, slices)
	if d.options.DebugMode {
		logger.Debug().
			Int("fragments", len(stage1.Outcomes)).
			Int("merged_css", len(stage1.MergedCSS)).
			Int("merged_js", len(stage1.MergedJS)).
			Msg("lowering phase complete")
	}

	stage2 := d.Stage2(ctx, slices, stage1)
	if d.options.DebugMode {
		logger.Debug().Int("fragments", len(stage2.Outcomes)).Msg("merged phase complete")
	}

	result := &Result{
		RunID:     runID,
		MergedCSS: stage1.MergedCSS,
		MergedJS:  stage1.MergedJS,
		Outcomes:  interleave(stage1.Outcomes, stage2.Outcomes),
	}

	var body, css, js []string

	if stage1.MergedCSS != "" {
		css = append(css, stage1.MergedCSS)
	}

	if stage1.MergedJS != "" {
		js = append(js, stage1.MergedJS)
	}

	for _, o := range result.Outcomes {
		if !o.Result.Success {
			result.Errors = append(result.Errors, formatError(o))
			continue
		}

		switch o.Phase {
		case PhaseLowering:
			if o.Result.SourceType != scanner.CSS && o.Result.SourceType != scanner.JAVASCRIPT {
				body = append(body, o.Result.Output)
			}
		case PhaseMerged:
			if o.Result.Output == "" {
				continue
			}
			if o.Slice.Type == scanner.CSS {
				css = append(css, o.Result.Output)
			} else {
				js = append(js, o.Result.Output)
			}
		}
	}

	result.HTML = strings.Join(body, "")
	result.CSS = strings.Join(css, "\n")
	result.JS = strings.Join(js, "\n")
	result.Success = len(result.Errors) == 0
	result.ErrorMessage = strings.Join(result.Errors, "; ")
	result.Report = newReport(result, time.Since(started))

	d.remember(result.Errors)

	if d.options.DebugMode {
		logger.Debug().
			Bool("success", result.Success).
			Int("errors", len(result.Errors)).
			Dur("elapsed", result.Report.Elapsed).
			Msg("dispatch complete")
	}

	return result
}

// Stage1 compiles every slice that is not raw CSS / JS and merges the CSS- and
// JS-bearing outputs in scan order.
func (d *Dispatcher) Stage1(ctx context.Context, slices []scanner.CodeSlice) Stage1Output {
	var picked []scanner.CodeSlice

	for _, s := range slices {
		if s.Type != scanner.CSS && s.Type != scanner.JAVASCRIPT {
			picked = append(picked, s)
		}
	}

	fragments := make([]Fragment, len(picked))
	for i, s := range picked {
		fragments[i] = Fragment{Type: s.Type, Content: s.Content, Start: s.Start, End: s.End, Slice: s}
	}

	results := d.runPhase(ctx, fragments)

	var (
		out      Stage1Output
		css, js  []string
		chtljsOK bool
	)

	out.Outcomes = make([]Outcome, len(picked))

	for i, r := range results {
		out.Outcomes[i] = Outcome{Slice: picked[i], Result: r, Phase: PhaseLowering}

		if !r.Success {
			continue
		}

		if picked[i].Type == scanner.CHTL_JS {
			chtljsOK = true
		}

		if r.Output == "" {
			continue
		}

		switch r.SourceType {
		case scanner.CSS:
			css = append(css, r.Output)
		case scanner.JAVASCRIPT:
			js = append(js, r.Output)
		}
	}

	if chtljsOK {
		if c, err := d.registry.Lookup(scanner.CHTL_JS); err == nil {
			if p, ok := c.(PreludeProvider); ok && p.Prelude() != "" {
				js = append([]string{p.Prelude()}, js...)
			}
		}
	}

	out.MergedCSS = strings.Join(css, "\n")
	out.MergedJS = strings.Join(js, "\n")

	return out
}

// Stage2 compiles raw CSS / JS slices, each prefixed with the merged output of Stage1
func (d *Dispatcher) Stage2(ctx context.Context, slices []scanner.CodeSlice, stage1 Stage1Output) Stage2Output {
	var (
		picked    []scanner.CodeSlice
		fragments []Fragment
	)

	for _, s := range slices {
		var prefix string

		switch s.Type {
		case scanner.CSS:
			prefix = stage1.MergedCSS
		case scanner.JAVASCRIPT:
			prefix = stage1.MergedJS
		default:
			continue
		}

		content := s.Content
		contextLen := 0

		if prefix != "" {
			content = prefix + "\n" + s.Content
			contextLen = len(prefix) + 1
		}

		picked = append(picked, s)
		fragments = append(fragments, Fragment{
			Type:       s.Type,
			Content:    content,
			Start:      s.Start,
			End:        s.End,
			ContextLen: contextLen,
			Slice:      s.WithContent(content),
		})
	}

	results := d.runPhase(ctx, fragments)

	out := Stage2Output{Outcomes: make([]Outcome, len(picked))}
	for i, r := range results {
		out.Outcomes[i] = Outcome{Slice: picked[i], Result: r, Phase: PhaseMerged}
	}

	return out
}

// runPhase compiles fragments and returns results in input order
func (d *Dispatcher) runPhase(ctx context.Context, fragments []Fragment) []CompilationResult {
	results := make([]CompilationResult, len(fragments))

	if !d.options.Parallel || d.options.Workers == 1 || len(fragments) < 2 {
		for i := range fragments {
			results[i] = d.compileOne(ctx, fragments[i])
		}

		return results
	}

	var g errgroup.Group
	g.SetLimit(d.options.Workers)

	for i := range fragments {
		g.Go(func() error {
			results[i] = d.compileOne(ctx, fragments[i])
			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (d *Dispatcher) compileOne(ctx context.Context, fragment Fragment) CompilationResult {
	compiler, err := d.registry.Lookup(fragment.Type)
	if err != nil {
		return Failed(err.Error(), fragment.Type)
	}

	if err := ctx.Err(); err != nil {
		return Failed(err.Error(), fragment.Type)
	}

	key := cacheKey(fragment)
	if cached, ok := d.cache.get(key); ok {
		return cached
	}

	result := d.invoke(ctx, compiler, fragment)
	if !result.Success && result.ErrorMessage == "" {
		result.ErrorMessage = ErrCompilationFailed.Error()
	}

	if result.Success {
		d.cache.put(key, result)
	}

	return result
}

// invoke runs the compiler under the per-fragment timeout
func (d *Dispatcher) invoke(ctx context.Context, compiler Compiler, fragment Fragment) CompilationResult {
	timeout := d.options.FragmentTimeout
	if timeout <= 0 {
		return safeCompile(ctx, compiler, fragment)
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan CompilationResult, 1)

	go func() {
		done <- safeCompile(fctx, compiler, fragment)
	}()

	select {
	case result := <-done:
		return result
	case <-fctx.Done():
		if ctx.Err() != nil {
			return Failed(ctx.Err().Error(), fragment.Type)
		}

		return Failed(fmt.Sprintf("%s after %s", ErrFragmentTimeout, timeout), fragment.Type)
	}
}

func safeCompile(ctx context.Context, compiler Compiler, fragment Fragment) (result CompilationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Failed(fmt.Sprintf("%s: %v", ErrCompilerPanic, r), fragment.Type)
		}
	}()

	return compiler.Compile(ctx, fragment)
}

func (d *Dispatcher) remember(errs []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastErrors = append([]string(nil), errs...)
}

// formatError renders "<message> (Position: <start>-<end>)"
func formatError(o Outcome) string {
	return fmt.Sprintf("%s (Position: %d-%d)", o.Result.ErrorMessage, o.Slice.Start, o.Slice.End)
}

// interleave restores scan order across both phases
func interleave(a, b []Outcome) []Outcome {
	out := make([]Outcome, 0, len(a)+len(b))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Slice.Start <= b[j].Slice.Start {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}

	out = append(out, a[i:]...)

	return append(out, b[j:]...)
}
