package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"time"

	"github.com/bep/debounce"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"

	"github.com/chtl-lang/chtl"
	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/generator"
	"github.com/chtl-lang/chtl/source"
)

// ErrCompilationErrors is returned when at least one file failed to compile
var ErrCompilationErrors = errors.New("compilation finished with errors")

const watchDebounce = 200 * time.Millisecond

// CompileCmd represents the compile command
type CompileCmd struct {
	Files    []string `arg:"" optional:"" help:"CHTL files or directories (default: input_dir from config)" type:"path"`
	Output   string   `short:"o" help:"Output directory"`
	Split    bool     `help:"Write CSS and JS to separate files"`
	Minify   bool     `help:"Minify HTML, CSS and JS output"`
	Parallel bool     `help:"Compile fragments and files in parallel"`
	Watch    bool     `help:"Watch for file changes and recompile automatically"`
}

func (cmd *CompileCmd) Run(ctx *Context) error {
	config, err := chtl.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cmd.applyFlags(ctx, config)

	d, err := config.NewDispatcher(&ctx.Logger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	inputs := cmd.Files
	if len(inputs) == 0 {
		inputs = []string{config.InputDir}
	}

	if ctx.Verbose {
		color.Blue("Compiling %v into %s", inputs, config.Output.Dir)
	}

	if !cmd.Watch {
		return compileInputs(context.Background(), ctx, d, config, inputs)
	}

	if err := compileInputs(context.Background(), ctx, d, config, inputs); err != nil && !ctx.Quiet {
		color.Red("%v", err)
	}

	return watch(ctx, inputs, func() {
		if err := compileInputs(context.Background(), ctx, d, config, inputs); err != nil && !ctx.Quiet {
			color.Red("%v", err)
		}
	})
}

// applyFlags overrides configuration values with command line flags
func (cmd *CompileCmd) applyFlags(ctx *Context, config *chtl.Config) {
	if cmd.Output != "" {
		config.Output.Dir = cmd.Output
	}

	if cmd.Split {
		config.Output.Split = true
	}

	if cmd.Minify {
		config.Output.MinifyHTML = true
		config.Compilers.MinifyCSS = true
		config.Compilers.MinifyJS = true
	}

	if cmd.Parallel {
		config.Dispatcher.Parallel = true
	}

	if ctx.Debug {
		config.Scanner.Debug = true
	}
}

// compileInputs compiles every file under inputs and writes one page per file
func compileInputs(c context.Context, ctx *Context, d *dispatcher.Dispatcher, config *chtl.Config, inputs []string) error {
	files, err := collectFiles(inputs)
	if err != nil {
		return err
	}

	failed := 0

	for _, r := range d.CompileFiles(c, files) {
		if r.Err != nil {
			failed++
			if !ctx.Quiet {
				color.Red("%s: %v", r.Path, r.Err)
			}
			continue
		}

		if !r.Result.Success {
			failed++
			if !ctx.Quiet {
				color.Red("%s: %s", r.Path, r.Result.ErrorMessage)
			}
			continue
		}

		written, err := generator.Write(generator.Page{Title: r.Title, Result: r.Result}, generator.OutputOptions{
			Dir:        config.Output.Dir,
			Name:       source.BaseName(r.Path),
			Split:      config.Output.Split,
			MinifyHTML: config.Output.MinifyHTML,
		})
		if err != nil {
			failed++
			if !ctx.Quiet {
				color.Red("%s: %v", r.Path, err)
			}
			continue
		}

		if ctx.Verbose {
			color.Green("Generated: %s", written.HTML)
			fmt.Print(r.Result.Report.String())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files failed", ErrCompilationErrors, failed, len(files))
	}

	if !ctx.Quiet {
		color.Green("Compiled %d file(s) into %s", len(files), config.Output.Dir)
	}

	return nil
}

// collectFiles expands directories into the CHTL sources below them
func collectFiles(inputs []string) ([]string, error) {
	var files []string

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", chtl.ErrNoInputFiles, input)
		}

		if !info.IsDir() {
			files = append(files, input)
			continue
		}

		err = filepath.WalkDir(input, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !entry.IsDir() && source.IsSource(path) {
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", input, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", chtl.ErrNoInputFiles, inputs)
	}

	slices.Sort(files)

	return slices.Compact(files), nil
}

// watch calls rebuild after CHTL sources under inputs change, until interrupted
func watch(ctx *Context, inputs []string, rebuild func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, input := range inputs {
		if err := addWatch(watcher, input); err != nil {
			return err
		}
	}

	if !ctx.Quiet {
		color.Blue("Watching %v for changes (Ctrl+C to stop)", inputs)
	}

	debounced := debounce.New(watchDebounce)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatch(watcher, event.Name)
				}
			}

			if !source.IsSource(event.Name) || event.Has(fsnotify.Chmod) {
				continue
			}

			if ctx.Verbose {
				color.Yellow("Changed: %s", event.Name)
			}

			debounced(rebuild)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			if !ctx.Quiet {
				color.Red("watch error: %v", err)
			}
		case <-interrupt:
			return nil
		}
	}
}

// addWatch watches path, or every directory below it
func addWatch(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	if !info.IsDir() {
		return watcher.Add(filepath.Dir(path))
	}

	return filepath.WalkDir(path, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return watcher.Add(p)
		}

		return nil
	})
}
