package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/chtl-lang/chtl"
	"github.com/chtl-lang/chtl/scanner"
)

// ErrValidationFailed is returned when at least one file has errors
var ErrValidationFailed = errors.New("validation failed")

// ValidateCmd represents the validate command
type ValidateCmd struct {
	Files []string `arg:"" optional:"" help:"CHTL files or directories (default: input_dir from config)" type:"path"`
}

func (cmd *ValidateCmd) Run(ctx *Context) error {
	config, err := chtl.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if ctx.Debug {
		config.Scanner.Debug = true
	}

	d, err := config.NewDispatcher(&ctx.Logger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	inputs := cmd.Files
	if len(inputs) == 0 {
		inputs = []string{config.InputDir}
	}

	files, err := collectFiles(inputs)
	if err != nil {
		return err
	}

	invalid := 0

	for _, r := range d.CompileFiles(context.Background(), files) {
		var problems []string

		if r.Err != nil {
			problems = append(problems, r.Err.Error())
		} else {
			problems = append(problems, r.Result.Errors...)

			slices := make([]scanner.CodeSlice, len(r.Result.Outcomes))
			for i, o := range r.Result.Outcomes {
				slices[i] = o.Slice
			}

			if err := d.ValidateFragmentCompatibility(slices); err != nil && !ctx.Quiet {
				color.Yellow("%s: %v", r.Path, err)
			}
		}

		if len(problems) == 0 {
			if ctx.Verbose {
				color.Green("%s: ok", r.Path)
			}
			continue
		}

		invalid++

		if !ctx.Quiet {
			for _, p := range problems {
				color.Red("%s: %s", r.Path, p)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d files have errors", ErrValidationFailed, invalid, len(files))
	}

	if !ctx.Quiet {
		color.Green("All %d file(s) are valid", len(files))
	}

	return nil
}
