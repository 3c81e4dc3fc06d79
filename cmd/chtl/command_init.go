package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

// ErrProjectExists is returned when init would overwrite an existing configuration
var ErrProjectExists = errors.New("chtl.yaml already exists")

// InitCmd represents the init command
type InitCmd struct {
	Force bool `help:"Overwrite existing files"`
}

func (i *InitCmd) Run(ctx *Context) error {
	if ctx.Verbose {
		color.Blue("Initializing CHTL project")
	}

	if fileExists(ctx.Config) && !i.Force {
		return fmt.Errorf("%w: %s", ErrProjectExists, ctx.Config)
	}

	for _, dir := range []string{"src", "dist"} {
		err := createDir(dir)
		if err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if ctx.Verbose {
			color.Green("Created directory: %s", dir)
		}
	}

	if err := writeFile(ctx.Config, sampleConfig); err != nil {
		return fmt.Errorf("failed to create sample configuration: %w", err)
	}

	index := filepath.Join("src", "index.chtl")
	if !fileExists(index) || i.Force {
		if err := writeFile(index, sampleSource); err != nil {
			return fmt.Errorf("failed to create sample files: %w", err)
		}
	}

	if !ctx.Quiet {
		color.Green("CHTL project initialized successfully")
		fmt.Println("\nNext steps:")
		fmt.Println("1. Edit src/index.chtl")
		fmt.Println("2. Run 'chtl compile' to generate dist/index.html")
		fmt.Println("3. Run 'chtl compile --watch' to recompile on save")
	}

	return nil
}

func createDir(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	if err := createDir(filepath.Dir(path)); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(content), 0644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

const sampleConfig = `# Source directory compiled when no files are given
input_dir: "./src"

# Slicing of the unified scanner
scanner:
  initial_slice_size: 1024
  max_slice_size: 8192
  min_slice_size: 64
  merge_adjacent_slices: true

# Fragment compilation
dispatcher:
  parallel: false
  # workers: 4          # defaults to the number of CPUs
  fragment_timeout: 5s  # 0s disables the limit
  cache_size: 256       # 0 disables the result cache

# Built-in compilers; strict mode runs the full CSS / JS grammar
compilers:
  minify_css: false
  minify_js: false
  strict_css: false
  strict_js: false

# Generated pages
output:
  dir: "./dist"
  split: false
  minify_html: false
  # title: "My Site"
`

const sampleSource = `-- index page
div {
    id: app;
    class: card;

    style {
        .card {
            padding: 1rem;
            border-radius: 8px;
        }
    }

    h1 { text { "Hello CHTL" } }
    button { text: "Click me"; }
}

script {
    {{.card button}}->listen {
        click: () => { console.log('clicked'); }
    };
}
`
