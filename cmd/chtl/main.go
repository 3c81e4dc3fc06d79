package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

const version = "v0.1.0"

// Context represents the global context for commands
type Context struct {
	Config  string
	Verbose bool
	Quiet   bool
	Debug   bool
	Logger  zerolog.Logger
}

// CLI represents the command-line interface
var CLI struct {
	Config   string      `help:"Configuration file path" default:"chtl.yaml"`
	Verbose  bool        `help:"Enable verbose output" short:"v"`
	Quiet    bool        `help:"Suppress output" short:"q"`
	Debug    bool        `help:"Log scanner and dispatcher statistics to stderr"`
	Compile  CompileCmd  `cmd:"" help:"Compile CHTL files to HTML"`
	Scan     ScanCmd     `cmd:"" help:"Print the slices of a CHTL file"`
	Validate ValidateCmd `cmd:"" help:"Scan and compile CHTL files without writing output"`
	Init     InitCmd     `cmd:"" help:"Initialize a new CHTL project"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run() error {
	fmt.Println("CHTL " + version)
	return nil
}

func newLogger(debug bool) zerolog.Logger {
	if !debug {
		return zerolog.Nop()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("chtl"),
		kong.Description("CHTL compiler"),
		kong.UsageOnError(),
	)

	appCtx := &Context{
		Config:  CLI.Config,
		Verbose: CLI.Verbose,
		Quiet:   CLI.Quiet,
		Debug:   CLI.Debug,
		Logger:  newLogger(CLI.Debug),
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
