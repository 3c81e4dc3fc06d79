// Package compilers wires the built-in fragment compilers into a dispatcher registry.
package compilers

import (
	"github.com/chtl-lang/chtl/compilers/chtlgen"
	"github.com/chtl-lang/chtl/compilers/chtljsgen"
	"github.com/chtl-lang/chtl/compilers/cssgen"
	"github.com/chtl-lang/chtl/compilers/jsgen"
	"github.com/chtl-lang/chtl/compilers/rawgen"
	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
)

// Options selects minification and grammar strictness of the CSS and JS compilers
type Options struct {
	MinifyCSS bool
	MinifyJS  bool
	StrictCSS bool
	StrictJS  bool
}

// Default returns a registry with a built-in compiler for every fragment type
func Default(options ...Options) (dispatcher.Registry, error) {
	var opts Options
	if len(options) > 0 {
		opts = options[0]
	}

	return dispatcher.NewRegistry(
		chtlgen.New(),
		chtljsgen.New(),
		cssgen.New(cssgen.Options{Minify: opts.MinifyCSS, Strict: opts.StrictCSS}),
		jsgen.New(jsgen.Options{Minify: opts.MinifyJS, Strict: opts.StrictJS}),
		rawgen.New(scanner.HTML),
		rawgen.New(scanner.TEXT),
		rawgen.New(scanner.UNKNOWN),
	)
}
