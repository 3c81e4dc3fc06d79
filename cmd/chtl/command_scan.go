package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/chtl-lang/chtl"
	"github.com/chtl-lang/chtl/scanner"
	"github.com/chtl-lang/chtl/source"
)

// ErrInvalidOutputFormat is returned for an unknown --format value
var ErrInvalidOutputFormat = errors.New("invalid output format")

const previewWidth = 40

// ScanCmd represents the scan command
type ScanCmd struct {
	File   string `arg:"" help:"CHTL file to scan" type:"path"`
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

func (cmd *ScanCmd) Run(ctx *Context) error {
	config, err := chtl.LoadConfig(ctx.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if ctx.Debug {
		config.Scanner.Debug = true
	}

	doc, err := source.ReadFile(cmd.File)
	if err != nil {
		return err
	}

	sc := scanner.New(config.ScannerOptions(&ctx.Logger))

	slices, stats, err := sc.ScanWithStats(doc.Text)
	if err != nil {
		return err
	}

	if err := writeSlices(os.Stdout, slices, cmd.Format); err != nil {
		return err
	}

	if ctx.Verbose && cmd.Format == "table" {
		color.Blue("%d slices, %d merged, %d size flushes in %s", stats.Slices, stats.Merged, stats.SizeFlushes, stats.Elapsed)
	}

	return nil
}

type sliceView struct {
	Type    string `json:"type"`
	Context string `json:"context"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Marker  string `json:"marker,omitempty"`
	Comment string `json:"comment,omitempty"`
	Origin  string `json:"origin,omitempty"`
	Content string `json:"content"`
}

func viewOf(s scanner.CodeSlice) sliceView {
	v := sliceView{
		Type:    s.Type.String(),
		Context: s.Context.String(),
		Start:   s.Start,
		End:     s.End,
		Line:    s.Line,
		Column:  s.Column,
		Origin:  s.Origin,
		Content: s.Content,
	}

	if s.Marker != scanner.MARKER_NONE {
		v.Marker = s.Marker.String()
	}

	if s.Comment != scanner.COMMENT_NONE {
		v.Comment = s.Comment.String()
	}

	return v
}

// writeSlices prints slices as an aligned table or a JSON array
func writeSlices(w io.Writer, slices []scanner.CodeSlice, format string) error {
	switch format {
	case "json":
		views := make([]sliceView, len(slices))
		for i, s := range slices {
			views[i] = viewOf(s)
		}

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(views)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tCONTEXT\tSPAN\tPOS\tMARKER\tCONTENT")

		for _, s := range slices {
			v := viewOf(s)
			fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%d:%d\t%s\t%s\n",
				v.Type, v.Context, v.Start, v.End, v.Line, v.Column, v.Marker, preview(v.Content))
		}

		return tw.Flush()
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOutputFormat, format)
	}
}

// preview quotes the start of content on one line
func preview(content string) string {
	runes := []rune(content)
	if len(runes) > previewWidth {
		return strconv.Quote(string(runes[:previewWidth])) + "..."
	}

	return strconv.Quote(content)
}
