// Package testhelper holds helpers shared by package tests.
package testhelper

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Dedent removes the indentation common to all non-blank lines of a raw
// string source. A leading line break is dropped and leading tabs become
// four spaces, so line and column numbers in expectations stay stable.
func Dedent(t *testing.T, src string) string {
	t.Helper()

	src = strings.TrimPrefix(src, "\n")
	lines := strings.Split(src, "\n")

	for i, line := range lines {
		body := strings.TrimLeft(line, "\t")
		lines[i] = strings.Repeat("    ", len(line)-len(body)) + body
	}

	indent := -1

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		n := len(line) - len(strings.TrimLeft(line, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		} else if strings.TrimSpace(line) == "" {
			lines[i] = ""
		}
	}

	return strings.Join(lines, "\n")
}

// Caller returns " (file:line)" of the caller, to tell table cases apart in failures
func Caller(t *testing.T) string {
	t.Helper()

	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return " (unknown)"
	}

	return fmt.Sprintf(" (%s:%d)", filepath.Base(file), line)
}
