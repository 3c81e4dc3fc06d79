package dispatcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/chtl-lang/chtl/scanner"
)

// Report summarizes one dispatch run
type Report struct {
	RunID      string
	Total      int
	Successful int
	Failed     int
	ByType     [scanner.FragmentTypeCount]int
	FailedBy   [scanner.FragmentTypeCount]int
	Errors     []string
	Elapsed    time.Duration
}

func newReport(result *Result, elapsed time.Duration) Report {
	r := Report{
		RunID:   result.RunID,
		Errors:  append([]string(nil), result.Errors...),
		Elapsed: elapsed,
	}

	for _, o := range result.Outcomes {
		r.Total++
		r.ByType[o.Slice.Type]++

		if o.Result.Success {
			r.Successful++
		} else {
			r.Failed++
			r.FailedBy[o.Slice.Type]++
		}
	}

	return r
}

// String renders the report as a short multi-line summary
func (r Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "run %s: %d fragments, %d successful, %d failed (%s)\n", r.RunID, r.Total, r.Successful, r.Failed, r.Elapsed)

	for t := range scanner.FragmentTypeCount {
		if r.ByType[t] == 0 {
			continue
		}

		fmt.Fprintf(&b, "  %-10s %d", scanner.FragmentType(t), r.ByType[t])

		if r.FailedBy[t] > 0 {
			fmt.Fprintf(&b, " (%d failed)", r.FailedBy[t])
		}

		b.WriteString("\n")
	}

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  error: %s\n", e)
	}

	return b.String()
}
