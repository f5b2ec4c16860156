package compare

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Render writes the human-readable report listing: one line per record,
// detail lines for divergences, then the summary counts and verdict.
func Render(w io.Writer, report *Report, colorize bool) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	if !colorize {
		green.DisableColor()
		red.DisableColor()
		yellow.DisableColor()
	}

	fmt.Fprintf(w, "comparison run %s\n", report.RunID)
	fmt.Fprintf(w, "base: %s\nnew:  %s\n\n", report.BasePath, report.NewPath)

	for _, record := range report.Records {
		line := fmt.Sprintf("[%-14s] %s (base=%s new=%s)",
			record.Classification, record.OperationName,
			record.Base.WallTime, record.New.WallTime)
		switch record.Classification {
		case Match:
			green.Fprintln(w, line)
		case Crash:
			red.Fprintln(w, line)
		default:
			yellow.Fprintln(w, line)
		}
		if record.Detail != "" {
			fmt.Fprintf(w, "    %s\n", record.Detail)
		}
	}

	fmt.Fprintln(w)
	for _, class := range []Classification{Match, ValueMismatch, ErrorMismatch, Crash} {
		if n := report.Counts[class]; n > 0 {
			fmt.Fprintf(w, "%-14s %d\n", class, n)
		}
	}
	if report.Truncated {
		yellow.Fprintln(w, "run truncated by crash; later operations were not compared")
	}

	if report.Pass {
		green.Fprintln(w, "PASS")
	} else {
		red.Fprintln(w, "FAIL")
	}
}
