package enrich

import (
	"fmt"
	"io"
)

func writeHeader(w io.Writer, n int) {
	_, _ = fmt.Fprintf(w, "\nGeocoding %d addresses...\n\n", n)
}

// FormatLine renders the progress line for one outcome.
func FormatLine(o Outcome) string {
	switch o.Status {
	case StatusResolved:
		return fmt.Sprintf("  OK   %-20s %s  // %s", o.Entry.Label, o.Coordinates, o.Entry.Address)
	case StatusNotFound:
		return fmt.Sprintf("  FAIL %-20s NOT FOUND  // %s", o.Entry.Label, o.Entry.Address)
	default:
		return fmt.Sprintf("  ERR  %-20s %s  // %s", o.Entry.Label, o.Error, o.Entry.Address)
	}
}

func writeLine(w io.Writer, o Outcome) {
	_, _ = fmt.Fprintln(w, FormatLine(o))
}

// FormatSummary renders the closing tally.
func FormatSummary(s Summary) string {
	return fmt.Sprintf("  Total: %d | Success: %d | Not found: %d | Errors: %d",
		s.Total, s.Resolved, s.NotFound, s.Failed)
}

func writeSummary(w io.Writer, s Summary) {
	_, _ = fmt.Fprintf(w, "\n%s\n", FormatSummary(s))
}
