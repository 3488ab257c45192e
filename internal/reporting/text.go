package reporting

import (
	"bufio"
	"fmt"
	"io"

	"github.com/codewithboateng/policylint/internal/ir"
)

// WriteText prints one line per finding, `path:line:col: severity rule-id:
// message`, followed by a summary line. Suppressed findings are listed
// only when showSuppressed is set.
func WriteText(w io.Writer, rep ir.Report, showSuppressed bool) error {
	bw := bufio.NewWriter(w)
	for _, f := range rep.Findings {
		if f.Suppressed && !showSuppressed {
			continue
		}
		fmt.Fprintf(bw, "%s:%d:%d: %s %s: %s", f.Unit, f.Span.Start.Line, f.Span.Start.Column, f.Severity, f.RuleID, f.Message)
		if f.Suppressed {
			fmt.Fprintf(bw, " [suppressed by %s]", f.SuppressedBy)
		}
		bw.WriteByte('\n')
	}
	s := rep.Summary
	fmt.Fprintf(bw, "%d error(s), %d warning(s), %d info, %d suppressed in %d unit(s)", s.Error, s.Warning, s.Info, s.Suppressed, s.Units)
	if s.Skipped > 0 {
		fmt.Fprintf(bw, ", %d skipped", s.Skipped)
	}
	bw.WriteByte('\n')
	return bw.Flush()
}
