package reporting

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/codewithboateng/policylint/internal/ir"
)

func WriteHTML(runID, outDir string, run *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := RenderHTML(f, run); err != nil {
		return "", err
	}
	return path, nil
}

// RenderHTML writes a self-contained page for one run.
func RenderHTML(f io.Writer, run *ir.Run) error {
	rep := run.Report
	s := rep.Summary

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(run.ID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace} .error{color:#b00020} .warning{color:#a66400} .info{color:#2457a6}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + summary
	fmt.Fprintf(f, "<h1>policylint report – <span class='mono'>%s</span></h1>", html.EscapeString(run.ID))
	fmt.Fprintf(f, "<p>Units: %d &nbsp; Skipped: %d</p>", s.Units, s.Skipped)
	fmt.Fprintf(f, "<p><b>Findings</b>: <span class='error'>%d error</span> &nbsp; <span class='warning'>%d warning</span> &nbsp; <span class='info'>%d info</span> &nbsp; <span class='dim'>%d suppressed</span></p>",
		s.Error, s.Warning, s.Info, s.Suppressed)

	if n := len(run.Context.Packs); n > 0 {
		fmt.Fprint(f, "<p class='dim'>Packs:")
		for _, p := range run.Context.Packs {
			fmt.Fprintf(f, " <span class='mono'>%s</span>", html.EscapeString(p))
		}
		fmt.Fprint(f, "</p>")
	}
	fmt.Fprint(f, "<p class='dim'>")
	if run.Context.Permissive {
		fmt.Fprint(f, "Annotation policy: permissive")
	} else {
		fmt.Fprint(f, "Annotation policy: closed allow-list")
	}
	if n := len(run.Context.DisabledRules); n > 0 {
		fmt.Fprintf(f, " &nbsp; Disabled rules: %d", n)
	}
	fmt.Fprint(f, "</p>")

	// Top rules by active finding count
	counts := map[string]int{}
	for _, fd := range rep.Findings {
		if !fd.Suppressed {
			counts[fd.RuleID]++
		}
	}
	if len(counts) > 0 {
		type rc struct {
			id string
			n  int
		}
		var tops []rc
		for id, n := range counts {
			tops = append(tops, rc{id, n})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].n == tops[j].n {
				return tops[i].id < tops[j].id
			}
			return tops[i].n > tops[j].n
		})
		if len(tops) > 10 {
			tops = tops[:10]
		}
		fmt.Fprint(f, "<h2>Top Rules</h2><table><tr><th>Rule</th><th>Findings</th></tr>")
		for _, t := range tops {
			fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td>%d</td></tr>", html.EscapeString(t.id), t.n)
		}
		fmt.Fprint(f, "</table>")
	}

	// All findings
	if len(rep.Findings) > 0 {
		fmt.Fprint(f, "<h2>All Findings</h2><table><tr><th>Severity</th><th>Rule</th><th>Location</th><th>Message</th><th>Suppressed</th></tr>")
		for _, fd := range rep.Findings {
			sev := string(fd.Severity)
			fmt.Fprintf(f, "<tr><td class='%s'>%s</td><td class='mono'>%s</td><td class='mono'>%s:%s</td><td>%s</td><td class='dim'>%s</td></tr>",
				html.EscapeString(sev),
				html.EscapeString(sev),
				html.EscapeString(fd.RuleID),
				html.EscapeString(fd.Unit),
				fd.Span.Start,
				html.EscapeString(fd.Message),
				html.EscapeString(fd.SuppressedBy),
			)
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>All Findings</h2><p class='dim'>No findings.</p>")
	}

	_, err := fmt.Fprint(f, "</body></html>")
	return err
}
