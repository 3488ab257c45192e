package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codewithboateng/policylint/internal/ir"
)

type DiffPayload struct {
	BaseID  string        `json:"base_id"`
	HeadID  string        `json:"head_id"`
	Summary DiffSummary   `json:"summary"`
	New     []ir.Finding  `json:"new"`
	Removed []ir.Finding  `json:"removed"`
	Changed []DiffChanged `json:"changed"`
}

type DiffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type DiffChanged struct {
	Key     string     `json:"key"`
	Base    ir.Finding `json:"base"`
	Head    ir.Finding `json:"head"`
	Changed []string   `json:"fields_changed"`
}

// Diff compares two runs. Findings are matched by rule, unit and span.
func Diff(base, head *ir.Run) DiffPayload {
	bm := map[string]ir.Finding{}
	hm := map[string]ir.Finding{}
	for _, f := range base.Report.Findings {
		bm[f.Key()] = f
	}
	for _, f := range head.Report.Findings {
		hm[f.Key()] = f
	}

	added := []ir.Finding{}
	removed := []ir.Finding{}
	changed := []DiffChanged{}

	for k, hf := range hm {
		bf, ok := bm[k]
		if !ok {
			added = append(added, hf)
			continue
		}
		var fields []string
		if bf.Severity != hf.Severity {
			fields = append(fields, "severity")
		}
		if strings.TrimSpace(bf.Message) != strings.TrimSpace(hf.Message) {
			fields = append(fields, "message")
		}
		if bf.Suppressed != hf.Suppressed {
			fields = append(fields, "suppressed")
		}
		if len(fields) > 0 {
			changed = append(changed, DiffChanged{Key: k, Base: bf, Head: hf, Changed: fields})
		}
	}
	for k, bf := range bm {
		if _, ok := hm[k]; !ok {
			removed = append(removed, bf)
		}
	}

	sortFindings(added)
	sortFindings(removed)
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	return DiffPayload{
		BaseID: base.ID, HeadID: head.ID,
		Summary: DiffSummary{
			NewCount:     len(added),
			RemovedCount: len(removed),
			ChangedCount: len(changed),
		},
		New:     added,
		Removed: removed,
		Changed: changed,
	}
}

func WriteDiffJSON(outDir string, base, head *ir.Run) (string, error) {
	path := filepath.Join(outDir, "diff_"+base.ID+"__"+head.ID+".json")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(Diff(base, head), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

// sortFindings uses the report order so diffs read like reports.
func sortFindings(fs []ir.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start.Before(b.Span.Start)
		}
		return a.RuleID < b.RuleID
	})
}
