package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codewithboateng/policylint/internal/ir"
)

// EncodeJSON writes the machine-readable report. Equal reports produce
// identical bytes.
func EncodeJSON(w io.Writer, rep ir.Report) error {
	if rep.Findings == nil {
		rep.Findings = []ir.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rep)
}

// WriteJSON stores the full run envelope as <outDir>/<runID>.json.
func WriteJSON(runID, outDir string, run *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, runID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(run); err != nil {
		return "", fmt.Errorf("encode run %s: %w", runID, err)
	}
	return path, nil
}
