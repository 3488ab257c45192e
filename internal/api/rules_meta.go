package api

import (
	"net/http"
)

// GET /api/v1/rules
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	type R struct {
		ID              string `json:"id"`
		Pack            string `json:"pack"`
		Category        string `json:"category"`
		Target          string `json:"target"`
		DefaultSeverity string `json:"default_severity"`
		Summary         string `json:"summary"`
		Enabled         bool   `json:"enabled"`
	}
	if s.Registry == nil {
		s.err(w, http.StatusServiceUnavailable, "no rule registry loaded")
		return
	}
	out := []R{}
	for _, rr := range s.Registry.List() {
		out = append(out, R{
			ID: rr.ID, Pack: rr.Pack, Category: string(rr.Category), Target: string(rr.Target),
			DefaultSeverity: string(rr.Severity), Summary: rr.Summary, Enabled: s.Registry.Enabled(rr.ID),
		})
	}
	// stable order already guaranteed by Registry.List()
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out), "packs": s.Registry.Packs()})
}
