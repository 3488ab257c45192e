package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
	"github.com/codewithboateng/policylint/internal/storage"
)

// Store is the minimal contract the API needs.
type Store interface {
	ListRuns(limit, offset int) ([]storage.RunRow, error)
	LoadRun(id string) (ir.Run, error)
	LatestRun() (ir.Run, error)
	ListFindings(runID string, minSeverity ir.Severity, includeSuppressed bool) ([]ir.Finding, error)

	ListWaivers(activeOnly bool) ([]ir.Waiver, error)
	CreateWaiver(w ir.Waiver) (int64, error)
	RevokeWaiver(id int64) error
}

type Server struct {
	DB             Store
	Registry       *rules.Registry // rule inventory and waiver rule-id checks
	Logger         *slog.Logger
	AllowedOrigins []string
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	h := func(fn http.HandlerFunc) http.HandlerFunc { return s.withLogging(s.withCORS(fn)) }

	// Health
	mux.HandleFunc("GET /api/v1/health", h(s.handleHealth))

	// Runs
	mux.HandleFunc("GET /api/v1/runs", h(s.handleListRuns))
	mux.HandleFunc("GET /api/v1/runs/latest", h(s.handleGetLatest))
	mux.HandleFunc("GET /api/v1/runs/{id}", h(s.handleGetRun))
	mux.HandleFunc("GET /api/v1/runs/{id}/findings", h(s.handleListFindings))

	// Rules inventory
	mux.HandleFunc("GET /api/v1/rules", h(s.handleRules))

	// Waivers
	mux.HandleFunc("GET /api/v1/waivers", h(s.handleListWaivers))
	mux.HandleFunc("POST /api/v1/waivers", h(s.handleCreateWaiver))
	mux.HandleFunc("POST /api/v1/waivers/{id}/revoke", h(s.handleRevokeWaiver))

	// Fallback 404
	mux.HandleFunc("/", h(func(w http.ResponseWriter, r *http.Request) {
		s.err(w, http.StatusNotFound, "not found")
	}))
	return mux
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"ir_version": ir.Version,
		"timestamp":  time.Now().UTC(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := max(parseInt(q.Get("offset"), 0), 0)

	rows, err := s.DB.ListRuns(limit, offset)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset,
	})
}

func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LatestRun()
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LoadRun(r.PathValue("id"))
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()
	minSev := ir.SeverityInfo
	if v := strings.TrimSpace(q.Get("min_severity")); v != "" {
		sev, err := ir.ParseSeverity(v)
		if err != nil {
			s.err(w, http.StatusBadRequest, err.Error())
			return
		}
		minSev = sev
	}
	withSuppressed := truthy(q.Get("suppressed"))

	if _, err := s.DB.LoadRun(id); err != nil {
		s.dbErr(w, err)
		return
	}
	items, err := s.DB.ListFindings(id, minSev, withSuppressed)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": id, "min_severity": minSev, "items": items, "count": len(items),
	})
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// dbErr maps storage.ErrNotFound to 404 and everything else to 500.
func (s *Server) dbErr(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.err(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger().Error("api storage error", "err", err)
	s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func truthy(v string) bool {
	return v == "1" || v == "true" || v == "yes"
}
