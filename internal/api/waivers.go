package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codewithboateng/policylint/internal/ir"
)

type waiverCreateReq struct {
	RuleID     string `json:"rule_id"`
	Unit       string `json:"unit,omitempty"`
	PatternSub string `json:"pattern_sub,omitempty"`
	Reason     string `json:"reason"`
	ExpiresAt  string `json:"expires_at"` // ISO8601
}

func (s *Server) handleListWaivers(w http.ResponseWriter, r *http.Request) {
	only := truthy(r.URL.Query().Get("active"))
	ws, err := s.DB.ListWaivers(only)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": ws, "active_only": only})
}

func (s *Server) handleCreateWaiver(w http.ResponseWriter, r *http.Request) {
	var in waiverCreateReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
		s.err(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.RuleID = strings.TrimSpace(in.RuleID)
	if in.RuleID == "" || strings.TrimSpace(in.Reason) == "" || in.ExpiresAt == "" {
		s.err(w, http.StatusBadRequest, "rule_id, reason, expires_at required")
		return
	}
	if s.Registry != nil {
		if _, ok := s.Registry.Get(in.RuleID); !ok {
			s.err(w, http.StatusBadRequest, "unknown rule "+strconv.Quote(in.RuleID))
			return
		}
	}
	exp, err := time.Parse(time.RFC3339Nano, in.ExpiresAt)
	if err != nil {
		// try looser format
		exp, err = time.Parse(time.RFC3339, in.ExpiresAt)
		if err != nil {
			s.err(w, http.StatusBadRequest, "bad expires_at (use RFC3339)")
			return
		}
	}
	if !exp.After(time.Now()) {
		s.err(w, http.StatusBadRequest, "expires_at must be in the future")
		return
	}
	actor := actorFrom(r)
	id, err := s.DB.CreateWaiver(ir.Waiver{
		RuleID: in.RuleID, Unit: in.Unit, PatternSub: in.PatternSub,
		Reason: in.Reason, ExpiresAt: exp, CreatedBy: actor,
	})
	if err != nil {
		s.dbErr(w, err)
		return
	}
	s.logger().Info("waiver created", "id", id, "rule", in.RuleID, "by", actor)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleRevokeWaiver(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		s.err(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.DB.RevokeWaiver(id); err != nil {
		s.dbErr(w, err)
		return
	}
	s.logger().Info("waiver revoked", "id", id, "by", actorFrom(r))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
