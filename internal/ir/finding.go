package ir

import (
	"fmt"
	"strings"
	"time"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Rank orders severities: error > warning > info. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity %q", s)
	}
	return sev, nil
}

// Finding is one reported rule violation. Findings are produced by the
// evaluator and only copied, filtered and reordered afterwards.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Unit     string   `json:"unit"`
	Span     Span     `json:"span"`
	Message  string   `json:"message"`
	// Subject names the rule an engine finding is about, if any.
	Subject      string `json:"subject,omitempty"`
	Suppressed   bool   `json:"suppressed,omitempty"`
	SuppressedBy string `json:"suppressed_by,omitempty"`
}

// Key is the identity used for deduplication. Engine findings about
// different rules at the same span stay distinct.
func (f Finding) Key() string {
	k := f.RuleID + "|" + f.Unit + "|" + f.Span.String()
	if f.Subject != "" {
		k += "|" + f.Subject
	}
	return k
}

type Summary struct {
	Error      int `json:"error"`
	Warning    int `json:"warning"`
	Info       int `json:"info"`
	Suppressed int `json:"suppressed"`
	Units      int `json:"units"`
	Skipped    int `json:"skipped_units"`
}

// Report is the aggregated, deterministically ordered result of a run.
type Report struct {
	Findings []Finding `json:"findings"`
	Summary  Summary   `json:"summary"`
}

// Failed reports whether any active error-severity finding exists.
func (r Report) Failed() bool { return r.Summary.Error > 0 }

// Run wraps a Report with the volatile metadata of one invocation.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source,omitempty"`
	IRVersion string    `json:"ir_version,omitempty"`

	Context Context `json:"context"`
	Report  Report  `json:"report"`
}

type Context struct {
	Packs         []string `json:"packs,omitempty"`
	Permissive    bool     `json:"permissive,omitempty"`
	DisabledRules []string `json:"disabled_rules,omitempty"`
}

// Waiver is a stored, expiring suppression matched by rule id and,
// optionally, unit path and a message substring.
type Waiver struct {
	ID         int64      `json:"id"`
	RuleID     string     `json:"rule_id"`
	Unit       string     `json:"unit,omitempty"`
	PatternSub string     `json:"pattern_sub,omitempty"`
	Reason     string     `json:"reason"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the waiver applies at time now.
func (w Waiver) Active(now time.Time) bool {
	return w.RevokedAt == nil && now.Before(w.ExpiresAt)
}
