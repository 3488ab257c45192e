package rules

import "github.com/codewithboateng/policylint/internal/ir"

// Settings tune a Registry at construction time.
type Settings struct {
	// Permissive treats annotations missing from the allow/ban table as
	// allowed instead of implicitly banned.
	Permissive bool
	// SeverityOverrides replaces the default severity of a rule.
	SeverityOverrides map[string]ir.Severity
	// Disabled rules stay known to the Registry (suppression lookups still
	// resolve them) but are never evaluated.
	Disabled map[string]bool
}
