package reporting

import (
	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

// ConfigurationUnit is the unit name carried by a fatal report.
const ConfigurationUnit = "(configuration)"

// FatalReport describes a run that never started because the registry or
// its settings could not be built. It holds exactly one error finding.
func FatalReport(err error) ir.Report {
	return ir.Report{
		Findings: []ir.Finding{{
			RuleID:   rules.IDConfiguration,
			Severity: ir.SeverityError,
			Unit:     ConfigurationUnit,
			Message:  err.Error(),
		}},
		Summary: ir.Summary{Error: 1},
	}
}
