package aggregate

import (
	"strconv"
	"strings"
	"time"

	"github.com/codewithboateng/policylint/internal/ir"
)

// matchWaiver returns the first active waiver matching f.
func matchWaiver(f ir.Finding, waivers []ir.Waiver, now time.Time) (ir.Waiver, bool) {
	for _, w := range waivers {
		if !w.Active(now) || !eqCI(f.RuleID, w.RuleID) {
			continue
		}
		if w.Unit != "" && strings.TrimSpace(w.Unit) != f.Unit {
			continue
		}
		if w.PatternSub != "" && !strings.Contains(strings.ToUpper(f.Message), strings.ToUpper(w.PatternSub)) {
			continue
		}
		return w, true
	}
	return ir.Waiver{}, false
}

func waiverLabel(w ir.Waiver) string { return "waiver:" + strconv.FormatInt(w.ID, 10) }

func eqCI(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }
