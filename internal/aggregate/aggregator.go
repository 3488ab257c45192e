package aggregate

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

// Batch is the complete evaluation result of one unit.
type Batch struct {
	Unit       string
	Findings   []ir.Finding
	Directives []ir.Directive
	// Skipped marks a unit refused at ingestion; Findings then holds its
	// model error.
	Skipped bool
}

// Aggregator merges per-unit batches. Add may be called from many
// goroutines; Report orders everything once all batches are in.
type Aggregator struct {
	reg     *rules.Registry
	waivers []ir.Waiver
	now     func() time.Time

	mu      sync.Mutex
	batches []Batch
}

type Option func(*Aggregator)

// WithWaivers applies stored waivers in addition to inline directives.
func WithWaivers(ws []ir.Waiver) Option {
	return func(a *Aggregator) { a.waivers = append(a.waivers, ws...) }
}

// WithClock sets the time used to decide waiver expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(reg *rules.Registry, opts ...Option) *Aggregator {
	a := &Aggregator{reg: reg, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Add records one completed batch. Batches arrive in any order.
func (a *Aggregator) Add(b Batch) {
	a.mu.Lock()
	a.batches = append(a.batches, b)
	a.mu.Unlock()
}

// Report suppresses, deduplicates, sorts and counts. It does not consume
// the batches and may be called again.
func (a *Aggregator) Report() ir.Report {
	a.mu.Lock()
	batches := make([]Batch, len(a.batches))
	copy(batches, a.batches)
	a.mu.Unlock()

	now := a.now()
	var rep ir.Report
	seen := map[string]bool{}

	for _, b := range batches {
		rep.Summary.Units++
		if b.Skipped {
			rep.Summary.Skipped++
		}

		findings := append([]ir.Finding(nil), b.Findings...)
		var sups []suppression
		for _, d := range b.Directives {
			s, err := parseDirective(b.Unit, d, a.reg)
			var syn *SuppressionSyntaxError
			if errors.As(err, &syn) {
				findings = append(findings, a.reg.EngineFinding(rules.IDSuppressionSyntax, b.Unit, d.Span,
					map[string]any{"reason": syn.Reason}))
				continue
			}
			sups = append(sups, s)
		}

		for _, f := range findings {
			f.Suppressed, f.SuppressedBy = false, ""
			for _, s := range sups {
				if s.covers(f) {
					f.Suppressed, f.SuppressedBy = true, "inline"
					break
				}
			}
			if !f.Suppressed {
				if w, ok := matchWaiver(f, a.waivers, now); ok {
					f.Suppressed, f.SuppressedBy = true, waiverLabel(w)
				}
			}
			k := f.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			rep.Findings = append(rep.Findings, f)
		}
	}

	Sort(rep.Findings)
	for _, f := range rep.Findings {
		if f.Suppressed {
			rep.Summary.Suppressed++
			continue
		}
		switch f.Severity {
		case ir.SeverityError:
			rep.Summary.Error++
		case ir.SeverityWarning:
			rep.Summary.Warning++
		case ir.SeverityInfo:
			rep.Summary.Info++
		}
	}
	if rep.Findings == nil {
		rep.Findings = []ir.Finding{}
	}
	return rep
}

// Sort orders findings by unit, start line, start column and rule id; end
// position, subject and message break the remaining ties.
func Sort(fs []ir.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start.Before(b.Span.Start)
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.Span.End != b.Span.End {
			return a.Span.End.Before(b.Span.End)
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Message < b.Message
	})
}
