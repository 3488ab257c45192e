package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/codewithboateng/policylint/internal/ir"
)

const instrumentationName = "github.com/codewithboateng/policylint/internal/engine"

// Unit outcomes recorded on the policylint.units counter.
const (
	outcomeOK        = "ok"
	outcomeSkipped   = "model_error"
	outcomeCancelled = "cancelled"
)

// instruments are created once per Runner and reused for every unit.
type instruments struct {
	units    metric.Int64Counter
	findings metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(m metric.Meter) (*instruments, error) {
	var (
		ins instruments
		err error
	)
	ins.units, err = m.Int64Counter("policylint.units",
		metric.WithDescription("Units evaluated, by outcome"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("create units counter: %w", err)
	}
	ins.findings, err = m.Int64Counter("policylint.findings",
		metric.WithDescription("Findings produced before suppression, by severity"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("create findings counter: %w", err)
	}
	ins.duration, err = m.Float64Histogram("policylint.unit.duration",
		metric.WithDescription("Per-unit evaluation time in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	return &ins, nil
}

func (ins *instruments) recordUnit(ctx context.Context, outcome string, findings []ir.Finding, took time.Duration) {
	ins.units.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == outcomeCancelled {
		return
	}
	ins.duration.Record(ctx, float64(took.Microseconds())/1000)
	bySeverity := map[ir.Severity]int64{}
	for _, f := range findings {
		bySeverity[f.Severity]++
	}
	for sev, n := range bySeverity {
		ins.findings.Add(ctx, n, metric.WithAttributes(attribute.String("severity", string(sev))))
	}
}
