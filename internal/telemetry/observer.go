package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/snooze/internal/batch"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// Observer returns a batch observer recording metrics for one region.
func (p *Provider) Observer(provider, region string) batch.Observer {
	return &metricsObserver{p: p, provider: provider, region: region}
}

type metricsObserver struct {
	p        *Provider
	provider string
	region   string
}

func (m *metricsObserver) attrs(kind lifecycle.Kind, action lifecycle.Action) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider", m.provider),
		attribute.String("region", m.region),
		attribute.String("kind", string(kind)),
		attribute.String("action", action.String()),
	}
}

func (m *metricsObserver) Observe(ctx context.Context, outcome lifecycle.Outcome) {
	result := "ok"
	switch {
	case !outcome.OK():
		result = string(outcome.Class)
	case outcome.DryRun:
		result = "dry_run"
	}
	attrs := append(m.attrs(outcome.Request.Kind, outcome.Request.Action), attribute.String("result", result))
	m.p.actions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsObserver) Finish(ctx context.Context, summary batch.Summary) {
	attrs := metric.WithAttributes(m.attrs(summary.Kind, summary.Action)...)

	m.p.batchDuration.Record(ctx, summary.Duration.Seconds(), attrs)
	m.p.discovered.Add(ctx, int64(summary.Discovered), attrs)
	if summary.Err != nil {
		m.p.batchErrors.Add(ctx, 1, attrs)
	}
}
