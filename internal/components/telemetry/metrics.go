package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricAPI forwards every report to an inner API and mirrors it onto otel instruments,
// so breakages and counts show up on dashboards and not only in logs.
type MetricAPI struct {
	inner    API
	broken   metric.Int64Counter
	warnings metric.Int64Counter
	counts   metric.Int64Gauge
}

func NewMetricAPI(inner API) (MetricAPI, error) {
	meter := otel.Meter("braacket.telemetry")

	broken, err := meter.Int64Counter("reports_broken")
	if err != nil {
		return MetricAPI{}, err
	}
	warnings, err := meter.Int64Counter("reports_warning")
	if err != nil {
		return MetricAPI{}, err
	}
	counts, err := meter.Int64Gauge("reports_count")
	if err != nil {
		return MetricAPI{}, err
	}

	return MetricAPI{
		inner:    inner,
		broken:   broken,
		warnings: warnings,
		counts:   counts,
	}, nil
}

func (m MetricAPI) ReportBroken(id string, params ...any) {
	m.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	m.inner.ReportBroken(id, params...)
}

func (m MetricAPI) ReportWarning(id string, params ...any) {
	m.warnings.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	m.inner.ReportWarning(id, params...)
}

func (m MetricAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m MetricAPI) ReportCount(id string, count int64) {
	m.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	m.inner.ReportCount(id, count)
}
