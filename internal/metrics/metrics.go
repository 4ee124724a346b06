// Package metrics registers the Prometheus series this controller exposes
// and the OpenTelemetry tracer used to span each reconciliation stage.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const subsystem = "secretmanager"

var (
	// ReconciliationsTotal counts every Reconcile call by its terminal phase.
	ReconciliationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "reconciliations_total",
		Help:      "Total number of reconciliations, labeled by the resulting phase.",
	}, []string{"phase"})

	// ErrorsTotal counts stage failures by their classified error kind.
	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "errors_total",
		Help:      "Total number of reconciliation errors, labeled by stage and error kind.",
	}, []string{"stage", "kind"})

	// SecretsPublishedTotal counts per-key publish outcomes by provider and reason.
	SecretsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "secrets_published_total",
		Help:      "Total number of secret publish operations, labeled by provider and outcome.",
	}, []string{"provider", "reason"})

	// RequeuesTotal counts scheduler requeues by reason.
	RequeuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "requeues_total",
		Help:      "Total number of scheduler requeues, labeled by reason.",
	}, []string{"reason"})

	// ReconcileDuration observes wall-clock time for one full Reconcile call.
	ReconcileDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of a full reconciliation, labeled by the resulting phase.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})
)

func init() {
	metrics.Registry.MustRegister(
		ReconciliationsTotal,
		ErrorsTotal,
		SecretsPublishedTotal,
		RequeuesTotal,
		ReconcileDuration,
	)
}

// Tracer is the package-wide tracer for reconciliation-stage spans.
var Tracer trace.Tracer = otel.Tracer("secretmanager-controller")

// StartStage opens a span named for the given reconciliation stage.
func StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, stage)
}
