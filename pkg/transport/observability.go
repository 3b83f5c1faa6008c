package transport

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

// ObservabilityConfig configures the metrics/logging middleware.
type ObservabilityConfig struct {
	EnableMetrics bool
	EnableLogging bool

	// MetricsPrefix namespaces the Prometheus metrics. Defaults to
	// "graphql_loader".
	MetricsPrefix string

	// Registerer receives the middleware's collectors. Defaults to the
	// Prometheus default registerer.
	Registerer prometheus.Registerer
}

// ObservabilityMiddleware records per-execution metrics and log lines.
type ObservabilityMiddleware struct {
	config  ObservabilityConfig
	logger  logging.Logger
	metrics *executionMetrics
}

type executionMetrics struct {
	executionsTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

func newExecutionMetrics(prefix string, reg prometheus.Registerer) *executionMetrics {
	if prefix == "" {
		prefix = "graphql_loader"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &executionMetrics{
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_executions_total",
			Help: "Total GraphQL executions by operation kind.",
		}, []string{"operation_kind"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_execution_errors_total",
			Help: "Total failed GraphQL executions by operation kind.",
		}, []string{"operation_kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_execution_duration_seconds",
			Help:    "GraphQL execution latency by operation kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation_kind"}),
	}
	reg.MustRegister(m.executionsTotal, m.errorsTotal, m.duration)
	return m
}

// NewObservabilityMiddleware creates metrics/logging middleware.
func NewObservabilityMiddleware(config ObservabilityConfig, logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	om := &ObservabilityMiddleware{config: config, logger: logger}
	if config.EnableMetrics {
		om.metrics = newExecutionMetrics(config.MetricsPrefix, config.Registerer)
	}
	return om
}

// Wrap implements the Middleware interface.
func (om *ObservabilityMiddleware) Wrap(next Executor) Executor {
	return &observedExecutor{next: next, middleware: om}
}

type observedExecutor struct {
	next       Executor
	middleware *ObservabilityMiddleware
}

func (o *observedExecutor) Execute(ctx context.Context, req *graphql.Request) (*Response, error) {
	om := o.middleware

	kind := string(graphql.OperationQuery)
	if doc, err := req.Doc(); err == nil {
		if k, err := graphql.Classify(doc, req.OperationName); err == nil {
			kind = string(k)
		}
	}

	start := time.Now()
	result, err := o.next.Execute(ctx, req)
	elapsed := time.Since(start)

	if om.metrics != nil {
		om.metrics.executionsTotal.WithLabelValues(kind).Inc()
		om.metrics.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
		if err != nil {
			om.metrics.errorsTotal.WithLabelValues(kind).Inc()
		}
	}

	if om.config.EnableLogging {
		if err != nil {
			om.logger.Warn("execution failed",
				logging.String("operation_kind", kind),
				logging.Duration("duration", elapsed),
				logging.ErrorField(err))
		} else {
			om.logger.Debug("execution completed",
				logging.String("operation_kind", kind),
				logging.Duration("duration", elapsed),
				logging.Bool("streaming", result.Streaming()))
		}
	}

	return result, err
}
