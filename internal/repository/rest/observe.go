package rest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"kankou/internal/logger"
)

// backendMetrics counts and times calls to the document API.
type backendMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newBackendMetrics(reg prometheus.Registerer) (*backendMetrics, error) {
	m := &backendMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kankou",
			Subsystem: "backend",
			Name:      "operations_total",
			Help:      "Total document API operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kankou",
			Subsystem: "backend",
			Name:      "operation_duration_seconds",
			Help:      "Document API operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("rest: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("rest: register metric: %w", err)
	}
	return nil
}

type observer struct {
	logger  *zap.Logger
	metrics *backendMetrics
}

func newObserver(l *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *backendMetrics
	if reg != nil {
		var err error
		m, err = newBackendMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: l, metrics: m}, nil
}

// observe records one operation. errp is read when observe runs, so it is meant
// to be deferred with a pointer to the named error result.
func (o *observer) observe(ctx context.Context, op string, start time.Time, errp *error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	var err error
	if errp != nil {
		err = *errp
	}

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	l := logger.FromContext(ctx, o.logger)
	if err != nil {
		l.Warn("document api operation failed",
			zap.String("op", op),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return
	}
	l.Debug("document api operation completed",
		zap.String("op", op),
		zap.Duration("duration", dur),
	)
}
