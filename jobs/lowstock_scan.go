package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/manoam/stocks-backend/internal/dashboard"
	jobmetrics "github.com/manoam/stocks-backend/internal/jobs"
)

// LowStockScanJob logs every product at or below the alert threshold
// and publishes the count as a gauge.
type LowStockScanJob struct {
	Dashboard *dashboard.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(dashboardSvc *dashboard.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Dashboard: dashboardSvc, Logger: logger, Metrics: metrics}
}

// Handle processes low stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dashboard == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	alerts, err := j.Dashboard.Alerts(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load low stock alerts", slog.Any("error", err))
		return resultErr
	}

	for _, alert := range alerts {
		logger.Warn("low stock",
			slog.String("reference", alert.Reference),
			slog.Int("total_qty", alert.TotalQty),
			slog.Int("threshold", alert.Threshold))
	}
	j.metrics().SetLowStockCount(len(alerts))
	logger.Info("low stock scan finished", slog.Int("alerts", len(alerts)))
	return resultErr
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
