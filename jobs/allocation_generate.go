package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/artha-erp/artha-erp/internal/capital"
	jobmetrics "github.com/artha-erp/artha-erp/internal/jobs"
)

// AllocationGenerateJob upserts the current month's allocations from the
// active capital plan. Re-running is safe: the upsert replaces, never
// accumulates.
type AllocationGenerateJob struct {
	Capital *capital.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAllocationGenerateJob wires dependencies for the generation handler.
func NewAllocationGenerateJob(capitalSvc *capital.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AllocationGenerateJob {
	return &AllocationGenerateJob{Capital: capitalSvc, Logger: logger, Metrics: metrics}
}

// Handle processes allocation generation tasks.
func (j *AllocationGenerateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Capital == nil {
		return errors.New("allocation generate: handler not configured")
	}

	tracker := j.metrics().Track(TaskAllocationGenerate)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting allocation generation")

	genCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	count, err := j.Capital.GenerateAllocationsForActivePlan(genCtx)
	if err != nil {
		resultErr = err
		logger.Error("generate allocations", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed allocation generation", slog.Int("allocations", count))
	return resultErr
}

func (j *AllocationGenerateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAllocationGenerate))
	}
	return slog.Default().With(slog.String("job", TaskAllocationGenerate))
}

func (j *AllocationGenerateJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
