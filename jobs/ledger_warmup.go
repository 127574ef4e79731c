package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/artha-erp/artha-erp/internal/jobs"
	"github.com/artha-erp/artha-erp/internal/ledger"
	"github.com/artha-erp/artha-erp/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LedgerWarmupJob pre-populates the ledger view caches so dashboards do not
// pay the rebuild cost after an invalidation.
type LedgerWarmupJob struct {
	Ledger  *ledger.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewLedgerWarmupJob wires dependencies for the warmup handler.
func NewLedgerWarmupJob(ledgerSvc *ledger.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerWarmupJob {
	return &LedgerWarmupJob{
		Ledger:  ledgerSvc,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes ledger warmup tasks.
func (j *LedgerWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger warmup: handler not configured")
	}
	var payload LedgerWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLedgerWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.now()
	from := shared.MonthOf(now.AddDate(-1, 1, 0))
	to := shared.MonthOf(now)
	if payload.From != "" {
		m, err := shared.ParseMonth(payload.From)
		if err != nil {
			return asynq.SkipRetry
		}
		from = m
	}
	if payload.To != "" {
		m, err := shared.ParseMonth(payload.To)
		if err != nil {
			return asynq.SkipRetry
		}
		to = m
	}

	logger := j.logger().With(slog.String("from", from.String()), slog.String("to", to.String()))
	logger.Info("starting ledger warmup")

	warmCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := j.Ledger.Warmup(warmCtx, from, to); err != nil {
		resultErr = err
		logger.Error("ledger warmup", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed ledger warmup", slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *LedgerWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerWarmup))
	}
	return slog.Default().With(slog.String("job", TaskLedgerWarmup))
}

func (j *LedgerWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LedgerWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
