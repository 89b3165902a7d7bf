package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-energy/meridian-docs/internal/jobs"
	"github.com/meridian-energy/meridian-docs/internal/reporting"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportWarmupJob pre-populates the report cache for every active branch so
// the first dashboard hit of the day is served warm.
type ReportWarmupJob struct {
	Reports *reporting.Service
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports *reporting.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports: reports,
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.LookbackMonths <= 0 {
		payload.LookbackMonths = 3
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("lookback_months", payload.LookbackMonths))
	logger.Info("starting report warmup")

	branches, err := j.fetchBranches(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load warmup branches", slog.Any("error", err))
		return resultErr
	}
	if len(branches) == 0 {
		logger.Info("no branches discovered for warmup")
		return resultErr
	}
	// the cross-branch view is warmed alongside each branch
	branches = append(branches, "")

	now := j.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(payload.LookbackMonths - 1), 0)
	warmed := 0
	for _, branch := range branches {
		if err := j.warmBranch(ctx, branch, from, now); err != nil {
			resultErr = err
			logger.Error("warm branch", slog.String("branch", branch), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed report warmup", slog.Int("branches", warmed), slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *ReportWarmupJob) warmBranch(ctx context.Context, branch string, from, to time.Time) error {
	if j.Reports == nil {
		return nil
	}
	// Tighten each branch execution with a timeout to avoid long-running jobs.
	branchCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	for _, groupBy := range []reporting.GroupBy{reporting.GroupByMonth, reporting.GroupByQuarter} {
		if _, err := j.Reports.Aggregate(branchCtx, reporting.Filters{
			GroupBy: groupBy,
			Branch:  branch,
			From:    from,
			To:      to,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (j *ReportWarmupJob) fetchBranches(ctx context.Context) ([]string, error) {
	if j.Pool == nil {
		return nil, errors.New("report warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT branch FROM documents WHERE branch <> '' ORDER BY branch`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := make([]string, 0)
	for rows.Next() {
		var branch string
		if err := rows.Scan(&branch); err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return branches, nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
