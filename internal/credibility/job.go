package credibility

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/refcheck/refcheck/internal/reference"
)

// DefaultSweepInterval is the default interval between analysis sweeps.
const DefaultSweepInterval = 15 * time.Second

// DefaultSweepTimeout is the default timeout for a single sweep cycle.
const DefaultSweepTimeout = 2 * time.Minute

// DefaultSweepBatchSize bounds how many references a cycle picks up.
const DefaultSweepBatchSize = 10

// AnalysisJobConfig configures the background analysis sweep.
type AnalysisJobConfig struct {
	// Interval is the duration between sweep cycles.
	Interval time.Duration
	// Timeout for each sweep cycle.
	Timeout time.Duration
	// BatchSize is the maximum number of references analyzed per cycle.
	BatchSize int
	// Logger for job activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking.
	JobMetrics JobMetrics
}

// JobMetrics provides centralized background job metrics tracking.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// AnalysisJob periodically picks up references stuck in the processing
// state and runs the analysis pipeline on them. New submissions are
// normally analyzed inline by the transport layer; the sweep catches
// references orphaned by a crash or a failed inline attempt.
type AnalysisJob struct {
	config   AnalysisJobConfig
	analyzer *Analyzer
	refs     reference.Repository

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewAnalysisJob creates a new analysis sweep job.
func NewAnalysisJob(config AnalysisJobConfig, analyzer *Analyzer, refs reference.Repository) *AnalysisJob {
	if config.Interval == 0 {
		config.Interval = DefaultSweepInterval
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultSweepTimeout
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultSweepBatchSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &AnalysisJob{
		config:   config,
		analyzer: analyzer,
		refs:     refs,
	}
}

// Start begins the periodic sweep.
// Returns immediately; the job runs in a background goroutine.
func (j *AnalysisJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the sweep to stop and waits for it to finish.
func (j *AnalysisJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *AnalysisJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *AnalysisJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("analysis sweep stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("analysis sweep stopping due to stop signal")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// sweep analyzes pending references, oldest first, within the cycle
// timeout. Per-reference failures are logged and do not stop the cycle.
func (j *AnalysisJob) sweep(parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	pending, err := j.refs.ListByStatus(ctx, reference.StatusProcessing, j.config.BatchSize)
	if err != nil {
		j.config.Logger.Error("failed to list pending references",
			slog.String("error", err.Error()))
		if j.config.JobMetrics != nil {
			j.config.JobMetrics.IncJobErrors("analysis_sweep", "list_error")
			j.config.JobMetrics.IncJobsTotal("analysis_sweep", "failure")
		}
		return
	}
	if len(pending) == 0 {
		return
	}

	start := time.Now()
	var analyzed int

	j.config.Logger.Info("analysis sweep starting",
		slog.Int("pending", len(pending)))

	for i, ref := range pending {
		select {
		case <-ctx.Done():
			j.config.Logger.Error("analysis sweep timeout exceeded",
				slog.Int("processed", i),
				slog.Int("total", len(pending)),
				slog.Duration("timeout", j.config.Timeout))
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors("analysis_sweep", "timeout")
				j.config.JobMetrics.IncJobsTotal("analysis_sweep", "failure")
				j.config.JobMetrics.ObserveJobDuration("analysis_sweep", time.Since(start).Seconds())
			}
			return
		default:
		}

		if _, err := j.analyzer.Analyze(ctx, ref); err != nil {
			j.config.Logger.Error("sweep analysis failed",
				slog.String("reference_id", ref.ID),
				slog.String("error", err.Error()))
			if j.config.JobMetrics != nil {
				j.config.JobMetrics.IncJobErrors("analysis_sweep", "analysis_error")
			}
			continue
		}
		analyzed++
	}

	duration := time.Since(start).Seconds()
	status := "success"
	if analyzed < len(pending) {
		status = "failure"
	}

	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal("analysis_sweep", status)
		j.config.JobMetrics.ObserveJobDuration("analysis_sweep", duration)
	}

	j.config.Logger.Info("analysis sweep completed",
		slog.Float64("duration_seconds", duration),
		slog.Int("analyzed", analyzed),
		slog.Int("failed", len(pending)-analyzed))
}

// SweepNow immediately runs one sweep cycle without waiting for the
// ticker. Useful for testing or forcing immediate processing.
func (j *AnalysisJob) SweepNow() {
	j.sweep(context.Background())
}
