package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunFunc executes one unit of batch work.
type RunFunc func(context.Context) error

// RunnerConfig tunes retry behaviour for batch invocations.
type RunnerConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Runner invokes a batch function with bounded retries. Retry ownership sits
// here, outside the aggregation engine itself: the engine either commits fully
// or surfaces an error for this layer to retry.
type Runner struct {
	name       string
	run        RunFunc
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewRunner builds a runner with the provided work function.
func NewRunner(name string, run RunFunc, cfg RunnerConfig) *Runner {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{
		name:       name,
		run:        run,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// Run executes the work function, retrying transient failures with a fixed
// delay. The last error is returned when all attempts are exhausted.
func (r *Runner) Run(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		start := time.Now()
		err := r.run(ctx)
		if err == nil {
			r.logger.Sugar().Infow("job completed", "job", r.name, "attempt", attempt, "duration", time.Since(start))
			return nil
		}
		lastErr = err
		r.logger.Sugar().Warnw("job failed", "job", r.name, "attempt", attempt, "error", err)

		if attempt == r.maxRetries {
			break
		}
		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.logger.Sugar().Errorw("job exceeded retries", "job", r.name, "error", lastErr)
	return lastErr
}
