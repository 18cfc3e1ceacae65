package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/mealbyme/backend/internal/apperrors"
	"github.com/pageza/mealbyme/backend/internal/metrics"
)

// RunState is the local view of one generation job.
type RunState string

const (
	StateSubmitted RunState = "submitted"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
	StateExpired   RunState = "expired"
	StateTimedOut  RunState = "timed_out"
)

// Terminal reports whether no further polling can change the state.
func (s RunState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateExpired, StateTimedOut:
		return true
	}
	return false
}

// classifyRun maps an external run status onto a local state. Every status
// that is not completed, failed, cancelled or expired keeps the job running.
func classifyRun(status string) RunState {
	switch status {
	case "completed":
		return StateCompleted
	case "failed":
		return StateFailed
	case "cancelled":
		return StateCancelled
	case "expired":
		return StateExpired
	default:
		return StateRunning
	}
}

// PollResult is the outcome of one poll step. Output is set only when the
// run completed.
type PollResult struct {
	State     RunState
	RunStatus string
	Attempt   int
	Output    string
}

// PollerConfig bounds a poll loop.
type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// Poller drives the run state machine. Timing out abandons the run locally;
// the remote run is never cancelled.
type Poller struct {
	client      GenerationClient
	interval    time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	log         *zap.Logger
}

func NewPoller(client GenerationClient, cfg PollerConfig, log *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	return &Poller{
		client:      client,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		sleep:       sleepContext,
		log:         log,
	}
}

// MaxAttempts returns the poll budget.
func (p *Poller) MaxAttempts() int {
	return p.maxAttempts
}

// Step advances the job by one poll. attempt is 1-based; once it exceeds
// the budget the job is TimedOut without querying the service. Failed,
// cancelled and expired runs are reported as upstream errors.
func (p *Poller) Step(ctx context.Context, threadID, runID string, attempt int) (*PollResult, error) {
	if attempt > p.maxAttempts {
		metrics.PollOutcomes.WithLabelValues(string(StateTimedOut)).Inc()
		return &PollResult{State: StateTimedOut, Attempt: attempt},
			apperrors.Timeout(fmt.Sprintf("Generation did not finish after %d status checks, please try again", p.maxAttempts))
	}

	run, err := p.client.GetRun(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}

	result := &PollResult{State: classifyRun(run.Status), RunStatus: run.Status, Attempt: attempt}
	metrics.PollOutcomes.WithLabelValues(string(result.State)).Inc()

	switch result.State {
	case StateCompleted:
		output, err := p.client.LatestMessage(ctx, threadID)
		if err != nil {
			return nil, err
		}
		result.Output = output
		return result, nil
	case StateFailed, StateCancelled, StateExpired:
		var cause error
		if run.LastError != nil && run.LastError.Message != "" {
			cause = fmt.Errorf("%s: %s", run.LastError.Code, run.LastError.Message)
		}
		p.log.Warn("generation run ended without output",
			zap.String("run_id", runID),
			zap.String("status", run.Status),
		)
		return result, apperrors.Upstream("Run failed with status: "+run.Status, cause)
	default:
		return result, nil
	}
}

// Wait polls until the run reaches a terminal state or the attempt budget
// is spent, sleeping the configured interval between attempts.
func (p *Poller) Wait(ctx context.Context, threadID, runID string) (*PollResult, error) {
	for attempt := 1; ; attempt++ {
		result, err := p.Step(ctx, threadID, runID, attempt)
		if err != nil {
			return result, err
		}
		if result.State.Terminal() {
			return result, nil
		}
		if err := p.sleep(ctx, p.interval); err != nil {
			return result, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
