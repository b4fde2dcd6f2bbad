package provider

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/internal/domain"
	"github.com/kapu/post-reactors/internal/normalize"
	"github.com/kapu/post-reactors/pkg/errors"
)

// PollStats describes a finished poll loop.
type PollStats struct {
	Attempts  int
	Elapsed   time.Duration
	RawOutput json.RawMessage
}

// Poller waits for a provider job to finish.
type Poller struct {
	api         API
	interval    time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

func NewPoller(api API, interval time.Duration, maxAttempts int, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = constants.PollConfig.Interval
	}
	if maxAttempts <= 0 {
		maxAttempts = constants.PollConfig.MaxAttempts
	}
	return &Poller{
		api:         api,
		interval:    interval,
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
		logger:      logger,
	}
}

// MaxAttempts is the poll cap.
func (p *Poller) MaxAttempts() int {
	return p.maxAttempts
}

// Poll waits one interval before each fetch and stops on the first terminal outcome.
func (p *Poller) Poll(ctx context.Context, job *domain.Job) ([]domain.ProfileRecord, *PollStats, error) {
	start := time.Now()
	stats := &PollStats{}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := p.sleep(ctx, p.interval); err != nil {
			stats.Elapsed = time.Since(start)
			return nil, stats, p.interrupted(err, job, attempt-1)
		}

		stats.Attempts = attempt
		resp, err := p.api.FetchOutput(ctx, job.ContainerID)
		if err != nil {
			stats.Elapsed = time.Since(start)
			return nil, stats, err
		}

		outcome := Evaluate(resp)
		p.logger.Debug("Poll attempt",
			zap.String("container_id", job.ContainerID),
			zap.Int("attempt", attempt),
			zap.String("outcome", string(outcome.Kind)),
		)

		switch outcome.Kind {
		case domain.OutcomeProviderError:
			stats.Elapsed = time.Since(start)
			return nil, stats, MessageError(outcome.Message).
				WithContext("container_id", job.ContainerID).
				WithContext("attempts", attempt)
		case domain.OutcomeCompleted:
			stats.Elapsed = time.Since(start)
			stats.RawOutput = outcome.RawOutput
			return normalize.Profiles(outcome.RawOutput), stats, nil
		}
	}

	stats.Elapsed = time.Since(start)
	return nil, stats, errors.NewTimeoutError("Timeout waiting for PhantomBuster results", p.maxAttempts).
		WithContext("container_id", job.ContainerID).
		WithDetail("the provider job may still be running; retry later")
}

func (p *Poller) interrupted(err error, job *domain.Job, attempts int) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError("Deadline reached while waiting for PhantomBuster results", attempts).
			WithContext("container_id", job.ContainerID).
			WithCause(err)
	}
	return errors.New(errors.KindInternal, "Polling cancelled").
		WithContext("container_id", job.ContainerID).
		WithCause(err)
}

// Evaluate classifies one fetch-output response.
func Evaluate(resp *FetchOutputResponse) domain.PollOutcome {
	if resp == nil {
		return domain.Pending()
	}
	if msg := resp.ErrorMessage(); msg != "" {
		return domain.ProviderFailure(msg)
	}
	if !resp.HasOutput() {
		return domain.Pending()
	}

	var text string
	if err := json.Unmarshal(resp.Output, &text); err == nil {
		if !normalize.LooksEncoded(text) && ContainsErrorMarker(text) {
			return domain.ProviderFailure(text)
		}
	}
	return domain.Completed(resp.Output)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
