package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	"github.com/couchcryptid/sfpd-cad-cot/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrFetch wraps feed failures. The poll is abandoned and retried at the
	// next interval.
	ErrFetch = errors.New("feed fetch failed")

	// ErrSink wraps submission failures. The rest of the batch is not
	// submitted in that poll.
	ErrSink = errors.New("sink rejected event")
)

// Fetcher returns the full current feed snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.DispatchRecord, error)
}

// Transformer converts one eligible record into a serialized CoT event.
// It returns domain.ErrNoPosition when the record yields no event.
type Transformer interface {
	Transform(ctx context.Context, rec domain.DispatchRecord) (domain.OutputEvent, error)
}

// Sink accepts one serialized event, blocking until it is accepted.
type Sink interface {
	Submit(ctx context.Context, event domain.OutputEvent) error
}

// PollResult summarizes one fetch-filter-transform-submit pass.
type PollResult struct {
	Fetched   int `json:"fetched"`
	Eligible  int `json:"eligible"`
	Submitted int `json:"submitted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Malformed int `json:"malformed"`
}

// Status describes the most recent poll.
type Status struct {
	LastPoll    time.Time  `json:"last_poll"`
	LastSuccess time.Time  `json:"last_success"`
	Result      PollResult `json:"result"`
	Error       string     `json:"error,omitempty"`
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for sleeping between polls.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// Pipeline orchestrates the poll loop: fetch, filter, transform, submit, sleep.
type Pipeline struct {
	fetcher     Fetcher
	transformer Transformer
	sink        Sink
	logger      *slog.Logger
	metrics     *observability.Metrics
	interval    time.Duration
	clock       clockwork.Clock
	ready       atomic.Bool

	mu     sync.Mutex
	status Status
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, t Transformer, s Sink, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:     f,
		transformer: t,
		sink:        s,
		logger:      logger,
		metrics:     metrics,
		interval:    interval,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a poll has fetched the feed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("feed has not been fetched yet")
	}
	return nil
}

// Status returns a copy of the most recent poll outcome.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) recordStatus(at time.Time, result PollResult, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.LastPoll = at
	p.status.Result = result
	p.status.Error = ""
	if err != nil {
		p.status.Error = err.Error()
		return
	}
	p.status.LastSuccess = at
}

// Run polls immediately and then every interval until the context is
// cancelled. Failed polls are logged and do not stop the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "poll_interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("poll failed", "error", err)
		}

		if !p.sleep(ctx) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// Poll runs one pass. Records are transformed and submitted one at a time in
// filter order; each submission completes before the next record starts.
func (p *Pipeline) Poll(ctx context.Context) (result PollResult, err error) {
	logger := p.logger.With("poll_id", uuid.NewString())
	start := p.clock.Now()
	p.metrics.Polls.Inc()
	defer func() {
		p.metrics.PollDuration.Observe(p.clock.Since(start).Seconds())
		p.recordStatus(start, result, err)
	}()

	records, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.metrics.FetchErrors.Inc()
		return PollResult{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	p.ready.Store(true)
	p.metrics.RecordsFetched.Add(float64(len(records)))
	p.metrics.SnapshotSize.Observe(float64(len(records)))

	for _, rec := range records {
		if rec.DecodeErr != nil {
			logger.Warn("malformed record, skipping",
				"error", rec.DecodeErr,
				"cad_number", rec.CADNumber.String(),
			)
		}
	}

	eligible, stats := domain.SelectEligible(records)
	p.metrics.RecordsEligible.Add(float64(len(eligible)))
	p.metrics.RecordsMalformed.Add(float64(stats.Malformed))
	logger.Debug("snapshot filtered",
		"total", stats.Total,
		"eligible", stats.Eligible,
		"malformed", stats.Malformed,
		"no_position", stats.NoPosition,
		"bad_timestamp", stats.BadTimestamp,
		"outside_window", stats.OutsideWindow,
		"closed", stats.Closed,
	)

	result = PollResult{Fetched: len(records), Eligible: len(eligible), Malformed: stats.Malformed}
	for _, rec := range eligible {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := p.process(ctx, logger, rec, &result); err != nil {
			return result, err
		}
	}

	logger.Info("poll complete",
		"fetched", result.Fetched,
		"eligible", result.Eligible,
		"submitted", result.Submitted,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"malformed", result.Malformed,
	)
	return result, nil
}

// process transforms and submits a single record. Only sink failures are
// returned; transform failures are counted and skipped.
func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, rec domain.DispatchRecord, result *PollResult) error {
	event, err := p.transformer.Transform(ctx, rec)
	switch {
	case errors.Is(err, domain.ErrNoPosition):
		logger.Debug("empty CoT", "cad_number", rec.CADNumber.String())
		p.metrics.EventsSkipped.Inc()
		result.Skipped++
		return nil
	case err != nil:
		logger.Warn("transform failed, skipping record",
			"error", err,
			"cad_number", rec.CADNumber.String(),
		)
		p.metrics.TransformErrors.Inc()
		result.Failed++
		return nil
	}

	if err := p.sink.Submit(ctx, event); err != nil {
		p.metrics.SinkErrors.Inc()
		return fmt.Errorf("%w: %s: %w", ErrSink, event.UID, err)
	}
	p.metrics.EventsSubmitted.Inc()
	result.Submitted++
	return nil
}

// sleep waits for the poll interval. Returns false if the context ends first.
func (p *Pipeline) sleep(ctx context.Context) bool {
	if p.interval <= 0 {
		return ctx.Err() == nil
	}

	timer := p.clock.NewTimer(p.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
