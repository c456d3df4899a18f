// Package applier consumes optimizer results from the queue and registers
// them on the stored experiments they were requested for.
package applier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boostv/optimizer-core/internal/converter"
	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/boostv/optimizer-core/internal/logger"
	"github.com/boostv/optimizer-core/internal/queue"
	"github.com/boostv/optimizer-core/internal/reducer"
	"github.com/boostv/optimizer-core/internal/store"
)

// ErrOutdated is returned for results whose request hash no longer matches
// the stored experiment.
var ErrOutdated = errors.New("result is for an outdated experiment")

// Results is the part of *queue.Queue the applier reads from.
type Results interface {
	ReadResult(ctx context.Context, consumer string, block time.Duration) (*queue.ResultMessage, string, error)
	AckResult(ctx context.Context, msgID string) error
}

// Experiments is the part of *store.Store the applier writes to.
type Experiments interface {
	Update(ctx context.Context, id string, fn func(experiment.Experiment) (experiment.Experiment, error)) (experiment.Experiment, error)
}

// Applier registers optimizer results on stored experiments.
type Applier struct {
	results     Results
	experiments Experiments
	reducer     *reducer.Reducer
	consumer    string
	force       bool
}

// Option configures an Applier.
type Option func(*Applier)

// WithConsumer sets the consumer name used within the results group.
func WithConsumer(name string) Option {
	return func(a *Applier) { a.consumer = name }
}

// WithForce applies results even when the experiment changed after the request.
func WithForce(force bool) Option {
	return func(a *Applier) { a.force = force }
}

// New creates an Applier.
func New(results Results, experiments Experiments, r *reducer.Reducer, opts ...Option) *Applier {
	a := &Applier{
		results:     results,
		experiments: experiments,
		reducer:     r,
		consumer:    "core_1",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Outcome describes one applied result.
type Outcome struct {
	RequestID    string
	ExperimentID string
	ResultID     string
	Suggestions  int
}

// Consume blocks on the results stream, applying results as they arrive,
// until ctx is cancelled.
func (a *Applier) Consume(ctx context.Context) error {
	log := logger.Get("applier")
	for {
		out, err := a.ApplyNext(ctx, 5*time.Second)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, queue.ErrNoMessages):
			continue
		case err != nil:
			log.Error().Err(err).Msg("apply result")
			continue
		}
		log.Info().
			Str("experiment", out.ExperimentID).
			Str("request", out.RequestID).
			Int("suggestions", out.Suggestions).
			Msg("result applied")
	}
}

// ApplyNext reads one result and registers it. Messages are acknowledged
// once processed, including rejected ones; a failed store write leaves the
// message pending.
func (a *Applier) ApplyNext(ctx context.Context, block time.Duration) (*Outcome, error) {
	msg, msgID, err := a.results.ReadResult(ctx, a.consumer, block)
	if errors.Is(err, queue.ErrNoMessages) {
		return nil, err
	}
	if err != nil {
		if msgID != "" {
			if ackErr := a.results.AckResult(ctx, msgID); ackErr != nil {
				return nil, errors.Join(err, ackErr)
			}
		}
		return nil, err
	}

	out, err := a.apply(ctx, msg)
	if err != nil && !permanent(err) {
		return nil, err
	}
	if ackErr := a.results.AckResult(ctx, msgID); ackErr != nil {
		return nil, errors.Join(err, ackErr)
	}
	return out, err
}

func (a *Applier) apply(ctx context.Context, msg *queue.ResultMessage) (*Outcome, error) {
	log := logger.Get("applier")
	e, err := a.experiments.Update(ctx, msg.ExperimentID, func(e experiment.Experiment) (experiment.Experiment, error) {
		if current := converter.EvaluationHash(e); current != msg.Hash && !a.force {
			log.Warn().
				Str("experiment", e.ID).
				Str("request", msg.RequestID).
				Str("requested_hash", msg.Hash).
				Str("current_hash", current).
				Msg("discarding result for outdated request")
			return e, fmt.Errorf("request %s for %s: %w", msg.RequestID, e.ID, ErrOutdated)
		}
		return a.reducer.Reduce(e, reducer.RegisterResult{Result: msg.Result})
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{
		RequestID:    msg.RequestID,
		ExperimentID: e.ID,
		ResultID:     msg.Result.ID,
		Suggestions:  len(e.Results.Next),
	}, nil
}

// permanent reports whether retrying the result can never succeed.
func permanent(err error) bool {
	return errors.Is(err, ErrOutdated) ||
		errors.Is(err, experiment.ErrSchemaValidation) ||
		errors.Is(err, experiment.ErrReferentialIntegrity) ||
		errors.Is(err, store.ErrNotFound)
}
