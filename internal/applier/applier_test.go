package applier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/boostv/optimizer-core/internal/converter"
	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/boostv/optimizer-core/internal/queue"
	"github.com/boostv/optimizer-core/internal/reducer"
	"github.com/boostv/optimizer-core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResults struct {
	msgs    []*queue.ResultMessage
	readErr error
	acked   []string
}

func (f *fakeResults) ReadResult(context.Context, string, time.Duration) (*queue.ResultMessage, string, error) {
	if f.readErr != nil {
		return nil, "bad-1", f.readErr
	}
	if len(f.msgs) == 0 {
		return nil, "", queue.ErrNoMessages
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, "msg-" + msg.RequestID, nil
}

func (f *fakeResults) AckResult(_ context.Context, id string) error {
	f.acked = append(f.acked, id)
	return nil
}

type fakeExperiments struct {
	byID     map[string]experiment.Experiment
	writeErr error
}

func (f *fakeExperiments) Update(_ context.Context, id string, fn func(experiment.Experiment) (experiment.Experiment, error)) (experiment.Experiment, error) {
	e, ok := f.byID[id]
	if !ok {
		return experiment.Experiment{}, fmt.Errorf("load experiment %s: %w", id, store.ErrNotFound)
	}
	next, err := fn(e)
	if err != nil {
		return experiment.Experiment{}, err
	}
	if f.writeErr != nil {
		return experiment.Experiment{}, f.writeErr
	}
	f.byID[id] = next
	return next, nil
}

func fixture() (experiment.Experiment, *fakeExperiments) {
	e := experiment.New("Cake")
	e.ValueVariables = []experiment.ValueVariable{
		{Name: "Water", Type: experiment.Continuous, Min: 0, Max: 100, Enabled: true},
	}
	return e, &fakeExperiments{byID: map[string]experiment.Experiment{e.ID: e}}
}

func resultFor(e experiment.Experiment, requestID string) *queue.ResultMessage {
	return &queue.ResultMessage{
		RequestID:    requestID,
		ExperimentID: e.ID,
		Hash:         converter.EvaluationHash(e),
		Result: experiment.Results{
			ID:              "res-" + requestID,
			Next:            [][]any{{42.0}, {17.0}},
			Plots:           []experiment.Plot{},
			ExpectedMinimum: [][]any{},
		},
	}
}

func newApplier(results *fakeResults, experiments *fakeExperiments, opts ...Option) *Applier {
	return New(results, experiments, reducer.New(reducer.Settings{MaxRating: 5, SWVersion: "test"}), opts...)
}

func TestApplyNext(t *testing.T) {
	e, experiments := fixture()
	results := &fakeResults{msgs: []*queue.ResultMessage{resultFor(e, "r1")}}

	out, err := newApplier(results, experiments).ApplyNext(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, &Outcome{RequestID: "r1", ExperimentID: e.ID, ResultID: "res-r1", Suggestions: 2}, out)
	assert.Equal(t, []string{"msg-r1"}, results.acked)

	stored := experiments.byID[e.ID]
	assert.Equal(t, "res-r1", stored.Results.ID)
	assert.Equal(t, converter.EvaluationHash(e), stored.LastEvaluationHash)
	assert.Greater(t, stored.Info.Version, e.Info.Version)
}

func TestApplyNextOutdated(t *testing.T) {
	e, experiments := fixture()
	msg := resultFor(e, "r1")
	msg.Hash = "0000000000000000"

	tests := []struct {
		name    string
		force   bool
		wantErr error
		applied bool
	}{
		{"rejected", false, ErrOutdated, false},
		{"forced", true, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			experiments.byID[e.ID] = e
			results := &fakeResults{msgs: []*queue.ResultMessage{msg}}

			_, err := newApplier(results, experiments, WithForce(tt.force)).ApplyNext(context.Background(), -1)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"msg-r1"}, results.acked)
			assert.Equal(t, tt.applied, experiments.byID[e.ID].Results.ID == "res-r1")
		})
	}
}

func TestApplyNextAcknowledgement(t *testing.T) {
	e, _ := fixture()
	invalid := resultFor(e, "r2")
	invalid.Result.Plots = []experiment.Plot{{Plot: "missing id"}}
	missing := resultFor(e, "r3")
	missing.ExperimentID = "nope"

	tests := []struct {
		name      string
		msg       *queue.ResultMessage
		writeErr  error
		wantErr   error
		wantAcked bool
	}{
		{"invalid result", invalid, nil, experiment.ErrSchemaValidation, true},
		{"unknown experiment", missing, nil, store.ErrNotFound, true},
		{"store unavailable", resultFor(e, "r4"), errors.New("connection refused"), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, experiments := fixture()
			experiments.byID[e.ID] = e
			experiments.writeErr = tt.writeErr
			results := &fakeResults{msgs: []*queue.ResultMessage{tt.msg}}

			_, err := newApplier(results, experiments).ApplyNext(context.Background(), -1)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantAcked, len(results.acked) == 1)
		})
	}
}

func TestApplyNextUndecodable(t *testing.T) {
	_, experiments := fixture()
	results := &fakeResults{readErr: errors.New("decode result: bad json")}

	_, err := newApplier(results, experiments).ApplyNext(context.Background(), -1)
	assert.Error(t, err)
	assert.Equal(t, []string{"bad-1"}, results.acked)
}

func TestApplyNextEmpty(t *testing.T) {
	_, experiments := fixture()
	results := &fakeResults{}

	_, err := newApplier(results, experiments).ApplyNext(context.Background(), -1)
	assert.ErrorIs(t, err, queue.ErrNoMessages)
	assert.Empty(t, results.acked)
}

func TestConsumeStopsOnCancel(t *testing.T) {
	e, experiments := fixture()
	results := &fakeResults{msgs: []*queue.ResultMessage{resultFor(e, "r1")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newApplier(results, experiments).Consume(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
