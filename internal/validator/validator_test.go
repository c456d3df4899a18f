package validator

import (
	"testing"

	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func water(id int, value float64) experiment.DataEntry {
	return experiment.DataEntry{
		Meta: experiment.Meta{ID: id, Enabled: true, Valid: true},
		Data: []experiment.DataPoint{{Type: experiment.Numeric, Name: "Water", Value: value}},
	}
}

func waterExperiment() experiment.Experiment {
	e := experiment.New("Water")
	e.DataPoints = []experiment.DataEntry{water(1, 100), water(2, 100)}
	return e
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		points     []experiment.DataEntry
		violations Violations
		want       []bool
	}{
		{"no violations", nil, Violations{}, []bool{true, true}},
		{"undefined properties", nil, Violations{DataPointsUndefined: []int{1}}, []bool{false, true}},
		{"lower boundary", nil, Violations{LowerBoundary: []int{1}}, []bool{false, true}},
		{"upper boundary", nil, Violations{UpperBoundary: []int{1}}, []bool{false, true}},
		{"duplicate ids", []experiment.DataEntry{water(1, 100), water(1, 100)}, Violations{DuplicateDataPointIds: []int{1}}, []bool{false, false}},
		{"duplicate ids listed separately", nil, Violations{DuplicateDataPointIds: []int{1, 2}}, []bool{false, false}},
		{"duplicate variable names", nil, Violations{DuplicateVariableNames: []string{"Water"}}, []bool{false, false}},
		{"categorical option", nil, Violations{CategoricalValues: []int{1}}, []bool{false, true}},
		{"numeric type", nil, Violations{DataPointsNumericType: []int{1}}, []bool{false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := waterExperiment()
			if tt.points != nil {
				e.DataPoints = tt.points
			}
			got := Apply(e, tt.violations)
			require.Len(t, got.DataPoints, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want, got.DataPoints[i].Meta.Valid, "data point %d", i)
			}
			for _, d := range e.DataPoints {
				assert.True(t, d.Meta.Valid, "input must not be modified")
			}
		})
	}
}

func TestApplyRevalidates(t *testing.T) {
	e := waterExperiment()
	e.DataPoints[0].Meta.Valid = false
	got := Apply(e, Violations{})
	assert.True(t, got.DataPoints[0].Meta.Valid)
}

func cookies() experiment.Experiment {
	e := experiment.New("Cookies")
	e.ValueVariables = []experiment.ValueVariable{
		{Name: "Sugar", Type: experiment.Continuous, Min: 0, Max: 100, Enabled: true},
		{Name: "Eggs", Type: experiment.Discrete, Min: 1, Max: 4, Enabled: true},
	}
	e.CategoricalVariables = []experiment.CategoricalVariable{
		{Name: "Icing", Options: []string{"Vanilla", "Chocolate"}, Enabled: true},
	}
	return e
}

func cookie(id int, sugar, eggs any, icing any, score any) experiment.DataEntry {
	return experiment.DataEntry{
		Meta: experiment.Meta{ID: id, Enabled: true, Valid: true},
		Data: []experiment.DataPoint{
			{Name: "Sugar", Type: experiment.Numeric, Value: sugar},
			{Name: "Eggs", Type: experiment.Numeric, Value: eggs},
			{Name: "Icing", Type: experiment.Categorical, Value: icing},
			{Name: "score", Type: experiment.Score, Value: score},
		},
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		modify func(e *experiment.Experiment)
		want   Violations
	}{
		{
			name:   "clean",
			modify: func(e *experiment.Experiment) {},
			want:   Violations{},
		},
		{
			name: "lower and upper boundary",
			modify: func(e *experiment.Experiment) {
				e.DataPoints[0] = cookie(1, -1.0, 2.0, "Vanilla", 1.0)
				e.DataPoints[1] = cookie(2, 50.0, 5.0, "Vanilla", 1.0)
			},
			want: Violations{LowerBoundary: []int{1}, UpperBoundary: []int{2}},
		},
		{
			name: "discrete value with fraction",
			modify: func(e *experiment.Experiment) {
				e.DataPoints[1] = cookie(2, 50.0, 2.5, "Vanilla", 1.0)
			},
			want: Violations{DataPointsNumericType: []int{2}},
		},
		{
			name: "non numeric value",
			modify: func(e *experiment.Experiment) {
				e.DataPoints[0] = cookie(1, "lots", 2.0, "Vanilla", "great")
			},
			want: Violations{DataPointsNumericType: []int{1}},
		},
		{
			name: "unknown option",
			modify: func(e *experiment.Experiment) {
				e.DataPoints[0] = cookie(1, 10.0, 2.0, "Strawberry", 1.0)
			},
			want: Violations{CategoricalValues: []int{1}},
		},
		{
			name: "missing variable",
			modify: func(e *experiment.Experiment) {
				e.DataPoints[1].Data = e.DataPoints[1].Data[1:]
			},
			want: Violations{DataPointsUndefined: []int{2}},
		},
		{
			name: "undeclared variable",
			modify: func(e *experiment.Experiment) {
				e.DataPoints[0].Data = append(e.DataPoints[0].Data, experiment.DataPoint{Name: "Flour", Type: experiment.Numeric, Value: 1.0})
			},
			want: Violations{DataPointsUndefined: []int{1}},
		},
		{
			name: "nil value",
			modify: func(e *experiment.Experiment) {
				e.DataPoints[0] = cookie(1, 10.0, 2.0, "Vanilla", nil)
			},
			want: Violations{DataPointsUndefined: []int{1}, DataPointsNumericType: []int{1}},
		},
		{
			name: "disabled score may be absent",
			modify: func(e *experiment.Experiment) {
				e.ScoreVariables = append(e.ScoreVariables, experiment.ScoreVariable{Name: "score2", Enabled: false})
			},
			want: Violations{},
		},
		{
			name: "duplicate ids",
			modify: func(e *experiment.Experiment) {
				e.DataPoints[1].Meta.ID = 1
			},
			want: Violations{DuplicateDataPointIds: []int{1}},
		},
		{
			name: "duplicate variable names",
			modify: func(e *experiment.Experiment) {
				e.CategoricalVariables = append(e.CategoricalVariables, experiment.CategoricalVariable{Name: "Sugar", Options: []string{"a"}})
			},
			want: Violations{DuplicateVariableNames: []string{"Sugar"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := cookies()
			e.DataPoints = []experiment.DataEntry{
				cookie(1, 10.0, 2.0, "Vanilla", 1.0),
				cookie(2, 20.0, 3.0, "Chocolate", 2.0),
			}
			tt.modify(&e)

			got := Detect(e)
			assert.ElementsMatch(t, tt.want.DataPointsUndefined, got.DataPointsUndefined, "dataPointsUndefined")
			assert.ElementsMatch(t, tt.want.DuplicateVariableNames, got.DuplicateVariableNames, "duplicateVariableNames")
			assert.ElementsMatch(t, tt.want.LowerBoundary, got.LowerBoundary, "lowerBoundary")
			assert.ElementsMatch(t, tt.want.UpperBoundary, got.UpperBoundary, "upperBoundary")
			assert.ElementsMatch(t, tt.want.DuplicateDataPointIds, got.DuplicateDataPointIds, "duplicateDataPointIds")
			assert.ElementsMatch(t, tt.want.CategoricalValues, got.CategoricalValues, "categoricalValues")
			assert.ElementsMatch(t, tt.want.DataPointsNumericType, got.DataPointsNumericType, "dataPointsNumericType")
			assert.Equal(t, tt.want.Empty(), got.Empty())
		})
	}
}

func TestDetectNeverReturnsNilLists(t *testing.T) {
	v := Detect(experiment.New("Empty"))
	assert.NotNil(t, v.DataPointsUndefined)
	assert.NotNil(t, v.DuplicateVariableNames)
	assert.NotNil(t, v.DuplicateDataPointIds)
	assert.True(t, v.Empty())
}

func TestValidate(t *testing.T) {
	e := cookies()
	e.DataPoints = []experiment.DataEntry{
		cookie(1, 10.0, 2.0, "Vanilla", 1.0),
		cookie(2, 200.0, 3.0, "Chocolate", 2.0),
	}
	e.DataPoints[0].Meta.Valid = false

	got, v := Validate(e)
	assert.Equal(t, []int{2}, v.UpperBoundary)
	assert.True(t, got.DataPoints[0].Meta.Valid)
	assert.False(t, got.DataPoints[1].Meta.Valid)
}

func TestReport(t *testing.T) {
	t.Run("passing", func(t *testing.T) {
		r := Report(Violations{})
		assert.True(t, r.Passed)
		assert.Equal(t, 1, r.Tier)
		assert.Equal(t, 0, r.Code)
		assert.Len(t, r.Details, 7)
	})

	t.Run("structural failure stops at tier 0", func(t *testing.T) {
		r := Report(Violations{DuplicateDataPointIds: []int{3}, LowerBoundary: []int{1}})
		assert.False(t, r.Passed)
		assert.Equal(t, 0, r.Tier)
		assert.Equal(t, -1, r.Code)
		require.Len(t, r.Details, 3)
		d := r.Details[1]
		assert.Equal(t, "duplicate_data_point_ids", d.Check)
		assert.Equal(t, "data points 3", d.Got)
		assert.NotEmpty(t, d.Fix)
	})

	t.Run("value failures", func(t *testing.T) {
		r := Report(Violations{LowerBoundary: []int{1, 4}, CategoricalValues: []int{2}})
		assert.False(t, r.Passed)
		assert.Equal(t, 1, r.Tier)
		assert.Equal(t, -2, r.Code)
		for _, d := range r.Details {
			if !d.Passed {
				assert.NotEmpty(t, d.Fix, d.Check)
			}
		}
		assert.Equal(t, "data points 1, 4", r.Details[3].Got)
	})
}
