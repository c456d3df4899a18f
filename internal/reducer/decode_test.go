package reducer

import (
	"errors"
	"testing"

	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Action
	}{
		{"sw version", `{"type":"setSwVersion","payload":"1.0.0"}`, SetSwVersion{Version: "1.0.0"}},
		{"add categorical", `{"type":"addCategorialVariable","payload":{"name":"Icing","description":"","options":["a","b"],"enabled":true}}`,
			AddCategoricalVariable{Variable: experiment.CategoricalVariable{Name: "Icing", Options: []string{"a", "b"}, Enabled: true}}},
		{"edit categorical", `{"type":"editCategoricalVariable","payload":{"index":1,"newVariable":{"name":"Shape","options":["round"],"enabled":false}}}`,
			EditCategoricalVariable{Index: 1, Variable: experiment.CategoricalVariable{Name: "Shape", Options: []string{"round"}}}},
		{"toggle categorical", `{"type":"setCategoricalVariableEnabled","payload":{"index":2,"enabled":true}}`,
			SetCategoricalVariableEnabled{Index: 2, Enabled: true}},
		{"delete categorical", `{"type":"deleteCategorialVariable","payload":0}`, DeleteCategoricalVariable{Index: 0}},
		{"add value", `{"type":"addValueVariable","payload":{"name":"Water","type":"continuous","min":0,"max":1.5,"enabled":true}}`,
			AddValueVariable{Variable: experiment.ValueVariable{Name: "Water", Type: experiment.Continuous, Max: 1.5, Enabled: true}}},
		{"edit value", `{"type":"editValueVariable","payload":{"index":0,"newVariable":{"name":"Sugar","type":"discrete","min":1,"max":9}}}`,
			EditValueVariable{Variable: experiment.ValueVariable{Name: "Sugar", Type: experiment.Discrete, Min: 1, Max: 9}}},
		{"toggle value", `{"type":"setValueVariableEnabled","payload":{"index":3,"enabled":false}}`, SetValueVariableEnabled{Index: 3}},
		{"delete value", `{"type":"deleteValueVariable","payload":4}`, DeleteValueVariable{Index: 4}},
		{"name", `{"type":"updateExperimentName","payload":"Cake"}`, UpdateExperimentName{Name: "Cake"}},
		{"description", `{"type":"updateExperimentDescription","payload":"Baking"}`, UpdateExperimentDescription{Description: "Baking"}},
		{"configuration", `{"type":"updateConfiguration","payload":{"baseEstimator":"GP","acqFunc":"EI","initialPoints":3,"kappa":1.5,"xi":0.2}}`,
			UpdateConfiguration{Config: experiment.OptimizerConfig{BaseEstimator: "GP", AcqFunc: "EI", InitialPoints: 3, Kappa: 1.5, Xi: 0.2}}},
		{"data points", `{"type":"updateDataPoints","payload":[{"meta":{"id":1,"enabled":true,"valid":true},"data":[{"name":"score","type":"score","value":2}]}]}`,
			UpdateDataPoints{DataPoints: []experiment.DataEntry{entry(1, score("score", 2))}}},
		{"suggestion count number", `{"type":"updateSuggestionCount","payload":3}`, UpdateSuggestionCount{Count: "3"}},
		{"suggestion count string", `{"type":"updateSuggestionCount","payload":"4"}`, UpdateSuggestionCount{Count: "4"}},
		{"copy suggested", `{"type":"copySuggestedToDataPoints","payload":[0,2]}`, CopySuggestedToDataPoints{Indices: []int{0, 2}}},
		{"toggle multi objective", `{"type":"experiment/toggleMultiObjective"}`, ToggleMultiObjective{}},
		{"constraint sum", `{"type":"experiment/setConstraintSum","payload":100}`, SetConstraintSum{Value: 100}},
		{"add to sum", `{"type":"experiment/addVariableToConstraintSum","payload":"Water"}`, AddVariableToConstraintSum{Name: "Water"}},
		{"remove from sum", `{"type":"experiment/removeVariableFromConstraintSum","payload":"Water"}`, RemoveVariableFromConstraintSum{Name: "Water"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeActionDocuments(t *testing.T) {
	got, err := DecodeAction([]byte(`{"type":"registerResult","payload":{"id":"r1","next":[[1,"a"]],"plots":[{"id":"convergence","plot":"abc"}],"pickled":"p","expectedMinimum":[[1],[2]]}}`))
	require.NoError(t, err)
	res := got.(RegisterResult).Result
	assert.Equal(t, "r1", res.ID)
	assert.Equal(t, [][]any{{1.0, "a"}}, res.Next)
	assert.Equal(t, "convergence", res.Plots[0].ID)

	got, err = DecodeAction([]byte(`{"type":"updateExperiment","payload":{"id":"x","info":{"name":"Cake","dataFormatVersion":"9"},"scoreVariables":[{"name":"score","enabled":true}]}}`))
	require.NoError(t, err)
	doc := got.(UpdateExperiment).Experiment
	assert.Equal(t, "x", doc.ID)
	assert.Equal(t, "Cake", doc.Info.Name)
}

func TestDecodeActionErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"unknown type", `{"type":"launchRocket","payload":1}`, experiment.ErrUnreachableAction},
		{"empty type", `{"payload":1}`, experiment.ErrUnreachableAction},
		{"not json", `type=setSwVersion`, experiment.ErrSchemaValidation},
		{"missing payload", `{"type":"setSwVersion"}`, experiment.ErrSchemaValidation},
		{"wrong payload shape", `{"type":"deleteValueVariable","payload":"first"}`, experiment.ErrSchemaValidation},
		{"suggestion count word", `{"type":"updateSuggestionCount","payload":"many"}`, experiment.ErrSchemaValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DecodeAction([]byte(tt.in))
			require.Error(t, err)
			assert.Nil(t, a)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}

func TestDecodedActionsReduce(t *testing.T) {
	r := New(testSettings)
	state := cakes()
	for _, in := range []string{
		`{"type":"addValueVariable","payload":{"name":"Flour","type":"discrete","min":0,"max":3,"enabled":true}}`,
		`{"type":"experiment/addVariableToConstraintSum","payload":"Flour"}`,
		`{"type":"updateSuggestionCount","payload":"2"}`,
	} {
		a, err := DecodeAction([]byte(in))
		require.NoError(t, err)
		state, err = r.Reduce(state, a)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"Water", "Sugar", "Flour"}, state.Constraints[0].Dimensions)
	assert.Equal(t, 2, state.Extras.ExperimentSuggestionCount)
}
