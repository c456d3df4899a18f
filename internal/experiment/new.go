package experiment

import "github.com/google/uuid"

// Default optimizer settings for a fresh experiment.
const (
	DefaultBaseEstimator = "GP"
	DefaultAcqFunc       = "gp_hedge"
	DefaultInitialPoints = 5
	DefaultKappa         = 1.96
	DefaultXi            = 0.01
)

// New returns an empty experiment with a single enabled score variable.
func New(name string) Experiment {
	return Experiment{
		ID: uuid.NewString(),
		Info: Info{
			Name:              name,
			DataFormatVersion: DataFormatVersion,
		},
		Extras:               Extras{ExperimentSuggestionCount: DefaultInitialPoints},
		CategoricalVariables: []CategoricalVariable{},
		ValueVariables:       []ValueVariable{},
		ScoreVariables: []ScoreVariable{
			{Name: "score", Description: "score", Enabled: true},
		},
		Constraints: []Constraint{},
		OptimizerConfig: OptimizerConfig{
			BaseEstimator: DefaultBaseEstimator,
			AcqFunc:       DefaultAcqFunc,
			InitialPoints: DefaultInitialPoints,
			Kappa:         DefaultKappa,
			Xi:            DefaultXi,
		},
		Results: Results{
			Next:            [][]any{},
			Plots:           []Plot{},
			ExpectedMinimum: [][]any{},
		},
		DataPoints: []DataEntry{},
	}
}
