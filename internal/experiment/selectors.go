package experiment

import "github.com/samber/lo"

// SelectActiveDataPoints returns the entries that are both enabled and valid.
func SelectActiveDataPoints(e Experiment) []DataEntry {
	return lo.Filter(e.DataPoints, func(d DataEntry, _ int) bool {
		return d.Meta.Enabled && d.Meta.Valid
	})
}

// SelectNextValues returns the optimizer's suggested rows. Each row holds one
// value per enabled-in-space variable, value variables first.
func SelectNextValues(e Experiment) [][]any {
	return e.Results.Next
}

// SelectExpectedMinimum returns the optimizer's expected minimum.
func SelectExpectedMinimum(e Experiment) [][]any {
	return e.Results.ExpectedMinimum
}

// SelectIsInitializing reports whether the experiment still needs initial points.
func SelectIsInitializing(e Experiment) bool {
	initial := e.OptimizerConfig.InitialPoints
	return initial == 0 || len(SelectActiveDataPoints(e)) < initial
}

// SelectSuggestionCount returns how many suggestions the UI should request.
func SelectSuggestionCount(e Experiment) int {
	return e.Extras.ExperimentSuggestionCount
}
