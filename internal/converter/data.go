package converter

import (
	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/samber/lo"
)

// Observation is one row of optimizer input: variable values and scores.
type Observation struct {
	Xi []any     `json:"xi"`
	Yi []float64 `json:"yi"`
}

// CalculateData shapes enabled data entries for the optimizer. Xi follows the
// column order of CalculateSpace; Yi holds enabled scores only.
func CalculateData(
	categorical []experiment.CategoricalVariable,
	values []experiment.ValueVariable,
	scores []experiment.ScoreVariable,
	dataPoints []experiment.DataEntry,
) []Observation {
	names := make([]string, 0, len(values)+len(categorical))
	for _, v := range values {
		names = append(names, v.Name)
	}
	for _, c := range enabledCategorical(categorical) {
		names = append(names, c.Name)
	}
	enabledScores := lo.Filter(scores, func(s experiment.ScoreVariable, _ int) bool { return s.Enabled })

	out := []Observation{}
	for _, entry := range dataPoints {
		if !entry.Meta.Enabled {
			continue
		}
		xi := make([]any, len(names))
		for i, name := range names {
			if p, ok := entry.Lookup(name); ok {
				xi[i] = p.Value
			}
		}
		yi := make([]float64, 0, len(enabledScores))
		for _, s := range enabledScores {
			p, _ := entry.Lookup(s.Name)
			f, _ := p.Float()
			yi = append(yi, f)
		}
		out = append(out, Observation{Xi: xi, Yi: yi})
	}
	return out
}

func enabledCategorical(vars []experiment.CategoricalVariable) []experiment.CategoricalVariable {
	return lo.Filter(vars, func(c experiment.CategoricalVariable, _ int) bool { return c.Enabled })
}
