// Package validator finds data entries that are inconsistent with the
// variables they describe and flags them as invalid.
package validator

import (
	"math"
	"slices"

	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/samber/lo"
)

// Violations lists, per check, the meta ids of the offending data entries.
// DuplicateVariableNames holds variable names instead and is global: any
// entry in it invalidates every data entry.
type Violations struct {
	DataPointsUndefined    []int    `json:"dataPointsUndefined"`
	DuplicateVariableNames []string `json:"duplicateVariableNames"`
	LowerBoundary          []int    `json:"lowerBoundary"`
	UpperBoundary          []int    `json:"upperBoundary"`
	DuplicateDataPointIds  []int    `json:"duplicateDataPointIds"`
	CategoricalValues      []int    `json:"categoricalValues"`
	DataPointsNumericType  []int    `json:"dataPointsNumericType"`
}

// Empty reports whether no check found anything.
func (v Violations) Empty() bool {
	return len(v.DataPointsUndefined) == 0 &&
		len(v.DuplicateVariableNames) == 0 &&
		len(v.LowerBoundary) == 0 &&
		len(v.UpperBoundary) == 0 &&
		len(v.DuplicateDataPointIds) == 0 &&
		len(v.CategoricalValues) == 0 &&
		len(v.DataPointsNumericType) == 0
}

// invalidIDs is the union of every per-entry list.
func (v Violations) invalidIDs() map[int]bool {
	ids := make(map[int]bool)
	for _, list := range [][]int{
		v.DataPointsUndefined,
		v.LowerBoundary,
		v.UpperBoundary,
		v.DuplicateDataPointIds,
		v.CategoricalValues,
		v.DataPointsNumericType,
	} {
		for _, id := range list {
			ids[id] = true
		}
	}
	return ids
}

// Detect runs every check against e. It does not modify e.
func Detect(e experiment.Experiment) Violations {
	values := lo.KeyBy(e.ValueVariables, func(v experiment.ValueVariable) string { return v.Name })
	categorical := lo.KeyBy(e.CategoricalVariables, func(v experiment.CategoricalVariable) string { return v.Name })
	scores := lo.KeyBy(e.ScoreVariables, func(v experiment.ScoreVariable) string { return v.Name })

	var v Violations
	v.DuplicateVariableNames = duplicates(e.VariableNames())
	v.DuplicateDataPointIds = duplicates(lo.Map(e.DataPoints, func(d experiment.DataEntry, _ int) int { return d.Meta.ID }))

	for _, d := range e.DataPoints {
		id := d.Meta.ID
		if undefined(e, d) {
			v.DataPointsUndefined = append(v.DataPointsUndefined, id)
		}
		for _, p := range d.Data {
			switch p.Type {
			case experiment.Numeric:
				vv, ok := values[p.Name]
				if !ok {
					continue
				}
				f, ok := p.Float()
				if !ok || (vv.Type == experiment.Discrete && f != math.Trunc(f)) {
					v.DataPointsNumericType = append(v.DataPointsNumericType, id)
					continue
				}
				if f < vv.Min {
					v.LowerBoundary = append(v.LowerBoundary, id)
				}
				if f > vv.Max {
					v.UpperBoundary = append(v.UpperBoundary, id)
				}
			case experiment.Categorical:
				cv, ok := categorical[p.Name]
				if !ok {
					continue
				}
				s, isString := p.Value.(string)
				if !isString || !slices.Contains(cv.Options, s) {
					v.CategoricalValues = append(v.CategoricalValues, id)
				}
			case experiment.Score:
				if _, ok := scores[p.Name]; !ok {
					continue
				}
				if _, ok := p.Float(); !ok {
					v.DataPointsNumericType = append(v.DataPointsNumericType, id)
				}
			}
		}
	}

	v.DataPointsUndefined = normalize(v.DataPointsUndefined)
	v.LowerBoundary = normalize(v.LowerBoundary)
	v.UpperBoundary = normalize(v.UpperBoundary)
	v.CategoricalValues = normalize(v.CategoricalValues)
	v.DataPointsNumericType = normalize(v.DataPointsNumericType)
	return v
}

// undefined reports whether d is missing a value for a declared value,
// categorical or enabled score variable, or carries a point for a variable
// that is not declared at all.
func undefined(e experiment.Experiment, d experiment.DataEntry) bool {
	present := make(map[string]bool, len(d.Data))
	for _, p := range d.Data {
		if p.Value == nil {
			return true
		}
		present[p.Name] = true
	}

	declared := make(map[string]bool)
	for _, v := range e.ValueVariables {
		declared[v.Name] = true
		if !present[v.Name] {
			return true
		}
	}
	for _, v := range e.CategoricalVariables {
		declared[v.Name] = true
		if !present[v.Name] {
			return true
		}
	}
	for _, v := range e.ScoreVariables {
		declared[v.Name] = true
		if v.Enabled && !present[v.Name] {
			return true
		}
	}
	for name := range present {
		if !declared[name] {
			return true
		}
	}
	return false
}

// duplicates returns each value that occurs more than once, sorted.
func duplicates[T int | string](in []T) []T {
	counts := lo.CountValues(in)
	out := make([]T, 0)
	for k, n := range counts {
		if n > 1 {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func normalize(ids []int) []int {
	out := lo.Uniq(ids)
	if out == nil {
		out = []int{}
	}
	slices.Sort(out)
	return out
}
