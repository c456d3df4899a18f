package experiment

import (
	"maps"
	"slices"
)

// Clone returns a deep copy of the document. Reducers mutate the copy and
// return it, so a caller holding the input never observes a change.
func (e Experiment) Clone() Experiment {
	out := e
	out.CategoricalVariables = cloneSlice(e.CategoricalVariables, func(v CategoricalVariable) CategoricalVariable {
		v.Options = slices.Clone(v.Options)
		return v
	})
	out.ValueVariables = slices.Clone(e.ValueVariables)
	out.ScoreVariables = slices.Clone(e.ScoreVariables)
	out.Constraints = cloneSlice(e.Constraints, func(c Constraint) Constraint {
		c.Dimensions = slices.Clone(c.Dimensions)
		return c
	})
	out.Results = e.Results.Clone()
	out.DataPoints = CloneEntries(e.DataPoints)
	return out
}

// Clone returns a deep copy of the results.
func (r Results) Clone() Results {
	out := r
	out.Next = cloneRows(r.Next)
	out.ExpectedMinimum = cloneRows(r.ExpectedMinimum)
	out.Plots = slices.Clone(r.Plots)
	out.Extras = maps.Clone(r.Extras)
	return out
}

// Clone returns a deep copy of the entry.
func (d DataEntry) Clone() DataEntry {
	d.Meta.Extra = maps.Clone(d.Meta.Extra)
	d.Data = slices.Clone(d.Data)
	return d
}

// CloneEntries deep copies a list of entries.
func CloneEntries(entries []DataEntry) []DataEntry {
	return cloneSlice(entries, DataEntry.Clone)
}

func cloneRows(rows [][]any) [][]any {
	return cloneSlice(rows, func(r []any) []any { return slices.Clone(r) })
}

func cloneSlice[T any](in []T, fn func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
