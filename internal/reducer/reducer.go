package reducer

import (
	"fmt"
	"slices"

	"github.com/boostv/optimizer-core/internal/converter"
	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/samber/lo"
)

// Settings are the process-wide values a transition depends on.
type Settings struct {
	// MaxRating is the best score a data point can receive.
	MaxRating float64
	// SWVersion is stamped on documents replaced through UpdateExperiment.
	SWVersion string
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{MaxRating: 5, SWVersion: "dev"}
}

// Reducer applies actions to experiments. It holds no mutable state and is
// safe for concurrent use.
type Reducer struct {
	settings Settings
}

// New creates a Reducer.
func New(settings Settings) *Reducer {
	return &Reducer{settings: settings}
}

// Reduce returns the experiment that results from applying a to state.
// state is never modified. On error the returned experiment is state itself.
// Every accepted action increments Info.Version by one and recomputes
// ChangedSinceLastEvaluation.
func (r *Reducer) Reduce(state experiment.Experiment, a Action) (experiment.Experiment, error) {
	next, err := r.apply(state, a)
	if err != nil {
		return state, err
	}
	next.ChangedSinceLastEvaluation = next.LastEvaluationHash != converter.EvaluationHash(next)
	next.Info.Version++
	return next, nil
}

// ReduceAll folds actions over state, stopping at the first error.
func (r *Reducer) ReduceAll(state experiment.Experiment, actions ...Action) (experiment.Experiment, error) {
	for _, a := range actions {
		next, err := r.Reduce(state, a)
		if err != nil {
			return state, fmt.Errorf("%s: %w", a.Kind(), err)
		}
		state = next
	}
	return state, nil
}

func (r *Reducer) apply(state experiment.Experiment, a Action) (experiment.Experiment, error) {
	s := state.Clone()

	switch a := a.(type) {
	case SetSwVersion:
		s.Info.SwVersion = a.Version

	case UpdateExperiment:
		s = a.Experiment.Clone()
		s.Info.SwVersion = r.settings.SWVersion
		if err := experiment.Validate(s); err != nil {
			return s, err
		}

	case UpdateExperimentName:
		info := s.Info
		info.Name = a.Name
		if err := experiment.Validate(info); err != nil {
			return s, err
		}
		s.Info = info

	case UpdateExperimentDescription:
		info := s.Info
		info.Description = a.Description
		if err := experiment.Validate(info); err != nil {
			return s, err
		}
		s.Info = info

	case UpdateSuggestionCount:
		n, err := parseCount(a.Count)
		if err != nil {
			return s, err
		}
		extras := experiment.Extras{ExperimentSuggestionCount: n}
		if err := experiment.Validate(extras); err != nil {
			return s, err
		}
		s.Extras = extras

	case CopySuggestedToDataPoints:
		entries, err := suggestedEntries(s, a.Indices)
		if err != nil {
			return s, err
		}
		s.DataPoints = append(s.DataPoints, sortEntries(s, entries)...)

	case AddValueVariable:
		if err := experiment.Validate(a.Variable); err != nil {
			return s, err
		}
		s.ValueVariables = append(s.ValueVariables, a.Variable)
		s.OptimizerConfig.InitialPoints = calculateInitialPoints(s)
		s.Extras.ExperimentSuggestionCount = s.OptimizerConfig.InitialPoints

	case AddCategoricalVariable:
		v := a.Variable
		v.Options = slices.Clone(v.Options)
		if err := experiment.Validate(v); err != nil {
			return s, err
		}
		s.CategoricalVariables = append(s.CategoricalVariables, v)
		s.OptimizerConfig.InitialPoints = calculateInitialPoints(s)
		s.Extras.ExperimentSuggestionCount = s.OptimizerConfig.InitialPoints

	case EditValueVariable:
		if err := checkIndex("value variable", a.Index, len(s.ValueVariables)); err != nil {
			return s, err
		}
		v := a.Variable
		if v.Type == experiment.Discrete {
			v.Min, v.Max = jsRound(v.Min), jsRound(v.Max)
		}
		if err := experiment.Validate(v); err != nil {
			return s, err
		}
		old := s.ValueVariables[a.Index]
		s.ValueVariables[a.Index] = v
		s.DataPoints = renameAndRetype(s.DataPoints, old.Name, v)
		s.Constraints = renameInConstraints(s.Constraints, old.Name, v.Name)

	case EditCategoricalVariable:
		if err := checkIndex("categorical variable", a.Index, len(s.CategoricalVariables)); err != nil {
			return s, err
		}
		v := a.Variable
		v.Options = slices.Clone(v.Options)
		if err := experiment.Validate(v); err != nil {
			return s, err
		}
		old := s.CategoricalVariables[a.Index]
		s.CategoricalVariables[a.Index] = v
		s.DataPoints = rename(s.DataPoints, old.Name, v.Name)

	case DeleteValueVariable:
		if err := checkIndex("value variable", a.Index, len(s.ValueVariables)); err != nil {
			return s, err
		}
		name := s.ValueVariables[a.Index].Name
		s.ValueVariables = slices.Delete(s.ValueVariables, a.Index, a.Index+1)
		s.OptimizerConfig.InitialPoints = calculateInitialPoints(s)
		s.Extras.ExperimentSuggestionCount = s.OptimizerConfig.InitialPoints
		s.DataPoints = removeVariable(s, name)
		s.Constraints = lo.Map(s.Constraints, func(c experiment.Constraint, _ int) experiment.Constraint {
			c.Dimensions = lo.Without(c.Dimensions, name)
			return c
		})

	case DeleteCategoricalVariable:
		if err := checkIndex("categorical variable", a.Index, len(s.CategoricalVariables)); err != nil {
			return s, err
		}
		name := s.CategoricalVariables[a.Index].Name
		s.CategoricalVariables = slices.Delete(s.CategoricalVariables, a.Index, a.Index+1)
		s.OptimizerConfig.InitialPoints = calculateInitialPoints(s)
		s.Extras.ExperimentSuggestionCount = s.OptimizerConfig.InitialPoints
		s.DataPoints = removeVariable(s, name)

	case SetValueVariableEnabled:
		if err := checkIndex("value variable", a.Index, len(s.ValueVariables)); err != nil {
			return s, err
		}
		s.ValueVariables[a.Index].Enabled = a.Enabled

	case SetCategoricalVariableEnabled:
		if err := checkIndex("categorical variable", a.Index, len(s.CategoricalVariables)); err != nil {
			return s, err
		}
		s.CategoricalVariables[a.Index].Enabled = a.Enabled

	case UpdateConfiguration:
		if err := experiment.Validate(a.Config); err != nil {
			return s, err
		}
		s.OptimizerConfig = a.Config
		s.Extras.ExperimentSuggestionCount = calculateSuggestionCount(s)

	case RegisterResult:
		s.LastEvaluationHash = converter.EvaluationHash(state)
		if err := experiment.Validate(a.Result); err != nil {
			return s, err
		}
		s.Results = a.Result.Clone()

	case UpdateDataPoints:
		if err := experiment.Validate(a.DataPoints); err != nil {
			return s, err
		}
		s.DataPoints = sortEntries(s, a.DataPoints)
		s.Extras.ExperimentSuggestionCount = calculateSuggestionCount(s)
		s.OptimizerConfig.Xi = calculateXi(s, r.settings.MaxRating)

	case ToggleMultiObjective:
		s.ScoreVariables = lo.Map(s.ScoreVariables, func(v experiment.ScoreVariable, i int) experiment.ScoreVariable {
			v.Enabled = i < 1 || !v.Enabled
			return v
		})
		if len(s.ScoreVariables) < 2 {
			s.ScoreVariables = append(s.ScoreVariables, experiment.ScoreVariable{
				Name:        "score2",
				Description: "score 2",
				Enabled:     true,
			})
			s.DataPoints = backfillScores(s)
		}

	case SetConstraintSum:
		if i := sumConstraintIndex(s); i >= 0 {
			s.Constraints[i].Value = a.Value
		} else {
			s.Constraints = append(s.Constraints, experiment.Constraint{
				Type:       experiment.SumConstraint,
				Value:      a.Value,
				Dimensions: []string{},
			})
		}

	case AddVariableToConstraintSum:
		if !lo.ContainsBy(s.ValueVariables, func(v experiment.ValueVariable) bool { return v.Name == a.Name }) {
			return s, fmt.Errorf("%w: constraint dimension %q is not a value variable", experiment.ErrReferentialIntegrity, a.Name)
		}
		if i := sumConstraintIndex(s); i >= 0 {
			if !slices.Contains(s.Constraints[i].Dimensions, a.Name) {
				s.Constraints[i].Dimensions = append(s.Constraints[i].Dimensions, a.Name)
			}
		} else {
			s.Constraints = append(s.Constraints, experiment.Constraint{
				Type:       experiment.SumConstraint,
				Dimensions: []string{a.Name},
			})
		}
		s.Extras.ExperimentSuggestionCount = calculateSuggestionCount(s)

	case RemoveVariableFromConstraintSum:
		if i := sumConstraintIndex(s); i >= 0 {
			s.Constraints[i].Dimensions = lo.Without(s.Constraints[i].Dimensions, a.Name)
		}
		s.Extras.ExperimentSuggestionCount = calculateSuggestionCount(s)

	default:
		return s, fmt.Errorf("%w: %T", experiment.ErrUnreachableAction, a)
	}
	return s, nil
}

// suggestedEntries turns the selected rows of the optimizer's next values
// into data entries with fresh ids.
func suggestedEntries(s experiment.Experiment, indices []int) ([]experiment.DataEntry, error) {
	type column struct {
		name string
		typ  experiment.PointType
	}
	var columns []column
	for _, v := range s.ValueVariables {
		columns = append(columns, column{v.Name, experiment.Numeric})
	}
	for _, c := range s.CategoricalVariables {
		if c.Enabled {
			columns = append(columns, column{c.Name, experiment.Categorical})
		}
	}

	base := 0
	if len(s.DataPoints) > 0 {
		base = lo.MaxBy(s.DataPoints, func(a, b experiment.DataEntry) bool { return a.Meta.ID > b.Meta.ID }).Meta.ID
	}

	var entries []experiment.DataEntry
	for i, row := range experiment.SelectNextValues(s) {
		if !slices.Contains(indices, i) {
			continue
		}
		data := make([]experiment.DataPoint, 0, len(row))
		for j, v := range row {
			if j >= len(columns) {
				return nil, fmt.Errorf("%w: no variable for position %d of suggestion %v", experiment.ErrReferentialIntegrity, j, row)
			}
			p := experiment.DataPoint{Name: columns[j].name, Type: columns[j].typ}
			if columns[j].typ == experiment.Numeric {
				f, err := toNumber(v)
				if err != nil {
					return nil, fmt.Errorf("%w: suggestion value for %s: %w", experiment.ErrSchemaValidation, p.Name, err)
				}
				p.Value = f
			} else {
				p.Value = toString(v)
			}
			data = append(data, p)
		}
		entries = append(entries, experiment.DataEntry{
			Meta: experiment.Meta{ID: base + len(entries) + 1, Enabled: true, Valid: false},
			Data: data,
		})
	}
	return entries, nil
}

func renameAndRetype(entries []experiment.DataEntry, oldName string, v experiment.ValueVariable) []experiment.DataEntry {
	for i := range entries {
		for j, p := range entries[i].Data {
			if p.Type != experiment.Numeric || p.Name != oldName {
				continue
			}
			p.Name = v.Name
			if f, ok := p.Float(); ok && v.Type == experiment.Discrete {
				p.Value = jsRound(f)
			}
			entries[i].Data[j] = p
		}
	}
	return entries
}

func rename(entries []experiment.DataEntry, oldName, newName string) []experiment.DataEntry {
	for i := range entries {
		for j := range entries[i].Data {
			if entries[i].Data[j].Name == oldName {
				entries[i].Data[j].Name = newName
			}
		}
	}
	return entries
}

func renameInConstraints(constraints []experiment.Constraint, oldName, newName string) []experiment.Constraint {
	for i := range constraints {
		for j, d := range constraints[i].Dimensions {
			if d == oldName {
				constraints[i].Dimensions[j] = newName
			}
		}
	}
	return constraints
}

// removeVariable strips name from every entry, or clears all entries when
// no value or categorical variables remain.
func removeVariable(s experiment.Experiment, name string) []experiment.DataEntry {
	if len(s.ValueVariables) == 0 && len(s.CategoricalVariables) == 0 {
		return []experiment.DataEntry{}
	}
	for i := range s.DataPoints {
		s.DataPoints[i].Data = lo.Filter(s.DataPoints[i].Data, func(p experiment.DataPoint, _ int) bool {
			return p.Name != name
		})
	}
	return s.DataPoints
}

func backfillScores(s experiment.Experiment) []experiment.DataEntry {
	for i, d := range s.DataPoints {
		for _, sv := range s.ScoreVariables {
			if _, ok := d.Lookup(sv.Name); !ok {
				d.Data = append(d.Data, experiment.DataPoint{Name: sv.Name, Type: experiment.Score, Value: 0.0})
			}
		}
		s.DataPoints[i] = d
	}
	return s.DataPoints
}

func sumConstraintIndex(s experiment.Experiment) int {
	return slices.IndexFunc(s.Constraints, func(c experiment.Constraint) bool {
		return c.Type == experiment.SumConstraint
	})
}
