package experiment

import (
	"encoding/json"
	"fmt"
)

// DataFormatVersion is the schema version stamped on documents written by this build.
const DataFormatVersion = "9"

// VariableType distinguishes integer from real valued decision variables.
type VariableType string

const (
	Discrete   VariableType = "discrete"
	Continuous VariableType = "continuous"
)

// PointType tags the value carried by a DataPoint.
type PointType string

const (
	Numeric     PointType = "numeric"
	Categorical PointType = "categorical"
	Score       PointType = "score"
)

// ConstraintType tags a Constraint variant.
type ConstraintType string

// SumConstraint bounds the sum of a set of value variables.
const SumConstraint ConstraintType = "sum"

// Experiment is the persisted document and the unit every reducer operates on.
type Experiment struct {
	ID                         string                `json:"id"`
	Info                       Info                  `json:"info"`
	Extras                     Extras                `json:"extras"`
	CategoricalVariables       []CategoricalVariable `json:"categoricalVariables" validate:"dive"`
	ValueVariables             []ValueVariable       `json:"valueVariables" validate:"dive"`
	ScoreVariables             []ScoreVariable       `json:"scoreVariables" validate:"min=1,dive"`
	Constraints                []Constraint          `json:"constraints" validate:"dive"`
	OptimizerConfig            OptimizerConfig       `json:"optimizerConfig"`
	Results                    Results               `json:"results"`
	DataPoints                 []DataEntry           `json:"dataPoints" validate:"dive"`
	LastEvaluationHash         string                `json:"lastEvaluationHash,omitempty"`
	ChangedSinceLastEvaluation bool                  `json:"changedSinceLastEvaluation"`
}

// Info holds the descriptive and versioning fields of an experiment.
type Info struct {
	Name              string `json:"name" validate:"required,max=255"`
	Description       string `json:"description" validate:"max=4096"`
	SwVersion         string `json:"swVersion"`
	DataFormatVersion string `json:"dataFormatVersion" validate:"required"`
	Version           int    `json:"version" validate:"gte=0"`
}

// Extras holds derived values surfaced to the UI.
type Extras struct {
	ExperimentSuggestionCount int `json:"experimentSuggestionCount" validate:"gte=0"`
}

// ValueVariable is a numeric decision variable with bounds.
type ValueVariable struct {
	Name        string       `json:"name" validate:"required,max=255"`
	Description string       `json:"description" validate:"max=4096"`
	Type        VariableType `json:"type" validate:"oneof=discrete continuous"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
	Enabled     bool         `json:"enabled"`
}

// CategoricalVariable is a decision variable restricted to Options.
type CategoricalVariable struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=4096"`
	Options     []string `json:"options" validate:"min=1,dive,required"`
	Enabled     bool     `json:"enabled"`
}

// ScoreVariable is an observed objective.
type ScoreVariable struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4096"`
	Enabled     bool   `json:"enabled"`
}

// OptimizerConfig configures the external optimizer. InitialPoints and Xi are derived.
type OptimizerConfig struct {
	BaseEstimator string  `json:"baseEstimator" validate:"required"`
	AcqFunc       string  `json:"acqFunc" validate:"required"`
	InitialPoints int     `json:"initialPoints" validate:"gte=0"`
	Kappa         float64 `json:"kappa" validate:"gte=0"`
	Xi            float64 `json:"xi" validate:"gte=0"`
}

// Constraint is a cross-variable restriction. Only SumConstraint exists today.
type Constraint struct {
	Type       ConstraintType `json:"type" validate:"oneof=sum"`
	Value      float64        `json:"value"`
	Dimensions []string       `json:"dimensions" validate:"dive,required"`
}

// Results is the last response received from the optimizer.
type Results struct {
	ID              string         `json:"id"`
	Next            [][]any        `json:"next"`
	Plots           []Plot         `json:"plots" validate:"dive"`
	Pickled         string         `json:"pickled"`
	ExpectedMinimum [][]any        `json:"expectedMinimum"`
	Extras          map[string]any `json:"extras,omitempty"`
}

// Plot is a rendered optimizer plot.
type Plot struct {
	ID   string `json:"id" validate:"required"`
	Plot string `json:"plot"`
}

// DataEntry is one historical observation.
type DataEntry struct {
	Meta Meta        `json:"meta"`
	Data []DataPoint `json:"data" validate:"dive"`
}

// DataPoint is a named, tagged value. Numeric and score values are float64,
// categorical values are strings.
type DataPoint struct {
	Name  string    `json:"name" validate:"required"`
	Type  PointType `json:"type" validate:"oneof=numeric categorical score"`
	Value any       `json:"value"`
}

// Meta carries the bookkeeping fields of a DataEntry. Columns without a
// dedicated field (imported from CSV, for instance) are kept in Extra and
// flattened into the meta object on the wire.
type Meta struct {
	ID          int               `json:"id" validate:"gte=0"`
	Enabled     bool              `json:"enabled"`
	Valid       bool              `json:"valid"`
	Description string            `json:"description,omitempty"`
	Extra       map[string]string `json:"-"`
}

var metaKeys = map[string]bool{"id": true, "enabled": true, "valid": true, "description": true}

// ReservedMetaKey reports whether k names a dedicated Meta field and so
// cannot be used as an Extra key.
func ReservedMetaKey(k string) bool {
	return metaKeys[k]
}

// MarshalJSON flattens Extra into the meta object.
func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+4)
	for k, v := range m.Extra {
		if !metaKeys[k] {
			out[k] = v
		}
	}
	out["id"] = m.ID
	out["enabled"] = m.Enabled
	out["valid"] = m.Valid
	if m.Description != "" {
		out["description"] = m.Description
	}
	return json.Marshal(out)
}

// UnmarshalJSON collects unknown meta keys into Extra.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Meta
	for k, v := range raw {
		var err error
		switch k {
		case "id":
			var f float64
			err = json.Unmarshal(v, &f)
			out.ID = int(f)
		case "enabled":
			err = json.Unmarshal(v, &out.Enabled)
		case "valid":
			err = json.Unmarshal(v, &out.Valid)
		case "description":
			err = json.Unmarshal(v, &out.Description)
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]string)
			}
			var s string
			if json.Unmarshal(v, &s) != nil {
				s = string(v)
			}
			out.Extra[k] = s
		}
		if err != nil {
			return fmt.Errorf("meta field %s: %w", k, err)
		}
	}
	*m = out
	return nil
}

// Lookup returns the data point named name.
func (e DataEntry) Lookup(name string) (DataPoint, bool) {
	for _, p := range e.Data {
		if p.Name == name {
			return p, true
		}
	}
	return DataPoint{}, false
}

// Float returns the point value as a number.
func (p DataPoint) Float() (float64, bool) {
	switch v := p.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// VariableNames returns value, categorical and score variable names in
// declaration order. This is the canonical ordering of DataEntry.Data.
func (e Experiment) VariableNames() []string {
	names := make([]string, 0, len(e.ValueVariables)+len(e.CategoricalVariables)+len(e.ScoreVariables))
	for _, v := range e.ValueVariables {
		names = append(names, v.Name)
	}
	for _, v := range e.CategoricalVariables {
		names = append(names, v.Name)
	}
	for _, v := range e.ScoreVariables {
		names = append(names, v.Name)
	}
	return names
}
