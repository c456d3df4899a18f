package reducer

import "github.com/boostv/optimizer-core/internal/experiment"

// Kind names an action on the wire.
type Kind string

const (
	KindSetSwVersion                    Kind = "setSwVersion"
	KindRegisterResult                  Kind = "registerResult"
	KindAddCategoricalVariable          Kind = "addCategorialVariable"
	KindEditCategoricalVariable         Kind = "editCategoricalVariable"
	KindSetCategoricalVariableEnabled   Kind = "setCategoricalVariableEnabled"
	KindDeleteCategoricalVariable       Kind = "deleteCategorialVariable"
	KindAddValueVariable                Kind = "addValueVariable"
	KindEditValueVariable               Kind = "editValueVariable"
	KindSetValueVariableEnabled         Kind = "setValueVariableEnabled"
	KindDeleteValueVariable             Kind = "deleteValueVariable"
	KindUpdateExperiment                Kind = "updateExperiment"
	KindUpdateExperimentName            Kind = "updateExperimentName"
	KindUpdateExperimentDescription     Kind = "updateExperimentDescription"
	KindUpdateConfiguration             Kind = "updateConfiguration"
	KindUpdateDataPoints                Kind = "updateDataPoints"
	KindUpdateSuggestionCount           Kind = "updateSuggestionCount"
	KindCopySuggestedToDataPoints       Kind = "copySuggestedToDataPoints"
	KindToggleMultiObjective            Kind = "experiment/toggleMultiObjective"
	KindSetConstraintSum                Kind = "experiment/setConstraintSum"
	KindAddVariableToConstraintSum      Kind = "experiment/addVariableToConstraintSum"
	KindRemoveVariableFromConstraintSum Kind = "experiment/removeVariableFromConstraintSum"
)

// Kinds lists every action kind the reducer handles.
func Kinds() []Kind {
	return []Kind{
		KindSetSwVersion, KindRegisterResult,
		KindAddCategoricalVariable, KindEditCategoricalVariable, KindSetCategoricalVariableEnabled, KindDeleteCategoricalVariable,
		KindAddValueVariable, KindEditValueVariable, KindSetValueVariableEnabled, KindDeleteValueVariable,
		KindUpdateExperiment, KindUpdateExperimentName, KindUpdateExperimentDescription,
		KindUpdateConfiguration, KindUpdateDataPoints, KindUpdateSuggestionCount, KindCopySuggestedToDataPoints,
		KindToggleMultiObjective, KindSetConstraintSum, KindAddVariableToConstraintSum, KindRemoveVariableFromConstraintSum,
	}
}

// Action is the closed set of experiment edits. Only types in this package
// implement it.
type Action interface {
	Kind() Kind
	sealed()
}

type action struct{}

func (action) sealed() {}

type (
	SetSwVersion struct {
		action
		Version string
	}
	RegisterResult struct {
		action
		Result experiment.Results
	}
	AddCategoricalVariable struct {
		action
		Variable experiment.CategoricalVariable
	}
	EditCategoricalVariable struct {
		action
		Index    int
		Variable experiment.CategoricalVariable
	}
	SetCategoricalVariableEnabled struct {
		action
		Index   int
		Enabled bool
	}
	DeleteCategoricalVariable struct {
		action
		Index int
	}
	AddValueVariable struct {
		action
		Variable experiment.ValueVariable
	}
	EditValueVariable struct {
		action
		Index    int
		Variable experiment.ValueVariable
	}
	SetValueVariableEnabled struct {
		action
		Index   int
		Enabled bool
	}
	DeleteValueVariable struct {
		action
		Index int
	}
	UpdateExperiment struct {
		action
		Experiment experiment.Experiment
	}
	UpdateExperimentName struct {
		action
		Name string
	}
	UpdateExperimentDescription struct {
		action
		Description string
	}
	UpdateConfiguration struct {
		action
		Config experiment.OptimizerConfig
	}
	UpdateDataPoints struct {
		action
		DataPoints []experiment.DataEntry
	}
	// UpdateSuggestionCount carries the count as typed by the user.
	UpdateSuggestionCount struct {
		action
		Count string
	}
	// CopySuggestedToDataPoints picks rows of the optimizer's next values by index.
	CopySuggestedToDataPoints struct {
		action
		Indices []int
	}
	ToggleMultiObjective struct {
		action
	}
	SetConstraintSum struct {
		action
		Value float64
	}
	AddVariableToConstraintSum struct {
		action
		Name string
	}
	RemoveVariableFromConstraintSum struct {
		action
		Name string
	}
)

func (SetSwVersion) Kind() Kind                    { return KindSetSwVersion }
func (RegisterResult) Kind() Kind                  { return KindRegisterResult }
func (AddCategoricalVariable) Kind() Kind          { return KindAddCategoricalVariable }
func (EditCategoricalVariable) Kind() Kind         { return KindEditCategoricalVariable }
func (SetCategoricalVariableEnabled) Kind() Kind   { return KindSetCategoricalVariableEnabled }
func (DeleteCategoricalVariable) Kind() Kind       { return KindDeleteCategoricalVariable }
func (AddValueVariable) Kind() Kind                { return KindAddValueVariable }
func (EditValueVariable) Kind() Kind               { return KindEditValueVariable }
func (SetValueVariableEnabled) Kind() Kind         { return KindSetValueVariableEnabled }
func (DeleteValueVariable) Kind() Kind             { return KindDeleteValueVariable }
func (UpdateExperiment) Kind() Kind                { return KindUpdateExperiment }
func (UpdateExperimentName) Kind() Kind            { return KindUpdateExperimentName }
func (UpdateExperimentDescription) Kind() Kind     { return KindUpdateExperimentDescription }
func (UpdateConfiguration) Kind() Kind             { return KindUpdateConfiguration }
func (UpdateDataPoints) Kind() Kind                { return KindUpdateDataPoints }
func (UpdateSuggestionCount) Kind() Kind           { return KindUpdateSuggestionCount }
func (CopySuggestedToDataPoints) Kind() Kind       { return KindCopySuggestedToDataPoints }
func (ToggleMultiObjective) Kind() Kind            { return KindToggleMultiObjective }
func (SetConstraintSum) Kind() Kind                { return KindSetConstraintSum }
func (AddVariableToConstraintSum) Kind() Kind      { return KindAddVariableToConstraintSum }
func (RemoveVariableFromConstraintSum) Kind() Kind { return KindRemoveVariableFromConstraintSum }
