package reducer

import (
	"encoding/json"
	"fmt"

	"github.com/boostv/optimizer-core/internal/experiment"
)

type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type indexed[T any] struct {
	Index       int `json:"index"`
	NewVariable T   `json:"newVariable"`
}

type toggle struct {
	Index   int  `json:"index"`
	Enabled bool `json:"enabled"`
}

// DecodeAction parses a {"type": ..., "payload": ...} document into an Action.
func DecodeAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decode action: %w", experiment.ErrSchemaValidation, err)
	}

	var (
		a   Action
		err error
	)
	switch env.Type {
	case KindSetSwVersion:
		var v string
		err = decodePayload(env, &v)
		a = SetSwVersion{Version: v}
	case KindRegisterResult:
		var v experiment.Results
		err = decodePayload(env, &v)
		a = RegisterResult{Result: v}
	case KindAddCategoricalVariable:
		var v experiment.CategoricalVariable
		err = decodePayload(env, &v)
		a = AddCategoricalVariable{Variable: v}
	case KindEditCategoricalVariable:
		var v indexed[experiment.CategoricalVariable]
		err = decodePayload(env, &v)
		a = EditCategoricalVariable{Index: v.Index, Variable: v.NewVariable}
	case KindSetCategoricalVariableEnabled:
		var v toggle
		err = decodePayload(env, &v)
		a = SetCategoricalVariableEnabled{Index: v.Index, Enabled: v.Enabled}
	case KindDeleteCategoricalVariable:
		var v int
		err = decodePayload(env, &v)
		a = DeleteCategoricalVariable{Index: v}
	case KindAddValueVariable:
		var v experiment.ValueVariable
		err = decodePayload(env, &v)
		a = AddValueVariable{Variable: v}
	case KindEditValueVariable:
		var v indexed[experiment.ValueVariable]
		err = decodePayload(env, &v)
		a = EditValueVariable{Index: v.Index, Variable: v.NewVariable}
	case KindSetValueVariableEnabled:
		var v toggle
		err = decodePayload(env, &v)
		a = SetValueVariableEnabled{Index: v.Index, Enabled: v.Enabled}
	case KindDeleteValueVariable:
		var v int
		err = decodePayload(env, &v)
		a = DeleteValueVariable{Index: v}
	case KindUpdateExperiment:
		var v experiment.Experiment
		err = decodePayload(env, &v)
		a = UpdateExperiment{Experiment: v}
	case KindUpdateExperimentName:
		var v string
		err = decodePayload(env, &v)
		a = UpdateExperimentName{Name: v}
	case KindUpdateExperimentDescription:
		var v string
		err = decodePayload(env, &v)
		a = UpdateExperimentDescription{Description: v}
	case KindUpdateConfiguration:
		var v experiment.OptimizerConfig
		err = decodePayload(env, &v)
		a = UpdateConfiguration{Config: v}
	case KindUpdateDataPoints:
		var v []experiment.DataEntry
		err = decodePayload(env, &v)
		a = UpdateDataPoints{DataPoints: v}
	case KindUpdateSuggestionCount:
		var v json.Number
		err = decodePayload(env, &v)
		a = UpdateSuggestionCount{Count: v.String()}
	case KindCopySuggestedToDataPoints:
		var v []int
		err = decodePayload(env, &v)
		a = CopySuggestedToDataPoints{Indices: v}
	case KindToggleMultiObjective:
		a = ToggleMultiObjective{}
	case KindSetConstraintSum:
		var v float64
		err = decodePayload(env, &v)
		a = SetConstraintSum{Value: v}
	case KindAddVariableToConstraintSum:
		var v string
		err = decodePayload(env, &v)
		a = AddVariableToConstraintSum{Name: v}
	case KindRemoveVariableFromConstraintSum:
		var v string
		err = decodePayload(env, &v)
		a = RemoveVariableFromConstraintSum{Name: v}
	default:
		return nil, fmt.Errorf("%w: %q", experiment.ErrUnreachableAction, env.Type)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func decodePayload(env envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s: missing payload", experiment.ErrSchemaValidation, env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %w", experiment.ErrSchemaValidation, env.Type, err)
	}
	return nil
}
