package converter

import (
	"encoding/json"
	"fmt"

	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/cespare/xxhash/v2"
)

// Request is the body sent to the external optimizer.
type Request struct {
	Space           []SpaceDescriptor          `json:"space"`
	Data            []Observation              `json:"data"`
	OptimizerConfig experiment.OptimizerConfig `json:"optimizerConfig"`
	Constraints     []experiment.Constraint    `json:"constraints"`
	Extras          RequestExtras              `json:"extras"`
}

// RequestExtras carries request options that are not part of the search space.
type RequestExtras struct {
	ExperimentSuggestionCount int `json:"experimentSuggestionCount"`
}

// NewRequest builds the optimizer request for e.
func NewRequest(e experiment.Experiment) Request {
	constraints := e.Constraints
	if constraints == nil {
		constraints = []experiment.Constraint{}
	}
	return Request{
		Space:           CalculateSpace(e),
		Data:            CalculateData(e.CategoricalVariables, e.ValueVariables, e.ScoreVariables, e.DataPoints),
		OptimizerConfig: e.OptimizerConfig,
		Constraints:     constraints,
		Extras:          RequestExtras{ExperimentSuggestionCount: e.Extras.ExperimentSuggestionCount},
	}
}

// Hash returns a stable digest of the request's JSON encoding.
func Hash(r Request) string {
	data, err := json.Marshal(r)
	if err != nil {
		// NaN and Inf cannot be encoded as JSON.
		data = []byte(fmt.Sprintf("%#v", r))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// EvaluationHash is Hash(NewRequest(e)).
func EvaluationHash(e experiment.Experiment) string {
	return Hash(NewRequest(e))
}
