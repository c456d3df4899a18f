package converter

import (
	"encoding/json"
	"math"

	"github.com/boostv/optimizer-core/internal/experiment"
)

// CategoryType is the space descriptor type of a categorical dimension.
const CategoryType = "category"

// SpaceDescriptor describes one dimension of the optimizer search space.
// Value variables carry From/To, categorical variables carry Categories.
type SpaceDescriptor struct {
	Type       string
	Name       string
	From       float64
	To         float64
	Categories []string
}

// MarshalJSON emits {type,name,from,to} or {type,name,categories}.
func (s SpaceDescriptor) MarshalJSON() ([]byte, error) {
	if s.Type == CategoryType {
		return json.Marshal(struct {
			Type       string   `json:"type"`
			Name       string   `json:"name"`
			Categories []string `json:"categories"`
		}{s.Type, s.Name, s.Categories})
	}
	return json.Marshal(struct {
		Type string  `json:"type"`
		Name string  `json:"name"`
		From float64 `json:"from"`
		To   float64 `json:"to"`
	}{s.Type, s.Name, s.From, s.To})
}

// CalculateSpace returns every value variable in declaration order followed
// by every enabled categorical variable. Discrete bounds are truncated.
func CalculateSpace(e experiment.Experiment) []SpaceDescriptor {
	space := make([]SpaceDescriptor, 0, len(e.ValueVariables)+len(e.CategoricalVariables))
	for _, v := range e.ValueVariables {
		from, to := v.Min, v.Max
		if v.Type == experiment.Discrete {
			from, to = math.Trunc(from), math.Trunc(to)
		}
		space = append(space, SpaceDescriptor{Type: string(v.Type), Name: v.Name, From: from, To: to})
	}
	for _, c := range enabledCategorical(e.CategoricalVariables) {
		space = append(space, SpaceDescriptor{Type: CategoryType, Name: c.Name, Categories: c.Options})
	}
	return space
}
