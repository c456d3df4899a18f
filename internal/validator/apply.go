package validator

import (
	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/samber/lo"
)

// Apply returns a copy of e with meta.valid set on every data entry: false
// when its id appears in any list of v, true otherwise. A non-empty
// DuplicateVariableNames invalidates every entry.
func Apply(e experiment.Experiment, v Violations) experiment.Experiment {
	out := e.Clone()
	global := len(v.DuplicateVariableNames) > 0
	invalid := v.invalidIDs()
	out.DataPoints = lo.Map(out.DataPoints, func(d experiment.DataEntry, _ int) experiment.DataEntry {
		d.Meta.Valid = !global && !invalid[d.Meta.ID]
		return d
	})
	return out
}

// Validate detects violations in e and applies them.
func Validate(e experiment.Experiment) (experiment.Experiment, Violations) {
	v := Detect(e)
	return Apply(e, v), v
}
