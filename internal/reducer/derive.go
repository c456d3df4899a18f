package reducer

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/samber/lo"
)

// minInitialPoints is the floor for the derived number of initial points.
const minInitialPoints = 5

func calculateInitialPoints(e experiment.Experiment) int {
	enabled := lo.CountBy(e.CategoricalVariables, func(v experiment.CategoricalVariable) bool { return v.Enabled }) +
		lo.CountBy(e.ValueVariables, func(v experiment.ValueVariable) bool { return v.Enabled })
	return max(minInitialPoints, enabled+1)
}

func calculateSuggestionCount(e experiment.Experiment) int {
	initial := e.OptimizerConfig.InitialPoints
	if len(experiment.SelectActiveDataPoints(e)) >= initial {
		return 1
	}
	return initial
}

// calculateXi assumes entries are in canonical order, so the first score
// point is the primary objective.
func calculateXi(e experiment.Experiment, maxRating float64) float64 {
	active := experiment.SelectActiveDataPoints(e)
	best := 0.0
	for i, d := range active {
		s := 0.0
		if p, ok := lo.Find(d.Data, func(p experiment.DataPoint) bool { return p.Type == experiment.Score }); ok {
			s, _ = p.Float()
		}
		if i == 0 || s > best {
			best = s
		}
	}
	// Scaled by 1000 so that e.g. 5 - 4.8 yields 0.2 rather than 0.20000000000000018.
	return math.Max(0.1, (maxRating*1000-best*1000)/1000)
}

// sortEntries orders each entry's data by variable declaration order.
// Points naming no declared variable keep their relative order at the end.
func sortEntries(e experiment.Experiment, entries []experiment.DataEntry) []experiment.DataEntry {
	order := make(map[string]int)
	for i, name := range e.VariableNames() {
		if _, ok := order[name]; !ok {
			order[name] = i
		}
	}
	rank := func(name string) int {
		if i, ok := order[name]; ok {
			return i
		}
		return len(order)
	}
	return lo.Map(entries, func(d experiment.DataEntry, _ int) experiment.DataEntry {
		d = d.Clone()
		slices.SortStableFunc(d.Data, func(a, b experiment.DataPoint) int {
			return rank(a.Name) - rank(b.Name)
		})
		return d
	})
}

// jsRound rounds half up, matching how values were rounded historically.
func jsRound(f float64) float64 {
	return math.Floor(f + 0.5)
}

func toNumber(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	return 0, fmt.Errorf("unsupported value %v", v)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// parseCount coerces a typed count to a whole number. Blank input is zero and
// fractions are truncated.
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		return 0, fmt.Errorf("%w: suggestion count %q: %w", experiment.ErrSchemaValidation, s, err)
	}
	return int(math.Trunc(f)), nil
}

func checkIndex(kind string, index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: %s index %d out of range [0,%d)", experiment.ErrReferentialIntegrity, kind, index, length)
	}
	return nil
}
