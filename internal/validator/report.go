package validator

import (
	"fmt"
	"strings"
)

// Result is the outcome of validating an experiment, in the form shown to
// users. Tier 0 covers structural checks, tier 1 value checks.
type Result struct {
	Tier    int      `json:"tier"`
	Passed  bool     `json:"passed"`
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
}

// Detail describes a single check.
type Detail struct {
	Check    string `json:"check"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected,omitempty"`
	Got      string `json:"got,omitempty"`
	Fix      string `json:"fix,omitempty"` // set for every failing check
}

type check struct {
	name     string
	tier     int
	got      string
	expected string
	fix      string
}

// Report renders v. Value checks are only reported once every structural
// check passes.
func Report(v Violations) *Result {
	checks := []check{
		{"duplicate_variable_names", 0, joinNames(v.DuplicateVariableNames), "unique variable names",
			"Rename variables so every value, categorical and score variable has a distinct name. Until then all data points are invalid."},
		{"duplicate_data_point_ids", 0, joinIDs(v.DuplicateDataPointIds), "unique data point ids",
			"Give each data point a distinct meta.id."},
		{"data_points_undefined", 0, joinIDs(v.DataPointsUndefined), "a value for every declared variable",
			"Fill in the missing values, or remove values for variables that no longer exist."},
		{"lower_boundary", 1, joinIDs(v.LowerBoundary), "values >= variable min",
			"Raise the values or lower the variable's min."},
		{"upper_boundary", 1, joinIDs(v.UpperBoundary), "values <= variable max",
			"Lower the values or raise the variable's max."},
		{"categorical_values", 1, joinIDs(v.CategoricalValues), "values among the variable's options",
			"Pick one of the declared options, or add the value as an option."},
		{"numeric_type", 1, joinIDs(v.DataPointsNumericType), "numbers, whole numbers for discrete variables",
			"Round discrete values to whole numbers, or change the variable to continuous."},
	}

	result := &Result{Passed: true}
	for tier := 0; tier <= 1; tier++ {
		result.Tier = tier
		failed := 0
		for _, c := range checks {
			if c.tier != tier {
				continue
			}
			d := c.detail()
			if !d.Passed {
				failed++
			}
			result.Details = append(result.Details, d)
		}
		if failed > 0 {
			result.Passed = false
			result.Code = -failed
			result.Message = fmt.Sprintf("Tier %d failed: %d check(s)", tier, failed)
			return result
		}
	}
	result.Message = "Tier 1 passed"
	return result
}

func (c check) detail() Detail {
	if c.got == "" {
		return Detail{Check: c.name, Passed: true}
	}
	return Detail{
		Check:    c.name,
		Passed:   false,
		Expected: c.expected,
		Got:      c.got,
		Fix:      c.fix,
	}
}

func joinIDs(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "data points " + strings.Join(parts, ", ")
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return "duplicated " + strings.Join(names, ", ")
}
