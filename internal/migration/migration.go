// Package migration upgrades stored experiment documents to the current
// data format version.
package migration

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/boostv/optimizer-core/internal/experiment"
)

// ErrUnknownVersion is returned for documents whose data format version has
// no migration path to the current version.
var ErrUnknownVersion = errors.New("unknown data format version")

// step upgrades a document from one version to the next. It receives a
// private copy it may modify.
type step func(doc map[string]any)

// steps[i] upgrades version i+1 to i+2.
var steps = []step{
	toV2,
	toV3,
	toV4,
	toV5,
	toV6,
	toV7,
	toV8,
	toV9,
}

var current = mustAtoi(experiment.DataFormatVersion)

// Version returns the data format version stamped in doc. Documents without
// one predate versioning and are version 1.
func Version(doc map[string]any) (int, error) {
	info, _ := doc["info"].(map[string]any)
	raw, ok := info["dataFormatVersion"]
	if !ok || raw == nil {
		return 1, nil
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownVersion, raw)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > current {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	return n, nil
}

// Run applies every step between doc's version and the current version in
// ascending order. doc is not modified.
func Run(doc map[string]any) (map[string]any, error) {
	from, err := Version(doc)
	if err != nil {
		return nil, err
	}
	out := deepCopy(doc).(map[string]any)
	for v := from; v < current; v++ {
		steps[v-1](out)
		stamp(out, v+1)
	}
	return out, nil
}

// Migrate upgrades raw, decodes it and validates the result.
func Migrate(raw map[string]any) (experiment.Experiment, error) {
	doc, err := Run(raw)
	if err != nil {
		return experiment.Experiment{}, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return experiment.Experiment{}, fmt.Errorf("encode migrated document: %w", err)
	}
	var e experiment.Experiment
	if err := json.Unmarshal(data, &e); err != nil {
		return experiment.Experiment{}, fmt.Errorf("%w: decode migrated document: %w", experiment.ErrSchemaValidation, err)
	}
	if err := experiment.Validate(e); err != nil {
		return experiment.Experiment{}, err
	}
	return e, nil
}

// MigrateJSON is Migrate for an encoded document.
func MigrateJSON(data []byte) (experiment.Experiment, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return experiment.Experiment{}, fmt.Errorf("%w: decode document: %w", experiment.ErrSchemaValidation, err)
	}
	return Migrate(raw)
}

func stamp(doc map[string]any, version int) {
	info, ok := doc["info"].(map[string]any)
	if !ok {
		info = map[string]any{}
		doc["info"] = info
	}
	info["dataFormatVersion"] = strconv.Itoa(version)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	return n
}
