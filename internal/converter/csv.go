package converter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/samber/lo"
)

const (
	csvSeparator = ';'
	idColumn     = "id"
	enabledCol   = "enabled"
	descCol      = "description"
)

// DataPointsToCSV renders entries as a semicolon separated table with the
// header id;<variables>;<extra meta>;enabled. Rows keep input order.
func DataPointsToCSV(entries []experiment.DataEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	var names, metaKeys []string
	for _, e := range entries {
		for _, p := range e.Data {
			if !slices.Contains(names, p.Name) {
				names = append(names, p.Name)
			}
		}
		for _, k := range entryMetaKeys(e.Meta) {
			if !slices.Contains(metaKeys, k) {
				metaKeys = append(metaKeys, k)
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = csvSeparator

	header := append(append(append([]string{idColumn}, names...), metaKeys...), enabledCol)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(e.Meta.ID))
		for _, name := range names {
			p, ok := e.Lookup(name)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatValue(p.Value))
		}
		for _, k := range metaKeys {
			if k == descCol {
				row = append(row, e.Meta.Description)
				continue
			}
			row = append(row, e.Meta.Extra[k])
		}
		row = append(row, strconv.FormatBool(e.Meta.Enabled))
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row for entry %d: %w", e.Meta.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func entryMetaKeys(m experiment.Meta) []string {
	var keys []string
	if m.Description != "" {
		keys = append(keys, descCol)
	}
	extra := lo.Filter(lo.Keys(m.Extra), func(k string, _ int) bool { return !experiment.ReservedMetaKey(k) })
	slices.Sort(extra)
	return append(keys, extra...)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// CSVToDataPoints parses a table produced by DataPointsToCSV or written by
// hand. Columns are matched by header name in any order. Every declared
// variable must have a column. id and enabled are optional; description and
// unknown columns are kept as meta fields.
func CSVToDataPoints(
	input string,
	values []experiment.ValueVariable,
	categorical []experiment.CategoricalVariable,
	scores []experiment.ScoreVariable,
) ([]experiment.DataEntry, error) {
	out := []experiment.DataEntry{}
	if strings.TrimSpace(input) == "" {
		return out, nil
	}

	r := csv.NewReader(strings.NewReader(input))
	r.Comma = csvSeparator
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", experiment.ErrCSVFormat, err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.TrimSpace(h)] = i
	}

	type column struct {
		name string
		typ  experiment.PointType
	}
	var variables []column
	for _, v := range values {
		variables = append(variables, column{v.Name, experiment.Numeric})
	}
	for _, c := range categorical {
		variables = append(variables, column{c.Name, experiment.Categorical})
	}
	for _, s := range scores {
		variables = append(variables, column{s.Name, experiment.Score})
	}

	missing := lo.FilterMap(variables, func(c column, _ int) (string, bool) {
		_, ok := columns[c.name]
		return c.name, !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing header row or columns for %s", experiment.ErrCSVFormat, strings.Join(missing, ", "))
	}

	known := lo.SliceToMap(variables, func(c column) (string, bool) { return c.name, true })
	var extra []string
	for _, h := range header {
		h = strings.TrimSpace(h)
		if known[h] || h == idColumn || h == enabledCol {
			continue
		}
		if !strings.EqualFold(h, descCol) && experiment.ReservedMetaKey(strings.ToLower(h)) {
			return nil, fmt.Errorf("%w: column %q clashes with the reserved meta field %q", experiment.ErrCSVFormat, h, strings.ToLower(h))
		}
		extra = append(extra, h)
	}

	seen := make(map[int]bool)
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", experiment.ErrCSVFormat, line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		cell := func(name string) (string, bool) {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return "", false
			}
			return strings.TrimSpace(record[i]), true
		}

		meta := experiment.Meta{ID: line, Enabled: true, Valid: true}
		if s, ok := cell(idColumn); ok {
			id, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: id %q is not an integer", experiment.ErrCSVFormat, line, s)
			}
			meta.ID = id
		}
		if seen[meta.ID] {
			return nil, fmt.Errorf("%w: duplicate id %d on line %d", experiment.ErrCSVFormat, meta.ID, line)
		}
		seen[meta.ID] = true
		if s, ok := cell(enabledCol); ok {
			meta.Enabled = strings.EqualFold(s, "true")
		}
		for _, h := range extra {
			s, _ := cell(h)
			if strings.EqualFold(h, descCol) {
				meta.Description = s
				continue
			}
			if meta.Extra == nil {
				meta.Extra = make(map[string]string)
			}
			meta.Extra[strings.ToLower(h)] = s
		}

		data := make([]experiment.DataPoint, 0, len(variables))
		for _, c := range variables {
			s, _ := cell(c.name)
			p := experiment.DataPoint{Name: c.name, Type: c.typ, Value: s}
			if c.typ != experiment.Categorical {
				f, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %s value %q is not a number", experiment.ErrCSVFormat, line, c.name, s)
				}
				p.Value = f
			}
			data = append(data, p)
		}
		out = append(out, experiment.DataEntry{Meta: meta, Data: data})
	}
	return out, nil
}
