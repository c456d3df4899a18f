package experiment

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// schema is the runtime validator applied at every mutation boundary.
var schema *validator.Validate

func init() {
	schema = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so errors match the wire document.
	schema.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	schema.RegisterStructValidation(validateDataPoint, DataPoint{})
	schema.RegisterStructValidation(validateValueVariable, ValueVariable{})
}

// validateDataPoint checks that the value matches the point type.
func validateDataPoint(sl validator.StructLevel) {
	p := sl.Current().Interface().(DataPoint)
	switch p.Type {
	case Numeric, Score:
		if _, ok := p.Float(); !ok {
			sl.ReportError(p.Value, "value", "Value", "datavalue", string(p.Type))
		}
	case Categorical:
		if _, ok := p.Value.(string); !ok {
			sl.ReportError(p.Value, "value", "Value", "datavalue", string(p.Type))
		}
	}
}

// validateValueVariable checks min <= max.
func validateValueVariable(sl validator.StructLevel) {
	v := sl.Current().Interface().(ValueVariable)
	if v.Min > v.Max {
		sl.ReportError(v.Min, "min", "Min", "minmax", "")
	}
}

// Validate checks v against the document schema. v is any document type
// (Experiment, Info, ValueVariable, DataEntry, ...) or a slice of them.
func Validate(v any) error {
	var err error
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		for i := 0; i < rv.Len() && err == nil; i++ {
			if err = schema.Struct(rv.Index(i).Interface()); err != nil {
				err = fmt.Errorf("[%d]: %w", i, err)
			}
		}
	} else {
		err = schema.Struct(v)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaValidation, err)
	}
	return nil
}
