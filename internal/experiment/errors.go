package experiment

import "errors"

var (
	// ErrSchemaValidation is returned when a payload fails structural, type or range checks.
	ErrSchemaValidation = errors.New("schema validation failed")
	// ErrReferentialIntegrity is returned when a payload refers to something that does not exist.
	ErrReferentialIntegrity = errors.New("referential integrity violated")
	// ErrCSVFormat is returned when tabular input cannot be mapped onto data points.
	ErrCSVFormat = errors.New("invalid csv")
	// ErrUnreachableAction marks an action kind without a handler. It is a programming error.
	ErrUnreachableAction = errors.New("unhandled action")
)
