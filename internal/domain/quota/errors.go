package quota

import "errors"

var (
	// ErrUnknownSchema is returned for an unrecognised ledger schema.
	ErrUnknownSchema = errors.New("unknown quota schema")

	// ErrInvalidOwner is returned when the owner identity is incomplete.
	ErrInvalidOwner = errors.New("invalid quota owner")
)
