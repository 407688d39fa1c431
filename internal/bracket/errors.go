package bracket

import "errors"

var (
	// Malformed input: bad participant counts, seeded list length that does
	// not match the topology, unknown strategies.
	ErrValidation = errors.New("validation failed")

	// The linked match records do not allow the requested change, e.g. a
	// winner is resolved before both opponents are assigned.
	ErrConsistency = errors.New("bracket consistency violated")

	ErrNotFound = errors.New("requested resource not found")
)
