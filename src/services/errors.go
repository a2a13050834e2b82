package services

import "errors"

// Sentinel errors for the settlement pipeline. Handlers map these to
// HTTP statuses with errors.Is; services wrap them with context via
// fmt.Errorf("%w: ...").
var (
	// ErrFormat: the uploaded table could not be parsed under any
	// encoding/delimiter candidate. Fatal to the run, nothing committed.
	ErrFormat = errors.New("unparseable tabular input")

	// ErrNotFound: a referenced auction, lot or settlement is absent.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation: a malformed individual row or an empty work set.
	// Row-level occurrences are absorbed and counted, never fatal.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity: hash-chain mismatch or actor name collision. Fatal:
	// generation must halt rather than extend an invalid chain.
	ErrIntegrity = errors.New("integrity violation")
)
