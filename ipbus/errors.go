package ipbus

import "errors"

// Sentinel errors returned by the decode/dispatch path. Callers compare with
// errors.Is.
var (
	// ErrUnknownTransactionType is returned when a decoded transaction
	// header names a type outside TypeRead..TypeRMWSum.
	ErrUnknownTransactionType = errors.New("ipbus: unknown transaction type")

	// ErrNoHandler is returned by Dispatch when the Client has no
	// MemoryHandler configured.
	ErrNoHandler = errors.New("ipbus: no memory handler configured")
)
