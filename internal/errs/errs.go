// Package errs defines the error taxonomy shared across the ingest and
// query paths. Callers classify wrapped errors with errors.Is.
package errs

import "errors"

var (
	// ErrConnection means the retry budget for acquiring a database
	// connection was exhausted.
	ErrConnection = errors.New("database connection unavailable")

	// ErrStorage means a statement or query failed against an open
	// connection.
	ErrStorage = errors.New("storage operation failed")

	// ErrMalformedPayload means an inbound telemetry message was missing
	// required fields or carried mistyped values.
	ErrMalformedPayload = errors.New("malformed telemetry payload")

	// ErrInvalidFilter means a query parameter could not be parsed.
	ErrInvalidFilter = errors.New("invalid query filter")
)
