package distance

import "errors"

var (
	// ErrUnknownMetric is returned by New and Parse for an unsupported
	// metric name. It is a configuration error.
	ErrUnknownMetric = errors.New("unknown distance metric")

	// ErrNumeric tags soft numeric failures: a metric produced a
	// non-finite or negative distance, or a position could not be
	// projected. Affected cells are recomputed with the haversine formula
	// and counted in Anomalies; this error is only surfaced through
	// Anomalies.Err.
	ErrNumeric = errors.New("numeric anomaly in distance computation")

	// ErrInvalidMatrix is returned by FromRows for input that is not a
	// square, symmetric, non-negative matrix with a zero diagonal.
	ErrInvalidMatrix = errors.New("invalid distance matrix")
)
