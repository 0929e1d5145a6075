package kmedoids

import "errors"

// ErrConfiguration is returned when Fit cannot run with the given inputs:
// K outside [1, N], an empty data set, or an unknown init or method.
var ErrConfiguration = errors.New("kmedoids: invalid configuration")
