package telemetry

import "errors"

var (
	// ErrSegmentUnavailable is returned when the producing process has not
	// created the segment (e.g. the simulator is not running)
	ErrSegmentUnavailable = errors.New("telemetry segment unavailable")
	// ErrReadFailure is returned for short or malformed records
	ErrReadFailure   = errors.New("telemetry read failure")
	ErrInvalidLayout = errors.New("invalid telemetry layout")
)
