package engine

import "errors"

var (
	// ErrPumpDisabled is returned when a job is submitted for a disabled pump.
	ErrPumpDisabled = errors.New("engine: pump is disabled")

	// ErrZoneDisabled is returned when a job is submitted for a disabled zone.
	ErrZoneDisabled = errors.New("engine: zone is disabled")
)
