package grow

import "errors"

var (
	// ErrRoomNotFound is returned when a room lookup finds no row.
	ErrRoomNotFound = errors.New("grow: room not found")

	// ErrPumpNotFound is returned when a pump lookup finds no row.
	ErrPumpNotFound = errors.New("grow: pump not found")

	// ErrZoneNotFound is returned when a zone lookup finds no row.
	ErrZoneNotFound = errors.New("grow: zone not found")

	// ErrEventNotFound is returned when a water event lookup finds no row.
	ErrEventNotFound = errors.New("grow: water event not found")

	// ErrLegacyZoneNotFound is returned when a legacy zone lookup finds no row.
	ErrLegacyZoneNotFound = errors.New("grow: legacy zone not found")

	// ErrDuplicateName is returned when a create or update would violate a
	// unique-name constraint (room names globally, pump/zone names per parent).
	ErrDuplicateName = errors.New("grow: duplicate name")

	// ErrValidation wraps all input validation failures. Check with
	// errors.Is and surface the wrapped detail to the caller.
	ErrValidation = errors.New("grow: validation failed")
)
