package hass

import "errors"

// Domain errors for the hass package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, hass.ErrEntityNotFound) {
//	    // handle unknown entity reference
//	}
var (
	// ErrEntityNotFound is returned when an entity reference is unknown
	// to Home Assistant. Not retried.
	ErrEntityNotFound = errors.New("hass: entity not found")

	// ErrServiceUnavailable is returned for transient network or HTTP
	// failures that persisted through the retry policy.
	ErrServiceUnavailable = errors.New("hass: service unavailable")

	// ErrBadResponse is returned when the API responds but the payload
	// cannot be decoded.
	ErrBadResponse = errors.New("hass: bad response")
)
