// Package hass provides a client for the Home Assistant REST API.
//
// The irrigation engine treats Home Assistant as its actuation/state
// service: pump locks (input_boolean entities) and zone valves (switch
// entities) are read and driven through this client. It is an unreliable
// network dependency, so every call carries a bounded retry policy with
// exponential backoff for transient failures.
//
// # Operations
//
//   - GetState:     read the current state of a named entity
//   - TurnOn/Off:   invoke the turn_on/turn_off service on an entity
//   - ListEntities: discover entities by domain prefix (config UI support)
//
// # Error taxonomy
//
//   - ErrEntityNotFound:     the entity reference is unknown (HTTP 404, not retried)
//   - ErrServiceUnavailable: transient network/HTTP failure that survived retries
//   - ErrBadResponse:        the API answered but the payload was unusable
//
// Check with errors.Is:
//
//	if errors.Is(err, hass.ErrEntityNotFound) { ... }
package hass
