// Package grow defines the irrigation domain entities (rooms, pumps, zones,
// water events, legacy zones, system settings) and their SQLite persistence.
//
// The hierarchy is room -> pump -> zone, with water events attached to rooms
// and assigned to zones many-to-many. The engine consumes the read side of
// the Repository interface each evaluation tick; the API layer uses the full
// CRUD surface. Entity references (lock, switch, lights-on/off) are opaque
// Home Assistant entity IDs resolved at evaluation and execution time, never
// validated against the remote service at write time.
package grow
