package grow

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Repository defines the persistence operations for irrigation entities.
// The engine only consumes the read side; the API layer uses the full set.
type Repository interface {
	// Rooms.
	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id int64) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListEnabledRooms(ctx context.Context) ([]Room, error)
	UpdateRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, id int64) error

	// Pumps.
	CreatePump(ctx context.Context, pump *Pump) error
	GetPump(ctx context.Context, id int64) (*Pump, error)
	ListPumps(ctx context.Context) ([]Pump, error)
	ListPumpsByRoom(ctx context.Context, roomID int64) ([]Pump, error)
	UpdatePump(ctx context.Context, pump *Pump) error
	DeletePump(ctx context.Context, id int64) error

	// Zones.
	CreateZone(ctx context.Context, zone *Zone) error
	GetZone(ctx context.Context, id int64) (*Zone, error)
	ListZones(ctx context.Context) ([]Zone, error)
	ListZonesByPump(ctx context.Context, pumpID int64) ([]Zone, error)
	UpdateZone(ctx context.Context, zone *Zone) error
	DeleteZone(ctx context.Context, id int64) error

	// GetZoneWithPump loads a zone together with its owning pump.
	// Returns ErrZoneNotFound if the zone does not exist.
	GetZoneWithPump(ctx context.Context, zoneID int64) (*Zone, *Pump, error)

	// Water events. Get/list operations attach the assigned zones.
	CreateEvent(ctx context.Context, event *WaterEvent) error
	GetEvent(ctx context.Context, id int64) (*WaterEvent, error)
	ListEvents(ctx context.Context) ([]WaterEvent, error)
	ListEventsByRoom(ctx context.Context, roomID int64) ([]WaterEvent, error)
	UpdateEvent(ctx context.Context, event *WaterEvent) error
	DeleteEvent(ctx context.Context, id int64) error

	// ListEnabledEventsForRoom returns the room's enabled events with only
	// their enabled assigned zones attached. This is the evaluator's read.
	ListEnabledEventsForRoom(ctx context.Context, roomID int64) ([]WaterEvent, error)

	// SetEventZones replaces an event's zone assignments atomically.
	SetEventZones(ctx context.Context, eventID int64, zoneIDs []int64) error

	// Legacy zones (per-zone schedule variant).
	CreateLegacyZone(ctx context.Context, zone *LegacyZone) error
	GetLegacyZone(ctx context.Context, id int64) (*LegacyZone, error)
	ListLegacyZones(ctx context.Context) ([]LegacyZone, error)
	UpdateLegacyZone(ctx context.Context, zone *LegacyZone) error
	DeleteLegacyZone(ctx context.Context, id int64) error

	// Settings (singleton rows).
	GetSettings(ctx context.Context) (*SystemSettings, error)
	UpdateSettings(ctx context.Context, settings *SystemSettings) error
	GetGlobalSettings(ctx context.Context) (*GlobalSettings, error)
	UpdateGlobalSettings(ctx context.Context, settings *GlobalSettings) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// rowScanner is satisfied by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// touchTimestamps stamps created/updated times the way all entities store
// them (UTC RFC3339 text).
func touchTimestamps(createdAt *time.Time, updatedAt *time.Time) {
	now := time.Now().UTC().Truncate(time.Second)
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableInt returns a sql.NullInt64 for optional int pointers.
func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint
// violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}

// isForeignKeyError checks if an error is a SQLite foreign key violation,
// which maps to a missing parent row.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
