package grow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const eventColumns = `id, room_id, event_type, name, delay_minutes, time_of_day, run_seconds, enabled, created_at, updated_at`

// CreateEvent inserts a new water event and fills in its generated ID.
// Zone assignments are managed separately through SetEventZones.
func (r *SQLiteRepository) CreateEvent(ctx context.Context, event *WaterEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	touchTimestamps(&event.CreatedAt, &event.UpdatedAt)

	query := `
		INSERT INTO water_events (room_id, event_type, name, delay_minutes, time_of_day, run_seconds, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		event.RoomID,
		string(event.Type),
		event.Name,
		nullableInt(event.DelayMinutes),
		nullableString(event.TimeOfDay),
		event.RunSeconds,
		boolToInt(event.Enabled),
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("inserting water event: %w", err)
	}

	event.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading water event id: %w", err)
	}
	return nil
}

// GetEvent retrieves a water event by ID with its assigned zones attached.
func (r *SQLiteRepository) GetEvent(ctx context.Context, id int64) (*WaterEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM water_events WHERE id = ?`, id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("querying water event: %w", err)
	}

	if event.Zones, err = r.assignedZones(ctx, event.ID, false); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents retrieves all water events with assigned zones attached.
func (r *SQLiteRepository) ListEvents(ctx context.Context) ([]WaterEvent, error) {
	return r.queryEventsWithZones(ctx, false,
		`SELECT `+eventColumns+` FROM water_events ORDER BY room_id, name`)
}

// ListEventsByRoom retrieves a room's water events with assigned zones.
func (r *SQLiteRepository) ListEventsByRoom(ctx context.Context, roomID int64) ([]WaterEvent, error) {
	return r.queryEventsWithZones(ctx, false,
		`SELECT `+eventColumns+` FROM water_events WHERE room_id = ? ORDER BY name`, roomID)
}

// ListEnabledEventsForRoom retrieves a room's enabled events carrying only
// their enabled assigned zones. The evaluator consumes this each tick.
func (r *SQLiteRepository) ListEnabledEventsForRoom(ctx context.Context, roomID int64) ([]WaterEvent, error) {
	return r.queryEventsWithZones(ctx, true,
		`SELECT `+eventColumns+` FROM water_events WHERE room_id = ? AND enabled = 1 ORDER BY name`, roomID)
}

// UpdateEvent modifies an existing water event. Zone assignments are left
// untouched.
func (r *SQLiteRepository) UpdateEvent(ctx context.Context, event *WaterEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	touchTimestamps(&event.CreatedAt, &event.UpdatedAt)

	query := `
		UPDATE water_events
		SET room_id = ?, event_type = ?, name = ?, delay_minutes = ?, time_of_day = ?, run_seconds = ?, enabled = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		event.RoomID,
		string(event.Type),
		event.Name,
		nullableInt(event.DelayMinutes),
		nullableString(event.TimeOfDay),
		event.RunSeconds,
		boolToInt(event.Enabled),
		formatTime(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("updating water event: %w", err)
	}
	return checkAffected(result, ErrEventNotFound)
}

// DeleteEvent removes a water event by ID. Zone assignments cascade.
func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM water_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting water event: %w", err)
	}
	return checkAffected(result, ErrEventNotFound)
}

// SetEventZones replaces an event's zone assignments atomically.
func (r *SQLiteRepository) SetEventZones(ctx context.Context, eventID int64, zoneIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM water_events WHERE id = ?`, eventID).Scan(&count); err != nil {
		return fmt.Errorf("checking water event exists: %w", err)
	}
	if count == 0 {
		return ErrEventNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM event_zones WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("clearing zone assignments: %w", err)
	}

	for _, zoneID := range zoneIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_zones (event_id, zone_id) VALUES (?, ?)`, eventID, zoneID); err != nil {
			if isForeignKeyError(err) {
				return ErrZoneNotFound
			}
			return fmt.Errorf("assigning zone %d: %w", zoneID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing zone assignments: %w", err)
	}
	return nil
}

// assignedZones loads the zones assigned to an event, optionally limited to
// enabled zones.
func (r *SQLiteRepository) assignedZones(ctx context.Context, eventID int64, enabledOnly bool) ([]Zone, error) {
	query := `
		SELECT z.id, z.pump_id, z.name, z.switch_entity, z.enabled, z.created_at, z.updated_at
		FROM zones z
		JOIN event_zones ez ON ez.zone_id = z.id
		WHERE ez.event_id = ?`
	if enabledOnly {
		query += ` AND z.enabled = 1`
	}
	query += ` ORDER BY z.name`

	zones, err := r.queryZones(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("loading assigned zones: %w", err)
	}
	return zones, nil
}

func (r *SQLiteRepository) queryEventsWithZones(ctx context.Context, enabledOnly bool, query string, args ...any) ([]WaterEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying water events: %w", err)
	}
	defer rows.Close()

	var events []WaterEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning water event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating water events: %w", err)
	}

	for i := range events {
		if events[i].Zones, err = r.assignedZones(ctx, events[i].ID, enabledOnly); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func scanEvent(scanner rowScanner) (*WaterEvent, error) {
	var event WaterEvent
	var eventType string
	var delayMinutes sql.NullInt64
	var timeOfDay sql.NullString
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&event.ID,
		&event.RoomID,
		&eventType,
		&event.Name,
		&delayMinutes,
		&timeOfDay,
		&event.RunSeconds,
		&enabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Type = EventType(eventType)
	event.Enabled = enabled != 0
	if delayMinutes.Valid {
		v := int(delayMinutes.Int64)
		event.DelayMinutes = &v
	}
	if timeOfDay.Valid {
		event.TimeOfDay = &timeOfDay.String
	}

	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &event, nil
}
