package grow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const roomColumns = `id, name, lights_on_entity, lights_off_entity, enabled, created_at, updated_at`

// CreateRoom inserts a new room and fills in its generated ID.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	touchTimestamps(&room.CreatedAt, &room.UpdatedAt)

	query := `
		INSERT INTO rooms (name, lights_on_entity, lights_off_entity, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		room.Name,
		nullableString(room.LightsOnEntity),
		nullableString(room.LightsOffEntity),
		boolToInt(room.Enabled),
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("inserting room: %w", err)
	}

	room.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading room id: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id int64) (*Room, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)

	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("querying room: %w", err)
	}
	return room, nil
}

// ListRooms retrieves all rooms ordered by name.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]Room, error) {
	return r.queryRooms(ctx,
		`SELECT `+roomColumns+` FROM rooms ORDER BY name`)
}

// ListEnabledRooms retrieves all enabled rooms ordered by name.
func (r *SQLiteRepository) ListEnabledRooms(ctx context.Context) ([]Room, error) {
	return r.queryRooms(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE enabled = 1 ORDER BY name`)
}

// UpdateRoom modifies an existing room.
func (r *SQLiteRepository) UpdateRoom(ctx context.Context, room *Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	touchTimestamps(&room.CreatedAt, &room.UpdatedAt)

	query := `
		UPDATE rooms
		SET name = ?, lights_on_entity = ?, lights_off_entity = ?, enabled = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		room.Name,
		nullableString(room.LightsOnEntity),
		nullableString(room.LightsOffEntity),
		boolToInt(room.Enabled),
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("updating room: %w", err)
	}
	return checkAffected(result, ErrRoomNotFound)
}

// DeleteRoom removes a room by ID. Owned pumps, zones and events cascade.
func (r *SQLiteRepository) DeleteRoom(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	return checkAffected(result, ErrRoomNotFound)
}

func (r *SQLiteRepository) queryRooms(ctx context.Context, query string, args ...any) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		rooms = append(rooms, *room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

func scanRoom(scanner rowScanner) (*Room, error) {
	var room Room
	var lightsOn, lightsOff sql.NullString
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&room.ID,
		&room.Name,
		&lightsOn,
		&lightsOff,
		&enabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	room.Enabled = enabled != 0
	if lightsOn.Valid {
		room.LightsOnEntity = &lightsOn.String
	}
	if lightsOff.Valid {
		room.LightsOffEntity = &lightsOff.String
	}

	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &room, nil
}

// checkAffected maps a zero-row write to the given not-found sentinel.
func checkAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
