package grow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const pumpColumns = `id, room_id, name, lock_entity, enabled, created_at, updated_at`

// CreatePump inserts a new pump and fills in its generated ID.
func (r *SQLiteRepository) CreatePump(ctx context.Context, pump *Pump) error {
	if err := pump.Validate(); err != nil {
		return err
	}
	touchTimestamps(&pump.CreatedAt, &pump.UpdatedAt)

	query := `
		INSERT INTO pumps (room_id, name, lock_entity, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		pump.RoomID,
		pump.Name,
		pump.LockEntity,
		boolToInt(pump.Enabled),
		formatTime(pump.CreatedAt),
		formatTime(pump.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		if isForeignKeyError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("inserting pump: %w", err)
	}

	pump.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading pump id: %w", err)
	}
	return nil
}

// GetPump retrieves a pump by ID.
func (r *SQLiteRepository) GetPump(ctx context.Context, id int64) (*Pump, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+pumpColumns+` FROM pumps WHERE id = ?`, id)

	pump, err := scanPump(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPumpNotFound
		}
		return nil, fmt.Errorf("querying pump: %w", err)
	}
	return pump, nil
}

// ListPumps retrieves all pumps ordered by name.
func (r *SQLiteRepository) ListPumps(ctx context.Context) ([]Pump, error) {
	return r.queryPumps(ctx,
		`SELECT `+pumpColumns+` FROM pumps ORDER BY name`)
}

// ListPumpsByRoom retrieves all pumps in a room ordered by name.
func (r *SQLiteRepository) ListPumpsByRoom(ctx context.Context, roomID int64) ([]Pump, error) {
	return r.queryPumps(ctx,
		`SELECT `+pumpColumns+` FROM pumps WHERE room_id = ? ORDER BY name`, roomID)
}

// UpdatePump modifies an existing pump.
func (r *SQLiteRepository) UpdatePump(ctx context.Context, pump *Pump) error {
	if err := pump.Validate(); err != nil {
		return err
	}
	touchTimestamps(&pump.CreatedAt, &pump.UpdatedAt)

	query := `
		UPDATE pumps
		SET room_id = ?, name = ?, lock_entity = ?, enabled = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		pump.RoomID,
		pump.Name,
		pump.LockEntity,
		boolToInt(pump.Enabled),
		formatTime(pump.UpdatedAt),
		pump.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		if isForeignKeyError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("updating pump: %w", err)
	}
	return checkAffected(result, ErrPumpNotFound)
}

// DeletePump removes a pump by ID. Owned zones cascade.
func (r *SQLiteRepository) DeletePump(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pumps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting pump: %w", err)
	}
	return checkAffected(result, ErrPumpNotFound)
}

func (r *SQLiteRepository) queryPumps(ctx context.Context, query string, args ...any) ([]Pump, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pumps: %w", err)
	}
	defer rows.Close()

	var pumps []Pump
	for rows.Next() {
		pump, err := scanPump(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pump: %w", err)
		}
		pumps = append(pumps, *pump)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pumps: %w", err)
	}
	return pumps, nil
}

func scanPump(scanner rowScanner) (*Pump, error) {
	var pump Pump
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&pump.ID,
		&pump.RoomID,
		&pump.Name,
		&pump.LockEntity,
		&enabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	pump.Enabled = enabled != 0
	if pump.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if pump.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &pump, nil
}
