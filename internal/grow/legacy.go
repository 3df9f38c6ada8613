package grow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const legacyZoneColumns = `id, name, mode, p1_duration_sec, p2_event_count, p2_duration_sec, p1_manual_list, p2_manual_list, enabled, created_at, updated_at`

// CreateLegacyZone inserts a new legacy zone and fills in its generated ID.
func (r *SQLiteRepository) CreateLegacyZone(ctx context.Context, zone *LegacyZone) error {
	if err := zone.Validate(); err != nil {
		return err
	}
	touchTimestamps(&zone.CreatedAt, &zone.UpdatedAt)

	query := `
		INSERT INTO legacy_zones (name, mode, p1_duration_sec, p2_event_count, p2_duration_sec, p1_manual_list, p2_manual_list, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		zone.Name,
		string(zone.Mode),
		zone.P1DurationSec,
		zone.P2EventCount,
		zone.P2DurationSec,
		zone.P1ManualList,
		zone.P2ManualList,
		boolToInt(zone.Enabled),
		formatTime(zone.CreatedAt),
		formatTime(zone.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("inserting legacy zone: %w", err)
	}

	zone.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading legacy zone id: %w", err)
	}
	return nil
}

// GetLegacyZone retrieves a legacy zone by ID.
func (r *SQLiteRepository) GetLegacyZone(ctx context.Context, id int64) (*LegacyZone, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+legacyZoneColumns+` FROM legacy_zones WHERE id = ?`, id)

	zone, err := scanLegacyZone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLegacyZoneNotFound
		}
		return nil, fmt.Errorf("querying legacy zone: %w", err)
	}
	return zone, nil
}

// ListLegacyZones retrieves all legacy zones ordered by name.
func (r *SQLiteRepository) ListLegacyZones(ctx context.Context) ([]LegacyZone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+legacyZoneColumns+` FROM legacy_zones ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying legacy zones: %w", err)
	}
	defer rows.Close()

	var zones []LegacyZone
	for rows.Next() {
		zone, err := scanLegacyZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning legacy zone: %w", err)
		}
		zones = append(zones, *zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating legacy zones: %w", err)
	}
	return zones, nil
}

// UpdateLegacyZone modifies an existing legacy zone.
func (r *SQLiteRepository) UpdateLegacyZone(ctx context.Context, zone *LegacyZone) error {
	if err := zone.Validate(); err != nil {
		return err
	}
	touchTimestamps(&zone.CreatedAt, &zone.UpdatedAt)

	query := `
		UPDATE legacy_zones
		SET name = ?, mode = ?, p1_duration_sec = ?, p2_event_count = ?, p2_duration_sec = ?, p1_manual_list = ?, p2_manual_list = ?, enabled = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		zone.Name,
		string(zone.Mode),
		zone.P1DurationSec,
		zone.P2EventCount,
		zone.P2DurationSec,
		zone.P1ManualList,
		zone.P2ManualList,
		boolToInt(zone.Enabled),
		formatTime(zone.UpdatedAt),
		zone.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("updating legacy zone: %w", err)
	}
	return checkAffected(result, ErrLegacyZoneNotFound)
}

// DeleteLegacyZone removes a legacy zone by ID.
func (r *SQLiteRepository) DeleteLegacyZone(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM legacy_zones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting legacy zone: %w", err)
	}
	return checkAffected(result, ErrLegacyZoneNotFound)
}

func scanLegacyZone(scanner rowScanner) (*LegacyZone, error) {
	var zone LegacyZone
	var mode string
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&zone.ID,
		&zone.Name,
		&mode,
		&zone.P1DurationSec,
		&zone.P2EventCount,
		&zone.P2DurationSec,
		&zone.P1ManualList,
		&zone.P2ManualList,
		&enabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	zone.Mode = ScheduleMode(mode)
	zone.Enabled = enabled != 0
	if zone.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if zone.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &zone, nil
}
