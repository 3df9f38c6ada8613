package grow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const zoneColumns = `id, pump_id, name, switch_entity, enabled, created_at, updated_at`

// CreateZone inserts a new zone and fills in its generated ID.
func (r *SQLiteRepository) CreateZone(ctx context.Context, zone *Zone) error {
	if err := zone.Validate(); err != nil {
		return err
	}
	touchTimestamps(&zone.CreatedAt, &zone.UpdatedAt)

	query := `
		INSERT INTO zones (pump_id, name, switch_entity, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		zone.PumpID,
		zone.Name,
		zone.SwitchEntity,
		boolToInt(zone.Enabled),
		formatTime(zone.CreatedAt),
		formatTime(zone.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		if isForeignKeyError(err) {
			return ErrPumpNotFound
		}
		return fmt.Errorf("inserting zone: %w", err)
	}

	zone.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading zone id: %w", err)
	}
	return nil
}

// GetZone retrieves a zone by ID.
func (r *SQLiteRepository) GetZone(ctx context.Context, id int64) (*Zone, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE id = ?`, id)

	zone, err := scanZone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrZoneNotFound
		}
		return nil, fmt.Errorf("querying zone: %w", err)
	}
	return zone, nil
}

// ListZones retrieves all zones ordered by name.
func (r *SQLiteRepository) ListZones(ctx context.Context) ([]Zone, error) {
	return r.queryZones(ctx,
		`SELECT `+zoneColumns+` FROM zones ORDER BY name`)
}

// ListZonesByPump retrieves all zones fed by a pump ordered by name.
func (r *SQLiteRepository) ListZonesByPump(ctx context.Context, pumpID int64) ([]Zone, error) {
	return r.queryZones(ctx,
		`SELECT `+zoneColumns+` FROM zones WHERE pump_id = ? ORDER BY name`, pumpID)
}

// GetZoneWithPump loads a zone together with its owning pump in one query.
func (r *SQLiteRepository) GetZoneWithPump(ctx context.Context, zoneID int64) (*Zone, *Pump, error) {
	query := `
		SELECT z.id, z.pump_id, z.name, z.switch_entity, z.enabled, z.created_at, z.updated_at,
			p.id, p.room_id, p.name, p.lock_entity, p.enabled, p.created_at, p.updated_at
		FROM zones z
		JOIN pumps p ON p.id = z.pump_id
		WHERE z.id = ?`

	var zone Zone
	var pump Pump
	var zoneEnabled, pumpEnabled int
	var zCreated, zUpdated, pCreated, pUpdated string

	err := r.db.QueryRowContext(ctx, query, zoneID).Scan(
		&zone.ID, &zone.PumpID, &zone.Name, &zone.SwitchEntity, &zoneEnabled, &zCreated, &zUpdated,
		&pump.ID, &pump.RoomID, &pump.Name, &pump.LockEntity, &pumpEnabled, &pCreated, &pUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrZoneNotFound
		}
		return nil, nil, fmt.Errorf("querying zone with pump: %w", err)
	}

	zone.Enabled = zoneEnabled != 0
	pump.Enabled = pumpEnabled != 0
	if zone.CreatedAt, err = parseTime(zCreated); err != nil {
		return nil, nil, fmt.Errorf("parsing zone created_at: %w", err)
	}
	if zone.UpdatedAt, err = parseTime(zUpdated); err != nil {
		return nil, nil, fmt.Errorf("parsing zone updated_at: %w", err)
	}
	if pump.CreatedAt, err = parseTime(pCreated); err != nil {
		return nil, nil, fmt.Errorf("parsing pump created_at: %w", err)
	}
	if pump.UpdatedAt, err = parseTime(pUpdated); err != nil {
		return nil, nil, fmt.Errorf("parsing pump updated_at: %w", err)
	}
	return &zone, &pump, nil
}

// UpdateZone modifies an existing zone.
func (r *SQLiteRepository) UpdateZone(ctx context.Context, zone *Zone) error {
	if err := zone.Validate(); err != nil {
		return err
	}
	touchTimestamps(&zone.CreatedAt, &zone.UpdatedAt)

	query := `
		UPDATE zones
		SET pump_id = ?, name = ?, switch_entity = ?, enabled = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		zone.PumpID,
		zone.Name,
		zone.SwitchEntity,
		boolToInt(zone.Enabled),
		formatTime(zone.UpdatedAt),
		zone.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		if isForeignKeyError(err) {
			return ErrPumpNotFound
		}
		return fmt.Errorf("updating zone: %w", err)
	}
	return checkAffected(result, ErrZoneNotFound)
}

// DeleteZone removes a zone by ID. Event assignments cascade.
func (r *SQLiteRepository) DeleteZone(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting zone: %w", err)
	}
	return checkAffected(result, ErrZoneNotFound)
}

func (r *SQLiteRepository) queryZones(ctx context.Context, query string, args ...any) ([]Zone, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning zone: %w", err)
		}
		zones = append(zones, *zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zones: %w", err)
	}
	return zones, nil
}

func scanZone(scanner rowScanner) (*Zone, error) {
	var zone Zone
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&zone.ID,
		&zone.PumpID,
		&zone.Name,
		&zone.SwitchEntity,
		&enabled,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	zone.Enabled = enabled != 0
	if zone.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if zone.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &zone, nil
}
