package grow

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetSettings reads the singleton system settings row.
func (r *SQLiteRepository) GetSettings(ctx context.Context) (*SystemSettings, error) {
	query := `
		SELECT pump_startup_delay_seconds, zone_switch_delay_seconds, scheduler_interval_seconds, updated_at
		FROM system_settings
		WHERE id = 1`

	var settings SystemSettings
	var updatedAt string
	err := r.db.QueryRowContext(ctx, query).Scan(
		&settings.PumpStartupDelaySeconds,
		&settings.ZoneSwitchDelaySeconds,
		&settings.SchedulerIntervalSeconds,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}

	if settings.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &settings, nil
}

// GetGlobalSettings reads the singleton global timing entity references.
func (r *SQLiteRepository) GetGlobalSettings(ctx context.Context) (*GlobalSettings, error) {
	query := `
		SELECT lights_on_entity, lights_off_entity, p1_delay_entity, p2_delay_entity, p2_buffer_entity, feed_notes, updated_at
		FROM global_settings
		WHERE id = 1`

	var settings GlobalSettings
	var lightsOn, lightsOff, p1Delay, p2Delay, p2Buffer, notes sql.NullString
	var updatedAt string
	err := r.db.QueryRowContext(ctx, query).Scan(
		&lightsOn, &lightsOff, &p1Delay, &p2Delay, &p2Buffer, &notes, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("querying global settings: %w", err)
	}

	if lightsOn.Valid {
		settings.LightsOnEntity = &lightsOn.String
	}
	if lightsOff.Valid {
		settings.LightsOffEntity = &lightsOff.String
	}
	if p1Delay.Valid {
		settings.P1DelayEntity = &p1Delay.String
	}
	if p2Delay.Valid {
		settings.P2DelayEntity = &p2Delay.String
	}
	if p2Buffer.Valid {
		settings.P2BufferEntity = &p2Buffer.String
	}
	if notes.Valid {
		settings.FeedNotes = &notes.String
	}
	if settings.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &settings, nil
}

// UpdateGlobalSettings overwrites the singleton global timing references.
func (r *SQLiteRepository) UpdateGlobalSettings(ctx context.Context, settings *GlobalSettings) error {
	settings.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query := `
		UPDATE global_settings
		SET lights_on_entity = ?, lights_off_entity = ?, p1_delay_entity = ?, p2_delay_entity = ?, p2_buffer_entity = ?, feed_notes = ?, updated_at = ?
		WHERE id = 1`

	_, err := r.db.ExecContext(ctx, query,
		nullableString(settings.LightsOnEntity),
		nullableString(settings.LightsOffEntity),
		nullableString(settings.P1DelayEntity),
		nullableString(settings.P2DelayEntity),
		nullableString(settings.P2BufferEntity),
		nullableString(settings.FeedNotes),
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("updating global settings: %w", err)
	}
	return nil
}

// UpdateSettings overwrites the singleton system settings row.
func (r *SQLiteRepository) UpdateSettings(ctx context.Context, settings *SystemSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query := `
		UPDATE system_settings
		SET pump_startup_delay_seconds = ?, zone_switch_delay_seconds = ?, scheduler_interval_seconds = ?, updated_at = ?
		WHERE id = 1`

	_, err := r.db.ExecContext(ctx, query,
		settings.PumpStartupDelaySeconds,
		settings.ZoneSwitchDelaySeconds,
		settings.SchedulerIntervalSeconds,
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("updating settings: %w", err)
	}
	return nil
}
