package grow

import "time"

// EventType identifies which daily watering pattern a water event follows.
type EventType string

const (
	// EventP1 is the single daily event timed relative to lights-on.
	EventP1 EventType = "p1"
	// EventP2 is one of N daily events distributed across the light window.
	EventP2 EventType = "p2"
)

// ScheduleMode selects how a legacy zone derives its schedule.
type ScheduleMode string

const (
	// ModeAuto derives event times from the global light timing settings.
	ModeAuto ScheduleMode = "auto"
	// ModeManual uses operator-entered HH:MM.SS schedule lists.
	ModeManual ScheduleMode = "manual"
)

// Room groups pumps and water events under one grow space. The optional
// entity references name external time sources (typically input_datetime
// helpers) that the evaluator reads for lights-on/lights-off times.
type Room struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	LightsOnEntity  *string   `json:"lights_on_entity,omitempty"`
	LightsOffEntity *string   `json:"lights_off_entity,omitempty"`
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Pump represents one irrigation pump. LockEntity names the external
// boolean resource used for pump mutual exclusion; at most one zone under
// a pump is ever physically active, enforced by the queue processor.
type Pump struct {
	ID         int64     `json:"id"`
	RoomID     int64     `json:"room_id"`
	Name       string    `json:"name"`
	LockEntity string    `json:"lock_entity"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Zone represents one irrigation zone valve fed by a pump. SwitchEntity
// names the external switch resource that opens the valve.
type Zone struct {
	ID           int64     `json:"id"`
	PumpID       int64     `json:"pump_id"`
	Name         string    `json:"name"`
	SwitchEntity string    `json:"switch_entity"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WaterEvent is one configured watering event for a room. P1 events carry
// DelayMinutes (offset after lights-on); P2 events carry TimeOfDay (HH:MM).
// Zones holds the assigned zones when loaded through the event queries.
type WaterEvent struct {
	ID           int64     `json:"id"`
	RoomID       int64     `json:"room_id"`
	Type         EventType `json:"event_type"`
	Name         string    `json:"name"`
	DelayMinutes *int      `json:"delay_minutes,omitempty"`
	TimeOfDay    *string   `json:"time_of_day,omitempty"`
	RunSeconds   int       `json:"run_seconds"`
	Enabled      bool      `json:"enabled"`
	Zones        []Zone    `json:"zones,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LegacyZone is the per-zone schedule variant: a zone that carries its own
// auto (durations and counts derived from global light timing) or manual
// (HH:MM.SS lists) schedule instead of room-level water events.
type LegacyZone struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Mode          ScheduleMode `json:"mode"`
	P1DurationSec int          `json:"p1_duration_sec"`
	P2EventCount  int          `json:"p2_event_count"`
	P2DurationSec int          `json:"p2_duration_sec"`
	P1ManualList  string       `json:"p1_manual_list"`
	P2ManualList  string       `json:"p2_manual_list"`
	Enabled       bool         `json:"enabled"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// GlobalSettings is the singleton row naming the Home Assistant entities
// that provide the global light timing parameters for auto-mode legacy
// zones. Values are read from the entities at calculation time; only the
// references are stored.
type GlobalSettings struct {
	LightsOnEntity  *string   `json:"lights_on_entity,omitempty"`
	LightsOffEntity *string   `json:"lights_off_entity,omitempty"`
	P1DelayEntity   *string   `json:"p1_delay_entity,omitempty"`
	P2DelayEntity   *string   `json:"p2_delay_entity,omitempty"`
	P2BufferEntity  *string   `json:"p2_buffer_entity,omitempty"`
	FeedNotes       *string   `json:"feed_notes,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SystemSettings is the singleton runtime settings row (id always 1).
type SystemSettings struct {
	PumpStartupDelaySeconds  int       `json:"pump_startup_delay_seconds"`
	ZoneSwitchDelaySeconds   int       `json:"zone_switch_delay_seconds"`
	SchedulerIntervalSeconds int       `json:"scheduler_interval_seconds"`
	UpdatedAt                time.Time `json:"updated_at"`
}
