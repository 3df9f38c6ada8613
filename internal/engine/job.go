package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// ActuationJob is one ephemeral unit of work: run a single zone's valve
// for a duration. Jobs are created by the evaluator or a manual-run
// request, held in a pump's in-memory queue, executed once, and discarded.
type ActuationJob struct {
	ID              string    `json:"id"`
	ZoneID          int64     `json:"zone_id"`
	ZoneName        string    `json:"zone_name"`
	SwitchEntity    string    `json:"switch_entity"`
	DurationSeconds int       `json:"duration_seconds"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewJob builds an actuation job for a zone run.
func NewJob(zone *grow.Zone, durationSeconds int, scheduledAt time.Time) *ActuationJob {
	return &ActuationJob{
		ID:              uuid.NewString(),
		ZoneID:          zone.ID,
		ZoneName:        zone.Name,
		SwitchEntity:    zone.SwitchEntity,
		DurationSeconds: durationSeconds,
		ScheduledAt:     scheduledAt,
		CreatedAt:       time.Now().UTC(),
	}
}
