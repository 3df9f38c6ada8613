package grow

import (
	"fmt"
	"regexp"
	"strings"
)

// clockPattern matches HH:MM with a 0-23 hour and 0-59 minute.
var clockPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// Validate checks the room's fields before persistence.
func (r *Room) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: room name is required", ErrValidation)
	}
	return nil
}

// Validate checks the pump's fields before persistence.
func (p *Pump) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: pump name is required", ErrValidation)
	}
	if strings.TrimSpace(p.LockEntity) == "" {
		return fmt.Errorf("%w: pump lock entity is required", ErrValidation)
	}
	if p.RoomID <= 0 {
		return fmt.Errorf("%w: pump room_id is required", ErrValidation)
	}
	return nil
}

// Validate checks the zone's fields before persistence.
func (z *Zone) Validate() error {
	if strings.TrimSpace(z.Name) == "" {
		return fmt.Errorf("%w: zone name is required", ErrValidation)
	}
	if strings.TrimSpace(z.SwitchEntity) == "" {
		return fmt.Errorf("%w: zone switch entity is required", ErrValidation)
	}
	if z.PumpID <= 0 {
		return fmt.Errorf("%w: zone pump_id is required", ErrValidation)
	}
	return nil
}

// Validate checks the water event's fields before persistence. P1 events
// require a non-negative delay after lights-on; P2 events require a fixed
// HH:MM time of day.
func (e *WaterEvent) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: event name is required", ErrValidation)
	}
	if e.RoomID <= 0 {
		return fmt.Errorf("%w: event room_id is required", ErrValidation)
	}
	if e.RunSeconds <= 0 {
		return fmt.Errorf("%w: run_seconds must be greater than zero", ErrValidation)
	}

	switch e.Type {
	case EventP1:
		if e.DelayMinutes == nil || *e.DelayMinutes < 0 {
			return fmt.Errorf("%w: p1 events require a non-negative delay_minutes", ErrValidation)
		}
	case EventP2:
		if e.TimeOfDay == nil || !clockPattern.MatchString(*e.TimeOfDay) {
			return fmt.Errorf("%w: p2 events require time_of_day in HH:MM form", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: event_type must be p1 or p2", ErrValidation)
	}
	return nil
}

// Validate checks the legacy zone's fields before persistence. Manual
// schedule text is validated separately by the schedule package so the
// grammar lives in one place.
func (z *LegacyZone) Validate() error {
	if strings.TrimSpace(z.Name) == "" {
		return fmt.Errorf("%w: zone name is required", ErrValidation)
	}
	if z.Mode != ModeAuto && z.Mode != ModeManual {
		return fmt.Errorf("%w: mode must be auto or manual", ErrValidation)
	}
	if z.P1DurationSec < 0 || z.P2DurationSec < 0 {
		return fmt.Errorf("%w: durations must be non-negative", ErrValidation)
	}
	if z.P2EventCount < 0 {
		return fmt.Errorf("%w: p2_event_count must be non-negative", ErrValidation)
	}
	return nil
}

// Validate checks the settings values. All three are operational timings:
// the two delays may be zero, the scheduler interval may not.
func (s *SystemSettings) Validate() error {
	if s.PumpStartupDelaySeconds < 0 {
		return fmt.Errorf("%w: pump_startup_delay_seconds must be non-negative", ErrValidation)
	}
	if s.ZoneSwitchDelaySeconds < 0 {
		return fmt.Errorf("%w: zone_switch_delay_seconds must be non-negative", ErrValidation)
	}
	if s.SchedulerIntervalSeconds <= 0 {
		return fmt.Errorf("%w: scheduler_interval_seconds must be greater than zero", ErrValidation)
	}
	return nil
}
