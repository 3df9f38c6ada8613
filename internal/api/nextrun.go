package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/schedule"
)

// nextRunResponse is the shared shape for next-run queries. NextRun is
// null when no future run could be determined; Explanation always says why
// or when.
type nextRunResponse struct {
	NextRun     *time.Time `json:"next_run"`
	Explanation string     `json:"explanation"`
}

// validateManualLists checks a legacy zone's manual schedule lists at save
// time so format errors surface immediately with line numbers.
func validateManualLists(zone *grow.LegacyZone) error {
	if zone.Mode != grow.ModeManual {
		return nil
	}
	if err := schedule.ValidateManualFormat(zone.P1ManualList); err != nil {
		return fmt.Errorf("p1 manual list: %w", err)
	}
	if err := schedule.ValidateManualFormat(zone.P2ManualList); err != nil {
		return fmt.Errorf("p2 manual list: %w", err)
	}
	return nil
}

// handleZoneNextRun returns the next scheduled run for a legacy zone's
// schedule, using the current global light timing for auto mode.
func (s *Server) handleZoneNextRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid zone id")
		return
	}

	zone, err := s.repo.GetLegacyZone(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get zone schedule")
		return
	}

	if !zone.Enabled {
		writeJSON(w, http.StatusOK, nextRunResponse{Explanation: "zone schedule is disabled"})
		return
	}

	var timings *schedule.TimingSettings
	if zone.Mode == grow.ModeAuto {
		if s.timing == nil {
			writeJSON(w, http.StatusOK, nextRunResponse{Explanation: "light timing source is not configured"})
			return
		}
		timings, err = s.timing.Current(r.Context())
		if err != nil {
			writeRepoError(w, err, "failed to read light timing")
			return
		}
		if timings == nil {
			writeJSON(w, http.StatusOK, nextRunResponse{Explanation: "auto schedule requires lights-on and lights-off entities in global settings"})
			return
		}
	}

	next, err := schedule.NextRun(zone, timings, time.Now())
	if err != nil {
		writeRepoError(w, err, "failed to calculate next run")
		return
	}
	if next == nil {
		writeJSON(w, http.StatusOK, nextRunResponse{Explanation: "no scheduled events for today or tomorrow"})
		return
	}

	writeJSON(w, http.StatusOK, nextRunResponse{
		NextRun:     &next.Time,
		Explanation: fmt.Sprintf("%s event for %d seconds", next.Type, next.DurationSeconds),
	})
}

// handleEventNextRun returns the next occurrence of a water event.
func (s *Server) handleEventNextRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid event id")
		return
	}

	event, err := s.repo.GetEvent(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get event")
		return
	}

	if !event.Enabled {
		writeJSON(w, http.StatusOK, nextRunResponse{Explanation: "event is disabled"})
		return
	}

	resp := s.eventNextRun(r.Context(), event, time.Now())
	writeJSON(w, http.StatusOK, resp)
}

// eventNextRun computes a water event's next occurrence: a fixed clock for
// P2, lights-on plus delay for P1. Occurrences already past roll to the
// next day.
func (s *Server) eventNextRun(ctx context.Context, event *grow.WaterEvent, now time.Time) nextRunResponse {
	switch event.Type {
	case grow.EventP2:
		if event.TimeOfDay == nil {
			return nextRunResponse{Explanation: "event has no time of day configured"}
		}
		clock, err := schedule.ParseClock(*event.TimeOfDay)
		if err != nil {
			return nextRunResponse{Explanation: fmt.Sprintf("time of day %q is not a valid clock", *event.TimeOfDay)}
		}
		next := rollForward(clock.On(now), now)
		return nextRunResponse{
			NextRun:     &next,
			Explanation: fmt.Sprintf("fixed time %s daily", *event.TimeOfDay),
		}

	case grow.EventP1:
		if event.DelayMinutes == nil {
			return nextRunResponse{Explanation: "event has no lights-on delay configured"}
		}
		room, err := s.repo.GetRoom(ctx, event.RoomID)
		if err != nil {
			return nextRunResponse{Explanation: "owning room could not be loaded"}
		}
		if room.LightsOnEntity == nil {
			return nextRunResponse{Explanation: "room has no lights-on entity configured"}
		}
		state, err := s.hass.GetState(ctx, *room.LightsOnEntity)
		if err != nil {
			return nextRunResponse{Explanation: fmt.Sprintf("lights-on entity %s could not be read", *room.LightsOnEntity)}
		}
		lightsOn, err := schedule.ParseClock(state.State)
		if err != nil {
			return nextRunResponse{Explanation: fmt.Sprintf("lights-on entity reports %q, not a clock value", state.State)}
		}
		next := rollForward(lightsOn.On(now).Add(time.Duration(*event.DelayMinutes)*time.Minute), now)
		return nextRunResponse{
			NextRun:     &next,
			Explanation: fmt.Sprintf("%d minutes after lights on (%s)", *event.DelayMinutes, state.State),
		}

	default:
		return nextRunResponse{Explanation: fmt.Sprintf("unknown event type %q", event.Type)}
	}
}

// rollForward moves an occurrence to the next day when it has already
// passed.
func rollForward(occurrence, now time.Time) time.Time {
	if occurrence.Before(now) {
		return occurrence.AddDate(0, 0, 1)
	}
	return occurrence
}
