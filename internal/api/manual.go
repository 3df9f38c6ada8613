package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/engine"
)

// manualRunRequest is the body for POST /manual/run.
type manualRunRequest struct {
	ZoneID          int64 `json:"zone_id"`
	DurationSeconds int   `json:"duration_seconds"`
}

// manualRunResponse describes the queued job.
type manualRunResponse struct {
	JobID           string    `json:"job_id"`
	PumpID          int64     `json:"pump_id"`
	ZoneID          int64     `json:"zone_id"`
	ZoneName        string    `json:"zone_name"`
	DurationSeconds int       `json:"duration_seconds"`
	QueuePosition   int       `json:"queue_position"`
	ScheduledTime   time.Time `json:"scheduled_time"`
}

// handleManualRun queues an immediate watering job for one zone. The job
// takes its place at the back of the pump's queue; 202 means accepted, not
// running.
func (s *Server) handleManualRun(w http.ResponseWriter, r *http.Request) {
	var req manualRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DurationSeconds <= 0 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "duration_seconds must be positive")
		return
	}

	zone, pump, err := s.repo.GetZoneWithPump(r.Context(), req.ZoneID)
	if err != nil {
		writeRepoError(w, err, "failed to get zone")
		return
	}
	if !zone.Enabled {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "zone is disabled")
		return
	}

	now := time.Now()
	job := engine.NewJob(zone, req.DurationSeconds, now)
	position, err := s.queue.Enqueue(*pump, job)
	if err != nil {
		if errors.Is(err, engine.ErrPumpDisabled) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "pump is disabled")
			return
		}
		writeInternalError(w, "failed to queue job")
		return
	}

	writeJSON(w, http.StatusAccepted, manualRunResponse{
		JobID:           job.ID,
		PumpID:          pump.ID,
		ZoneID:          zone.ID,
		ZoneName:        zone.Name,
		DurationSeconds: req.DurationSeconds,
		QueuePosition:   position,
		ScheduledTime:   now,
	})
}

// manualStopRequest is the body for POST /manual/stop.
type manualStopRequest struct {
	PumpID int64 `json:"pump_id"`
}

// manualStopResponse reports the emergency stop outcome. StoppedJob names
// the zone of a job that was mid-execution and allowed to finish; queued
// jobs are simply discarded.
type manualStopResponse struct {
	PumpID      int64   `json:"pump_id"`
	ClearedJobs int     `json:"cleared_jobs"`
	StoppedJob  *string `json:"stopped_job,omitempty"`
}

// handleManualStop clears a pump's job queue.
func (s *Server) handleManualStop(w http.ResponseWriter, r *http.Request) {
	var req manualStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if _, err := s.repo.GetPump(r.Context(), req.PumpID); err != nil {
		writeRepoError(w, err, "failed to get pump")
		return
	}

	cleared, inFlight := s.queue.EmergencyStop(req.PumpID)
	writeJSON(w, http.StatusOK, manualStopResponse{
		PumpID:      req.PumpID,
		ClearedJobs: cleared,
		StoppedJob:  inFlight,
	})
}
