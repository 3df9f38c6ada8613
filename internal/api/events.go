package api

import (
	"encoding/json"
	"net/http"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// handleListEvents returns all water events with their assigned zones.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.repo.ListEvents(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// handleGetEvent returns a single water event by ID.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, event)
}

// handleCreateEvent creates a new water event.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event grow.WaterEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.repo.CreateEvent(r.Context(), &event); err != nil {
		writeRepoError(w, err, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// handleUpdateEvent replaces a water event's fields. Zone assignments are
// managed separately via PUT /events/{id}/zones.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid event id")
		return
	}

	existing, err := s.repo.GetEvent(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get event")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id

	if err := s.repo.UpdateEvent(r.Context(), existing); err != nil {
		writeRepoError(w, err, "failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteEvent removes a water event and its zone assignments.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid event id")
		return
	}

	if err := s.repo.DeleteEvent(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setEventZonesRequest is the body for PUT /events/{id}/zones.
type setEventZonesRequest struct {
	ZoneIDs []int64 `json:"zone_ids"`
}

// handleSetEventZones replaces an event's zone assignments atomically.
func (s *Server) handleSetEventZones(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid event id")
		return
	}

	var req setEventZonesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.repo.SetEventZones(r.Context(), id, req.ZoneIDs); err != nil {
		writeRepoError(w, err, "failed to assign zones")
		return
	}

	event, err := s.repo.GetEvent(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}
