package api

import (
	"encoding/json"
	"net/http"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// handleListLegacyZones returns all legacy schedule zones.
func (s *Server) handleListLegacyZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.repo.ListLegacyZones(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list legacy zones")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": zones, "count": len(zones)})
}

// handleGetLegacyZone returns a single legacy zone by ID.
func (s *Server) handleGetLegacyZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid zone id")
		return
	}

	zone, err := s.repo.GetLegacyZone(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get legacy zone")
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

// handleCreateLegacyZone creates a legacy zone. Manual schedule lists are
// validated here so a bad line is rejected at save time, not at the next
// schedule calculation.
func (s *Server) handleCreateLegacyZone(w http.ResponseWriter, r *http.Request) {
	var zone grow.LegacyZone
	if err := json.NewDecoder(r.Body).Decode(&zone); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := validateManualLists(&zone); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	if err := s.repo.CreateLegacyZone(r.Context(), &zone); err != nil {
		writeRepoError(w, err, "failed to create legacy zone")
		return
	}
	writeJSON(w, http.StatusCreated, zone)
}

// handleUpdateLegacyZone replaces a legacy zone's fields.
func (s *Server) handleUpdateLegacyZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid zone id")
		return
	}

	existing, err := s.repo.GetLegacyZone(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get legacy zone")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id

	if err := validateManualLists(existing); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	if err := s.repo.UpdateLegacyZone(r.Context(), existing); err != nil {
		writeRepoError(w, err, "failed to update legacy zone")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteLegacyZone removes a legacy zone.
func (s *Server) handleDeleteLegacyZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid zone id")
		return
	}

	if err := s.repo.DeleteLegacyZone(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to delete legacy zone")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
