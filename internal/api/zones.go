package api

import (
	"encoding/json"
	"net/http"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// handleListZones returns all zones.
func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.repo.ListZones(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list zones")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": zones, "count": len(zones)})
}

// handleGetZone returns a single zone by ID.
func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid zone id")
		return
	}

	zone, err := s.repo.GetZone(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get zone")
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

// handleCreateZone creates a new zone.
func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	var zone grow.Zone
	if err := json.NewDecoder(r.Body).Decode(&zone); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.repo.CreateZone(r.Context(), &zone); err != nil {
		writeRepoError(w, err, "failed to create zone")
		return
	}
	writeJSON(w, http.StatusCreated, zone)
}

// handleUpdateZone replaces a zone's fields.
func (s *Server) handleUpdateZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid zone id")
		return
	}

	existing, err := s.repo.GetZone(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get zone")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id

	if err := s.repo.UpdateZone(r.Context(), existing); err != nil {
		writeRepoError(w, err, "failed to update zone")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteZone removes a zone.
func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid zone id")
		return
	}

	if err := s.repo.DeleteZone(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to delete zone")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
