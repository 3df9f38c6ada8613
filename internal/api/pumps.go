package api

import (
	"encoding/json"
	"net/http"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// handleListPumps returns all pumps.
func (s *Server) handleListPumps(w http.ResponseWriter, r *http.Request) {
	pumps, err := s.repo.ListPumps(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list pumps")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pumps": pumps, "count": len(pumps)})
}

// handleGetPump returns a single pump by ID.
func (s *Server) handleGetPump(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid pump id")
		return
	}

	pump, err := s.repo.GetPump(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get pump")
		return
	}
	writeJSON(w, http.StatusOK, pump)
}

// handleCreatePump creates a new pump.
func (s *Server) handleCreatePump(w http.ResponseWriter, r *http.Request) {
	var pump grow.Pump
	if err := json.NewDecoder(r.Body).Decode(&pump); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.repo.CreatePump(r.Context(), &pump); err != nil {
		writeRepoError(w, err, "failed to create pump")
		return
	}
	writeJSON(w, http.StatusCreated, pump)
}

// handleUpdatePump replaces a pump's fields.
func (s *Server) handleUpdatePump(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid pump id")
		return
	}

	existing, err := s.repo.GetPump(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get pump")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id

	if err := s.repo.UpdatePump(r.Context(), existing); err != nil {
		writeRepoError(w, err, "failed to update pump")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeletePump removes a pump and its zones.
func (s *Server) handleDeletePump(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid pump id")
		return
	}

	if err := s.repo.DeletePump(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to delete pump")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListPumpZones returns the zones belonging to a pump.
func (s *Server) handleListPumpZones(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid pump id")
		return
	}

	if _, err := s.repo.GetPump(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to get pump")
		return
	}
	zones, err := s.repo.ListZonesByPump(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to list zones")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": zones, "count": len(zones)})
}

// handlePumpStatus returns the pump's live queue status.
func (s *Server) handlePumpStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid pump id")
		return
	}

	if _, err := s.repo.GetPump(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to get pump")
		return
	}
	writeJSON(w, http.StatusOK, s.queue.Status(id))
}
