package api

import (
	"encoding/json"
	"net/http"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// handleGetSettings returns the runtime engine settings singleton.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.repo.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings replaces the runtime engine settings. The evaluator
// and the queue processor re-read them, so changes apply without restart.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	existing, err := s.repo.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, "failed to get settings")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.repo.UpdateSettings(r.Context(), existing); err != nil {
		writeRepoError(w, err, "failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleGetGlobalSettings returns the global timing entity references.
func (s *Server) handleGetGlobalSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.repo.GetGlobalSettings(r.Context())
	if err != nil {
		writeInternalError(w, "failed to get global settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateGlobalSettings replaces the global timing entity references.
func (s *Server) handleUpdateGlobalSettings(w http.ResponseWriter, r *http.Request) {
	var settings grow.GlobalSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.repo.UpdateGlobalSettings(r.Context(), &settings); err != nil {
		writeRepoError(w, err, "failed to update global settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleListEntities proxies Home Assistant entity discovery, optionally
// filtered by domain prefix (?prefix=switch).
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	if s.hass == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "home assistant is not configured")
		return
	}

	entities, err := s.hass.ListEntities(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeRepoError(w, err, "failed to list entities")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities, "count": len(entities)})
}
