package api

import (
	"encoding/json"
	"net/http"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// handleListRooms returns all rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.repo.ListRooms(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list rooms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms, "count": len(rooms)})
}

// handleGetRoom returns a single room by ID.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid room id")
		return
	}

	room, err := s.repo.GetRoom(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get room")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleCreateRoom creates a new room.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var room grow.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.repo.CreateRoom(r.Context(), &room); err != nil {
		writeRepoError(w, err, "failed to create room")
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// handleUpdateRoom replaces a room's fields.
func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid room id")
		return
	}

	existing, err := s.repo.GetRoom(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "failed to get room")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // ID cannot be changed

	if err := s.repo.UpdateRoom(r.Context(), existing); err != nil {
		writeRepoError(w, err, "failed to update room")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteRoom removes a room and, via cascade, its pumps, zones and
// events.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid room id")
		return
	}

	if err := s.repo.DeleteRoom(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to delete room")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListRoomPumps returns the pumps belonging to a room.
func (s *Server) handleListRoomPumps(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid room id")
		return
	}

	if _, err := s.repo.GetRoom(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to get room")
		return
	}
	pumps, err := s.repo.ListPumpsByRoom(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to list pumps")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pumps": pumps, "count": len(pumps)})
}

// handleListRoomEvents returns the water events belonging to a room.
func (s *Server) handleListRoomEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "invalid room id")
		return
	}

	if _, err := s.repo.GetRoom(r.Context(), id); err != nil {
		writeRepoError(w, err, "failed to get room")
		return
	}
	events, err := s.repo.ListEventsByRoom(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
