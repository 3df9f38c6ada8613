package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.Post("/", s.handleCreateRoom)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRoom)
				r.Put("/", s.handleUpdateRoom)
				r.Delete("/", s.handleDeleteRoom)
				r.Get("/pumps", s.handleListRoomPumps)
				r.Get("/events", s.handleListRoomEvents)
			})
		})

		r.Route("/pumps", func(r chi.Router) {
			r.Get("/", s.handleListPumps)
			r.Post("/", s.handleCreatePump)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPump)
				r.Put("/", s.handleUpdatePump)
				r.Delete("/", s.handleDeletePump)
				r.Get("/zones", s.handleListPumpZones)
				r.Get("/status", s.handlePumpStatus)
			})
		})

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", s.handleListZones)
			r.Post("/", s.handleCreateZone)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetZone)
				r.Put("/", s.handleUpdateZone)
				r.Delete("/", s.handleDeleteZone)
				r.Get("/next-run", s.handleZoneNextRun)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEvent)
				r.Put("/", s.handleUpdateEvent)
				r.Delete("/", s.handleDeleteEvent)
				r.Put("/zones", s.handleSetEventZones)
				r.Get("/next-run", s.handleEventNextRun)
			})
		})

		r.Route("/legacy-zones", func(r chi.Router) {
			r.Get("/", s.handleListLegacyZones)
			r.Post("/", s.handleCreateLegacyZone)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetLegacyZone)
				r.Put("/", s.handleUpdateLegacyZone)
				r.Delete("/", s.handleDeleteLegacyZone)
			})
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleUpdateSettings)
			r.Get("/global", s.handleGetGlobalSettings)
			r.Put("/global", s.handleUpdateGlobalSettings)
		})

		r.Get("/entities", s.handleListEntities)

		r.Post("/manual/run", s.handleManualRun)
		r.Post("/manual/stop", s.handleManualStop)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status, including reachability of
// the Home Assistant API when a client is configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	haStatus := "unconfigured"
	if s.hass != nil {
		haStatus = "ok"
		if err := s.hass.HealthCheck(r.Context()); err != nil {
			haStatus = "unreachable"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"home_assistant": haStatus,
	})
}

// pathID parses the {id} URL parameter as an int64.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
