package hass

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/config"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(config.HomeAssistantConfig{
		BaseURL:    srv.URL,
		Token:      "test-token",
		Timeout:    5,
		MaxRetries: 3,
		RetryDelay: 0, // no backoff in tests
	}, logging.Default())
	return client, srv
}

func TestGetState(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/states/switch.zone_1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		json.NewEncoder(w).Encode(EntityState{ //nolint:errcheck
			EntityID: "switch.zone_1",
			State:    "off",
			Attributes: map[string]any{
				"friendly_name": "Zone 1",
			},
		})
	}))

	state, err := client.GetState(context.Background(), "switch.zone_1")
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.State != "off" {
		t.Errorf("expected state off, got %s", state.State)
	}
	if state.FriendlyName() != "Zone 1" {
		t.Errorf("expected friendly name Zone 1, got %s", state.FriendlyName())
	}
}

func TestGetStateNotFound(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetState(context.Background(), "switch.missing")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("not-found should not be retried, got %d calls", n)
	}
}

func TestRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetState(context.Background(), "switch.zone_1")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if n := calls.Load(); n != 4 {
		t.Errorf("expected 1 initial + 3 retries = 4 calls, got %d", n)
	}
}

func TestRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(EntityState{EntityID: "switch.zone_1", State: "on"}) //nolint:errcheck
	}))

	state, err := client.GetState(context.Background(), "switch.zone_1")
	if err != nil {
		t.Fatalf("expected recovery on third attempt: %v", err)
	}
	if state.State != "on" {
		t.Errorf("expected state on, got %s", state.State)
	}
}

func TestTurnOnServiceCall(t *testing.T) {
	tests := []struct {
		name     string
		entityID string
		wantPath string
	}{
		{"switch entity", "switch.zone_1", "/services/switch/turn_on"},
		{"input boolean entity", "input_boolean.pump_lock", "/services/input_boolean/turn_on"},
		{"bare entity defaults to switch", "zone_1", "/services/switch/turn_on"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotBody map[string]any
			client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
				w.WriteHeader(http.StatusOK)
			}))

			if err := client.TurnOn(context.Background(), tt.entityID); err != nil {
				t.Fatalf("TurnOn failed: %v", err)
			}
			if gotPath != tt.wantPath {
				t.Errorf("expected path %s, got %s", tt.wantPath, gotPath)
			}
			if gotBody["entity_id"] != tt.entityID {
				t.Errorf("expected entity_id %s, got %v", tt.entityID, gotBody["entity_id"])
			}
		})
	}
}

func TestTurnOffServiceCall(t *testing.T) {
	var gotPath string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.TurnOff(context.Background(), "switch.zone_1"); err != nil {
		t.Fatalf("TurnOff failed: %v", err)
	}
	if gotPath != "/services/switch/turn_off" {
		t.Errorf("unexpected path: %s", gotPath)
	}
}

func TestListEntitiesFilter(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]EntityState{ //nolint:errcheck
			{EntityID: "switch.zone_1", State: "off"},
			{EntityID: "switch.zone_2", State: "on"},
			{EntityID: "light.kitchen", State: "off"},
			{EntityID: "input_boolean.pump_lock", State: "off"},
		})
	}))

	entities, err := client.ListEntities(context.Background(), "switch")
	if err != nil {
		t.Fatalf("ListEntities failed: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 switch entities, got %d", len(entities))
	}
	for _, e := range entities {
		if e.EntityID != "switch.zone_1" && e.EntityID != "switch.zone_2" {
			t.Errorf("unexpected entity in filtered list: %s", e.EntityID)
		}
	}

	all, err := client.ListEntities(context.Background(), "")
	if err != nil {
		t.Fatalf("ListEntities failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 entities unfiltered, got %d", len(all))
	}
}

func TestContextCancellation(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetState(ctx, "switch.zone_1")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
