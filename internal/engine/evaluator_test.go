package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/hass"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
)

type fakeStore struct {
	rooms    []grow.Room
	events   map[int64][]grow.WaterEvent
	zones    map[int64]*grow.Zone
	pumps    map[int64]*grow.Pump
	interval int
}

func (f *fakeStore) ListEnabledRooms(context.Context) ([]grow.Room, error) {
	return f.rooms, nil
}

func (f *fakeStore) ListEnabledEventsForRoom(_ context.Context, roomID int64) ([]grow.WaterEvent, error) {
	return f.events[roomID], nil
}

func (f *fakeStore) GetZoneWithPump(_ context.Context, zoneID int64) (*grow.Zone, *grow.Pump, error) {
	zone, ok := f.zones[zoneID]
	if !ok {
		return nil, nil, grow.ErrZoneNotFound
	}
	return zone, f.pumps[zone.PumpID], nil
}

func (f *fakeStore) GetSettings(context.Context) (*grow.SystemSettings, error) {
	interval := f.interval
	if interval == 0 {
		interval = 60
	}
	return &grow.SystemSettings{
		PumpStartupDelaySeconds:  5,
		ZoneSwitchDelaySeconds:   2,
		SchedulerIntervalSeconds: interval,
	}, nil
}

type enqueued struct {
	pump grow.Pump
	job  *ActuationJob
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []enqueued
}

func (f *fakeEnqueuer) Enqueue(pump grow.Pump, job *ActuationJob) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, enqueued{pump: pump, job: job})
	return len(f.jobs), nil
}

func (f *fakeEnqueuer) snapshot() []enqueued {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]enqueued(nil), f.jobs...)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// evalFixture builds one room with one pump and one enabled zone.
func evalFixture() *fakeStore {
	return &fakeStore{
		rooms: []grow.Room{{
			ID:             1,
			Name:           "Veg Room",
			LightsOnEntity: strPtr("input_datetime.veg_lights_on"),
			Enabled:        true,
		}},
		events: map[int64][]grow.WaterEvent{},
		zones: map[int64]*grow.Zone{
			10: {ID: 10, PumpID: 5, Name: "Bench A", SwitchEntity: "switch.bench_a", Enabled: true},
		},
		pumps: map[int64]*grow.Pump{
			5: {ID: 5, RoomID: 1, Name: "Main Pump", LockEntity: "input_boolean.main_pump_lock", Enabled: true},
		},
	}
}

func p2Event(id int64, timeOfDay string, runSeconds int, zoneIDs ...int64) grow.WaterEvent {
	event := grow.WaterEvent{
		ID:         id,
		RoomID:     1,
		Type:       grow.EventP2,
		Name:       "midday feed",
		TimeOfDay:  strPtr(timeOfDay),
		RunSeconds: runSeconds,
		Enabled:    true,
	}
	for _, zoneID := range zoneIDs {
		event.Zones = append(event.Zones, grow.Zone{ID: zoneID})
	}
	return event
}

func newTestEvaluator(store *fakeStore, actuator Actuator, queue *fakeEnqueuer) *Evaluator {
	return NewEvaluator(store, actuator, queue, logging.Default())
}

func TestEvaluateTickP2Due(t *testing.T) {
	store := evalFixture()
	store.events[1] = []grow.WaterEvent{p2Event(100, "12:00", 180, 10)}
	queue := &fakeEnqueuer{}
	e := newTestEvaluator(store, newFakeActuator(), queue)

	now := time.Date(2024, 1, 15, 12, 0, 10, 0, time.UTC)
	e.EvaluateTick(context.Background(), now)

	jobs := queue.snapshot()
	if len(jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs))
	}
	got := jobs[0]
	if got.pump.ID != 5 {
		t.Errorf("pump ID = %d, want 5", got.pump.ID)
	}
	if got.job.ZoneID != 10 || got.job.SwitchEntity != "switch.bench_a" {
		t.Errorf("job zone = %d/%s, want 10/switch.bench_a", got.job.ZoneID, got.job.SwitchEntity)
	}
	if got.job.DurationSeconds != 180 {
		t.Errorf("duration = %d, want 180", got.job.DurationSeconds)
	}
	wantAt := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if !got.job.ScheduledAt.Equal(wantAt) {
		t.Errorf("scheduled at %v, want %v", got.job.ScheduledAt, wantAt)
	}
}

func TestEvaluateTickP2OutsideWindow(t *testing.T) {
	store := evalFixture()
	store.events[1] = []grow.WaterEvent{p2Event(100, "12:00", 180, 10)}
	queue := &fakeEnqueuer{}
	e := newTestEvaluator(store, newFakeActuator(), queue)

	// Interval 60s means a 30s window either side; 5 minutes is well out.
	now := time.Date(2024, 1, 15, 12, 5, 0, 0, time.UTC)
	e.EvaluateTick(context.Background(), now)

	if jobs := queue.snapshot(); len(jobs) != 0 {
		t.Fatalf("enqueued %d jobs outside the due window, want 0", len(jobs))
	}
}

func TestEvaluateTickAtMostOncePerOccurrence(t *testing.T) {
	store := evalFixture()
	store.events[1] = []grow.WaterEvent{p2Event(100, "12:00", 180, 10)}
	queue := &fakeEnqueuer{}
	e := newTestEvaluator(store, newFakeActuator(), queue)
	ctx := context.Background()

	// Both ticks land inside the same occurrence's window.
	e.EvaluateTick(ctx, time.Date(2024, 1, 15, 11, 59, 50, 0, time.UTC))
	e.EvaluateTick(ctx, time.Date(2024, 1, 15, 12, 0, 10, 0, time.UTC))

	if jobs := queue.snapshot(); len(jobs) != 1 {
		t.Fatalf("enqueued %d jobs for one occurrence, want 1", len(jobs))
	}

	// The next day's occurrence is a fresh one and fires again.
	e.EvaluateTick(ctx, time.Date(2024, 1, 16, 12, 0, 10, 0, time.UTC))
	if jobs := queue.snapshot(); len(jobs) != 2 {
		t.Fatalf("enqueued %d jobs across two days, want 2", len(jobs))
	}
}

func TestEvaluateTickP1FromLightsEntity(t *testing.T) {
	store := evalFixture()
	store.events[1] = []grow.WaterEvent{{
		ID:           200,
		RoomID:       1,
		Type:         grow.EventP1,
		Name:         "wake feed",
		DelayMinutes: intPtr(30),
		RunSeconds:   120,
		Enabled:      true,
		Zones:        []grow.Zone{{ID: 10}},
	}}
	actuator := newFakeActuator()
	actuator.states["input_datetime.veg_lights_on"] = "06:00"
	queue := &fakeEnqueuer{}
	e := newTestEvaluator(store, actuator, queue)

	// Lights on 06:00 plus 30 minutes puts the occurrence at 06:30.
	now := time.Date(2024, 1, 15, 6, 30, 5, 0, time.UTC)
	e.EvaluateTick(context.Background(), now)

	jobs := queue.snapshot()
	if len(jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs))
	}
	wantAt := time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC)
	if !jobs[0].job.ScheduledAt.Equal(wantAt) {
		t.Errorf("scheduled at %v, want %v", jobs[0].job.ScheduledAt, wantAt)
	}
}

func TestEvaluateTickP1EntityReadFailure(t *testing.T) {
	store := evalFixture()
	store.events[1] = []grow.WaterEvent{
		{
			ID:           200,
			RoomID:       1,
			Type:         grow.EventP1,
			Name:         "wake feed",
			DelayMinutes: intPtr(30),
			RunSeconds:   120,
			Enabled:      true,
			Zones:        []grow.Zone{{ID: 10}},
		},
		p2Event(100, "06:30", 180, 10),
	}
	actuator := newFakeActuator()
	actuator.stateErr["input_datetime.veg_lights_on"] = hass.ErrServiceUnavailable
	queue := &fakeEnqueuer{}
	e := newTestEvaluator(store, actuator, queue)

	now := time.Date(2024, 1, 15, 6, 30, 5, 0, time.UTC)
	e.EvaluateTick(context.Background(), now)

	// The broken event is skipped; its due sibling still fires.
	jobs := queue.snapshot()
	if len(jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs))
	}
	if jobs[0].job.DurationSeconds != 180 {
		t.Errorf("fired event duration = %d, want the sibling's 180", jobs[0].job.DurationSeconds)
	}
}

func TestEvaluateTickSkipReasons(t *testing.T) {
	tests := []struct {
		name  string
		event grow.WaterEvent
	}{
		{
			name: "p1 missing delay",
			event: grow.WaterEvent{
				ID: 201, RoomID: 1, Type: grow.EventP1, Name: "no delay",
				RunSeconds: 60, Enabled: true, Zones: []grow.Zone{{ID: 10}},
			},
		},
		{
			name: "p2 missing time of day",
			event: grow.WaterEvent{
				ID: 202, RoomID: 1, Type: grow.EventP2, Name: "no time",
				RunSeconds: 60, Enabled: true, Zones: []grow.Zone{{ID: 10}},
			},
		},
		{
			name: "p2 unparsable time of day",
			event: grow.WaterEvent{
				ID: 203, RoomID: 1, Type: grow.EventP2, Name: "bad time",
				TimeOfDay: strPtr("25:99"), RunSeconds: 60, Enabled: true,
				Zones: []grow.Zone{{ID: 10}},
			},
		},
		{
			name: "unknown event type",
			event: grow.WaterEvent{
				ID: 204, RoomID: 1, Type: "p3", Name: "mystery",
				RunSeconds: 60, Enabled: true, Zones: []grow.Zone{{ID: 10}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := evalFixture()
			store.events[1] = []grow.WaterEvent{tt.event}
			queue := &fakeEnqueuer{}
			e := newTestEvaluator(store, newFakeActuator(), queue)

			e.EvaluateTick(context.Background(), time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

			if jobs := queue.snapshot(); len(jobs) != 0 {
				t.Fatalf("enqueued %d jobs for an unevaluable event, want 0", len(jobs))
			}
		})
	}
}

func TestEvaluateTickDisabledZoneAndPump(t *testing.T) {
	store := evalFixture()
	store.zones[11] = &grow.Zone{ID: 11, PumpID: 5, Name: "Bench B", SwitchEntity: "switch.bench_b", Enabled: false}
	store.zones[12] = &grow.Zone{ID: 12, PumpID: 6, Name: "Bench C", SwitchEntity: "switch.bench_c", Enabled: true}
	store.pumps[6] = &grow.Pump{ID: 6, RoomID: 1, Name: "Backup Pump", LockEntity: "input_boolean.backup_lock", Enabled: false}
	store.events[1] = []grow.WaterEvent{p2Event(100, "12:00", 180, 10, 11, 12)}
	queue := &fakeEnqueuer{}
	e := newTestEvaluator(store, newFakeActuator(), queue)

	e.EvaluateTick(context.Background(), time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	jobs := queue.snapshot()
	if len(jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1 (disabled zone and pump skipped)", len(jobs))
	}
	if jobs[0].job.ZoneID != 10 {
		t.Errorf("fired zone = %d, want 10", jobs[0].job.ZoneID)
	}
}

func TestEvaluateTickNoAssignedZones(t *testing.T) {
	store := evalFixture()
	store.events[1] = []grow.WaterEvent{p2Event(100, "12:00", 180)}
	queue := &fakeEnqueuer{}
	e := newTestEvaluator(store, newFakeActuator(), queue)

	e.EvaluateTick(context.Background(), time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	if jobs := queue.snapshot(); len(jobs) != 0 {
		t.Fatalf("enqueued %d jobs for a zoneless event, want 0", len(jobs))
	}
}

func TestDueWindow(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     time.Duration
	}{
		{60 * time.Second, 30 * time.Second},
		{120 * time.Second, 60 * time.Second},
		{4 * time.Second, 5 * time.Second},
		{time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := dueWindow(tt.interval); got != tt.want {
			t.Errorf("dueWindow(%v) = %v, want %v", tt.interval, got, tt.want)
		}
	}
}
