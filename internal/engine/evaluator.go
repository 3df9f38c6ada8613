package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
	"github.com/goatboynz/pro-irrigation-addon/internal/schedule"
)

// Store is the slice of the repository the evaluator reads each tick.
// grow.Repository satisfies it.
type Store interface {
	ListEnabledRooms(ctx context.Context) ([]grow.Room, error)
	ListEnabledEventsForRoom(ctx context.Context, roomID int64) ([]grow.WaterEvent, error)
	GetZoneWithPump(ctx context.Context, zoneID int64) (*grow.Zone, *grow.Pump, error)
	GetSettings(ctx context.Context) (*grow.SystemSettings, error)
}

// Enqueuer accepts jobs for a pump's queue. *QueueProcessor satisfies it.
type Enqueuer interface {
	Enqueue(pump grow.Pump, job *ActuationJob) (int, error)
}

// defaultInterval is used when the settings row is unreadable.
const defaultInterval = 60 * time.Second

// firedRetention is how long last-fired occurrences are remembered.
// Occurrences repeat daily, so anything older than two days is dead weight.
const firedRetention = 48 * time.Hour

// Evaluator decides which water events are due on each tick and turns
// them into actuation jobs. Failures evaluating one event never abort
// sibling events or rooms; each outcome is an explicit per-event result.
type Evaluator struct {
	store    Store
	actuator Actuator
	queue    Enqueuer
	logger   *logging.Logger

	mu        sync.Mutex
	lastFired map[int64]time.Time // event id -> last fired occurrence

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEvaluator creates an evaluator.
func NewEvaluator(store Store, actuator Actuator, queue Enqueuer, logger *logging.Logger) *Evaluator {
	return &Evaluator{
		store:     store,
		actuator:  actuator,
		queue:     queue,
		logger:    logger.With("component", "evaluator"),
		lastFired: make(map[int64]time.Time),
	}
}

// Start launches the evaluation loop. The tick interval comes from the
// runtime settings and is re-read after every tick, so interval changes
// apply without a restart.
func (e *Evaluator) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.run(ctx)
}

// Close stops the evaluation loop.
func (e *Evaluator) Close() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.wg.Wait()
	e.logger.Info("evaluator stopped")
}

func (e *Evaluator) run(ctx context.Context) {
	defer e.wg.Done()

	interval := e.interval(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	e.logger.Info("evaluator started", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.EvaluateTick(ctx, time.Now())
			if next := e.interval(ctx); next != interval {
				interval = next
				ticker.Reset(interval)
				e.logger.Info("scheduler interval updated", "interval", interval.String())
			}
		}
	}
}

// interval reads the configured scheduler interval, falling back to the
// default when the settings row is unreadable.
func (e *Evaluator) interval(ctx context.Context) time.Duration {
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		e.logger.Warn("settings read failed, using default interval", "error", err)
		return defaultInterval
	}
	if settings.SchedulerIntervalSeconds <= 0 {
		return defaultInterval
	}
	return time.Duration(settings.SchedulerIntervalSeconds) * time.Second
}

// dueWindow is half the evaluator interval, floored at five seconds: wide
// enough that tick jitter cannot skip an occurrence, narrow enough that
// two consecutive ticks cannot both match.
func dueWindow(interval time.Duration) time.Duration {
	w := interval / 2
	if w < 5*time.Second {
		w = 5 * time.Second
	}
	return w
}

// evalResult is the explicit outcome of evaluating one event: due with a
// scheduled occurrence, not due, or skipped with a reason. A skip is local
// to the event and never aborts siblings.
type evalResult struct {
	due       bool
	scheduled time.Time
	skip      string
}

// EvaluateTick runs one evaluation pass at the given time. Exported so
// tests can drive the evaluator without the ticker.
func (e *Evaluator) EvaluateTick(ctx context.Context, now time.Time) {
	window := dueWindow(e.interval(ctx))

	rooms, err := e.store.ListEnabledRooms(ctx)
	if err != nil {
		e.logger.Error("loading rooms failed", "error", err)
		return
	}

	for _, room := range rooms {
		events, err := e.store.ListEnabledEventsForRoom(ctx, room.ID)
		if err != nil {
			e.logger.Error("loading events failed", "room_id", room.ID, "error", err)
			continue
		}

		for _, event := range events {
			res := e.evaluateEvent(ctx, room, event, now, window)
			switch {
			case res.skip != "":
				e.logger.Warn("event skipped this tick",
					"room_id", room.ID,
					"event_id", event.ID,
					"event_name", event.Name,
					"reason", res.skip,
				)
			case res.due:
				e.fire(ctx, event, res.scheduled)
			}
		}
	}

	e.pruneFired(now)
}

func (e *Evaluator) evaluateEvent(ctx context.Context, room grow.Room, event grow.WaterEvent, now time.Time, window time.Duration) evalResult {
	switch event.Type {
	case grow.EventP1:
		return e.evaluateP1(ctx, room, event, now, window)
	case grow.EventP2:
		return evaluateP2(event, now, window)
	default:
		return evalResult{skip: fmt.Sprintf("unknown event type %q", event.Type)}
	}
}

// evaluateP1 computes a P1 occurrence from the room's lights-on entity
// plus the event's delay. An unreadable or unparsable entity skips the
// event for this tick; it is not retried mid-tick.
func (e *Evaluator) evaluateP1(ctx context.Context, room grow.Room, event grow.WaterEvent, now time.Time, window time.Duration) evalResult {
	if event.DelayMinutes == nil {
		return evalResult{skip: "p1 event missing delay_minutes"}
	}
	if room.LightsOnEntity == nil {
		return evalResult{skip: "room missing lights_on_entity"}
	}

	state, err := e.actuator.GetState(ctx, *room.LightsOnEntity)
	if err != nil {
		return evalResult{skip: fmt.Sprintf("lights-on entity read failed: %v", err)}
	}
	lightsOn, err := schedule.ParseClock(state.State)
	if err != nil {
		return evalResult{skip: fmt.Sprintf("lights-on value %q unparsable", state.State)}
	}

	scheduled := lightsOn.On(now).Add(time.Duration(*event.DelayMinutes) * time.Minute)
	return dueTest(scheduled, now, window)
}

// evaluateP2 computes a P2 occurrence from the event's fixed time of day.
// No external read is required.
func evaluateP2(event grow.WaterEvent, now time.Time, window time.Duration) evalResult {
	if event.TimeOfDay == nil {
		return evalResult{skip: "p2 event missing time_of_day"}
	}
	clock, err := schedule.ParseClock(*event.TimeOfDay)
	if err != nil {
		return evalResult{skip: fmt.Sprintf("time_of_day %q unparsable", *event.TimeOfDay)}
	}
	return dueTest(clock.On(now), now, window)
}

// dueTest applies the due-ness window: the event fires when now is within
// the window of its scheduled occurrence.
func dueTest(scheduled, now time.Time, window time.Duration) evalResult {
	diff := now.Sub(scheduled)
	if diff < 0 {
		diff = -diff
	}
	return evalResult{due: diff < window, scheduled: scheduled}
}

// fire enqueues one job per enabled assigned zone whose pump is also
// enabled. The occurrence is recorded first so a second tick matching the
// same occurrence fires nothing.
func (e *Evaluator) fire(ctx context.Context, event grow.WaterEvent, scheduled time.Time) {
	if !e.markFired(event.ID, scheduled) {
		return
	}

	if len(event.Zones) == 0 {
		e.logger.Warn("due event has no assigned zones", "event_id", event.ID, "event_name", event.Name)
		return
	}

	for _, assigned := range event.Zones {
		zone, pump, err := e.store.GetZoneWithPump(ctx, assigned.ID)
		if err != nil {
			e.logger.Error("loading zone failed", "event_id", event.ID, "zone_id", assigned.ID, "error", err)
			continue
		}
		if !zone.Enabled || !pump.Enabled {
			e.logger.Debug("skipping disabled zone or pump", "zone_id", zone.ID, "pump_id", pump.ID)
			continue
		}

		job := NewJob(zone, event.RunSeconds, scheduled)
		if _, err := e.queue.Enqueue(*pump, job); err != nil {
			e.logger.Error("enqueue failed", "event_id", event.ID, "zone_id", zone.ID, "error", err)
			continue
		}
	}
}

// markFired records an occurrence, returning false when the same
// occurrence already fired. This is the at-most-once guard for ticks that
// both land inside one due window.
func (e *Evaluator) markFired(eventID int64, occurrence time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastFired[eventID]; ok && last.Equal(occurrence) {
		return false
	}
	e.lastFired[eventID] = occurrence
	return true
}

// pruneFired drops remembered occurrences old enough to be unreachable.
func (e *Evaluator) pruneFired(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, occurrence := range e.lastFired {
		if now.Sub(occurrence) > firedRetention {
			delete(e.lastFired, id)
		}
	}
}
