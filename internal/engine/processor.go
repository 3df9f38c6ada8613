package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/hass"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
)

// Actuator is the slice of the Home Assistant client the engine needs:
// read one entity's state and flip switches. *hass.Client satisfies it.
type Actuator interface {
	GetState(ctx context.Context, entityID string) (*hass.EntityState, error)
	TurnOn(ctx context.Context, entityID string) error
	TurnOff(ctx context.Context, entityID string) error
}

// SettingsReader provides the runtime settings singleton. The processor
// re-reads it at job start so delay changes apply without a restart.
type SettingsReader interface {
	GetSettings(ctx context.Context) (*grow.SystemSettings, error)
}

// ProcessorConfig carries the queue processor's timing parameters.
type ProcessorConfig struct {
	Tick          time.Duration
	LockTimeout   time.Duration
	ShutdownGrace time.Duration
}

// pumpState is everything the processor tracks for one pump. The pump
// snapshot is refreshed on every enqueue so entity references stay current.
type pumpState struct {
	pump      grow.Pump
	queue     []*ActuationJob
	active    *ActuationJob
	lockSince time.Time
}

// QueueProcessor owns one FIFO job queue per pump and executes jobs one at
// a time per pump while pumps run concurrently with each other.
//
// All queue state lives behind a single mutex. Only the tick goroutine
// dequeues; enqueue, emergency stop and job completion mutate under the
// same mutex, so completion racing the next tick's scan is safe.
type QueueProcessor struct {
	actuator Actuator
	settings SettingsReader
	notifier Notifier
	logger   *logging.Logger

	tick        time.Duration
	lockTimeout time.Duration
	grace       time.Duration

	mu    sync.Mutex
	pumps map[int64]*pumpState

	cache *statusCache

	cancel context.CancelFunc
	loopWG sync.WaitGroup
	jobWG  sync.WaitGroup
}

// NewQueueProcessor creates a queue processor. The notifier may be nil.
func NewQueueProcessor(actuator Actuator, settings SettingsReader, notifier Notifier, logger *logging.Logger, cfg ProcessorConfig) *QueueProcessor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &QueueProcessor{
		actuator:    actuator,
		settings:    settings,
		notifier:    notifier,
		logger:      logger.With("component", "queue_processor"),
		tick:        cfg.Tick,
		lockTimeout: cfg.LockTimeout,
		grace:       cfg.ShutdownGrace,
		pumps:       make(map[int64]*pumpState),
		cache:       newStatusCache(statusCacheTTL),
	}
}

// Start launches the processor tick loop. Call Close to stop it.
func (p *QueueProcessor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.loopWG.Add(1)
	go p.run(ctx)
	p.logger.Info("queue processor started", "tick", p.tick.String(), "lock_timeout", p.lockTimeout.String())
}

// Close stops the tick loop, cancels in-flight jobs and waits up to the
// shutdown grace period for their cleanup paths to finish.
func (p *QueueProcessor) Close() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.loopWG.Wait()

	done := make(chan struct{})
	go func() {
		p.jobWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("queue processor stopped")
	case <-time.After(p.grace):
		p.logger.Warn("queue processor stopped before all job cleanups finished", "grace", p.grace.String())
	}
}

// Enqueue appends a job to the pump's FIFO queue and returns the new queue
// length. The pump snapshot is stored for lock checks and notifications.
func (p *QueueProcessor) Enqueue(pump grow.Pump, job *ActuationJob) (int, error) {
	if !pump.Enabled {
		return 0, ErrPumpDisabled
	}

	p.mu.Lock()
	ps := p.pumps[pump.ID]
	if ps == nil {
		ps = &pumpState{}
		p.pumps[pump.ID] = ps
	}
	ps.pump = pump
	ps.queue = append(ps.queue, job)
	length := len(ps.queue)
	p.mu.Unlock()

	p.cache.invalidate(pump.ID)
	p.notifier.JobQueued(pump, job, length)
	p.logger.Info("job queued",
		"pump_id", pump.ID,
		"zone_id", job.ZoneID,
		"zone_name", job.ZoneName,
		"duration_seconds", job.DurationSeconds,
		"queue_length", length,
	)
	return length, nil
}

// EmergencyStop discards all queued jobs for a pump. A job already
// mid-execution is never interrupted; its zone name is returned so the
// caller can report what is still running.
func (p *QueueProcessor) EmergencyStop(pumpID int64) (cleared int, inFlight *string) {
	p.mu.Lock()
	ps := p.pumps[pumpID]
	if ps == nil {
		p.mu.Unlock()
		return 0, nil
	}
	cleared = len(ps.queue)
	ps.queue = nil
	var pump grow.Pump
	if ps.active != nil {
		name := ps.active.ZoneName
		inFlight = &name
	}
	pump = ps.pump
	p.mu.Unlock()

	p.cache.invalidate(pumpID)
	p.notifier.QueueCleared(pump, cleared)
	p.logger.Info("emergency stop", "pump_id", pumpID, "cleared_jobs", cleared, "in_flight", inFlight != nil)
	return cleared, inFlight
}

func (p *QueueProcessor) run(ctx context.Context) {
	defer p.loopWG.Done()

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processTick(ctx)
		}
	}
}

// staleLock records a watchdog hit discovered during a tick scan.
type staleLock struct {
	pump    grow.Pump
	job     *ActuationJob
	elapsed time.Duration
}

// processTick scans all pumps once: stale locks are force-released, then
// each idle pump with pending work gets its head job dispatched. External
// reads happen outside the mutex so a slow Home Assistant response never
// stalls enqueues or status queries.
func (p *QueueProcessor) processTick(ctx context.Context) {
	p.mu.Lock()
	var victims []staleLock
	var candidates []grow.Pump
	for _, ps := range p.pumps {
		switch {
		case ps.active != nil:
			if elapsed := time.Since(ps.lockSince); elapsed > p.lockTimeout {
				victims = append(victims, staleLock{pump: ps.pump, job: ps.active, elapsed: elapsed})
				ps.active = nil
				ps.lockSince = time.Time{}
			}
		case len(ps.queue) > 0:
			candidates = append(candidates, ps.pump)
		}
	}
	p.mu.Unlock()

	for _, v := range victims {
		p.forceUnlock(ctx, v)
	}
	for _, pump := range candidates {
		p.dispatch(ctx, pump)
	}
}

// forceUnlock releases a pump whose lock outlived the timeout. The stale
// in-flight record was already discarded under the mutex; this indicates
// a crashed executor or an unresponsive external service.
func (p *QueueProcessor) forceUnlock(ctx context.Context, v staleLock) {
	p.logger.Warn("pump lock timeout, forcing unlock",
		"pump_id", v.pump.ID,
		"pump_name", v.pump.Name,
		"zone_id", v.job.ZoneID,
		"elapsed", v.elapsed.String(),
	)

	if err := p.actuator.TurnOff(ctx, v.pump.LockEntity); err != nil {
		p.logger.Error("forced unlock failed", "pump_id", v.pump.ID, "error", err)
	}
	p.cache.invalidate(v.pump.ID)
	p.notifier.LockTimeout(v.pump, v.elapsed)
}

// dispatch checks a pump's external lock and, if idle, launches its head
// job. A failed lock read leaves the job queued for the next tick.
func (p *QueueProcessor) dispatch(ctx context.Context, pump grow.Pump) {
	state, err := p.actuator.GetState(ctx, pump.LockEntity)
	if err != nil {
		p.logger.Warn("lock state read failed, leaving job queued",
			"pump_id", pump.ID,
			"lock_entity", pump.LockEntity,
			"error", err,
		)
		return
	}
	if isLocked(state.State) {
		return
	}

	p.mu.Lock()
	ps := p.pumps[pump.ID]
	if ps == nil || ps.active != nil || len(ps.queue) == 0 {
		// Queue cleared or another job started while we read the lock.
		p.mu.Unlock()
		return
	}
	job := ps.queue[0]
	ps.queue = ps.queue[1:]
	ps.active = job
	ps.lockSince = time.Now()
	p.mu.Unlock()

	p.cache.invalidate(pump.ID)
	p.jobWG.Add(1)
	go p.execute(ctx, pump, job)
}

// clearActive releases the pump's executing slot, but only if the slot
// still belongs to the given job: the watchdog may have discarded it and a
// successor may already be running.
func (p *QueueProcessor) clearActive(pumpID int64, jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ps := p.pumps[pumpID]
	if ps != nil && ps.active != nil && ps.active.ID == jobID {
		ps.active = nil
		ps.lockSince = time.Time{}
	}
}

// isLocked interprets a lock entity state. Home Assistant boolean-like
// entities report differently by domain.
func isLocked(state string) bool {
	switch strings.ToLower(state) {
	case "on", "true", "locked":
		return true
	}
	return false
}
