package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
)

// cleanupTimeout bounds the emergency shutdown path: closing a valve and
// releasing a lock after a failure or cancellation must not hang forever
// on an unresponsive external service.
const cleanupTimeout = 15 * time.Second

// execute drives one job through the physical actuation sequence:
//
//	lock on -> startup delay -> zone on -> duration -> zone off ->
//	switch delay -> lock off
//
// A failure locking the pump or opening the valve aborts the job through
// the cleanup path. A failure closing the valve or releasing the lock is
// logged and the sequence continues, because leaving the pump locked is
// the more dangerous failure mode and the watchdog covers a stuck lock.
// Cancellation mid-sequence also runs the cleanup path; it is never a
// bypass of safety shutdown. The executing slot is cleared unconditionally.
func (p *QueueProcessor) execute(ctx context.Context, pump grow.Pump, job *ActuationJob) {
	defer p.jobWG.Done()
	defer func() {
		p.clearActive(pump.ID, job.ID)
		p.cache.invalidate(pump.ID)
	}()

	log := p.logger.With("pump_id", pump.ID, "zone_id", job.ZoneID, "zone_name", job.ZoneName, "job_id", job.ID)
	log.Info("job started", "duration_seconds", job.DurationSeconds)

	p.cache.invalidate(pump.ID)
	p.notifier.JobStarted(pump, job)

	startupDelay, switchDelay := p.delays(ctx)

	zoneOn := false
	err := func() error {
		if err := p.actuator.TurnOn(ctx, pump.LockEntity); err != nil {
			return fmt.Errorf("locking pump: %w", err)
		}

		if err := wait(ctx, startupDelay); err != nil {
			return err
		}

		if err := p.actuator.TurnOn(ctx, job.SwitchEntity); err != nil {
			return fmt.Errorf("opening zone valve: %w", err)
		}
		zoneOn = true

		if err := wait(ctx, time.Duration(job.DurationSeconds)*time.Second); err != nil {
			return err
		}

		if err := p.actuator.TurnOff(ctx, job.SwitchEntity); err != nil {
			log.Error("failed to close zone valve, continuing to unlock", "error", err)
		} else {
			zoneOn = false
		}

		if err := wait(ctx, switchDelay); err != nil {
			return err
		}

		if err := p.actuator.TurnOff(ctx, pump.LockEntity); err != nil {
			log.Error("failed to unlock pump, watchdog will recover", "error", err)
		}
		return nil
	}()

	if err != nil {
		log.Error("job aborted, running cleanup", "error", err)
		p.cleanup(pump, job, zoneOn, log)
		p.notifier.JobFailed(pump, job, err)
		return
	}

	log.Info("job completed")
	p.notifier.JobFinished(pump, job)
}

// cleanup reverses whatever the aborted sequence turned on, in reverse
// order. It runs on a fresh context so shutdown cancellation cannot skip
// the safety shutdown itself.
func (p *QueueProcessor) cleanup(pump grow.Pump, job *ActuationJob, zoneOn bool, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if zoneOn {
		if err := p.actuator.TurnOff(ctx, job.SwitchEntity); err != nil {
			log.Error("cleanup failed to close zone valve", "error", err)
		}
	}
	if err := p.actuator.TurnOff(ctx, pump.LockEntity); err != nil {
		log.Error("cleanup failed to unlock pump", "error", err)
	}
}

// delays reads the runtime settings for this job, falling back to the
// seeded defaults when the database read fails mid-shutdown.
func (p *QueueProcessor) delays(ctx context.Context) (startup, zoneSwitch time.Duration) {
	settings, err := p.settings.GetSettings(ctx)
	if err != nil {
		p.logger.Warn("settings read failed, using default delays", "error", err)
		return 5 * time.Second, 2 * time.Second
	}
	return time.Duration(settings.PumpStartupDelaySeconds) * time.Second,
		time.Duration(settings.ZoneSwitchDelaySeconds) * time.Second
}

// wait sleeps for d unless the context is cancelled first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
