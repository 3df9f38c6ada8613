package engine

import (
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// Notifier receives engine lifecycle events. Implementations fan them out
// to the MQTT status bus and the WebSocket hub; all methods must be
// non-blocking or internally buffered, since they are called from the
// processor's tick and executor goroutines.
type Notifier interface {
	JobQueued(pump grow.Pump, job *ActuationJob, queueLength int)
	JobStarted(pump grow.Pump, job *ActuationJob)
	JobFinished(pump grow.Pump, job *ActuationJob)
	JobFailed(pump grow.Pump, job *ActuationJob, err error)
	LockTimeout(pump grow.Pump, elapsed time.Duration)
	QueueCleared(pump grow.Pump, cleared int)
}

// NopNotifier discards all events. Used when no status bus is configured.
type NopNotifier struct{}

func (NopNotifier) JobQueued(grow.Pump, *ActuationJob, int)   {}
func (NopNotifier) JobStarted(grow.Pump, *ActuationJob)       {}
func (NopNotifier) JobFinished(grow.Pump, *ActuationJob)      {}
func (NopNotifier) JobFailed(grow.Pump, *ActuationJob, error) {}
func (NopNotifier) LockTimeout(grow.Pump, time.Duration)      {}
func (NopNotifier) QueueCleared(grow.Pump, int)               {}

// MultiNotifier fans events out to several notifiers in order.
type MultiNotifier []Notifier

func (m MultiNotifier) JobQueued(pump grow.Pump, job *ActuationJob, queueLength int) {
	for _, n := range m {
		n.JobQueued(pump, job, queueLength)
	}
}

func (m MultiNotifier) JobStarted(pump grow.Pump, job *ActuationJob) {
	for _, n := range m {
		n.JobStarted(pump, job)
	}
}

func (m MultiNotifier) JobFinished(pump grow.Pump, job *ActuationJob) {
	for _, n := range m {
		n.JobFinished(pump, job)
	}
}

func (m MultiNotifier) JobFailed(pump grow.Pump, job *ActuationJob, err error) {
	for _, n := range m {
		n.JobFailed(pump, job, err)
	}
}

func (m MultiNotifier) LockTimeout(pump grow.Pump, elapsed time.Duration) {
	for _, n := range m {
		n.LockTimeout(pump, elapsed)
	}
}

func (m MultiNotifier) QueueCleared(pump grow.Pump, cleared int) {
	for _, n := range m {
		n.QueueCleared(pump, cleared)
	}
}
