package mqtt

import (
	"encoding/json"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/engine"
	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
)

// Publisher is the slice of the MQTT client the notifier needs.
// *Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Notifier publishes job lifecycle and safety events to the status bus.
// It implements engine.Notifier. Publish failures are logged and dropped;
// the bus is an observer and must never stall actuation.
type Notifier struct {
	publisher Publisher
	qos       byte
	logger    *logging.Logger
	topics    Topics
}

// NewNotifier creates an MQTT-backed engine notifier.
func NewNotifier(publisher Publisher, qos byte, logger *logging.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		qos:       qos,
		logger:    logger.With("component", "mqtt_notifier"),
	}
}

// jobEvent is the payload for job lifecycle messages.
type jobEvent struct {
	Event           string    `json:"event"`
	PumpID          int64     `json:"pump_id"`
	PumpName        string    `json:"pump_name"`
	JobID           string    `json:"job_id"`
	ZoneID          int64     `json:"zone_id"`
	ZoneName        string    `json:"zone_name"`
	DurationSeconds int       `json:"duration_seconds"`
	QueueLength     int       `json:"queue_length,omitempty"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// alertEvent is the payload for safety alert messages.
type alertEvent struct {
	Alert          string    `json:"alert"`
	PumpID         int64     `json:"pump_id"`
	PumpName       string    `json:"pump_name"`
	ElapsedSeconds int       `json:"elapsed_seconds,omitempty"`
	ClearedJobs    int       `json:"cleared_jobs,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func (n *Notifier) JobQueued(pump grow.Pump, job *engine.ActuationJob, queueLength int) {
	n.publishJob(pump, jobEvent{
		Event:           "queued",
		JobID:           job.ID,
		ZoneID:          job.ZoneID,
		ZoneName:        job.ZoneName,
		DurationSeconds: job.DurationSeconds,
		QueueLength:     queueLength,
	})
}

func (n *Notifier) JobStarted(pump grow.Pump, job *engine.ActuationJob) {
	n.publishJob(pump, jobEvent{
		Event:           "started",
		JobID:           job.ID,
		ZoneID:          job.ZoneID,
		ZoneName:        job.ZoneName,
		DurationSeconds: job.DurationSeconds,
	})
}

func (n *Notifier) JobFinished(pump grow.Pump, job *engine.ActuationJob) {
	n.publishJob(pump, jobEvent{
		Event:           "finished",
		JobID:           job.ID,
		ZoneID:          job.ZoneID,
		ZoneName:        job.ZoneName,
		DurationSeconds: job.DurationSeconds,
	})
}

func (n *Notifier) JobFailed(pump grow.Pump, job *engine.ActuationJob, err error) {
	n.publishJob(pump, jobEvent{
		Event:           "failed",
		JobID:           job.ID,
		ZoneID:          job.ZoneID,
		ZoneName:        job.ZoneName,
		DurationSeconds: job.DurationSeconds,
		Error:           err.Error(),
	})
}

func (n *Notifier) LockTimeout(pump grow.Pump, elapsed time.Duration) {
	n.publishAlert(pump, alertEvent{
		Alert:          "lock_timeout",
		ElapsedSeconds: int(elapsed.Seconds()),
	})
}

func (n *Notifier) QueueCleared(pump grow.Pump, cleared int) {
	n.publishAlert(pump, alertEvent{
		Alert:       "emergency_stop",
		ClearedJobs: cleared,
	})
}

func (n *Notifier) publishJob(pump grow.Pump, event jobEvent) {
	event.PumpID = pump.ID
	event.PumpName = pump.Name
	event.Timestamp = time.Now().UTC()
	n.publish(n.topics.PumpJob(pump.ID), event)
}

func (n *Notifier) publishAlert(pump grow.Pump, event alertEvent) {
	event.PumpID = pump.ID
	event.PumpName = pump.Name
	event.Timestamp = time.Now().UTC()
	n.publish(n.topics.PumpAlert(pump.ID), event)
}

func (n *Notifier) publish(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshalling status event failed", "topic", topic, "error", err)
		return
	}
	if err := n.publisher.Publish(topic, payload, n.qos, false); err != nil {
		n.logger.Warn("publishing status event failed", "topic", topic, "error", err)
	}
}
