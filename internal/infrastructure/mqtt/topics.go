package mqtt

import "fmt"

// Topic prefixes for the irrigation status bus.
//
// All topics live under a single root so broker ACLs can grant the addon
// write access to irrigation/# and nothing else.
const (
	// TopicPrefix is the root of all irrigation topics.
	TopicPrefix = "irrigation"

	// TopicPrefixSystem is the base for service-level topics.
	TopicPrefixSystem = "irrigation/system"

	// TopicPrefixPump is the base for per-pump topics.
	TopicPrefixPump = "irrigation/pump"
)

// Topics provides builders for irrigation MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.PumpJob(5)
//	// Returns: "irrigation/pump/5/job"
type Topics struct{}

// SystemStatus returns the service status topic. Online/offline payloads
// and the Last Will and Testament are published here, retained.
//
// Example: irrigation/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// PumpStatus returns the topic for a pump's queue status snapshots.
//
// Example: irrigation/pump/5/status
func (Topics) PumpStatus(pumpID int64) string {
	return fmt.Sprintf("%s/%d/status", TopicPrefixPump, pumpID)
}

// PumpJob returns the topic for a pump's job lifecycle events.
//
// Example: irrigation/pump/5/job
func (Topics) PumpJob(pumpID int64) string {
	return fmt.Sprintf("%s/%d/job", TopicPrefixPump, pumpID)
}

// PumpAlert returns the topic for a pump's safety alerts, currently lock
// timeouts and emergency stops.
//
// Example: irrigation/pump/5/alert
func (Topics) PumpAlert(pumpID int64) string {
	return fmt.Sprintf("%s/%d/alert", TopicPrefixPump, pumpID)
}

// AllPumpJobs returns a pattern matching every pump's job events.
//
// Pattern: irrigation/pump/+/job
func (Topics) AllPumpJobs() string {
	return fmt.Sprintf("%s/+/job", TopicPrefixPump)
}

// AllPumpAlerts returns a pattern matching every pump's alerts.
//
// Pattern: irrigation/pump/+/alert
func (Topics) AllPumpAlerts() string {
	return fmt.Sprintf("%s/+/alert", TopicPrefixPump)
}

// AllTopics returns a pattern matching all irrigation topics.
//
// Pattern: irrigation/#
func (Topics) AllTopics() string {
	return "irrigation/#"
}
