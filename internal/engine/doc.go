// Package engine contains the irrigation execution core: the event
// evaluator that decides which watering events are due each tick, the
// queue processor that serializes actuation jobs per pump, and the
// executor state machine that drives the physical lock/valve sequence
// through the Home Assistant client.
//
// Two independent loops run inside the engine. The evaluator ticks at the
// configured scheduler interval (default 60s), loads enabled rooms and
// events, and enqueues one ActuationJob per due event zone. The queue
// processor ticks every second, checks each pump's external lock state,
// and launches at most one job per pump as its own goroutine, so a long
// watering run on one pump never blocks the others.
//
// Queue state lives only in memory. A process restart loses all queued and
// in-flight jobs; durability is an explicit non-feature of this engine.
package engine
