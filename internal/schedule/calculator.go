// Package schedule is the pure schedule calculator: given zone configuration
// and global light timing, it produces concrete event times for a calendar
// day. No I/O, no shared state; every function is deterministic in its
// arguments, which keeps the whole package testable without fixtures.
package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

// Event is one concrete scheduled watering occurrence.
type Event struct {
	Time            time.Time
	DurationSeconds int
	Type            grow.EventType
}

// TimingSettings carries the global light timing parameters, sourced from
// Home Assistant entities at evaluation time. LightsOn and LightsOff are
// clock times; the date portion is supplied per calculation.
type TimingSettings struct {
	LightsOn        Clock
	LightsOff       Clock
	P1StartDelayMin int
	P2StartDelayMin int
	P2EndBufferMin  int
}

// AutoConfig is the per-zone auto-mode configuration: how long the single
// P1 event runs and how many P2 events of what length to distribute.
type AutoConfig struct {
	P1DurationSec int
	P2EventCount  int
	P2DurationSec int
}

// Clock is a time of day without a date.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// Minutes returns the clock position as minutes past midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On anchors the clock time to the given day in that day's location.
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, c.Second, 0, day.Location())
}

// ParseClock parses a "HH:MM" or "HH:MM:SS" string as read from a Home
// Assistant input_datetime state.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Clock{}, fmt.Errorf("%w: parsing clock %q: expected HH:MM or HH:MM:SS", ErrCalculation, s)
	}

	var c Clock
	var err error
	if c.Hour, err = strconv.Atoi(parts[0]); err != nil || c.Hour < 0 || c.Hour > 23 {
		return Clock{}, fmt.Errorf("%w: parsing clock %q: bad hour", ErrCalculation, s)
	}
	if c.Minute, err = strconv.Atoi(parts[1]); err != nil || c.Minute < 0 || c.Minute > 59 {
		return Clock{}, fmt.Errorf("%w: parsing clock %q: bad minute", ErrCalculation, s)
	}
	if len(parts) == 3 {
		if c.Second, err = strconv.Atoi(parts[2]); err != nil || c.Second < 0 || c.Second > 59 {
			return Clock{}, fmt.Errorf("%w: parsing clock %q: bad second", ErrCalculation, s)
		}
	}
	return c, nil
}

// ComputeAutoSchedule builds the day's events for an auto-mode zone.
//
// P1: a single event at lights-on + P1 start delay, included only when the
// P1 duration is positive.
//
// P2: N events distributed evenly across the window from
// lights-on + P2 start delay to lights-off - P2 end buffer. Lights-off is
// rolled to the next day when it is clock-earlier than lights-on, so
// schedules spanning midnight work. A non-positive window produces zero P2
// events without error. For N=1 the event sits at the window start; for N>1
// event i sits at window start + i * (window / N).
//
// The result is sorted ascending by time.
func ComputeAutoSchedule(cfg AutoConfig, ts TimingSettings, day time.Time) ([]Event, error) {
	if cfg.P1DurationSec < 0 || cfg.P2DurationSec < 0 || cfg.P2EventCount < 0 {
		return nil, fmt.Errorf("%w: negative durations or counts", ErrCalculation)
	}

	var events []Event

	lightsOn := ts.LightsOn.On(day)

	if cfg.P1DurationSec > 0 {
		events = append(events, Event{
			Time:            lightsOn.Add(time.Duration(ts.P1StartDelayMin) * time.Minute),
			DurationSeconds: cfg.P1DurationSec,
			Type:            grow.EventP1,
		})
	}

	if cfg.P2EventCount > 0 && cfg.P2DurationSec > 0 {
		windowStart := lightsOn.Add(time.Duration(ts.P2StartDelayMin) * time.Minute)

		lightsOff := ts.LightsOff.On(day)
		if ts.LightsOff.Minutes() < ts.LightsOn.Minutes() {
			lightsOff = lightsOff.AddDate(0, 0, 1)
		}
		windowEnd := lightsOff.Add(-time.Duration(ts.P2EndBufferMin) * time.Minute)

		window := windowEnd.Sub(windowStart)
		if window > 0 {
			spacing := window / time.Duration(cfg.P2EventCount)
			for i := 0; i < cfg.P2EventCount; i++ {
				events = append(events, Event{
					Time:            windowStart.Add(time.Duration(i) * spacing),
					DurationSeconds: cfg.P2DurationSec,
					Type:            grow.EventP2,
				})
			}
		}
	}

	sortEvents(events)
	return events, nil
}

// manualLinePattern matches one HH:MM.SS manual schedule entry: time of day
// followed by a whole-second duration.
var manualLinePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\.(\d+)$`)

// ParseManualSchedule parses newline-separated HH:MM.SS entries into events
// anchored to the given day. Blank lines are skipped; empty input yields an
// empty result. The first malformed line aborts the whole call with a
// *ParseError carrying its 1-based line number.
func ParseManualSchedule(text string, typ grow.EventType, day time.Time) ([]Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var events []Event
	for lineNum, raw := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		clock, duration, perr := parseManualLine(line)
		if perr != nil {
			perr.Line = lineNum + 1
			return nil, perr
		}

		events = append(events, Event{
			Time:            clock.On(day),
			DurationSeconds: duration,
			Type:            typ,
		})
	}

	sortEvents(events)
	return events, nil
}

// ValidateManualFormat runs the manual schedule grammar check without
// producing events. Used for input validation when zones are created or
// updated. Empty text is valid.
func ValidateManualFormat(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	for lineNum, raw := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if _, _, perr := parseManualLine(line); perr != nil {
			perr.Line = lineNum + 1
			return perr
		}
	}
	return nil
}

// parseManualLine checks one trimmed non-empty line against the HH:MM.SS
// grammar. The caller fills in the line number.
func parseManualLine(line string) (Clock, int, *ParseError) {
	m := manualLinePattern.FindStringSubmatch(line)
	if m == nil {
		return Clock{}, 0, &ParseError{Text: line, Reason: "expected HH:MM.SS (e.g. 08:30.120)"}
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	duration, err := strconv.Atoi(m[3])

	switch {
	case hour > 23:
		return Clock{}, 0, &ParseError{Text: line, Reason: fmt.Sprintf("hour must be 0-23, got %d", hour)}
	case minute > 59:
		return Clock{}, 0, &ParseError{Text: line, Reason: fmt.Sprintf("minute must be 0-59, got %d", minute)}
	case err != nil || duration <= 0:
		return Clock{}, 0, &ParseError{Text: line, Reason: "duration must be a positive whole number of seconds"}
	}

	return Clock{Hour: hour, Minute: minute}, duration, nil
}

// NextRun computes the next scheduled event for a legacy zone: the day's
// events strictly after now, falling back to tomorrow's schedule when today
// is exhausted. Auto mode without timing settings returns nil rather than
// failing, since the settings come from external entities that may be
// temporarily unreadable.
func NextRun(zone *grow.LegacyZone, ts *TimingSettings, now time.Time) (*Event, error) {
	future, err := futureEvents(zone, ts, now, now)
	if err != nil {
		return nil, err
	}
	if zone.Mode == grow.ModeAuto && ts == nil {
		return nil, nil
	}
	if len(future) == 0 {
		future, err = futureEvents(zone, ts, now.AddDate(0, 0, 1), now)
		if err != nil {
			return nil, err
		}
	}
	if len(future) == 0 {
		return nil, nil
	}
	next := future[0]
	return &next, nil
}

// futureEvents computes the zone's events for the given day and filters to
// those strictly after now.
func futureEvents(zone *grow.LegacyZone, ts *TimingSettings, day, now time.Time) ([]Event, error) {
	var events []Event
	var err error

	switch zone.Mode {
	case grow.ModeAuto:
		if ts == nil {
			return nil, nil
		}
		cfg := AutoConfig{
			P1DurationSec: zone.P1DurationSec,
			P2EventCount:  zone.P2EventCount,
			P2DurationSec: zone.P2DurationSec,
		}
		if events, err = ComputeAutoSchedule(cfg, *ts, day); err != nil {
			return nil, err
		}
	case grow.ModeManual:
		p1, err := ParseManualSchedule(zone.P1ManualList, grow.EventP1, day)
		if err != nil {
			return nil, err
		}
		p2, err := ParseManualSchedule(zone.P2ManualList, grow.EventP2, day)
		if err != nil {
			return nil, err
		}
		events = append(p1, p2...)
		sortEvents(events)
	default:
		return nil, fmt.Errorf("%w: unknown zone mode %q", ErrCalculation, zone.Mode)
	}

	var future []Event
	for _, e := range events {
		if e.Time.After(now) {
			future = append(future, e)
		}
	}
	return future, nil
}

func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})
}
