package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
)

var testDay = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func testTimings() TimingSettings {
	return TimingSettings{
		LightsOn:        Clock{Hour: 6},
		LightsOff:       Clock{Hour: 18},
		P1StartDelayMin: 30,
		P2StartDelayMin: 60,
		P2EndBufferMin:  60,
	}
}

func TestComputeAutoScheduleP1(t *testing.T) {
	events, err := ComputeAutoSchedule(AutoConfig{P1DurationSec: 120}, testTimings(), testDay)
	if err != nil {
		t.Fatalf("ComputeAutoSchedule() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly one P1 event, got %d", len(events))
	}

	want := time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC)
	if !events[0].Time.Equal(want) {
		t.Errorf("P1 time = %v, want lights-on + delay = %v", events[0].Time, want)
	}
	if events[0].Type != grow.EventP1 || events[0].DurationSeconds != 120 {
		t.Errorf("event = %+v, want P1/120s", events[0])
	}
}

func TestComputeAutoScheduleP1ZeroDuration(t *testing.T) {
	events, err := ComputeAutoSchedule(AutoConfig{P1DurationSec: 0, P2EventCount: 2, P2DurationSec: 60}, testTimings(), testDay)
	if err != nil {
		t.Fatalf("ComputeAutoSchedule() error = %v", err)
	}
	for _, e := range events {
		if e.Type == grow.EventP1 {
			t.Error("P1 event produced despite zero duration")
		}
	}
}

func TestComputeAutoScheduleP2Spacing(t *testing.T) {
	ts := testTimings()
	// Window: 07:00 -> 17:00 = 10h.
	cfg := AutoConfig{P2EventCount: 4, P2DurationSec: 90}

	events, err := ComputeAutoSchedule(cfg, ts, testDay)
	if err != nil {
		t.Fatalf("ComputeAutoSchedule() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 P2 events, got %d", len(events))
	}

	windowStart := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	spacing := 10 * time.Hour / 4

	for i, e := range events {
		want := windowStart.Add(time.Duration(i) * spacing)
		if !e.Time.Equal(want) {
			t.Errorf("event %d at %v, want %v", i, e.Time, want)
		}
		if i > 0 && !events[i-1].Time.Before(e.Time) {
			t.Errorf("events not strictly ascending at index %d", i)
		}
	}
}

func TestComputeAutoScheduleP2SingleEvent(t *testing.T) {
	events, err := ComputeAutoSchedule(AutoConfig{P2EventCount: 1, P2DurationSec: 60}, testTimings(), testDay)
	if err != nil {
		t.Fatalf("ComputeAutoSchedule() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one P2 event, got %d", len(events))
	}
	want := time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)
	if !events[0].Time.Equal(want) {
		t.Errorf("single P2 event at %v, want window start %v", events[0].Time, want)
	}
}

func TestComputeAutoScheduleEmptyWindow(t *testing.T) {
	ts := TimingSettings{
		LightsOn:        Clock{Hour: 6},
		LightsOff:       Clock{Hour: 8},
		P2StartDelayMin: 90,
		P2EndBufferMin:  90, // window start 07:30, end 06:30 -> negative
	}

	events, err := ComputeAutoSchedule(AutoConfig{P2EventCount: 5, P2DurationSec: 60}, ts, testDay)
	if err != nil {
		t.Fatalf("non-positive window must not error, got %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected zero events for non-positive window, got %d", len(events))
	}
}

func TestComputeAutoScheduleOvernightLights(t *testing.T) {
	// Lights on 18:00, off 06:00 next day: the window must roll past
	// midnight instead of collapsing.
	ts := TimingSettings{
		LightsOn:        Clock{Hour: 18},
		LightsOff:       Clock{Hour: 6},
		P2StartDelayMin: 60,
		P2EndBufferMin:  60,
	}

	events, err := ComputeAutoSchedule(AutoConfig{P2EventCount: 2, P2DurationSec: 60}, ts, testDay)
	if err != nil {
		t.Fatalf("ComputeAutoSchedule() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	// Window 19:00 -> 05:00 next day = 10h, spacing 5h.
	first := time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC)
	second := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	if !events[0].Time.Equal(first) || !events[1].Time.Equal(second) {
		t.Errorf("events at %v, %v; want %v, %v", events[0].Time, events[1].Time, first, second)
	}
}

func TestComputeAutoScheduleSorted(t *testing.T) {
	// P1 after the first P2 events: output must still be ascending.
	ts := TimingSettings{
		LightsOn:        Clock{Hour: 6},
		LightsOff:       Clock{Hour: 18},
		P1StartDelayMin: 300, // P1 at 11:00
		P2StartDelayMin: 60,
		P2EndBufferMin:  60,
	}

	events, err := ComputeAutoSchedule(AutoConfig{P1DurationSec: 60, P2EventCount: 5, P2DurationSec: 30}, ts, testDay)
	if err != nil {
		t.Fatalf("ComputeAutoSchedule() error = %v", err)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Time.Before(events[i-1].Time) {
			t.Fatalf("events out of order: %v before %v", events[i].Time, events[i-1].Time)
		}
	}
}

func TestParseManualSchedule(t *testing.T) {
	events, err := ParseManualSchedule("08:30.120\n14:15.90", grow.EventP1, testDay)
	if err != nil {
		t.Fatalf("ParseManualSchedule() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	first := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	second := time.Date(2024, 1, 15, 14, 15, 0, 0, time.UTC)
	if !events[0].Time.Equal(first) || events[0].DurationSeconds != 120 {
		t.Errorf("first event = %+v, want %v/120s", events[0], first)
	}
	if !events[1].Time.Equal(second) || events[1].DurationSeconds != 90 {
		t.Errorf("second event = %+v, want %v/90s", events[1], second)
	}
}

func TestParseManualScheduleErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantLine int
	}{
		{"hour out of range", "25:00.60", 1},
		{"minute out of range", "08:75.60", 1},
		{"zero duration", "08:30.0", 1},
		{"missing duration", "08:30", 1},
		{"garbage", "water at noon", 1},
		{"second line bad", "08:30.60\nbogus", 2},
		{"blank lines keep numbering", "08:30.60\n\n99:00.60", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManualSchedule(tt.text, grow.EventP1, testDay)
			if !errors.Is(err, ErrManualFormat) {
				t.Fatalf("expected ErrManualFormat, got %v", err)
			}

			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", perr.Line, tt.wantLine)
			}
		})
	}
}

func TestParseManualScheduleEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n"} {
		events, err := ParseManualSchedule(text, grow.EventP1, testDay)
		if err != nil {
			t.Errorf("empty input %q must not error, got %v", text, err)
		}
		if len(events) != 0 {
			t.Errorf("empty input %q produced %d events", text, len(events))
		}
	}
}

func TestParseManualScheduleAllOrNothing(t *testing.T) {
	events, err := ParseManualSchedule("08:30.60\n09:00.60\nbad line", grow.EventP1, testDay)
	if err == nil {
		t.Fatal("expected error for malformed third line")
	}
	if events != nil {
		t.Errorf("failed parse must not return partial events, got %d", len(events))
	}
}

func TestValidateManualFormat(t *testing.T) {
	if err := ValidateManualFormat("08:30.120\n14:15.90"); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
	if err := ValidateManualFormat(""); err != nil {
		t.Errorf("empty schedule rejected: %v", err)
	}
	if err := ValidateManualFormat("8:5.60"); !errors.Is(err, ErrManualFormat) {
		t.Errorf("single-digit minutes accepted, got %v", err)
	}
	if err := ValidateManualFormat("24:00.60"); !errors.Is(err, ErrManualFormat) {
		t.Errorf("hour 24 accepted, got %v", err)
	}
}

func TestNextRunAuto(t *testing.T) {
	ts := testTimings()
	zone := &grow.LegacyZone{Mode: grow.ModeAuto, P1DurationSec: 120}

	t.Run("future event today", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC)
		next, err := NextRun(zone, &ts, now)
		if err != nil {
			t.Fatalf("NextRun() error = %v", err)
		}
		want := time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC)
		if next == nil || !next.Time.Equal(want) {
			t.Errorf("next = %v, want %v", next, want)
		}
	})

	t.Run("rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC)
		next, err := NextRun(zone, &ts, now)
		if err != nil {
			t.Fatalf("NextRun() error = %v", err)
		}
		want := time.Date(2024, 1, 16, 6, 30, 0, 0, time.UTC)
		if next == nil || !next.Time.Equal(want) {
			t.Errorf("next = %v, want tomorrow %v", next, want)
		}
	})

	t.Run("auto without settings returns none", func(t *testing.T) {
		next, err := NextRun(zone, nil, time.Now())
		if err != nil {
			t.Fatalf("NextRun() error = %v", err)
		}
		if next != nil {
			t.Errorf("expected nil without timing settings, got %+v", next)
		}
	})
}

func TestNextRunManual(t *testing.T) {
	zone := &grow.LegacyZone{
		Mode:         grow.ModeManual,
		P1ManualList: "06:30.120",
		P2ManualList: "12:00.60\n16:00.60",
	}

	t.Run("merges and sorts p1 and p2", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
		next, err := NextRun(zone, nil, now)
		if err != nil {
			t.Fatalf("NextRun() error = %v", err)
		}
		want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
		if next == nil || !next.Time.Equal(want) {
			t.Errorf("next = %v, want %v", next, want)
		}
	})

	t.Run("all passed rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)
		next, err := NextRun(zone, nil, now)
		if err != nil {
			t.Fatalf("NextRun() error = %v", err)
		}
		want := time.Date(2024, 1, 16, 6, 30, 0, 0, time.UTC)
		if next == nil || !next.Time.Equal(want) {
			t.Errorf("next = %v, want tomorrow %v", next, want)
		}
	})

	t.Run("no events at all", func(t *testing.T) {
		empty := &grow.LegacyZone{Mode: grow.ModeManual}
		next, err := NextRun(empty, nil, time.Now())
		if err != nil {
			t.Fatalf("NextRun() error = %v", err)
		}
		if next != nil {
			t.Errorf("expected nil for empty schedule, got %+v", next)
		}
	})
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"06:30", Clock{Hour: 6, Minute: 30}, false},
		{"18:00:30", Clock{Hour: 18, Second: 30}, false},
		{" 07:15 ", Clock{Hour: 7, Minute: 15}, false},
		{"24:00", Clock{}, true},
		{"06:60", Clock{}, true},
		{"0630", Clock{}, true},
		{"", Clock{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrCalculation) {
					t.Errorf("expected ErrCalculation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
