package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
	"github.com/goatboynz/pro-irrigation-addon/internal/schedule"
)

// GlobalStore provides the global timing entity references.
// grow.Repository satisfies it.
type GlobalStore interface {
	GetGlobalSettings(ctx context.Context) (*grow.GlobalSettings, error)
}

// TimingSource assembles schedule.TimingSettings by reading the configured
// Home Assistant entities. Auto-mode legacy zones depend on it for their
// schedule; nothing is cached, since light timing changes take effect on
// the next calculation.
type TimingSource struct {
	store    GlobalStore
	actuator Actuator
	logger   *logging.Logger
}

// NewTimingSource creates a timing source.
func NewTimingSource(store GlobalStore, actuator Actuator, logger *logging.Logger) *TimingSource {
	return &TimingSource{
		store:    store,
		actuator: actuator,
		logger:   logger.With("component", "timing"),
	}
}

// Current reads the global light timing. It returns (nil, nil) when the
// lights-on/off entity references are not configured, so callers can treat
// "no timing" as "no auto schedule" rather than a failure.
func (t *TimingSource) Current(ctx context.Context) (*schedule.TimingSettings, error) {
	settings, err := t.store.GetGlobalSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading global settings: %w", err)
	}
	if settings.LightsOnEntity == nil || settings.LightsOffEntity == nil {
		return nil, nil
	}

	ts := &schedule.TimingSettings{}

	if ts.LightsOn, err = t.readClock(ctx, *settings.LightsOnEntity); err != nil {
		return nil, err
	}
	if ts.LightsOff, err = t.readClock(ctx, *settings.LightsOffEntity); err != nil {
		return nil, err
	}

	if ts.P1StartDelayMin, err = t.readMinutes(ctx, settings.P1DelayEntity); err != nil {
		return nil, err
	}
	if ts.P2StartDelayMin, err = t.readMinutes(ctx, settings.P2DelayEntity); err != nil {
		return nil, err
	}
	if ts.P2EndBufferMin, err = t.readMinutes(ctx, settings.P2BufferEntity); err != nil {
		return nil, err
	}

	return ts, nil
}

func (t *TimingSource) readClock(ctx context.Context, entityID string) (schedule.Clock, error) {
	state, err := t.actuator.GetState(ctx, entityID)
	if err != nil {
		return schedule.Clock{}, fmt.Errorf("reading %s: %w", entityID, err)
	}
	clock, err := schedule.ParseClock(state.State)
	if err != nil {
		return schedule.Clock{}, fmt.Errorf("entity %s: %w", entityID, err)
	}
	return clock, nil
}

// readMinutes reads a numeric entity value (input_number states report
// like "30.0") as whole minutes. An unconfigured reference means zero.
func (t *TimingSource) readMinutes(ctx context.Context, entityID *string) (int, error) {
	if entityID == nil {
		return 0, nil
	}

	state, err := t.actuator.GetState(ctx, *entityID)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", *entityID, err)
	}
	value, err := strconv.ParseFloat(state.State, 64)
	if err != nil {
		return 0, fmt.Errorf("entity %s: non-numeric state %q", *entityID, state.State)
	}
	return int(value), nil
}
