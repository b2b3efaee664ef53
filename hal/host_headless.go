//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Ticks uint64
	Hz    int
}

// SimConfig converts the runner settings into core settings: Ticks bounds
// the run, Hz paces periodic ticks against the wall clock (0 = free running).
func (cfg HeadlessConfig) SimConfig() (SimConfig, error) {
	sc := SimConfig{MaxTicks: cfg.Ticks}
	if cfg.Hz < 0 {
		return SimConfig{}, fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}
	if cfg.Hz > 0 {
		sc.Pace = time.Second / time.Duration(cfg.Hz)
	}
	return sc, nil
}

// RunHeadless runs the system without opening a window.
func RunHeadless(ctx context.Context, run func(context.Context, HAL) error, cfg HeadlessConfig) error {
	sc, err := cfg.SimConfig()
	if err != nil {
		return err
	}
	return run(ctx, New(sc))
}
