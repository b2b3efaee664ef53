// Package config loads the board description: core clock, time slice, FIFO
// size and the host run settings.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"minos/hal"
	"minos/kernel"
)

var ErrConfig = errors.New("config: invalid board")

// Board is the YAML board file. Zero fields take the defaults.
type Board struct {
	// ClockHz is the core clock; SwitchHz is the thread switch rate.
	ClockHz      uint32 `yaml:"clock_hz"`
	SwitchHz     uint32 `yaml:"switch_hz"`
	TickPriority uint8  `yaml:"tick_priority"`
	FifoSize     int    `yaml:"fifo_size"`

	Run   Run   `yaml:"run"`
	Trace Trace `yaml:"trace"`
}

// Run controls the host core.
type Run struct {
	// Ticks stops the run after that many time slices (0 = forever).
	Ticks uint64 `yaml:"ticks"`
	// Hz paces time slices against the wall clock (0 = as fast as possible).
	Hz int `yaml:"hz"`
}

// Trace selects where kernel events go.
type Trace struct {
	// Color is auto, always or never.
	Color  string `yaml:"color"`
	Text   bool   `yaml:"text"`
	File   string `yaml:"file"`
	Serial string `yaml:"serial"`
	Baud   int    `yaml:"baud"`
}

// Default is the classic board: a 16 MHz core switching threads at 1 kHz.
func Default() Board {
	return Board{
		ClockHz:      16_000_000,
		SwitchHz:     1000,
		TickPriority: 14,
		FifoSize:     kernel.FifoSize,
		Trace: Trace{
			Color: "auto",
			Baud:  115200,
		},
	}
}

// Load reads a board file over the defaults. Unknown keys are an error.
func Load(path string) (Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, err
	}
	return Parse(data)
}

// Parse decodes a board file over the defaults.
func Parse(data []byte) (Board, error) {
	b := Default()
	if err := yaml.UnmarshalStrict(data, &b); err != nil {
		return Board{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

func (b Board) Validate() error {
	if b.ClockHz == 0 || b.SwitchHz == 0 {
		return fmt.Errorf("%w: clock_hz and switch_hz must be positive", ErrConfig)
	}
	if b.SwitchHz > b.ClockHz {
		return fmt.Errorf("%w: switch_hz %d above clock_hz %d", ErrConfig, b.SwitchHz, b.ClockHz)
	}
	if b.TickPriority > 15 {
		return fmt.Errorf("%w: tick_priority %d not in [0,15]", ErrConfig, b.TickPriority)
	}
	if b.FifoSize < 1 || b.FifoSize > kernel.FifoSize {
		return fmt.Errorf("%w: fifo_size %d not in [1,%d]", ErrConfig, b.FifoSize, kernel.FifoSize)
	}
	if b.Run.Hz < 0 {
		return fmt.Errorf("%w: run.hz %d is negative", ErrConfig, b.Run.Hz)
	}
	switch b.Trace.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: trace.color %q", ErrConfig, b.Trace.Color)
	}
	if b.Trace.Serial != "" && b.Trace.Baud <= 0 {
		return fmt.Errorf("%w: trace.baud %d", ErrConfig, b.Trace.Baud)
	}
	return nil
}

// TickInterval is the time slice in core cycles.
func (b Board) TickInterval() uint32 {
	return b.ClockHz / b.SwitchHz
}

// Kernel returns the kernel settings for this board. Trace and panic
// handler are left for the caller.
func (b Board) Kernel() kernel.Config {
	cfg := kernel.DefaultConfig()
	cfg.TickInterval = b.TickInterval()
	cfg.TickPriority = b.TickPriority
	cfg.FifoCapacity = b.FifoSize
	return cfg
}

// Headless returns the host runner settings.
func (b Board) Headless() hal.HeadlessConfig {
	return hal.HeadlessConfig{Ticks: b.Run.Ticks, Hz: b.Run.Hz}
}
