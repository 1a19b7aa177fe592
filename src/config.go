package phy

/*------------------------------------------------------------------
 *
 * Purpose:	Configuration for the soak/validation harness.
 *
 * Description:	Loaded from a YAML file.  Everything has a usable default so
 *		the harness runs with no file at all; command line flags
 *		override whatever the file says.
 *
 *		The protocol constants (idle run target, unlock thresholds)
 *		are deliberately not configurable.  They are part of the
 *		specified behavior, not tuning knobs.
 *
 *------------------------------------------------------------------*/

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type SignalDrop struct {
	// Cycle at which signal_status deasserts and how long it stays away.
	AtCycle  uint64 `yaml:"at_cycle"`
	Duration uint64 `yaml:"duration"`
}

type SoakConfig struct {
	// Total cycles to run, two bits per cycle.
	Cycles uint64 `yaml:"cycles"`

	// Short unlock hysteresis, as the vendor control register would set it.
	TestMode bool `yaml:"test_mode"`

	// Seed for the bit-error injector; 0 picks one from the clock.
	Seed int64 `yaml:"seed"`

	// Probability per line bit of an injected inversion.
	BitErrorRate float64 `yaml:"bit_error_rate"`

	// Scripted losses of signal_status.
	SignalDrops []SignalDrop `yaml:"signal_drops"`

	// Line event log destination, see NewLineLog.  Empty disables.
	LogPath string `yaml:"log_path"`

	// strftime pattern for log timestamps.
	TimestampFormat string `yaml:"timestamp_format"`

	// Address for the Prometheus /metrics endpoint.  Empty disables.
	MetricsListen string `yaml:"metrics_listen"`
}

func DefaultSoakConfig() *SoakConfig {
	return &SoakConfig{
		Cycles: 1_000_000,
	}
}

/*------------------------------------------------------------------
 *
 * Function:	LoadSoakConfig
 *
 * Purpose:	Read harness configuration from a YAML file.
 *
 * Inputs:	path	- Configuration file.  Empty string returns the
 *			  defaults without touching the filesystem.
 *
 *------------------------------------------------------------------*/

func LoadSoakConfig(path string) (*SoakConfig, error) {
	var config = DefaultSoakConfig()

	if len(path) == 0 {
		return config, nil
	}

	var data, readErr = os.ReadFile(path)
	if readErr != nil {
		return nil, errors.Wrap(readErr, "read config")
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %q", path)
	}

	return config, nil
}

func (c *SoakConfig) Validate() error {
	if c.Cycles == 0 {
		return errors.New("cycles must be nonzero")
	}
	if c.BitErrorRate < 0 || c.BitErrorRate >= 1 {
		return errors.Errorf("bit_error_rate %v out of range [0, 1)", c.BitErrorRate)
	}
	for i, drop := range c.SignalDrops {
		if drop.Duration == 0 {
			return errors.Errorf("signal_drops[%d]: duration must be nonzero", i)
		}
	}
	return nil
}
