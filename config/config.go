// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config provides simulation session configuration. Settings are read
// from a YAML file and can be overridden with environment variables.
//
package config

import (
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults.
//
const (
	DefaultOscillationCap = 1000
	DefaultFrequency      = 1.0
	MaxFrequency          = 4096.0
)

// Config holds all session settings.
//
type Config struct {
	Simulation Simulation `yaml:"simulation"`
	Clock      Clock      `yaml:"clock"`
	Logging    Logging    `yaml:"logging"`
	Trace      Trace      `yaml:"trace"`
}

// Simulation configures the propagator.
//
type Simulation struct {
	// OscillationCap is the maximum number of steps in a tick before the
	// circuit is declared oscillating.
	OscillationCap int `yaml:"oscillation_cap"`
	// AutoPropagate runs the propagator after every poke, input change or
	// edit.
	AutoPropagate bool `yaml:"auto_propagate"`
}

// Clock configures the clock driver.
//
type Clock struct {
	// Frequency is the tick frequency in Hz when running.
	Frequency float64 `yaml:"frequency"`
	// StopOnOscillation stops a running clock when a tick oscillates.
	StopOnOscillation bool `yaml:"stop_on_oscillation"`
}

// Logging configures the logger.
//
type Logging struct {
	// Level is a logrus level name: "panic", "fatal", "error", "warn", "info",
	// "debug" or "trace".
	Level string `yaml:"level"`
	// JSON selects the JSON formatter instead of text.
	JSON bool `yaml:"json"`
}

// Trace configures waveform recording.
//
type Trace struct {
	// Path of the bbolt database samples are written to. Empty means in
	// memory only.
	Path string `yaml:"path"`
	// Radix used to print recorded values: 2, 8, 10 or 16.
	Radix int `yaml:"radix"`
}

// Default returns a Config with default settings.
//
func Default() *Config {
	return &Config{
		Simulation: Simulation{
			OscillationCap: DefaultOscillationCap,
			AutoPropagate:  true,
		},
		Clock: Clock{
			Frequency:         DefaultFrequency,
			StopOnOscillation: true,
		},
		Logging: Logging{Level: "info"},
		Trace:   Trace{Radix: 2},
	}
}

// Parse parses YAML data over the default settings.
//
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return c, nil
}

// Load reads the configuration file at path, applies environment overrides and
// validates the result. An empty path yields the default settings with
// environment overrides.
//
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if c, err = Parse(data); err != nil {
			return nil, errors.Wrap(err, path)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LSIM_OSCILLATION_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "LSIM_OSCILLATION_CAP")
		}
		c.Simulation.OscillationCap = n
	}
	if v := os.Getenv("LSIM_TICK_FREQUENCY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "LSIM_TICK_FREQUENCY")
		}
		c.Clock.Frequency = f
	}
	if v := os.Getenv("LSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LSIM_TRACE_PATH"); v != "" {
		c.Trace.Path = v
	}
	return nil
}

// Validate checks that all settings are in range.
//
func (c *Config) Validate() error {
	if c.Simulation.OscillationCap <= 0 {
		return errors.Errorf("oscillation_cap must be positive, got %d", c.Simulation.OscillationCap)
	}
	if c.Clock.Frequency <= 0 || c.Clock.Frequency > MaxFrequency {
		return errors.Errorf("clock frequency must be in (0, %g] Hz, got %g", MaxFrequency, c.Clock.Frequency)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Trace.Radix {
	case 2, 8, 10, 16:
	default:
		return errors.Errorf("invalid trace radix %d (valid: 2, 8, 10, 16)", c.Trace.Radix)
	}
	return nil
}

// LogLevel returns the parsed logging level. An empty level means info.
//
func (c *Config) LogLevel() (logrus.Level, error) {
	if c.Logging.Level == "" {
		return logrus.InfoLevel, nil
	}
	l, err := logrus.ParseLevel(c.Logging.Level)
	return l, errors.Wrap(err, "logging level")
}

// Period returns the clock period.
//
func (c *Config) Period() time.Duration {
	f := c.Clock.Frequency
	if f <= 0 {
		f = DefaultFrequency
	}
	return time.Duration(float64(time.Second) / f)
}

// NewLogger returns a logger configured according to c.
//
func (c *Config) NewLogger() (*logrus.Logger, error) {
	l := logrus.New()
	lvl, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)
	if c.Logging.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l, nil
}
