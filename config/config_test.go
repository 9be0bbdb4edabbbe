// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, DefaultOscillationCap, c.Simulation.OscillationCap)
	require.True(t, c.Simulation.AutoPropagate)
	require.Equal(t, DefaultFrequency, c.Clock.Frequency)
	require.True(t, c.Clock.StopOnOscillation)
	require.Equal(t, 2, c.Trace.Radix)
	require.NoError(t, c.Validate())
	require.Equal(t, time.Second, c.Period())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsim.yaml")
	data := `
simulation:
  oscillation_cap: 50
  auto_propagate: false
clock:
  frequency: 4
logging:
  level: debug
  json: true
trace:
  path: /tmp/trace.db
  radix: 16
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 50, c.Simulation.OscillationCap)
	require.False(t, c.Simulation.AutoPropagate)
	require.Equal(t, 250*time.Millisecond, c.Period())
	// unset keys keep their defaults
	require.True(t, c.Clock.StopOnOscillation)
	require.Equal(t, "/tmp/trace.db", c.Trace.Path)
	require.Equal(t, 16, c.Trace.Radix)

	l, err := c.NewLogger()
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, l.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("LSIM_OSCILLATION_CAP", "10")
	t.Setenv("LSIM_TICK_FREQUENCY", "2.5")
	t.Setenv("LSIM_LOG_LEVEL", "warn")
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 10, c.Simulation.OscillationCap)
	require.Equal(t, 2.5, c.Clock.Frequency)
	lvl, err := c.LogLevel()
	require.NoError(t, err)
	require.Equal(t, logrus.WarnLevel, lvl)
}

func TestLoadEnvErrors(t *testing.T) {
	for _, d := range []struct{ key, val string }{
		{"LSIM_OSCILLATION_CAP", "ten"},
		{"LSIM_TICK_FREQUENCY", "fast"},
	} {
		t.Run(d.key, func(t *testing.T) {
			t.Setenv(d.key, d.val)
			_, err := Load("")
			require.Error(t, err)
			require.Contains(t, err.Error(), d.key)
		})
	}
}

func TestValidate(t *testing.T) {
	td := []struct {
		name string
		set  func(c *Config)
	}{
		{"cap", func(c *Config) { c.Simulation.OscillationCap = 0 }},
		{"freq_zero", func(c *Config) { c.Clock.Frequency = 0 }},
		{"freq_high", func(c *Config) { c.Clock.Frequency = MaxFrequency * 2 }},
		{"level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"radix", func(c *Config) { c.Trace.Radix = 3 }},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			c := Default()
			d.set(c)
			require.Error(t, c.Validate())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation: [1, 2"), 0600))
	_, err = Load(path)
	require.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clock:\n  frequency: -1\n"), 0600))
	_, err = Load(path)
	require.Error(t, err)
}
