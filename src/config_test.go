package phy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSoakConfigDefaults(t *testing.T) {
	var config, err = LoadSoakConfig("")

	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, config.Cycles)
	assert.False(t, config.TestMode)
	assert.Zero(t, config.BitErrorRate)
	assert.Empty(t, config.SignalDrops)
}

func TestLoadSoakConfigFile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "soak.yaml")
	var body = `
cycles: 5000
test_mode: true
bit_error_rate: 0.001
signal_drops:
  - at_cycle: 100
    duration: 10
log_path: /tmp/softphy-logs
metrics_listen: "localhost:9620"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	var config, err = LoadSoakConfig(path)
	require.NoError(t, err)

	assert.EqualValues(t, 5000, config.Cycles)
	assert.True(t, config.TestMode)
	assert.InDelta(t, 0.001, config.BitErrorRate, 1e-9)
	require.Len(t, config.SignalDrops, 1)
	assert.EqualValues(t, 100, config.SignalDrops[0].AtCycle)
	assert.EqualValues(t, 10, config.SignalDrops[0].Duration)
	assert.Equal(t, "/tmp/softphy-logs", config.LogPath)
	assert.Equal(t, "localhost:9620", config.MetricsListen)
}

func TestLoadSoakConfigMissingFile(t *testing.T) {
	var _, err = LoadSoakConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadSoakConfigRejectsBadValues(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "soak.yaml")

	require.NoError(t, os.WriteFile(path, []byte("cycles: 0\n"), 0644))
	var _, err = LoadSoakConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("bit_error_rate: 1.5\n"), 0644))
	_, err = LoadSoakConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("signal_drops: [{at_cycle: 5, duration: 0}]\n"), 0644))
	_, err = LoadSoakConfig(path)
	assert.Error(t, err)
}
