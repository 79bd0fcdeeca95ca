package twine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasPositiveWorkerShape(t *testing.T) {
	cfg := DefaultConfig()
	assert.GreaterOrEqual(t, cfg.IOWorkers, 1)
	assert.GreaterOrEqual(t, cfg.MaxInFlightIO, int64(1))
	require.NotNil(t, cfg.Stdin)
	require.NotNil(t, cfg.Stdout)
	require.NotNil(t, cfg.Stderr)
}

func TestLoadConfigYAMLOverridesDefaults(t *testing.T) {
	yamlDoc := []byte("debug: true\nio_workers: 3\nmax_in_flight_io: 12\nlog_categories: [fiber, sched]\n")
	cfg, err := LoadConfigYAML(yamlDoc)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 3, cfg.IOWorkers)
	assert.Equal(t, int64(12), cfg.MaxInFlightIO)
	assert.ElementsMatch(t, []string{"fiber", "sched"}, cfg.LogCategories)
}
