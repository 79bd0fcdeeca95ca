package twine

import (
	"io"
	"os"
	"runtime"

	"go.uber.org/automaxprocs/maxprocs"
	"gopkg.in/yaml.v3"
)

// Config configures an Interpreter: a plain struct with a DefaultConfig
// constructor rather than functional options, loadable from YAML for
// deployment-time tuning.
type Config struct {
	// Debug enables Debug-level logging globally; LogCategories lists
	// which categories are additionally enabled when Debug is false (an
	// Error/Fatal is always emitted regardless of either setting).
	Debug         bool     `yaml:"debug"`
	LogCategories []string `yaml:"log_categories"`

	// IOWorkers is the size of the dedicated async I/O backend pool.
	// MaxInFlightIO bounds how many I/O operations may be queued to it
	// concurrently. Neither is a request timeout — this interpreter has
	// no notion of one.
	IOWorkers     int   `yaml:"io_workers"`
	MaxInFlightIO int64 `yaml:"max_in_flight_io"`

	Stdin  io.Reader `yaml:"-"`
	Stdout io.Writer `yaml:"-"`
	Stderr io.Writer `yaml:"-"`

	// releaseGOMAXPROCS restores the GOMAXPROCS value automaxprocs.Set
	// replaced, once this Config's interpreter is done with it.
	releaseGOMAXPROCS func() `yaml:"-"`
}

// DefaultConfig returns a Config using the OS's standard streams and a
// worker/IO shape derived from the process's effective CPU quota.
// automaxprocs is applied here, before any worker-count decision is made,
// so "default worker count ≈ available cores" is correct inside a
// container with a fractional CPU limit, not just runtime.NumCPU(). The
// adjustment's undo function is kept on the Config rather than deferred
// here, since deferring inside DefaultConfig would revert GOMAXPROCS
// before the function even returns to its caller; ReleaseGOMAXPROCS (or
// Interpreter.Shutdown, which calls it) restores the prior value.
func DefaultConfig() *Config {
	undo, err := maxprocs.Set()
	if err != nil {
		undo = func() {}
	}
	cores := runtime.GOMAXPROCS(0)
	if cores < 1 {
		cores = 1
	}
	return &Config{
		Debug:             false,
		IOWorkers:         cores,
		MaxInFlightIO:     int64(cores) * 4,
		Stdin:             os.Stdin,
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
		releaseGOMAXPROCS: undo,
	}
}

// ReleaseGOMAXPROCS restores the GOMAXPROCS value automaxprocs.Set
// replaced when this Config was built. Safe to call more than once, and
// a no-op on a Config not produced by DefaultConfig.
func (cfg *Config) ReleaseGOMAXPROCS() {
	if cfg.releaseGOMAXPROCS != nil {
		cfg.releaseGOMAXPROCS()
		cfg.releaseGOMAXPROCS = nil
	}
}

// LoadConfigYAML decodes a Config from YAML, defaulting IO streams to the
// OS's standard ones (YAML cannot carry an io.Reader/io.Writer).
func LoadConfigYAML(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MarshalYAML renders the YAML-serializable fields of cfg.
func (cfg *Config) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(cfg)
}
