package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/roach88/hgq/internal/plan"
)

// DefaultConfigName is the config file read from the working directory
// when --config is not given.
const DefaultConfigName = "hgq.toml"

// Config holds defaults for command flags. Flags given on the command line
// override it.
type Config struct {
	// Database is the SQLite database path used when --db is not given.
	Database string `toml:"database"`

	// Format is the output format, "text" or "json".
	Format string `toml:"format"`

	// ParallelUnion runs disjunctions on the async union.
	ParallelUnion bool `toml:"parallel_union"`

	// PlanCache is the number of compiled plans kept per process.
	PlanCache int `toml:"plan_cache"`

	Analyze AnalyzeConfig `toml:"analyze"`
}

// AnalyzeConfig holds the default red-flag thresholds.
type AnalyzeConfig struct {
	IntersectionThreshold int64 `toml:"intersection_threshold"`
	ScanThreshold         int64 `toml:"scan_threshold"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Format:    "text",
		PlanCache: 128,
		Analyze: AnalyzeConfig{
			IntersectionThreshold: plan.DefaultThresholds.Intersection,
			ScanThreshold:         plan.DefaultThresholds.Scan,
		},
	}
}

// LoadConfig reads the config at path over the defaults. An empty path
// reads DefaultConfigName if it exists and returns the defaults otherwise.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		if _, err := os.Stat(DefaultConfigName); os.IsNotExist(err) {
			return cfg, nil
		}
		path = DefaultConfigName
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if !isValidFormat(cfg.Format) {
		return nil, fmt.Errorf("config %s: invalid format %q: must be one of %v", path, cfg.Format, ValidFormats)
	}
	return cfg, nil
}

// Thresholds returns the configured analysis thresholds.
func (c *Config) Thresholds() plan.Thresholds {
	return plan.Thresholds{
		Intersection: c.Analyze.IntersectionThreshold,
		Scan:         c.Analyze.ScanThreshold,
	}
}
