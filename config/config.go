// Package config loads and validates the analysis pipeline
// configuration. Configuration lives in a YAML file; values of the form
// ${VAR} or ${VAR:default} are resolved from the environment before
// parsing, so credentials never need to be committed.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrBlockRange    = errors.New("config: end_block must be greater than start_block")
	ErrChunkSize     = errors.New("config: chunk_size_blocks must be greater than 0")
	ErrPercentile    = errors.New("config: censorship_fee_percentile must be in (0, 1)")
	ErrDwellBounds   = errors.New("config: censorship_max_dwell_time_secs must be >= censorship_dwell_time_secs")
	ErrWindowBounds  = errors.New("config: time_window_end_secs must be greater than time_window_start_secs")
	ErrStoreURL      = errors.New("config: clickhouse url must not be empty")
	ErrOutputFormat  = errors.New("config: output format must be parquet, csv or both")
	ErrUnresolvedEnv = errors.New("config: unresolved environment variable")
)

// StoreConfig holds the ClickHouse connection settings.
type StoreConfig struct {
	URL         string `yaml:"url"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	MaxRetries  int    `yaml:"max_retries"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AnalysisConfig holds the per-block analysis parameters.
type AnalysisConfig struct {
	StartBlock uint64 `yaml:"start_block"`
	EndBlock   uint64 `yaml:"end_block"`

	// ChunkSizeBlocks is the number of blocks per output chunk.
	ChunkSizeBlocks int `yaml:"chunk_size_blocks"`

	// TimeWindowStartSecs / TimeWindowEndSecs bound the mempool window
	// relative to a block's timestamp. Defaults [-4, +8]; a 2-slot
	// lookback study uses -20.
	TimeWindowStartSecs int64 `yaml:"time_window_start_secs"`
	TimeWindowEndSecs   int64 `yaml:"time_window_end_secs"`

	// DwellTimeSecs is the minimum time a transaction must have sat in
	// the mempool before it can be called censored (one slot).
	DwellTimeSecs int64 `yaml:"censorship_dwell_time_secs"`

	// MaxDwellTimeSecs caps the dwell window; entries older than this
	// are treated as abandoned rather than censored.
	MaxDwellTimeSecs int64 `yaml:"censorship_max_dwell_time_secs"`

	// FeePercentile is the competitiveness bar: a censored transaction's
	// effective tip must reach this percentile of the trailing mempool.
	// 0.25 for the simple variant, 0.50 for the FOCIL-compliant one.
	FeePercentile float64 `yaml:"censorship_fee_percentile"`

	// PercentileWindowSecs is the trailing window the fee percentile is
	// computed over.
	PercentileWindowSecs int64 `yaml:"censorship_percentile_window_secs"`

	// RequireType2 restricts censorship candidates to EIP-1559
	// transactions, excluding legacy-format spam.
	RequireType2 bool `yaml:"require_type2"`

	// GasCapacityCheck requires candidates to fit in the gas headroom of
	// both the previous and the target block.
	GasCapacityCheck bool `yaml:"gas_capacity_check"`

	// ActiveSenderFilter requires a censored transaction's sender to have
	// at least one transaction included in an earlier block.
	ActiveSenderFilter bool `yaml:"active_sender_filter"`
}

// OutputConfig holds artifact output settings.
type OutputConfig struct {
	ResultsDir string `yaml:"results_dir"`
	// Format is one of "parquet", "csv" or "both".
	Format string `yaml:"format"`
}

// Config is the full pipeline configuration.
type Config struct {
	ClickHouse StoreConfig    `yaml:"clickhouse"`
	Analysis   AnalysisConfig `yaml:"analysis"`
	Output     OutputConfig   `yaml:"output"`

	// Workers is the number of chunks processed in parallel.
	Workers int `yaml:"workers"`

	// Resume skips chunks whose output artifact already exists.
	Resume bool `yaml:"resume"`
}

// Default returns a Config with the parameters used by the published
// FOCIL bandwidth study.
func Default() Config {
	return Config{
		ClickHouse: StoreConfig{
			MaxRetries:  3,
			TimeoutSecs: 300,
		},
		Analysis: AnalysisConfig{
			ChunkSizeBlocks:      10_000,
			TimeWindowStartSecs:  -4,
			TimeWindowEndSecs:    8,
			DwellTimeSecs:        12,
			MaxDwellTimeSecs:     120,
			FeePercentile:        0.50,
			PercentileWindowSecs: 30,
			RequireType2:         true,
			GasCapacityCheck:     true,
			ActiveSenderFilter:   true,
		},
		Output: OutputConfig{
			ResultsDir: "results/chunks",
			Format:     "parquet",
		},
		Workers: 1,
		Resume:  false,
	}
}

// envPattern matches ${VAR} and ${VAR:default} placeholders.
var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv resolves ${VAR} and ${VAR:default} placeholders against the
// environment. A placeholder with no default and no matching variable is
// an error; silently dropping credentials produces confusing failures
// much later, at query time.
func expandEnv(raw []byte) ([]byte, error) {
	var missing []string
	out := envPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		expr := string(m[2 : len(m)-1])
		name, def, hasDef := strings.Cut(expr, ":")
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		if hasDef {
			return []byte(def)
		}
		missing = append(missing, name)
		return m
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnresolvedEnv, missing)
	}
	return out, nil
}

// Load reads, expands and parses the YAML configuration at path, applied
// on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	resolved, err := expandEnv(raw)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(resolved, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for correctness. It is called before
// any processing begins so bad ranges fail fast.
func (c *Config) Validate() error {
	if c.Analysis.EndBlock <= c.Analysis.StartBlock {
		return ErrBlockRange
	}
	if c.Analysis.ChunkSizeBlocks <= 0 {
		return ErrChunkSize
	}
	if c.Analysis.FeePercentile <= 0 || c.Analysis.FeePercentile >= 1 {
		return ErrPercentile
	}
	if c.Analysis.MaxDwellTimeSecs < c.Analysis.DwellTimeSecs {
		return ErrDwellBounds
	}
	if c.Analysis.TimeWindowEndSecs <= c.Analysis.TimeWindowStartSecs {
		return ErrWindowBounds
	}
	if c.ClickHouse.URL == "" {
		return ErrStoreURL
	}
	switch c.Output.Format {
	case "parquet", "csv", "both":
	default:
		return ErrOutputFormat
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}
