package engine

import (
	"flag"
	"fmt"
)

// Config configures query execution.
type Config struct {
	// BatchSize is the maximum number of rows per batch read from file data
	// sources.
	BatchSize int `yaml:"batch_size"`
}

// RegisterFlagsWithPrefix registers the flags of cfg with the given prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.BatchSize, prefix+"batch-size", 1024, "Maximum number of rows per batch read from file data sources.")
}

// RegisterFlags registers the flags of cfg without a prefix.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("", f)
}

// Validate validates cfg.
func (cfg *Config) Validate() error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size for query engine. must be greater than 0, got %d", cfg.BatchSize)
	}
	return nil
}
