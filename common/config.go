package common

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported model file formats
const (
	ModelFormatGob  = "gob"
	ModelFormatHDF5 = "hdf5"
)

// Supported index backends
const (
	IndexMemory = "memory"
	IndexPureKv = "purekv"
)

var (
	errWorkers     = errors.New("workers number must be a positive integer")
	errBatchSize   = errors.New("batch size must be a positive integer")
	errModelFormat = errors.New("unknown model format")
	errIndex       = errors.New("unknown index backend")
)

// DispatcherConfig holds worker pool settings
type DispatcherConfig struct {
	Workers        int           `yaml:"workers"`
	BatchSize      int           `yaml:"batchSize"`
	ReportInterval time.Duration `yaml:"reportInterval"`
	CollectTimeout time.Duration `yaml:"collectTimeout"`
	Progress       bool          `yaml:"progress"`
}

// PathsConfig holds locations of the run inputs and outputs
type PathsConfig struct {
	UUIDList    string `yaml:"uuidList"`
	Model       string `yaml:"model"`
	ModelFormat string `yaml:"modelFormat"`
	IndexCache  string `yaml:"indexCache"`
}

// PureKvConfig holds pure-kv connection settings
type PureKvConfig struct {
	Address string `yaml:"address"`
	Timeout int    `yaml:"timeout"`
}

// Config holds all needed variables to run small-codes computation
type Config struct {
	Dispatcher  DispatcherConfig `yaml:"dispatcher"`
	Paths       PathsConfig      `yaml:"paths"`
	PureKv      PureKvConfig     `yaml:"purekv"`
	Index       string           `yaml:"index"`
	SkipIndexed bool             `yaml:"skipIndexed"`
}

// DefaultConfig returns config with defaults filled in
func DefaultConfig() Config {
	return Config{
		Dispatcher: DispatcherConfig{
			Workers:        runtime.NumCPU(),
			BatchSize:      500,
			ReportInterval: time.Second,
		},
		Paths: PathsConfig{
			ModelFormat: ModelFormatGob,
		},
		PureKv: PureKvConfig{
			Timeout: 500,
		},
		Index: IndexMemory,
	}
}

// LoadConfig reads defaults, then the yaml file (if path is not empty), then env overrides
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if len(path) > 0 {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &config); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := ParseEnv(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ParseEnv overrides config fields by the environment variables which are set
func ParseEnv(config *Config) error {
	intVars := map[string]*int{
		"WORKERS":        &config.Dispatcher.Workers,
		"BATCH_SIZE":     &config.Dispatcher.BatchSize,
		"PUREKV_TIMEOUT": &config.PureKv.Timeout,
	}
	for key, dst := range intVars {
		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("env value %s: %w", key, err)
		}
		*dst = val
	}
	durationVars := map[string]*time.Duration{
		"REPORT_INTERVAL": &config.Dispatcher.ReportInterval,
		"COLLECT_TIMEOUT": &config.Dispatcher.CollectTimeout,
	}
	for key, dst := range durationVars {
		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		val, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("env value %s: %w", key, err)
		}
		*dst = val
	}
	boolVars := map[string]*bool{
		"SKIP_INDEXED": &config.SkipIndexed,
		"PROGRESS":     &config.Dispatcher.Progress,
	}
	for key, dst := range boolVars {
		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		val, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("env value %s: %w", key, err)
		}
		*dst = val
	}
	stringVars := map[string]*string{
		"UUID_LIST_PATH":   &config.Paths.UUIDList,
		"MODEL_PATH":       &config.Paths.Model,
		"MODEL_FORMAT":     &config.Paths.ModelFormat,
		"INDEX_CACHE_PATH": &config.Paths.IndexCache,
		"INDEX":            &config.Index,
		"PUREKV_ADDR":      &config.PureKv.Address,
	}
	for key, dst := range stringVars {
		if val := os.Getenv(key); len(val) > 0 {
			*dst = val
		}
	}
	return nil
}

// Validate checks values which can't be fixed by defaults
func (c *Config) Validate() error {
	if c.Dispatcher.Workers <= 0 {
		return errWorkers
	}
	if c.Dispatcher.BatchSize <= 0 {
		return errBatchSize
	}
	switch c.Paths.ModelFormat {
	case ModelFormatGob, ModelFormatHDF5:
	default:
		return fmt.Errorf("%w: %q", errModelFormat, c.Paths.ModelFormat)
	}
	switch c.Index {
	case IndexMemory, IndexPureKv:
	default:
		return fmt.Errorf("%w: %q", errIndex, c.Index)
	}
	return nil
}
