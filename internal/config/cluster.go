package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/geokmedoids/internal/distance"
	"github.com/banshee-data/geokmedoids/internal/kmedoids"
)

// DefaultConfigPath is the path to the canonical clustering defaults file.
const DefaultConfigPath = "config/geokmedoids.defaults.json"

// Defaults used when a field is absent.
const (
	DefaultKClusters      = 200
	DefaultMaxIter        = kmedoids.DefaultMaxIter
	DefaultInit           = string(kmedoids.DefaultInit)
	DefaultMethod         = string(kmedoids.DefaultMethod)
	DefaultDistanceMetric = distance.Planar
	DefaultOutputPrefix   = "output"
)

// ClusterConfig holds the clustering parameters. Every field is optional;
// the Get* accessors fall back to the package defaults, so partial files
// and flag overlays compose.
type ClusterConfig struct {
	KClusters      *int    `json:"k_clusters,omitempty"`
	MaxIter        *int    `json:"max_iter,omitempty"`
	Init           *string `json:"init,omitempty"`
	Method         *string `json:"method,omitempty"`
	DistanceMetric *string `json:"distance_metric,omitempty"`
	RandomSeed     *uint64 `json:"random_seed,omitempty"`

	// Workers bounds matrix and swap-search concurrency; 0 means GOMAXPROCS.
	Workers *int `json:"workers,omitempty"`
	// MatrixBudget is a duration string like "30s". Exceeding it is
	// reported, never enforced.
	MatrixBudget *string `json:"matrix_budget,omitempty"`

	OutputPrefix *string `json:"output_prefix,omitempty"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrUint64(v uint64) *uint64 { return &v }
func ptrString(v string) *string { return &v }

// EmptyClusterConfig returns a ClusterConfig with all fields set to nil.
func EmptyClusterConfig() *ClusterConfig {
	return &ClusterConfig{}
}

// DefaultClusterConfig returns a ClusterConfig with every field set to its
// default.
func DefaultClusterConfig() *ClusterConfig {
	return &ClusterConfig{
		KClusters:      ptrInt(DefaultKClusters),
		MaxIter:        ptrInt(DefaultMaxIter),
		Init:           ptrString(DefaultInit),
		Method:         ptrString(DefaultMethod),
		DistanceMetric: ptrString(DefaultDistanceMetric),
		RandomSeed:     ptrUint64(0),
		Workers:        ptrInt(0),
		MatrixBudget:   ptrString(""),
		OutputPrefix:   ptrString(DefaultOutputPrefix),
	}
}

// LoadClusterConfig loads a ClusterConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadClusterConfig(path string) (*ClusterConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyClusterConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file
// cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ClusterConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadClusterConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *ClusterConfig) Validate() error {
	if c.KClusters != nil && *c.KClusters <= 0 {
		return fmt.Errorf("k_clusters must be positive, got %d", *c.KClusters)
	}
	if c.MaxIter != nil && *c.MaxIter < 1 {
		return fmt.Errorf("max_iter must be at least 1, got %d", *c.MaxIter)
	}
	if c.Init != nil {
		if _, err := kmedoids.ParseInit(*c.Init); err != nil {
			return err
		}
	}
	if c.Method != nil {
		if _, err := kmedoids.ParseMethod(*c.Method); err != nil {
			return err
		}
	}
	if c.DistanceMetric != nil {
		if _, err := distance.Parse(*c.DistanceMetric); err != nil {
			return err
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.MatrixBudget != nil && *c.MatrixBudget != "" {
		if _, err := time.ParseDuration(*c.MatrixBudget); err != nil {
			return fmt.Errorf("invalid matrix_budget '%s': %w", *c.MatrixBudget, err)
		}
	}
	if c.OutputPrefix != nil && *c.OutputPrefix == "" {
		return fmt.Errorf("output_prefix must not be empty")
	}
	return nil
}

// Overlay copies every field set in o onto c.
func (c *ClusterConfig) Overlay(o *ClusterConfig) {
	if o == nil {
		return
	}
	if o.KClusters != nil {
		c.KClusters = o.KClusters
	}
	if o.MaxIter != nil {
		c.MaxIter = o.MaxIter
	}
	if o.Init != nil {
		c.Init = o.Init
	}
	if o.Method != nil {
		c.Method = o.Method
	}
	if o.DistanceMetric != nil {
		c.DistanceMetric = o.DistanceMetric
	}
	if o.RandomSeed != nil {
		c.RandomSeed = o.RandomSeed
	}
	if o.Workers != nil {
		c.Workers = o.Workers
	}
	if o.MatrixBudget != nil {
		c.MatrixBudget = o.MatrixBudget
	}
	if o.OutputPrefix != nil {
		c.OutputPrefix = o.OutputPrefix
	}
}

// GetKClusters returns the k_clusters value or the default.
func (c *ClusterConfig) GetKClusters() int {
	if c.KClusters == nil {
		return DefaultKClusters
	}
	return *c.KClusters
}

// GetMaxIter returns the max_iter value or the default.
func (c *ClusterConfig) GetMaxIter() int {
	if c.MaxIter == nil {
		return DefaultMaxIter
	}
	return *c.MaxIter
}

// GetInit returns the canonical init name or the default.
func (c *ClusterConfig) GetInit() string {
	if c.Init == nil {
		return DefaultInit
	}
	init, err := kmedoids.ParseInit(*c.Init)
	if err != nil {
		return DefaultInit
	}
	return string(init)
}

// GetMethod returns the canonical method name or the default.
func (c *ClusterConfig) GetMethod() string {
	if c.Method == nil {
		return DefaultMethod
	}
	m, err := kmedoids.ParseMethod(*c.Method)
	if err != nil {
		return DefaultMethod
	}
	return string(m)
}

// GetDistanceMetric returns the canonical metric name or the default.
func (c *ClusterConfig) GetDistanceMetric() string {
	if c.DistanceMetric == nil {
		return DefaultDistanceMetric
	}
	m, err := distance.Parse(*c.DistanceMetric)
	if err != nil {
		return DefaultDistanceMetric
	}
	return m
}

// GetRandomSeed returns the random_seed value or 0.
func (c *ClusterConfig) GetRandomSeed() uint64 {
	if c.RandomSeed == nil {
		return 0
	}
	return *c.RandomSeed
}

// GetWorkers returns the workers value or 0 (GOMAXPROCS).
func (c *ClusterConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetMatrixBudget parses and returns the MatrixBudget. Zero means no budget.
func (c *ClusterConfig) GetMatrixBudget() time.Duration {
	if c.MatrixBudget == nil || *c.MatrixBudget == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.MatrixBudget)
	if err != nil {
		return 0
	}
	return d
}

// GetOutputPrefix returns the output_prefix value or the default.
func (c *ClusterConfig) GetOutputPrefix() string {
	if c.OutputPrefix == nil || *c.OutputPrefix == "" {
		return DefaultOutputPrefix
	}
	return *c.OutputPrefix
}

// KMedoids returns the engine configuration.
func (c *ClusterConfig) KMedoids() kmedoids.Config {
	return kmedoids.Config{
		K:       c.GetKClusters(),
		Init:    kmedoids.Init(c.GetInit()),
		Method:  kmedoids.Method(c.GetMethod()),
		MaxIter: c.GetMaxIter(),
		Seed:    c.GetRandomSeed(),
		Workers: c.GetWorkers(),
	}
}

// Metric builds the configured distance metric.
func (c *ClusterConfig) Metric(opts ...distance.Option) (distance.Metric, error) {
	opts = append([]distance.Option{
		distance.WithWorkers(c.GetWorkers()),
		distance.WithBudget(c.GetMatrixBudget()),
	}, opts...)
	return distance.New(c.GetDistanceMetric(), opts...)
}
