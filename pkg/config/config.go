// Package config holds the tunable parameters of a sort run and their
// on-disk JSON representation. The dispatch thresholds and chunk size are
// tunables; the binary record format is not configurable.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/VSortDB/vsort/pkg/bufferpool"
	"github.com/VSortDB/vsort/pkg/extsort"
)

const (
	// CurrentConfigVersion is the current config file format version
	CurrentConfigVersion = 1
)

var (
	// ErrInvalidConfig indicates a config value out of range
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrConfigNotFound indicates a missing config file
	ErrConfigNotFound = errors.New("config file not found")
)

// SnapshotCodec names the compression codec used for pre-sort snapshots
type SnapshotCodec string

const (
	SnapshotNone   SnapshotCodec = "none"
	SnapshotSnappy SnapshotCodec = "snappy"
	SnapshotZstd   SnapshotCodec = "zstd"
)

// Config carries the tunable parameters of a sort run
type Config struct {
	Version int `json:"version"`

	// Buffer pool configuration
	NumBuffers int `json:"num_buffers"`

	// Sort dispatch configuration
	SmallFileMax       int `json:"small_file_max"`
	MediumFileMax      int `json:"medium_file_max"`
	ChunkSize          int `json:"chunk_size"`
	InsertionThreshold int `json:"insertion_threshold"`

	// Snapshot configuration
	SnapshotBeforeSort bool          `json:"snapshot_before_sort"`
	SnapshotDir        string        `json:"snapshot_dir"`
	Codec              SnapshotCodec `json:"snapshot_codec"`

	mu sync.RWMutex
}

// NewDefaultConfig creates a Config with the reference default values
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,

		NumBuffers: 4,

		SmallFileMax:       extsort.DefaultSmallFileMax,
		MediumFileMax:      extsort.DefaultMediumFileMax,
		ChunkSize:          extsort.DefaultChunkSize,
		InsertionThreshold: extsort.DefaultInsertionThreshold,

		SnapshotBeforeSort: false,
		SnapshotDir:        "",
		Codec:              SnapshotNone,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}
	if c.NumBuffers < bufferpool.MinBuffers || c.NumBuffers > bufferpool.MaxBuffers {
		return fmt.Errorf("%w: num_buffers %d not in [%d, %d]",
			ErrInvalidConfig, c.NumBuffers, bufferpool.MinBuffers, bufferpool.MaxBuffers)
	}
	if c.SmallFileMax <= 0 {
		return fmt.Errorf("%w: small_file_max must be positive", ErrInvalidConfig)
	}
	if c.MediumFileMax < c.SmallFileMax {
		return fmt.Errorf("%w: medium_file_max %d below small_file_max %d",
			ErrInvalidConfig, c.MediumFileMax, c.SmallFileMax)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	}
	if c.InsertionThreshold < 0 {
		return fmt.Errorf("%w: insertion_threshold must be non-negative", ErrInvalidConfig)
	}
	switch c.Codec {
	case SnapshotNone, SnapshotSnappy, SnapshotZstd:
	default:
		return fmt.Errorf("%w: unknown snapshot codec %q", ErrInvalidConfig, c.Codec)
	}
	if c.SnapshotBeforeSort && c.SnapshotDir == "" {
		return fmt.Errorf("%w: snapshot_before_sort requires snapshot_dir", ErrInvalidConfig)
	}
	return nil
}

// LoadConfigFromFile loads a config from a JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := NewDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfigToFile atomically writes the config as JSON to path
func (c *Config) SaveConfigToFile(path string) error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename config file: %w", err)
	}
	return nil
}
