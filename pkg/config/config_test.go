package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/VSortDB/vsort/pkg/extsort"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}

	if cfg.NumBuffers != 4 {
		t.Errorf("Expected 4 default buffers, got %d", cfg.NumBuffers)
	}
	if cfg.SmallFileMax != extsort.DefaultSmallFileMax {
		t.Errorf("Expected small_file_max %d, got %d",
			extsort.DefaultSmallFileMax, cfg.SmallFileMax)
	}
	if cfg.MediumFileMax != extsort.DefaultMediumFileMax {
		t.Errorf("Expected medium_file_max %d, got %d",
			extsort.DefaultMediumFileMax, cfg.MediumFileMax)
	}
	if cfg.Codec != SnapshotNone {
		t.Errorf("Expected default codec %q, got %q", SnapshotNone, cfg.Codec)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero version", func(c *Config) { c.Version = 0 }},
		{"zero buffers", func(c *Config) { c.NumBuffers = 0 }},
		{"too many buffers", func(c *Config) { c.NumBuffers = 21 }},
		{"zero small max", func(c *Config) { c.SmallFileMax = 0 }},
		{"medium below small", func(c *Config) { c.MediumFileMax = c.SmallFileMax - 1 }},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative insertion threshold", func(c *Config) { c.InsertionThreshold = -1 }},
		{"unknown codec", func(c *Config) { c.Codec = "gzip" }},
		{"snapshot without dir", func(c *Config) { c.SnapshotBeforeSort = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewDefaultConfig()
	cfg.NumBuffers = 8
	cfg.ChunkSize = 2048
	cfg.SnapshotBeforeSort = true
	cfg.SnapshotDir = "/tmp/snapshots"
	cfg.Codec = SnapshotZstd

	if err := cfg.SaveConfigToFile(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.NumBuffers != 8 {
		t.Errorf("Expected 8 buffers, got %d", loaded.NumBuffers)
	}
	if loaded.ChunkSize != 2048 {
		t.Errorf("Expected chunk size 2048, got %d", loaded.ChunkSize)
	}
	if !loaded.SnapshotBeforeSort || loaded.SnapshotDir != "/tmp/snapshots" {
		t.Errorf("Snapshot settings did not round trip: %+v", loaded)
	}
	if loaded.Codec != SnapshotZstd {
		t.Errorf("Expected codec %q, got %q", SnapshotZstd, loaded.Codec)
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"version": 1, "num_buffers": 2}`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.NumBuffers != 2 {
		t.Errorf("Expected 2 buffers, got %d", cfg.NumBuffers)
	}
	if cfg.SmallFileMax != extsort.DefaultSmallFileMax {
		t.Errorf("Unset fields should keep their defaults, got small_file_max %d",
			cfg.SmallFileMax)
	}
}

func TestLoadMissingConfig(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadMalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfigFromFile(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadInvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"version": 1, "num_buffers": 99}`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfigFromFile(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
