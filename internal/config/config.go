// Package config provides unified configuration for the labeltally CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/labeltally/labeltally/internal/errors"
)

// Config holds the full pipeline configuration.
type Config struct {
	// JobIDs is the ordered list of labeling jobs to aggregate.
	JobIDs []string `json:"job_ids" yaml:"job_ids"`

	// DataDir is the base directory for staging and reports.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// StagingDir is where worker-response objects are downloaded.
	StagingDir string `json:"staging_dir" yaml:"staging_dir"`

	// OutputPath is the destination CSV file.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// ReportDB is the optional SQLite run-history database path.
	// Empty disables run history.
	ReportDB string `json:"report_db" yaml:"report_db"`

	// PoolID overrides the identity pool derived from the first
	// observed event. Usually left empty.
	PoolID string `json:"pool_id" yaml:"pool_id"`

	// FetchConcurrency bounds parallel object downloads.
	FetchConcurrency int `json:"fetch_concurrency" yaml:"fetch_concurrency"`

	// ResolveRetries bounds per-row retries for transient directory
	// lookup failures.
	ResolveRetries int `json:"resolve_retries" yaml:"resolve_retries"`

	// AWS holds collaborator client configuration.
	AWS AWSConfig `json:"aws" yaml:"aws"`
}

// AWSConfig holds AWS client configuration.
type AWSConfig struct {
	// Region is the AWS region for all collaborators.
	Region string `json:"region" yaml:"region"`

	// S3Endpoint is an optional custom S3 endpoint (MinIO, LocalStack).
	S3Endpoint string `json:"s3_endpoint" yaml:"s3_endpoint"`

	// S3UsePathStyle enables path-style addressing (required for MinIO).
	S3UsePathStyle bool `json:"s3_use_path_style" yaml:"s3_use_path_style"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:          "./data/labeltally",
		FetchConcurrency: 8,
		ResolveRetries:   3,
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/labeltally"
	}
	if c.StagingDir == "" {
		c.StagingDir = filepath.Join(c.DataDir, "staging")
	}
	if c.OutputPath == "" {
		c.OutputPath = filepath.Join(c.DataDir, "label_counts.csv")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.JobIDs) == 0 {
		return errors.NewConfigError(errors.CodeEmptyJobList,
			"at least one labeling job ID is required")
	}
	for _, id := range c.JobIDs {
		if strings.TrimSpace(id) == "" {
			return errors.NewConfigError(errors.CodeInvalidValue,
				"job IDs must be non-empty")
		}
	}
	if c.FetchConcurrency < 1 {
		return errors.NewConfigError(errors.CodeInvalidValue,
			fmt.Sprintf("fetch_concurrency must be at least 1, got %d", c.FetchConcurrency))
	}
	if c.ResolveRetries < 0 {
		return errors.NewConfigError(errors.CodeInvalidValue,
			fmt.Sprintf("resolve_retries must not be negative, got %d", c.ResolveRetries))
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.StagingDir,
		filepath.Dir(c.OutputPath),
	}
	if c.ReportDB != "" {
		dirs = append(dirs, filepath.Dir(c.ReportDB))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the LABELTALLY_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("LABELTALLY_JOB_IDS"); v != "" {
		cfg.JobIDs = splitList(v)
	}
	if v := os.Getenv("LABELTALLY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LABELTALLY_STAGING_DIR"); v != "" {
		cfg.StagingDir = v
	}
	if v := os.Getenv("LABELTALLY_OUTPUT_PATH"); v != "" {
		cfg.OutputPath = v
	}
	if v := os.Getenv("LABELTALLY_REPORT_DB"); v != "" {
		cfg.ReportDB = v
	}
	if v := os.Getenv("LABELTALLY_POOL_ID"); v != "" {
		cfg.PoolID = v
	}
	if v := os.Getenv("LABELTALLY_FETCH_CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.FetchConcurrency)
	}
	if v := os.Getenv("LABELTALLY_RESOLVE_RETRIES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.ResolveRetries)
	}
	if v := os.Getenv("LABELTALLY_AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("LABELTALLY_S3_ENDPOINT"); v != "" {
		cfg.AWS.S3Endpoint = v
	}
	if v := os.Getenv("LABELTALLY_S3_USE_PATH_STYLE"); v != "" {
		cfg.AWS.S3UsePathStyle = v == "true" || v == "1"
	}
}

// splitList splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
