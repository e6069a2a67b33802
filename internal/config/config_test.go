package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/labeltally/labeltally/internal/errors"
)

func TestValidate_EmptyJobList(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty job list")
	}
	if errors.GetCode(err) != errors.CodeEmptyJobList {
		t.Errorf("expected EMPTY_JOB_LIST, got %v", err)
	}
}

func TestValidate_BlankJobID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JobIDs = []string{"job-1", "  "}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for blank job ID")
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JobIDs = []string{"job-1"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestResolve_Defaults(t *testing.T) {
	cfg := &Config{}
	cfg.Resolve()
	if cfg.StagingDir != filepath.Join(cfg.DataDir, "staging") {
		t.Errorf("staging dir: got %q", cfg.StagingDir)
	}
	if cfg.OutputPath != filepath.Join(cfg.DataDir, "label_counts.csv") {
		t.Errorf("output path: got %q", cfg.OutputPath)
	}
}

func TestResolve_KeepsExplicitPaths(t *testing.T) {
	cfg := &Config{StagingDir: "/tmp/stage", OutputPath: "/tmp/out.csv"}
	cfg.Resolve()
	if cfg.StagingDir != "/tmp/stage" || cfg.OutputPath != "/tmp/out.csv" {
		t.Errorf("explicit paths overridden: %+v", cfg)
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
job_ids:
  - job-1
  - job-2
staging_dir: /tmp/stage
fetch_concurrency: 4
aws:
  region: eu-west-1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if !reflect.DeepEqual(cfg.JobIDs, []string{"job-1", "job-2"}) {
		t.Errorf("job IDs: got %v", cfg.JobIDs)
	}
	if cfg.StagingDir != "/tmp/stage" {
		t.Errorf("staging dir: got %q", cfg.StagingDir)
	}
	if cfg.FetchConcurrency != 4 {
		t.Errorf("fetch concurrency: got %d", cfg.FetchConcurrency)
	}
	if cfg.AWS.Region != "eu-west-1" {
		t.Errorf("region: got %q", cfg.AWS.Region)
	}
	// Unset fields keep defaults
	if cfg.ResolveRetries != 3 {
		t.Errorf("resolve retries default: got %d", cfg.ResolveRetries)
	}
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LABELTALLY_JOB_IDS", "job-1, job-2 ,")
	t.Setenv("LABELTALLY_AWS_REGION", "us-west-2")
	t.Setenv("LABELTALLY_FETCH_CONCURRENCY", "16")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if !reflect.DeepEqual(cfg.JobIDs, []string{"job-1", "job-2"}) {
		t.Errorf("job IDs: got %v", cfg.JobIDs)
	}
	if cfg.AWS.Region != "us-west-2" {
		t.Errorf("region: got %q", cfg.AWS.Region)
	}
	if cfg.FetchConcurrency != 16 {
		t.Errorf("fetch concurrency: got %d", cfg.FetchConcurrency)
	}
}
