// Package main implements the labeltally binary: it aggregates
// per-worker labeling activity for a set of labeling jobs into a CSV
// report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/labeltally/labeltally/internal/app"
	"github.com/labeltally/labeltally/internal/config"
	"github.com/labeltally/labeltally/internal/errors"
	"github.com/labeltally/labeltally/internal/labeling"
	"github.com/labeltally/labeltally/internal/resolver"
	"github.com/labeltally/labeltally/internal/storage"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configFile  string
		jobList     string
		dataDir     string
		stagingDir  string
		outputPath  string
		reportDB    string
		poolID      string
		region      string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&jobList, "jobs", "", "Comma-separated labeling job names")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for staging and reports")
	flag.StringVar(&stagingDir, "staging-dir", "", "Directory for downloaded worker responses")
	flag.StringVar(&outputPath, "output", "", "Destination CSV file")
	flag.StringVar(&reportDB, "report-db", "", "Optional SQLite run-history database")
	flag.StringVar(&poolID, "pool-id", "", "Identity pool override (defaults to the pool of the first event)")
	flag.StringVar(&region, "region", "", "AWS region for all collaborators")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "labeltally - per-worker labeling activity reports\n\n")
		fmt.Fprintf(os.Stderr, "Usage: labeltally [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  labeltally --jobs my-labeling-job --output counts.csv\n")
		fmt.Fprintf(os.Stderr, "  labeltally --config /etc/labeltally/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  LABELTALLY_JOB_IDS        Comma-separated job names\n")
		fmt.Fprintf(os.Stderr, "  LABELTALLY_DATA_DIR       Base directory for staging and reports\n")
		fmt.Fprintf(os.Stderr, "  LABELTALLY_OUTPUT_PATH    Destination CSV file\n")
		fmt.Fprintf(os.Stderr, "  LABELTALLY_AWS_REGION     AWS region for all collaborators\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("labeltally version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg, err := loadConfig(configFile, jobList, dataDir, stagingDir, outputPath, reportDB, poolID, region)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		if errors.IsRetryable(err) {
			log.Fatalf("Run failed (transient; rerunning may succeed): %v", err)
		}
		log.Fatalf("Run failed: %v", err)
	}
}

// run constructs the AWS collaborators and executes the pipeline.
func run(ctx context.Context, cfg *config.Config) error {
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Region:       cfg.AWS.Region,
		Endpoint:     cfg.AWS.S3Endpoint,
		UsePathStyle: cfg.AWS.S3UsePathStyle,
	})
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	jobs, err := labeling.NewSageMakerJobMetadata(ctx, cfg.AWS.Region)
	if err != nil {
		return fmt.Errorf("failed to create job metadata client: %w", err)
	}

	directory, err := resolver.NewCognitoDirectory(ctx, cfg.AWS.Region)
	if err != nil {
		return fmt.Errorf("failed to create identity directory client: %w", err)
	}

	application, err := app.New(cfg, jobs, store, directory)
	if err != nil {
		return err
	}

	log.Printf("labeltally %s: aggregating %s", version, strings.Join(cfg.JobIDs, ", "))
	return application.Run(ctx)
}

// loadConfig loads configuration from file, environment, and command
// line flags, in increasing priority.
func loadConfig(configFile, jobList, dataDir, stagingDir, outputPath, reportDB, poolID, region string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if jobList != "" {
		var jobs []string
		for _, j := range strings.Split(jobList, ",") {
			if j = strings.TrimSpace(j); j != "" {
				jobs = append(jobs, j)
			}
		}
		cfg.JobIDs = jobs
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if stagingDir != "" {
		cfg.StagingDir = stagingDir
	}
	if outputPath != "" {
		cfg.OutputPath = outputPath
	}
	if reportDB != "" {
		cfg.ReportDB = reportDB
	}
	if poolID != "" {
		cfg.PoolID = poolID
	}
	if region != "" {
		cfg.AWS.Region = region
	}

	return cfg, nil
}
