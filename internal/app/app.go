// Package app wires the pipeline stages together and runs them.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/labeltally/labeltally/internal/aggregator"
	"github.com/labeltally/labeltally/internal/config"
	"github.com/labeltally/labeltally/internal/errors"
	"github.com/labeltally/labeltally/internal/exporter"
	"github.com/labeltally/labeltally/internal/fetcher"
	"github.com/labeltally/labeltally/internal/labeling"
	"github.com/labeltally/labeltally/internal/parser"
	"github.com/labeltally/labeltally/internal/report"
	"github.com/labeltally/labeltally/internal/resolver"
	"github.com/labeltally/labeltally/internal/storage"
	"github.com/labeltally/labeltally/pkg/types"
)

// App runs the fetch-parse-aggregate-resolve-export pipeline.
// Collaborator clients are injected so tests can substitute fakes.
type App struct {
	cfg       *config.Config
	jobs      labeling.JobMetadata
	store     storage.ObjectStore
	directory resolver.IdentityDirectory
}

// New creates an App with the given configuration and collaborators.
func New(cfg *config.Config, jobs labeling.JobMetadata, store storage.ObjectStore, directory resolver.IdentityDirectory) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	return &App{
		cfg:       cfg,
		jobs:      jobs,
		store:     store,
		directory: directory,
	}, nil
}

// Run executes the pipeline once. Each stage fully consumes its input
// before the next begins. The run either produces a complete output
// file or fails with a diagnostic naming the job, file, or lookup that
// broke.
func (a *App) Run(ctx context.Context) error {
	run := report.NewRun(a.cfg.JobIDs)

	// Fetch
	fetched, err := fetcher.New(a.jobs, a.store, a.cfg.FetchConcurrency).
		Fetch(ctx, a.cfg.JobIDs, a.cfg.StagingDir)
	if err != nil {
		return err
	}
	log.Printf("fetch: %d jobs, %d objects staged under %s",
		fetched.Jobs, fetched.Downloads, a.cfg.StagingDir)

	// Parse
	events, err := parser.New().ParseAll(a.cfg.StagingDir)
	if err != nil {
		return errors.NewParseError(errors.CodeUnreadableFile, "walking staging directory", err)
	}
	log.Printf("parse: %d answer events", len(events))

	// Aggregate
	rows := aggregator.Aggregate(events)
	log.Printf("aggregate: %d distinct workers", len(rows))

	// Resolve. All events are assumed to share one identity pool; when
	// they don't, only the first pool's rows resolve and the rest stay
	// absent, so the extra pools are surfaced loudly.
	poolID := a.cfg.PoolID
	if poolID == "" {
		var extras []string
		poolID, extras = aggregator.FirstPool(events)
		if len(extras) > 0 {
			log.Printf("resolve: events span multiple identity pools (%v); resolving against %s only",
				extras, poolID)
		}
	}
	if poolID != "" {
		rows = resolver.New(a.directory, a.cfg.ResolveRetries).Resolve(ctx, rows, poolID)
	} else if len(rows) > 0 {
		log.Printf("resolve: %v", errors.New(errors.ErrCategoryResolve, errors.CodeNoPool,
			"no identity pool observed, usernames left unresolved"))
	}

	// Export
	if err := exporter.WriteCSV(rows, a.cfg.OutputPath); err != nil {
		return err
	}
	log.Printf("export: wrote %d rows to %s", len(rows), a.cfg.OutputPath)

	// Run history
	if a.cfg.ReportDB != "" {
		run.PoolID = poolID
		run.EventCount = len(events)
		run.WorkerCount = len(rows)
		run.OutputPath = a.cfg.OutputPath
		run.FinishedAt = time.Now().UTC()
		if err := a.recordRun(ctx, run, rows); err != nil {
			// History is an audit convenience; the report already exists.
			log.Printf("report: failed to record run %s: %v", run.ID, err)
		}
	}

	return nil
}

func (a *App) recordRun(ctx context.Context, run report.Run, rows []types.AggregatedRow) error {
	store, err := report.Open(a.cfg.ReportDB)
	if err != nil {
		return errors.Wrap(errors.ErrCategoryReport, errors.CodeStoreFailed,
			"opening run history "+a.cfg.ReportDB, err)
	}
	defer store.Close()

	if err := store.RecordRun(ctx, run, rows); err != nil {
		return errors.Wrap(errors.ErrCategoryReport, errors.CodeStoreFailed,
			"recording run "+run.ID, err)
	}
	return nil
}
