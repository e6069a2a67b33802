// Package fetcher implements the record-fetch stage: resolving each
// labeling job's output location and staging every worker-response
// object on the local filesystem.
package fetcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/labeltally/labeltally/internal/errors"
	"github.com/labeltally/labeltally/internal/labeling"
	"github.com/labeltally/labeltally/internal/storage"
)

// DefaultResponsePath is the fixed sub-path under a job's output
// location where the labeling service writes worker responses.
const DefaultResponsePath = "annotations/worker-response/"

// Fetcher stages worker-response objects for a set of labeling jobs.
type Fetcher struct {
	jobs         labeling.JobMetadata
	store        storage.ObjectStore
	responsePath string
	concurrency  int
}

// Result summarizes one fetch run.
type Result struct {
	Jobs      int
	Downloads int
	Markers   int
}

// New creates a fetcher. concurrency bounds parallel downloads;
// values below 1 are treated as 1.
func New(jobs labeling.JobMetadata, store storage.ObjectStore, concurrency int) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		jobs:         jobs,
		store:        store,
		responsePath: DefaultResponsePath,
		concurrency:  concurrency,
	}
}

// Fetch stages all worker-response objects for the given jobs under
// destDir, preserving each object's key structure relative to the
// job's worker-response prefix (so the task association survives).
//
// Policy: any failure aborts the whole run. An incompletely staged
// directory would silently undercount workers downstream, which is
// worse than no output at all.
func (f *Fetcher) Fetch(ctx context.Context, jobIDs []string, destDir string) (Result, error) {
	var result Result

	for _, jobID := range jobIDs {
		info, err := f.jobs.DescribeJob(ctx, jobID)
		if err != nil {
			return result, err
		}

		prefix := info.Output.Join(jobID, f.responsePath) + "/"
		keys, err := f.store.ListObjects(ctx, info.Output.Bucket, prefix)
		if err != nil {
			return result, errors.NewFetchError(errors.CodeListFailed,
				fmt.Sprintf("listing %s for job %q", prefix, jobID), err)
		}

		downloads, markers, err := f.stageJob(ctx, info.Output.Bucket, prefix, jobID, destDir, keys)
		result.Downloads += downloads
		result.Markers += markers
		if err != nil {
			return result, err
		}

		result.Jobs++
		log.Printf("fetch: job %s staged %d objects (%d directory markers)", jobID, downloads, markers)
	}

	return result, nil
}

// stageJob downloads one job's listed keys with bounded parallelism.
func (f *Fetcher) stageJob(ctx context.Context, bucket, prefix, jobID, destDir string, keys []string) (int, int, error) {
	sem := semaphore.NewWeighted(int64(f.concurrency))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		downloads int
		firstErr  error
	)

	markers := 0
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		localPath := filepath.Join(destDir, jobID, filepath.FromSlash(rel))

		// Directory markers create structure but carry no content. A
		// marker failure aborts the job, but only after every download
		// already in flight has finished: the wait below must run
		// unconditionally so no goroutine outlives the call.
		if strings.HasSuffix(key, "/") {
			if err := os.MkdirAll(localPath, 0755); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = errors.NewFetchError(errors.CodeDownloadFailed,
						fmt.Sprintf("creating directory for marker %s", key), err)
				}
				mu.Unlock()
				break
			}
			markers++
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func(key, localPath string) {
			defer sem.Release(1)
			defer wg.Done()

			if err := f.store.Download(ctx, bucket, key, localPath); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = errors.NewFetchError(errors.CodeDownloadFailed,
						fmt.Sprintf("downloading %s", key), err)
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			downloads++
			mu.Unlock()
		}(key, localPath)
	}

	wg.Wait()
	return downloads, markers, firstErr
}
