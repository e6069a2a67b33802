// Package types defines the core data model shared across the labeltally
// pipeline: staged response files, flat answer events, and aggregated
// per-worker rows.
package types

import "strings"

// ResponseFile is one downloaded worker-response object staged on the
// local filesystem. TaskID is derived from the containing path segment
// and associates the file with its originating task. Never mutated
// after the fetch stage.
type ResponseFile struct {
	TaskID    string
	LocalPath string
}

// AnswerEvent is one flat record extracted from a worker-response file.
// A single file may yield several events (one per entry in its answers
// array).
type AnswerEvent struct {
	// SubmissionTime is the ISO-8601 submission timestamp, kept as a
	// string; the pipeline never needs to interpret it.
	SubmissionTime string

	// WorkerID is the opaque worker identifier assigned by the
	// labeling service.
	WorkerID string

	// IdentityProviderType names the identity provider backing the
	// worker's account (e.g. "Cognito").
	IdentityProviderType string

	// Sub is the stable, pool-scoped unique identifier for the
	// worker. It is the join key against the identity directory.
	Sub string

	// UserPoolID is the identity pool the worker belongs to, derived
	// from the final path segment of the issuer URI.
	UserPoolID string
}

// AggregatedRow is one row of the final report: a worker subject, the
// number of answer events observed for it, and the resolved directory
// username. Username is empty when the directory has no matching user
// (a deleted or deprovisioned worker).
type AggregatedRow struct {
	Sub      string
	Count    int
	Username string
}

// UserPoolFromIssuer extracts the pool identifier from an issuer URI by
// taking its final /-delimited segment. Returns "" for an empty issuer.
func UserPoolFromIssuer(issuer string) string {
	issuer = strings.TrimRight(issuer, "/")
	if issuer == "" {
		return ""
	}
	if i := strings.LastIndex(issuer, "/"); i >= 0 {
		return issuer[i+1:]
	}
	return issuer
}
