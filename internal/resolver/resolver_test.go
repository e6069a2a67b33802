package resolver

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/labeltally/labeltally/internal/errors"
	"github.com/labeltally/labeltally/pkg/types"
)

// fakeDirectory serves lookups from a map and can fail a configurable
// number of times per subject.
type fakeDirectory struct {
	users    map[string]string // sub -> username
	failures map[string]int    // sub -> remaining transient failures
	calls    int
}

func (f *fakeDirectory) FindUsersBySubject(ctx context.Context, poolID, sub string) ([]DirectoryUser, error) {
	f.calls++
	if remaining := f.failures[sub]; remaining > 0 {
		f.failures[sub] = remaining - 1
		return nil, stderrors.New("simulated throttling")
	}
	username, ok := f.users[sub]
	if !ok {
		return nil, nil
	}
	return []DirectoryUser{{Username: username, Sub: sub}}, nil
}

func TestResolve_PopulatesUsernames(t *testing.T) {
	dir := &fakeDirectory{users: map[string]string{
		"abc": "alice",
		"xyz": "bob",
	}}

	rows := []types.AggregatedRow{
		{Sub: "abc", Count: 2},
		{Sub: "xyz", Count: 1},
	}

	resolved := New(dir, 2).Resolve(context.Background(), rows, "us-east-1_PoolA")
	if len(resolved) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resolved))
	}
	if resolved[0].Username != "alice" || resolved[1].Username != "bob" {
		t.Errorf("usernames: got %q, %q", resolved[0].Username, resolved[1].Username)
	}
	// Counts and subjects pass through unchanged.
	if resolved[0].Sub != "abc" || resolved[0].Count != 2 {
		t.Errorf("row 0 mutated: %+v", resolved[0])
	}
}

func TestResolve_ZeroMatchesLeavesAbsent(t *testing.T) {
	dir := &fakeDirectory{users: map[string]string{}}

	rows := []types.AggregatedRow{{Sub: "xyz", Count: 1}}
	resolved := New(dir, 2).Resolve(context.Background(), rows, "us-east-1_PoolA")

	if len(resolved) != 1 {
		t.Fatalf("expected 1 row, got %d", len(resolved))
	}
	if resolved[0].Username != "" {
		t.Errorf("expected absent username, got %q", resolved[0].Username)
	}
	if resolved[0].Sub != "xyz" || resolved[0].Count != 1 {
		t.Errorf("row mutated: %+v", resolved[0])
	}
}

func TestResolve_RetriesTransientFailures(t *testing.T) {
	dir := &fakeDirectory{
		users:    map[string]string{"abc": "alice"},
		failures: map[string]int{"abc": 2},
	}

	rows := []types.AggregatedRow{{Sub: "abc", Count: 3}}
	resolved := New(dir, 3).Resolve(context.Background(), rows, "us-east-1_PoolA")

	if resolved[0].Username != "alice" {
		t.Errorf("expected retry to recover, got username %q", resolved[0].Username)
	}
	if dir.calls != 3 {
		t.Errorf("expected 3 lookup calls, got %d", dir.calls)
	}
}

func TestResolve_ExhaustedRetriesLeaveAbsent(t *testing.T) {
	dir := &fakeDirectory{
		users:    map[string]string{"abc": "alice", "def": "dana"},
		failures: map[string]int{"abc": 100},
	}

	rows := []types.AggregatedRow{
		{Sub: "abc", Count: 2},
		{Sub: "def", Count: 1},
	}
	resolved := New(dir, 1).Resolve(context.Background(), rows, "us-east-1_PoolA")

	// Total: one output row per input row, unresolvable row left absent,
	// later rows still resolved.
	if len(resolved) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resolved))
	}
	if resolved[0].Username != "" {
		t.Errorf("expected absent username for failing subject, got %q", resolved[0].Username)
	}
	if resolved[1].Username != "dana" {
		t.Errorf("expected later row resolved, got %q", resolved[1].Username)
	}
}

func TestLookupWithRetry_ExhaustionReportsLookupFailed(t *testing.T) {
	dir := &fakeDirectory{failures: map[string]int{"abc": 100}}

	r := New(dir, 1)
	_, err := r.lookupWithRetry(context.Background(), "us-east-1_PoolA", "abc")
	if err == nil {
		t.Fatal("expected exhausted retries to fail")
	}
	if errors.GetCode(err) != errors.CodeLookupFailed {
		t.Errorf("expected LOOKUP_FAILED, got %v", err)
	}
	// A failed lookup is transient from the caller's point of view.
	if !errors.IsRetryable(err) {
		t.Errorf("expected lookup failure to be retryable: %v", err)
	}
}

func TestResolve_EmptyRows(t *testing.T) {
	dir := &fakeDirectory{}
	resolved := New(dir, 1).Resolve(context.Background(), nil, "us-east-1_PoolA")
	if len(resolved) != 0 {
		t.Errorf("expected no rows, got %d", len(resolved))
	}
	if dir.calls != 0 {
		t.Errorf("expected no lookups, got %d", dir.calls)
	}
}
