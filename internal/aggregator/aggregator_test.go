package aggregator

import (
	"reflect"
	"testing"

	"github.com/labeltally/labeltally/pkg/types"
)

func event(sub string) types.AnswerEvent {
	return types.AnswerEvent{
		SubmissionTime:       "2024-03-01T10:00:00Z",
		WorkerID:             "private.us-east-1." + sub,
		IdentityProviderType: "Cognito",
		Sub:                  sub,
		UserPoolID:           "us-east-1_PoolA",
	}
}

func TestAggregate_CountsAndOrders(t *testing.T) {
	// Two events for "abc" (from two files), one for "xyz".
	events := []types.AnswerEvent{event("abc"), event("xyz"), event("abc")}

	rows := Aggregate(events)
	want := []types.AggregatedRow{
		{Sub: "abc", Count: 2},
		{Sub: "xyz", Count: 1},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Aggregate: got %+v, want %+v", rows, want)
	}
}

func TestAggregate_TieBrokenBySubject(t *testing.T) {
	events := []types.AnswerEvent{event("zzz"), event("aaa"), event("mmm")}

	rows := Aggregate(events)
	want := []types.AggregatedRow{
		{Sub: "aaa", Count: 1},
		{Sub: "mmm", Count: 1},
		{Sub: "zzz", Count: 1},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Aggregate: got %+v, want %+v", rows, want)
	}
}

func TestAggregate_Empty(t *testing.T) {
	rows := Aggregate(nil)
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %+v", rows)
	}
}

func TestFirstPool(t *testing.T) {
	events := []types.AnswerEvent{event("a"), event("b")}
	pool, extras := FirstPool(events)
	if pool != "us-east-1_PoolA" {
		t.Errorf("pool: got %q", pool)
	}
	if len(extras) != 0 {
		t.Errorf("extras: got %v, want none", extras)
	}
}

func TestFirstPool_DetectsMixedPools(t *testing.T) {
	other := event("b")
	other.UserPoolID = "us-east-1_PoolB"
	events := []types.AnswerEvent{event("a"), other, event("c")}

	pool, extras := FirstPool(events)
	if pool != "us-east-1_PoolA" {
		t.Errorf("pool: got %q", pool)
	}
	if !reflect.DeepEqual(extras, []string{"us-east-1_PoolB"}) {
		t.Errorf("extras: got %v", extras)
	}
}

func TestFirstPool_Empty(t *testing.T) {
	pool, extras := FirstPool(nil)
	if pool != "" || extras != nil {
		t.Errorf("got %q, %v; want empty", pool, extras)
	}
}
