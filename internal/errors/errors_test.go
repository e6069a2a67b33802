package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineError_Error(t *testing.T) {
	err := New(ErrCategoryFetch, CodeJobNotFound, "job job-1 does not exist")
	want := "[FETCH:JOB_NOT_FOUND] job job-1 does not exist"
	if err.Error() != want {
		t.Errorf("Error(): got %q, want %q", err.Error(), want)
	}

	cause := errors.New("boom")
	wrapped := Wrap(ErrCategoryExport, CodeWriteFailed, "writing csv", cause)
	want = "[EXPORT:WRITE_FAILED] writing csv: boom"
	if wrapped.Error() != want {
		t.Errorf("Error() with cause: got %q, want %q", wrapped.Error(), want)
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := errors.New("network down")
	err := NewFetchError(CodeDownloadFailed, "downloading object", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	// Wrapping through fmt should preserve the chain
	outer := fmt.Errorf("pipeline: %w", err)
	var pe *PipelineError
	if !errors.As(outer, &pe) {
		t.Fatal("expected errors.As to find PipelineError")
	}
	if pe.Code != CodeDownloadFailed {
		t.Errorf("code: got %q, want %q", pe.Code, CodeDownloadFailed)
	}
}

func TestPipelineError_Is(t *testing.T) {
	err := New(ErrCategoryFetch, CodeJobNotFound, "a")
	target := New(ErrCategoryFetch, CodeJobNotFound, "b")
	other := New(ErrCategoryFetch, CodeListFailed, "c")

	if !errors.Is(err, target) {
		t.Error("expected matching category+code to satisfy errors.Is")
	}
	if errors.Is(err, other) {
		t.Error("expected differing code to fail errors.Is")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewFetchError(CodeDownloadFailed, "x", nil)) {
		t.Error("download failures should be retryable")
	}
	if !IsRetryable(NewResolveError(CodeLookupFailed, "x", nil)) {
		t.Error("lookup failures should be retryable")
	}
	if IsRetryable(New(ErrCategoryFetch, CodeJobNotFound, "x")) {
		t.Error("job not found should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := NewConfigError(CodeEmptyJobList, "no jobs configured")
	if GetCategory(err) != ErrCategoryConfig {
		t.Errorf("category: got %q", GetCategory(err))
	}
	if GetCode(err) != CodeEmptyJobList {
		t.Errorf("code: got %q", GetCode(err))
	}
	if GetCategory(errors.New("plain")) != "" {
		t.Error("plain error should have empty category")
	}
}
