package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		file, ok := err.Context().GetString("file")
		if !ok || file != "config.yaml" {
			t.Errorf("expected context file=config.yaml, got %v", file)
		}
	})

	t.Run("Error string includes cause", func(t *testing.T) {
		err := WrapError(stderrors.New("disk full"), CategoryStorage, "write artifact").Build()
		want := "[storage:error] write artifact: disk full"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("Sentinel matching survives context and wrapping", func(t *testing.T) {
		sentinel := GenerationError("normal process not initialized").Build()
		derived := sentinel.WithContext("stage", "anomaly")
		wrapped := fmt.Errorf("run recipe: %w", derived)

		if !stderrors.Is(wrapped, sentinel) {
			t.Error("expected wrapped derived error to match sentinel")
		}
		if _, ok := sentinel.Context().Get("stage"); ok {
			t.Error("WithContext must not mutate the sentinel")
		}
		if !HasCategory(wrapped, CategoryGeneration) {
			t.Error("expected generation category through wrapping")
		}
	})

	t.Run("Different messages do not match", func(t *testing.T) {
		a := ValidationError("a").Build()
		b := ValidationError("b").Build()
		if stderrors.Is(a, b) {
			t.Error("errors with different messages must not match")
		}
	})
}

func TestErrorBuilderConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryUserAction},
		{"ValidationError", ValidationError("x"), CategoryValidation, SeverityError, RetryUserAction},
		{"NotFoundError", NotFoundError("x"), CategoryNotFound, SeverityError, RetryNever},
		{"GenerationError", GenerationError("x"), CategoryGeneration, SeverityError, RetryNever},
		{"ExportError", ExportError("x"), CategoryExport, SeverityError, RetryNever},
		{"StorageError", StorageError("x"), CategoryStorage, SeverityError, RetryBackoff},
		{"EventStoreError", EventStoreError("x"), CategoryEventStore, SeverityError, RetryNever},
		{"PublishError", PublishError("x"), CategoryPublish, SeverityError, RetryBackoff},
		{"NetworkError", NetworkError("x"), CategoryNetwork, SeverityError, RetryBackoff},
		{"RuntimeError", RuntimeError("x"), CategoryRuntime, SeverityFatal, RetryNever},
		{"DaemonError", DaemonError("x"), CategoryDaemon, SeverityFatal, RetryNever},
		{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			if err.Category() != tt.category {
				t.Errorf("category = %s, want %s", err.Category(), tt.category)
			}
			if err.Severity() != tt.severity {
				t.Errorf("severity = %s, want %s", err.Severity(), tt.severity)
			}
			if err.RetryStrategy() != tt.retry {
				t.Errorf("retry = %s, want %s", err.RetryStrategy(), tt.retry)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("ctx: %w", StorageError("put").Build())) {
		t.Error("storage errors should be retryable")
	}
	if IsRetryable(ValidationError("bad").Build()) {
		t.Error("validation errors require user action")
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("unclassified errors are not retryable")
	}
	if GetCategory(stderrors.New("plain")) != CategoryInternal {
		t.Error("unclassified errors default to internal")
	}
}

func TestErrorContextMerge(t *testing.T) {
	var base ErrorContext
	merged := base.Merge(ErrorContext{"a": 1})
	if v, _ := merged.Get("a"); v != 1 {
		t.Errorf("merge with nil base lost value: %v", merged)
	}
	over := merged.Merge(ErrorContext{"a": 2, "b": "x"})
	if v, _ := over.Get("a"); v != 2 {
		t.Errorf("expected other to win, got %v", v)
	}
	if v, _ := merged.Get("a"); v != 1 {
		t.Error("merge must not mutate the receiver")
	}
}

func TestMessageOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ValidationError("bad input").Build())
	if got := MessageOf(wrapped); got != "bad input" {
		t.Errorf("MessageOf(classified) = %q", got)
	}
	if got := MessageOf(stderrors.New("plain")); got != "plain" {
		t.Errorf("MessageOf(plain) = %q", got)
	}
	if MessageOf(nil) != "" {
		t.Error("MessageOf(nil) must be empty")
	}
}
