package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"service unavailable", ErrServiceUnavailable, true},
		{"already in progress", ErrAlreadyInProgress, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"duplicate stage", ErrDuplicateStage, false},
		{"not ready", ErrNotReady, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"duplicate stage", ErrDuplicateStage, true},
		{"unknown stage", ErrUnknownStage, true},
		{"not ready", ErrNotReady, true},
		{"session expired", ErrSessionExpired, true},
		{"training failed", ErrTrainingFailed, true},
		{"import rejected", ErrImportRejected, true},
		{"validation error", NewValidation("train_percent", "must be between 50 and 90"), true},
		{"wrapped sentinel", fmt.Errorf("session.Train: validate failed: %w", ErrNotReady), true},
		{"service unavailable", ErrServiceUnavailable, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"duplicate stage", ErrDuplicateStage, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidation("n_estimators", "must be between %d and %d, got %d", 10, 500, 9)

	if got := err.Error(); got != "n_estimators: must be between 10 and 500, got 9" {
		t.Errorf("unexpected message: %s", got)
	}
	if !IsValidation(err) {
		t.Error("expected IsValidation to be true")
	}
	if field := ValidationField(err); field != "n_estimators" {
		t.Errorf("expected field n_estimators, got %s", field)
	}

	// Field survives wrapping
	wrapped := Wrap(err, "Store", "SetHyperparameters", "validate hyperparameters")
	if field := ValidationField(wrapped); field != "n_estimators" {
		t.Errorf("expected field to survive wrapping, got %q", field)
	}
	if !IsInvalid(wrapped) {
		t.Error("wrapped validation error should classify invalid")
	}
}

func TestTaxonomyPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"duplicate stage", ErrDuplicateStage, IsDuplicateStage},
		{"not ready", ErrNotReady, IsNotReady},
		{"session expired", ErrSessionExpired, IsSessionExpired},
		{"unavailable", ErrServiceUnavailable, IsUnavailable},
		{"already in progress", ErrAlreadyInProgress, IsAlreadyInProgress},
		{"training failed", ErrTrainingFailed, IsTrainingFailed},
		{"import rejected", ErrImportRejected, IsImportRejected},
		{"stage not placed", ErrStageNotPlaced, IsNotFound},
		{"no result", ErrNoResult, IsNotFound},
		{"document not found", ErrDocumentNotFound, IsNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if !test.predicate(test.err) {
				t.Errorf("predicate rejected its own sentinel %v", test.err)
			}
			wrapped := fmt.Errorf("outer: %w", test.err)
			if !test.predicate(wrapped) {
				t.Errorf("predicate rejected wrapped sentinel %v", wrapped)
			}
			if test.predicate(errors.New("unrelated")) {
				t.Error("predicate accepted unrelated error")
			}
		})
	}
}

func TestWrapHelpers(t *testing.T) {
	baseErr := fmt.Errorf("underlying cause")

	t.Run("Wrap format", func(t *testing.T) {
		err := Wrap(baseErr, "Client", "Train", "dispatch request")
		expected := "Client.Train: dispatch request failed: underlying cause"
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
		if !errors.Is(err, baseErr) {
			t.Error("wrapped error should unwrap to base error")
		}
	})

	t.Run("Wrap nil", func(t *testing.T) {
		if err := Wrap(nil, "Client", "Train", "dispatch request"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("WrapInvalid classifies", func(t *testing.T) {
		err := WrapInvalid(baseErr, "Store", "SetSplit", "validate train percent")
		if !IsInvalid(err) {
			t.Error("expected invalid classification")
		}
		var ce *ClassifiedError
		if !errors.As(err, &ce) {
			t.Fatal("expected ClassifiedError")
		}
		if ce.Component != "Store" || ce.Operation != "SetSplit" {
			t.Errorf("unexpected component/operation: %s/%s", ce.Component, ce.Operation)
		}
	})

	t.Run("WrapTransient classifies", func(t *testing.T) {
		err := WrapTransient(baseErr, "Client", "Health", "probe backend")
		if !IsTransient(err) {
			t.Error("expected transient classification")
		}
	})

	t.Run("WrapFatal classifies", func(t *testing.T) {
		err := WrapFatal(baseErr, "Server", "Start", "bind listener")
		if !IsFatal(err) {
			t.Error("expected fatal classification")
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil defaults transient", nil, ErrorTransient},
		{"unavailable", ErrServiceUnavailable, ErrorTransient},
		{"duplicate", ErrDuplicateStage, ErrorInvalid},
		{"missing config", ErrMissingConfig, ErrorFatal},
		{"unknown defaults transient", errors.New("mystery"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.expected {
				t.Errorf("expected %s, got %s", test.expected, got)
			}
		})
	}
}

func TestRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	t.Run("ShouldRetry transient under limit", func(t *testing.T) {
		if !cfg.ShouldRetry(ErrServiceUnavailable, 0) {
			t.Error("expected retry for transient error on first attempt")
		}
	})

	t.Run("ShouldRetry rejects invalid", func(t *testing.T) {
		if cfg.ShouldRetry(ErrDuplicateStage, 0) {
			t.Error("invalid errors must not be retried")
		}
	})

	t.Run("ShouldRetry respects max attempts", func(t *testing.T) {
		if cfg.ShouldRetry(ErrServiceUnavailable, cfg.MaxRetries) {
			t.Error("expected no retry at max attempts")
		}
	})

	t.Run("BackoffDelay grows and caps", func(t *testing.T) {
		prev := cfg.BackoffDelay(0)
		for attempt := 1; attempt < 10; attempt++ {
			d := cfg.BackoffDelay(attempt)
			if d < prev {
				t.Errorf("delay shrank at attempt %d: %v < %v", attempt, d, prev)
			}
			if d > cfg.MaxDelay {
				t.Errorf("delay exceeded max at attempt %d: %v", attempt, d)
			}
			prev = d
		}
	})

	t.Run("RetryableErrors allow list", func(t *testing.T) {
		cfg := DefaultRetryConfig()
		cfg.RetryableErrors = []error{ErrServiceUnavailable}
		if !cfg.ShouldRetry(fmt.Errorf("probe: %w", ErrServiceUnavailable), 0) {
			t.Error("expected allow-listed error to be retried")
		}
		if cfg.ShouldRetry(errors.New("some timeout happened"), 0) {
			t.Error("expected non-listed transient error to be rejected with allow list")
		}
	})
}

func TestErrorMessagesAreLowercase(t *testing.T) {
	// Sentinel messages end up embedded in wrapped chains; keep them
	// lowercase so composed messages read naturally.
	sentinels := []error{
		ErrDuplicateStage, ErrStageNotPlaced, ErrUnknownStage,
		ErrNotReady, ErrSessionExpired, ErrAlreadyInProgress,
		ErrTrainingFailed, ErrNoResult, ErrServiceUnavailable,
		ErrImportRejected, ErrDocumentNotFound,
		ErrInvalidConfig, ErrMissingConfig,
	}
	for _, err := range sentinels {
		msg := err.Error()
		if msg == "" {
			t.Error("empty sentinel message")
			continue
		}
		if first := msg[:1]; first != strings.ToLower(first) {
			t.Errorf("sentinel message should start lowercase: %q", msg)
		}
	}
}
