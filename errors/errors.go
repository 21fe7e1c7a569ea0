// Package errors provides standardized error handling for NeuroBlock.
// It includes error classification, the builder error taxonomy, and helper
// functions for consistent error wrapping across the system.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for the pipeline builder
var (
	// Canvas and graph errors
	ErrDuplicateStage = errors.New("stage already placed")
	ErrStageNotPlaced = errors.New("stage not placed")
	ErrUnknownStage   = errors.New("unknown stage kind")

	// Training lifecycle errors
	ErrNotReady          = errors.New("pipeline not ready for training")
	ErrSessionExpired    = errors.New("dataset session expired")
	ErrAlreadyInProgress = errors.New("training already in progress")
	ErrTrainingFailed    = errors.New("training failed")
	ErrNoResult          = errors.New("no training result available")

	// Backend connectivity errors
	ErrServiceUnavailable = errors.New("ml backend unavailable")

	// Document errors
	ErrImportRejected   = errors.New("pipeline import rejected")
	ErrDocumentNotFound = errors.New("pipeline document not found")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ValidationError reports a rejected value for a specific field.
// The field name uses the wire spelling (e.g. "train_percent", "n_estimators")
// so it can be surfaced to API callers unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Reason
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Reason)
}

// NewValidation creates a field-level validation error
func NewValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation checks whether err carries a field-level validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationField extracts the offending field name, or "" if err is not a
// validation error.
func ValidationField(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Check for classified error
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	// Check for known transient errors
	if errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrAlreadyInProgress) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	// Check error message for common transient patterns
	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection",
		"network",
		"temporary",
		"unavailable",
		"busy",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	// Check for classified error
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	if errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) {
		return true
	}

	return false
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	// Check for classified error
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	if IsValidation(err) {
		return true
	}

	if errors.Is(err, ErrDuplicateStage) ||
		errors.Is(err, ErrUnknownStage) ||
		errors.Is(err, ErrNotReady) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrTrainingFailed) ||
		errors.Is(err, ErrImportRejected) {
		return true
	}

	return false
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient // Default for nil
	}

	if IsTransient(err) {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}

	// Default to transient for unknown errors to allow retry
	return ErrorTransient
}

// Predicates for the builder taxonomy, used by the HTTP facade to map
// errors to status codes without string matching.

// IsDuplicateStage reports whether err is a duplicate stage placement.
func IsDuplicateStage(err error) bool { return errors.Is(err, ErrDuplicateStage) }

// IsNotReady reports whether err is a missing-prerequisite rejection.
func IsNotReady(err error) bool { return errors.Is(err, ErrNotReady) }

// IsSessionExpired reports whether err is a stale dataset session rejection.
func IsSessionExpired(err error) bool { return errors.Is(err, ErrSessionExpired) }

// IsUnavailable reports whether err is a backend reachability failure.
func IsUnavailable(err error) bool { return errors.Is(err, ErrServiceUnavailable) }

// IsAlreadyInProgress reports whether err is a concurrent training rejection.
func IsAlreadyInProgress(err error) bool { return errors.Is(err, ErrAlreadyInProgress) }

// IsTrainingFailed reports whether err carries a backend training failure.
func IsTrainingFailed(err error) bool { return errors.Is(err, ErrTrainingFailed) }

// IsImportRejected reports whether err is a rejected document import.
func IsImportRejected(err error) bool { return errors.Is(err, ErrImportRejected) }

// IsNotFound reports whether err refers to a missing stage, result, or
// saved document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStageNotPlaced) ||
		errors.Is(err, ErrNoResult) ||
		errors.Is(err, ErrDocumentNotFound)
}

// newClassified creates a new classified error
// This is an internal helper - use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// RetryConfig defines configuration for retry operations
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []error
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: nil, // Empty list means retry all transient errors
	}
}

// ShouldRetry determines if an error should be retried based on config
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries {
		return false
	}

	// Check if error is transient
	if !IsTransient(err) {
		return false
	}

	// Check specific retryable errors if configured
	if len(rc.RetryableErrors) > 0 {
		for _, retryableErr := range rc.RetryableErrors {
			if errors.Is(err, retryableErr) {
				return true
			}
		}
		return false
	}

	return true
}

// BackoffDelay calculates the delay for a retry attempt
func (rc RetryConfig) BackoffDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return rc.InitialDelay
	}

	delay := rc.InitialDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * rc.BackoffFactor)
		if delay > rc.MaxDelay {
			delay = rc.MaxDelay
			break
		}
	}

	return delay
}
