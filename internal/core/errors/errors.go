// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Source extraction errors.
var (
	// ErrExtraction indicates the source is unreachable or its index page no longer
	// matches any known structure. It aborts the extraction step of a cycle.
	ErrExtraction = errors.New("extraction failed")

	// ErrPartialParse indicates a single detail page lacked required fields.
	// Callers skip the page and continue.
	ErrPartialParse = errors.New("detail page missing required fields")
)

// Storage errors.
var (
	// ErrAlreadyExists indicates a uniqueness constraint rejected an insert.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Collaborator availability errors.
var (
	// ErrNotConfigured indicates an optional collaborator has no credentials.
	ErrNotConfigured = errors.New("not configured")

	// ErrNoProviders indicates no provider in a registry could serve a request.
	ErrNoProviders = errors.New("no providers available")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrEmptyText indicates there was no text to work with.
	ErrEmptyText = errors.New("empty text")

	// ErrNoJSON indicates no JSON object could be located in a response.
	ErrNoJSON = errors.New("no JSON found in response")
)

// Validation errors.
var (
	// ErrInvalidSchedule indicates a cron expression failed to parse.
	ErrInvalidSchedule = errors.New("invalid schedule expression")

	// ErrInvalidSubscriber indicates a subscriber without email or interest.
	ErrInvalidSubscriber = errors.New("invalid subscriber")
)

// Pipeline errors.
var (
	// ErrCycleInProgress indicates a trigger arrived while a cycle was running.
	ErrCycleInProgress = errors.New("ingestion cycle already in progress")
)
