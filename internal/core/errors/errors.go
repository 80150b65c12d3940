// Package errors provides centralized error definitions for the application.
//
// Naming conventions:
//   - Exported errors (Err*): for callers that need errors.Is checks
//   - Sentinel errors are variables, never inline errors.New calls
//   - Wrap with fmt.Errorf and %w to add context
package errors

import "errors"

// Lookup errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrClusterNotFound indicates a cluster could not be found.
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrSubscriberNotFound indicates a subscriber could not be found.
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// Ingestion errors.
var (
	// ErrDuplicateItem indicates the (source, external id) pair already exists.
	ErrDuplicateItem = errors.New("duplicate item")

	// ErrDuplicateCluster indicates a cluster with the same fingerprint
	// already exists; callers recover by re-fetching and merging.
	ErrDuplicateCluster = errors.New("duplicate cluster fingerprint")
)

// External collaborator errors.
var (
	// ErrClientDisabled indicates a client or feature is disabled.
	ErrClientDisabled = errors.New("client disabled")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrNoEmbedding indicates the vectorizer returned no vector; callers
	// treat this as "skip clustering for this item".
	ErrNoEmbedding = errors.New("no embedding")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidVote indicates a feedback vote outside {-1, +1}.
	ErrInvalidVote = errors.New("invalid vote")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
