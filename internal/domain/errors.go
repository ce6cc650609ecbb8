// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrResolutionFailed is returned when a remote stream URL cannot be obtained.
	ErrResolutionFailed = errors.New("resolution failed")

	// ErrPlaybackRejected is returned when the media output refuses to start playback.
	ErrPlaybackRejected = errors.New("playback rejected")

	// ErrStorageFailure is returned when persisting to a blob or key-value store fails.
	ErrStorageFailure = errors.New("storage failure")

	// ErrNetworkFailure is returned when the metadata provider cannot be reached.
	ErrNetworkFailure = errors.New("network failure")

	// ErrTrackNotFound is returned when a requested track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrPlaylistEmpty is returned when an operation requires a non-empty collection.
	ErrPlaylistEmpty = errors.New("playlist is empty")

	// ErrInvalidIndex is returned when a collection index is out of bounds.
	ErrInvalidIndex = errors.New("invalid collection index")

	// ErrInvalidVolume is returned when the volume is out of valid range (0.0-1.0).
	ErrInvalidVolume = errors.New("invalid volume: must be between 0.0 and 1.0")

	// ErrInvalidPosition is returned when seeking outside [0, 1].
	ErrInvalidPosition = errors.New("invalid playback position")

	// ErrDurationUnknown is returned when seeking before the media output reported a duration.
	ErrDurationUnknown = errors.New("duration unknown")

	// ErrSelectionSuperseded is returned by a selection whose result was discarded
	// because a newer selection was made while it was resolving.
	ErrSelectionSuperseded = errors.New("selection superseded")

	// ErrStaleTrack is returned when a write-back no longer matches the collection element.
	ErrStaleTrack = errors.New("stale track")

	// ErrNotDeletable is returned when removing from a collection that does not support it.
	ErrNotDeletable = errors.New("collection is not deletable")

	// ErrEmptySearch is returned for blank search terms.
	ErrEmptySearch = errors.New("empty search term")

	// ErrInvalidUpload is returned when an upload carries no data.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrNoTrackLoaded is returned when playback is attempted with no track loaded.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrNotFound is returned by stores when a key or object does not exist.
	ErrNotFound = errors.New("not found")
)

// ResolutionError describes a failed lazy resolution.
type ResolutionError struct {
	TrackID string // Track that could not be resolved
	Step    string // Step that failed ("stream", "cover", "lyrics")
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %s (%s): %v", e.TrackID, e.Step, e.Err)
	}
	return fmt.Sprintf("resolve %s (%s): no usable result", e.TrackID, e.Step)
}

// Unwrap lets errors.Is match both ErrResolutionFailed and the cause.
func (e *ResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrResolutionFailed}
	}
	return []error{ErrResolutionFailed, e.Err}
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(trackID, step string, err error) *ResolutionError {
	return &ResolutionError{
		TrackID: trackID,
		Step:    step,
		Err:     err,
	}
}

// MediaError represents an error from the media output.
type MediaError struct {
	Op      string // Operation that failed (e.g., "load", "play", "seek")
	URL     string // Stream URL (if applicable)
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *MediaError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("media %s failed for '%s': %s", e.Op, e.URL, e.Message)
	}
	return fmt.Sprintf("media %s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewMediaError creates a new MediaError.
func NewMediaError(op, url, message string, err error) *MediaError {
	return &MediaError{
		Op:      op,
		URL:     url,
		Message: message,
		Err:     err,
	}
}

// ProviderError represents a failed call to the metadata provider.
type ProviderError struct {
	Provider string // Provider name (e.g., "gdstudio", "netease")
	Op       string // Operation (e.g., "search", "url", "pic", "lyric")
	Status   int    // HTTP status code, 0 for transport errors
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s.%s failed: status %d", e.Provider, e.Op, e.Status)
	}
	return fmt.Sprintf("provider %s.%s failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap lets errors.Is match ErrNetworkFailure as well as the cause.
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNetworkFailure}
	}
	return []error{ErrNetworkFailure, e.Err}
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, op string, status int, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		Status:   status,
		Err:      err,
	}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "put", "get", "delete")
	Type    string // Repository type (e.g., "blob", "kv", "cache")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap lets errors.Is match ErrStorageFailure as well as the cause.
func (e *RepositoryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorageFailure}
	}
	return []error{ErrStorageFailure, e.Err}
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "PlaybackController", "LibraryService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
