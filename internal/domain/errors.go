package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations
var (
	// ErrTransport indicates the registry could not be reached (network/DNS failure)
	ErrTransport = errors.New("registry is unreachable")

	// ErrUnauthorized indicates the API key was rejected
	ErrUnauthorized = errors.New("api key is invalid")

	// ErrNotFound indicates the requested job or video does not exist
	ErrNotFound = errors.New("not found")

	// ErrNotReady indicates an artifact was requested before the job succeeded
	ErrNotReady = errors.New("file is not ready")

	// ErrArtifactGone indicates the job succeeded but its file no longer exists
	ErrArtifactGone = errors.New("file missing on server")

	// ErrInvalidInput indicates a request was rejected before reaching the server
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorCode classifies a RegistryError
type ErrorCode string

const (
	CodeTransport ErrorCode = "transport"
	CodeStatus    ErrorCode = "status"
	CodeNotReady  ErrorCode = "not_ready"
	CodeDecode    ErrorCode = "decode"
)

// RegistryError is returned by every registry call that fails
type RegistryError struct {
	Code       ErrorCode
	Op         string // e.g. "GET /downloads/{id}"
	StatusCode int    // Zero unless Code is status or not_ready
	Message    string // Response body text or transport error text
	Err        error  // Underlying cause, if any
}

func (e *RegistryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// Is maps codes and status codes onto the sentinel errors so callers
// can use errors.Is without inspecting the struct.
func (e *RegistryError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Code == CodeTransport
	case ErrNotReady:
		return e.Code == CodeNotReady
	case ErrUnauthorized:
		return e.StatusCode == 401
	case ErrNotFound:
		return e.StatusCode == 404
	case ErrArtifactGone:
		return e.StatusCode == 410
	}
	return false
}
