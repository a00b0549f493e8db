package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested index, record or export was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the record already exists on the backend
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates the search backend rejected the call for quota reasons
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates the search backend could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidCredentials indicates a wrong client id/secret combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExportInProgress indicates an export of the same index is already running
	ErrExportInProgress = errors.New("export already in progress")
)
