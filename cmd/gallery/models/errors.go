package models

import "errors"

// Input errors (4xx)
var (
	ErrInvalidFile       = errors.New("invalid file")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrSignatureMismatch = errors.New("file signature does not match declared type")
	ErrThreatDetected    = errors.New("potentially malicious content detected")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrMissingToken      = errors.New("missing bearer token")
	ErrInvalidToken      = errors.New("invalid bearer token")
	ErrAccountLocked     = errors.New("too many failed attempts, try again later")
	ErrInvalidCSRF       = errors.New("invalid CSRF token")
	ErrCaseNotFound      = errors.New("case not found")
)

// Store and processing errors (5xx)
var (
	ErrStoreRead         = errors.New("store read failed")
	ErrStoreWrite        = errors.New("store write failed")
	ErrProcessingTimeout = errors.New("image processing timed out")
)
