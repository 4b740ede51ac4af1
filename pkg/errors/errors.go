package propdesk_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTooLarge           = errors.New("file too large")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)

// Attachment lifecycle errors
var (
	ErrValidation       = errors.New("validation failed")
	ErrEmptySelection   = errors.New("no files selected for upload")
	ErrMissingOwner     = errors.New("missing user identity")
	ErrQuotaExhausted   = errors.New("attachment quota reached")
	ErrDraftCreation    = errors.New("could not create project draft")
	ErrStorageWrite     = errors.New("storage write failed")
	ErrStorageDelete    = errors.New("storage delete failed")
	ErrMetadataWrite    = errors.New("attachment metadata write failed")
	ErrMetadataDelete   = errors.New("attachment metadata delete failed")
	ErrAllUploadsFailed = errors.New("no file was uploaded successfully")
	ErrDeletion         = errors.New("attachment deletion failed")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
