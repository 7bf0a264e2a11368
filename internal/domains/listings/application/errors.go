package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid listing input")
	// ErrUploadFailed aborts a group: no partial reference list is produced.
	ErrUploadFailed = errors.New("attachment upload failed")
	// ErrDeleteFailed is non-fatal; the affected objects are orphaned.
	ErrDeleteFailed = errors.New("attachment delete failed")
	ErrCreateFailed = errors.New("listing create failed")
	ErrUpdateFailed = errors.New("listing update failed")
	// ErrIncompleteDraft is returned when a submission is attempted before
	// every step predicate holds.
	ErrIncompleteDraft = errors.New("listing draft is incomplete")
	// ErrMissingOriginal is returned by the update path without a snapshot.
	ErrMissingOriginal = errors.New("original listing snapshot is required")
	ErrSessionNotFound = errors.New("wizard session not found")
	// ErrSubmitInProgress is returned while a session is already submitting
	// or after it has been submitted.
	ErrSubmitInProgress = errors.New("wizard session is already submitting")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyTitle) ||
		errors.Is(err, domain.ErrInvalidType) ||
		errors.Is(err, domain.ErrEmptyReference) ||
		errors.Is(err, domain.ErrEmptyBlob) ||
		errors.Is(err, domain.ErrUnknownGroup) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
