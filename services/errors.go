package services

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the capture pipeline. Controllers map these onto HTTP
// statuses; the capture session maps any of them onto its Failed transition.

var (
	ErrPermissionDenied = errors.New("permission denied")

	ErrMealNotFound = errors.New("meal not found")

	// Session registry errors.
	ErrSessionNotFound = errors.New("capture session not found")
	ErrSessionBusy     = errors.New("another capture is still analyzing or saving")
	ErrCancelTooLate   = errors.New("capture can no longer be cancelled")
)

// AnalysisFailedError: the analysis endpoint answered with a non-2xx status.
type AnalysisFailedError struct {
	Status  int
	Message string
}

func (e *AnalysisFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("analysis failed with status %d", e.Status)
}

// AnalysisUnreachableError: the endpoint could not be reached at all
// (network error or timeout).
type AnalysisUnreachableError struct {
	Err error
}

func (e *AnalysisUnreachableError) Error() string {
	return fmt.Sprintf("analysis service unreachable: %v", e.Err)
}

func (e *AnalysisUnreachableError) Unwrap() error { return e.Err }

// UploadFailedError: the image did not make it into object storage. Nothing
// has been written to the database when this surfaces.
type UploadFailedError struct {
	Err error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("image upload failed: %v", e.Err)
}

func (e *UploadFailedError) Unwrap() error { return e.Err }

// PersistenceFailedError: the meal/item insert transaction rolled back.
type PersistenceFailedError struct {
	Err error
}

func (e *PersistenceFailedError) Error() string {
	return fmt.Sprintf("failed to save meal: %v", e.Err)
}

func (e *PersistenceFailedError) Unwrap() error { return e.Err }

// RetrievalFailedError: the meals listing query failed as a whole. Per-row
// signed URL failures never produce this.
type RetrievalFailedError struct {
	Err error
}

func (e *RetrievalFailedError) Error() string {
	return fmt.Sprintf("failed to load meals: %v", e.Err)
}

func (e *RetrievalFailedError) Unwrap() error { return e.Err }

// InvalidTransitionError: a session operation arrived in a state that does
// not allow it.
type InvalidTransitionError struct {
	From SessionState
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while capture is %s", e.Op, e.From)
}
