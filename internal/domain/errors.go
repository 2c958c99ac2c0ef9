package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code, so values derived with WithError still compare
// equal to their predefined error under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	// ErrCameraBusy is returned when an on-demand capture cannot acquire
	// the camera within its timeout. Always retryable.
	ErrCameraBusy = &AppError{
		Code:       "CAMERA_BUSY",
		Message:    "Camera is busy, try again",
		StatusCode: 503,
	}

	ErrCaptureFailed = &AppError{
		Code:       "CAPTURE_FAILED",
		Message:    "Camera capture failed",
		StatusCode: 500,
	}

	ErrFaceNotFound = &AppError{
		Code:       "FACE_NOT_FOUND",
		Message:    "Face not found",
		StatusCode: 404,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	// ErrStoreFull: the engine assigned an id beyond the local slot
	// table. The engine may have kept the template anyway.
	ErrStoreFull = &AppError{
		Code:       "STORE_FULL",
		Message:    "Identity table is full",
		StatusCode: 409,
	}

	// ErrStoreDesync: the engine recognized a feature whose id has no
	// local slot. Distinct from ErrFaceNotFound so an unknown person is
	// never conflated with an internal inconsistency; callers treat
	// both as an unclassified result.
	ErrStoreDesync = &AppError{
		Code:       "STORE_DESYNC",
		Message:    "Recognized id has no local identity record",
		StatusCode: 500,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Multipart extractor failures.
	ErrNoImageMarker = &AppError{
		Code:       "NO_IMAGE_MARKER",
		Message:    "No JPEG data found in upload",
		StatusCode: 422,
	}

	ErrTruncatedImage = &AppError{
		Code:       "TRUNCATED_IMAGE",
		Message:    "JPEG data is truncated",
		StatusCode: 422,
	}

	ErrFieldNotFound = &AppError{
		Code:       "FIELD_NOT_FOUND",
		Message:    "Name field not found in form data",
		StatusCode: 422,
	}

	ErrFieldNotTerminated = &AppError{
		Code:       "FIELD_NOT_TERMINATED",
		Message:    "Name field is not terminated",
		StatusCode: 422,
	}

	// ErrPersistence: metadata read/write failed. Non-fatal; the
	// in-memory table stays correct for the session.
	ErrPersistence = &AppError{
		Code:       "PERSISTENCE_FAILURE",
		Message:    "Failed to persist identity metadata",
		StatusCode: 500,
	}

	ErrEngineFailure = &AppError{
		Code:       "ENGINE_FAILURE",
		Message:    "Recognition engine error",
		StatusCode: 500,
	}
)
