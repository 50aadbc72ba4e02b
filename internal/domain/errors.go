package domain

import "errors"

var (
	// ErrSubjectNotFound is returned when no subject is bound to the current identity.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrUnauthenticated indicates the identity service rejected the caller.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrPromptNotFound indicates a prompt ID is unknown to the content store.
	ErrPromptNotFound = errors.New("prompt not found")
	// ErrDeviceNotFound is returned when no device is registered for a subject.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrContentUnavailable wraps transport failures from the content service.
	ErrContentUnavailable = errors.New("content service unavailable")
)
