package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrMissingInput is the generic rejection for an absent JSON body or a
	// required value the request left out without a field-level report.
	ErrMissingInput = errors.New("information missing")

	// ErrFeedbackMismatch is returned when a feedback id exists but belongs
	// to a different publication than the one named in the request.
	ErrFeedbackMismatch = errors.New("conflict: feedback does not belong to publication")
)

// ValidationError reports malformed or incomplete client input with a
// message naming what is wrong.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func missingFieldsError(fields []string) *ValidationError {
	verb := "s are"
	if len(fields) == 1 {
		verb = " is"
	}
	return &ValidationError{
		Message: fmt.Sprintf("The following field%s missing: %s", verb, strings.Join(fields, ", ")),
	}
}

// WorkflowError reports an illegal lifecycle transition attempt. The message
// names the specific violated precondition.
type WorkflowError struct {
	Message string
}

func (e *WorkflowError) Error() string { return e.Message }

func errAlreadyExported() *WorkflowError {
	return &WorkflowError{Message: "Publication is already exported"}
}

func errAlreadyPublished() *WorkflowError {
	return &WorkflowError{Message: "Publication is already published"}
}

func errFeedbacksPending() *WorkflowError {
	return &WorkflowError{Message: "There are feedbacks to do before publication"}
}

func errUnknownStatus(status string) *WorkflowError {
	return &WorkflowError{Message: fmt.Sprintf("Publication is in unknown status: %s", status)}
}

func errNotPublished() *WorkflowError {
	return &WorkflowError{Message: "Only published publication can be exported"}
}

// PersistenceError wraps a storage-layer rejection of a mutating operation,
// surfacing the underlying cause to the caller.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("request not processable: %v", e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }
