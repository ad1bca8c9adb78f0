package dto

import "fmt"

// ValidationError is a request the caller must fix before retrying.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Resource string
	Id       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Id)
}

// ConflictError rejects an operation the session's current status forbids.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// PipelineError is an analysis run that ended in the error status.
type PipelineError struct {
	SessionId string
	Step      string
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("analysis failed during %s: %v", e.Step, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
