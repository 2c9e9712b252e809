// Package apperr defines the error taxonomy shared by the services, the REST
// API and the client.
package apperr

import (
	"errors"
	"fmt"

	"multiagent-manager/backend/pkg/models"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindInvalidInput     Kind = "InvalidInput"
	KindNotFound         Kind = "NotFound"
	KindInvocationFailed Kind = "InvocationFailed"
	KindInternal         Kind = "Internal"
)

// Stage names where in the request lifecycle an error was detected.
type Stage string

const (
	StageValidation Stage = "validation"
	StageResolution Stage = "resolution"
	StageExecution  Stage = "execution"
)

// Sentinels matched with errors.Is against any *Error of the same kind.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrInvocationFailed = errors.New("invocation failed")
	ErrInternal         = errors.New("internal error")
)

// NoStep marks an Error that was not raised by a pipeline step.
const NoStep = -1

// Error carries enough context to identify the failing entity and stage.
type Error struct {
	Kind     Kind
	Stage    Stage
	Message  string
	EntityID string

	// StepIndex is the 0-based pipeline position for step failures, NoStep otherwise.
	StepIndex int
	AgentID   string
	AgentName string

	// PartialLog is only populated when the executor is configured to expose it.
	PartialLog []models.ExecutionStep

	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := []error{sentinel(e.Kind)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsStep reports whether the error came from a pipeline step.
func (e *Error) IsStep() bool {
	return e.StepIndex != NoStep
}

// Position returns the 1-based step position, or 0 when not a step error.
func (e *Error) Position() int {
	if !e.IsStep() {
		return 0
	}
	return e.StepIndex + 1
}

func sentinel(k Kind) error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	case KindInvocationFailed:
		return ErrInvocationFailed
	default:
		return ErrInternal
	}
}

// InvalidInput builds a validation error.
func InvalidInput(format string, args ...any) *Error {
	return &Error{
		Kind:      KindInvalidInput,
		Stage:     StageValidation,
		Message:   fmt.Sprintf(format, args...),
		StepIndex: NoStep,
	}
}

// NotFound builds a resolution error naming the missing entity.
func NotFound(entity, id string) *Error {
	return &Error{
		Kind:      KindNotFound,
		Stage:     StageResolution,
		Message:   fmt.Sprintf("%s %q not found", entity, id),
		EntityID:  id,
		StepIndex: NoStep,
	}
}

// InvocationFailed wraps a generation failure outside of a flow pipeline.
func InvocationFailed(err error, format string, args ...any) *Error {
	return &Error{
		Kind:      KindInvocationFailed,
		Stage:     StageExecution,
		Message:   fmt.Sprintf(format, args...),
		StepIndex: NoStep,
		Err:       err,
	}
}

// StepFailed wraps a generation failure at a pipeline step.
func StepFailed(index int, agentID, agentName string, err error) *Error {
	return &Error{
		Kind:      KindInvocationFailed,
		Stage:     StageExecution,
		Message:   fmt.Sprintf("step %d (agent %q) failed", index+1, agentName),
		EntityID:  agentID,
		StepIndex: index,
		AgentID:   agentID,
		AgentName: agentName,
		Err:       err,
	}
}

// Internal wraps an unexpected failure such as a store outage.
func Internal(err error, format string, args ...any) *Error {
	return &Error{
		Kind:      KindInternal,
		Message:   fmt.Sprintf(format, args...),
		StepIndex: NoStep,
		Err:       err,
	}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
