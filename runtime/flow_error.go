package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSubmitInFlight is returned when a submit is attempted while the
	// previous one has not resolved yet.
	ErrSubmitInFlight = errors.New("submission already in flight")

	// ErrSubmitDisabled is returned when the input does not pass the
	// local shape pre-check (e.g. an empty PIN slot).
	ErrSubmitDisabled = errors.New("submit is disabled for the current input")

	// ErrStepCompleted is returned for any action on a step that already
	// succeeded and is waiting for its transition.
	ErrStepCompleted = errors.New("step already completed")

	// ErrInputLocked is returned when input arrives while a submission is in flight.
	ErrInputLocked = errors.New("input is locked while submitting")

	// ErrStaleResult marks a submission outcome that arrived after its step
	// stopped being active. It is never shown to the user.
	ErrStaleResult = errors.New("stale submission result")

	// ErrFlowCompleted is returned when the flow already reached the terminal step.
	ErrFlowCompleted = errors.New("flow already completed")

	// ErrStepInactive is returned for input sent to a controller that was torn down.
	ErrStepInactive = errors.New("step is no longer active")

	ErrUnknownField = errors.New("unknown field")
)

// FailureKind classifies a failed submission.
type FailureKind string

const (
	FailureNetwork  FailureKind = "network"
	FailureRejected FailureKind = "rejected"
	FailureUnknown  FailureKind = "unknown"
)

// ValidationError carries every field violation found for a step.
// It never leaves the controller boundary as anything other than inline
// field messages.
type ValidationError struct {
	Step   StepID
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("step %s: invalid fields: %s", e.Step, strings.Join(names, ", "))
}

// TransportError is a failed submission. The flow stays on the same step.
type TransportError struct {
	Step       StepID
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("step %s: submission failed (%s, status %d): %v", e.Step, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("step %s: submission failed (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message is the banner text shown to the user.
func (e *TransportError) Message() string {
	switch e.Kind {
	case FailureNetwork:
		return "We could not reach the server. Please try again."
	case FailureRejected:
		return "The details you entered were not accepted. Please check them and try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// FlowErrorCode identifies definition and configuration problems.
type FlowErrorCode string

const (
	ErrorCodeInvalidDefinition FlowErrorCode = "INVALID_DEFINITION"
	ErrorCodeInvalidConfig     FlowErrorCode = "INVALID_CONFIG"
)

// FlowError reports a problem found while loading a flow definition or its
// configuration. Runtime submission failures use TransportError instead.
type FlowError struct {
	Code    FlowErrorCode `json:"code"`
	Message string        `json:"message"`
	Step    StepID        `json:"step,omitempty"`
	Cause   error         `json:"-"`
}

func (e *FlowError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Step != "" {
		msg += fmt.Sprintf(" (step: %s)", e.Step)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

func definitionError(step StepID, format string, args ...any) *FlowError {
	return &FlowError{
		Code:    ErrorCodeInvalidDefinition,
		Message: fmt.Sprintf(format, args...),
		Step:    step,
	}
}
