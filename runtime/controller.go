package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Phase is the lifecycle position of a step controller.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
)

// FlowState is the mutable state of one flow traversal.
type FlowState struct {
	Current   StepID
	Loading   bool
	LastError string
	Completed bool
}

type transitionFunc func(ctx context.Context, c *Controller) error

// Controller drives one step instance from user input to outcome:
// Idle → Validating → Submitting → Succeeded, or back to Idle on an invalid
// input or a failed submission. A failure keeps the entered values so the
// user can retry; nothing is retried automatically.
type Controller struct {
	id        string
	step      Step
	input     Input
	gateway   Gateway
	evaluator *ExpressionEvaluator
	l         *slog.Logger
	metrics   *instruments

	// mu and state belong to the owning Execution.
	mu    *sync.Mutex
	state *FlowState

	phase       Phase
	active      bool
	fieldErrors map[string]string
	outcome     Outcome
	transition  transitionFunc
}

// ID is unique per step instance; a step shown twice gets two ids.
func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Step() Step {
	return c.step
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// FieldErrors returns the inline errors of the last validation, or nil.
func (c *Controller) FieldErrors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fieldErrors == nil {
		return nil
	}
	out := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		out[k] = v
	}
	return out
}

func (c *Controller) Values() FieldValues {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input.Values()
}

// Outcome returns the last gateway outcome seen by this instance.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Digits returns the slots and focused index of a composite digit step.
func (c *Controller) Digits() (slots []string, focus int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.input.(*DigitInput)
	if !ok {
		return nil, 0, false
	}
	return d.Slots(), d.Focus(), true
}

// SetField sets a field value. Text fields store the value verbatim,
// numeric fields keep only its digits and digit steps take it as a paste
// filling the slots from the first one.
func (c *Controller) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.acceptingLocked(); err != nil {
		return err
	}

	switch in := c.input.(type) {
	case *TextInput:
		if !in.Set(name, value) {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	case *NumericInput:
		if name != in.Field() {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		in.Type(value)
	case *DigitInput:
		if name != in.Field() {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		in.Reset()
		accepted := 0
		for _, r := range value {
			if accepted == in.Len() {
				break
			}
			if in.SetDigit(in.Focus(), string(r)) {
				accepted++
			}
		}
	}

	c.revalidateLocked()
	return nil
}

// SetDigit forwards to the digit input. Non-digit characters are ignored
// and reported as not accepted, without an error.
func (c *Controller) SetDigit(index int, raw string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.acceptingLocked(); err != nil {
		return false, err
	}
	d, err := c.digitInputLocked()
	if err != nil {
		return false, err
	}

	accepted := d.SetDigit(index, raw)
	if accepted {
		c.revalidateLocked()
	}
	return accepted, nil
}

func (c *Controller) Backspace() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.acceptingLocked(); err != nil {
		return err
	}
	d, err := c.digitInputLocked()
	if err != nil {
		return err
	}
	d.Backspace()
	c.revalidateLocked()
	return nil
}

func (c *Controller) FocusSlot(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.acceptingLocked(); err != nil {
		return err
	}
	d, err := c.digitInputLocked()
	if err != nil {
		return err
	}
	if !d.SetFocus(index) {
		return fmt.Errorf("slot %d out of range", index)
	}
	return nil
}

// CanSubmit reports whether the submit control is enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

// Submit validates the input and, when valid, makes exactly one gateway
// call. It returns a *ValidationError for invalid input, a *TransportError
// for a failed call and ErrStaleResult when the step was torn down while
// the call was in flight. On success the flow transition runs before
// Submit returns; for delayed steps it is only scheduled.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.acceptingLocked(); err != nil {
		c.mu.Unlock()
		if errors.Is(err, ErrInputLocked) {
			return ErrSubmitInFlight
		}
		return err
	}
	if !c.canSubmitLocked() {
		c.mu.Unlock()
		return ErrSubmitDisabled
	}

	c.phase = PhaseValidating
	result := Validate(c.step.Schema, c.input.Values())
	if !result.Valid() {
		c.phase = PhaseIdle
		c.fieldErrors = result.Errors
		c.mu.Unlock()

		c.metrics.validationFailures.Add(ctx, 1, stepAttr(c.step.ID))
		c.l.InfoContext(ctx, "Validation failed", "step", c.step.ID, "fields", sortedKeys(result.Errors))
		return &ValidationError{Step: c.step.ID, Fields: copyErrors(result.Errors)}
	}

	c.fieldErrors = nil
	c.phase = PhaseSubmitting
	c.state.Loading = true
	c.state.LastError = ""
	c.mu.Unlock()

	// field values are never logged, only their names
	c.l.InfoContext(ctx, "Submitting step",
		"step", c.step.ID,
		"endpoint", c.step.Endpoint,
		"fields", c.step.Schema.Fields())

	// once sent, the call runs to completion; only the gateway timeout bounds it
	outcome := c.gateway.Submit(context.WithoutCancel(ctx), c.step.Endpoint, result.Values)

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		c.metrics.staleResults.Add(ctx, 1, stepAttr(c.step.ID))
		c.l.DebugContext(ctx, "Discarding stale submission result", "step", c.step.ID, "controller", c.id)
		return ErrStaleResult
	}

	c.state.Loading = false
	c.outcome = outcome

	if !outcome.Succeeded() {
		c.phase = PhaseIdle
		terr := &TransportError{
			Step:       c.step.ID,
			Kind:       outcome.Failure,
			StatusCode: outcome.StatusCode,
			Err:        outcome.Err,
		}
		c.state.LastError = terr.Message()
		c.mu.Unlock()

		c.metrics.submission(ctx, c.step.ID, string(outcome.Failure))
		c.l.WarnContext(ctx, "Submission failed",
			"step", c.step.ID,
			"kind", outcome.Failure,
			"status", outcome.StatusCode,
			"error", outcome.Err)
		return terr
	}

	c.phase = PhaseSucceeded
	c.mu.Unlock()

	c.metrics.submission(ctx, c.step.ID, "success")
	c.l.InfoContext(ctx, "Step succeeded", "step", c.step.ID, "status", outcome.StatusCode)

	if c.transition == nil {
		return nil
	}
	return c.transition(ctx, c)
}

// Teardown deactivates the controller. An outcome that resolves afterwards
// is discarded without touching the flow state.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

func (c *Controller) teardownLocked() {
	c.active = false
}

// handOffLocked records the move to next and retires this instance.
func (c *Controller) handOffLocked(next StepID) {
	c.state.Current = next
	c.state.LastError = ""
	if next == StepTerminal {
		c.state.Completed = true
	}
	c.teardownLocked()
}

func (c *Controller) acceptingLocked() error {
	switch {
	case !c.active:
		return ErrStepInactive
	case c.phase == PhaseSucceeded:
		return ErrStepCompleted
	case c.state.Loading:
		return ErrInputLocked
	}
	return nil
}

func (c *Controller) canSubmitLocked() bool {
	if c.acceptingLocked() != nil || !c.input.Ready() {
		return false
	}
	if c.step.EnableWhen == "" {
		return true
	}

	enabled, err := c.evaluator.Enabled(c.step.EnableWhen, precheckEnv(c.input))
	if err != nil {
		c.l.Warn("Error evaluating enableWhen",
			"step", c.step.ID,
			"expression", c.step.EnableWhen,
			"error", err)
		return false
	}
	return enabled
}

// revalidateLocked refreshes inline errors once they are on screen.
func (c *Controller) revalidateLocked() {
	if c.fieldErrors == nil {
		return
	}
	c.fieldErrors = Validate(c.step.Schema, c.input.Values()).Errors
}

func (c *Controller) digitInputLocked() (*DigitInput, error) {
	d, ok := c.input.(*DigitInput)
	if !ok {
		return nil, fmt.Errorf("step %s has no digit slots", c.step.ID)
	}
	return d, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyErrors(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
