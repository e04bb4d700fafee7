package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Execution is one traversal of a flow. It owns the FlowState, the active
// step controller and the navigation collaborator. A new Execution is
// created per session and dropped once it completes or is abandoned.
type Execution struct {
	ID   string
	Flow *Flow

	sequencer *Sequencer
	gateway   Gateway
	navigator Navigator
	evaluator *ExpressionEvaluator
	clock     Clock
	delay     time.Duration
	meter     metric.Meter
	metrics   *instruments
	l         *slog.Logger

	mu        sync.Mutex
	state     FlowState
	active    *Controller
	started   bool
	abandoned bool
}

type Option func(*Execution)

func WithLogger(l *slog.Logger) Option {
	return func(e *Execution) {
		e.l = l
	}
}

// WithClock replaces the timer used for delayed transitions.
func WithClock(c Clock) Option {
	return func(e *Execution) {
		e.clock = c
	}
}

// WithTransitionDelay sets the wait between success and navigation for
// steps marked delayed. Zero makes them transition immediately.
func WithTransitionDelay(d time.Duration) Option {
	return func(e *Execution) {
		e.delay = d
	}
}

func WithEvaluator(ev *ExpressionEvaluator) Option {
	return func(e *Execution) {
		e.evaluator = ev
	}
}

func WithMeter(m metric.Meter) Option {
	return func(e *Execution) {
		e.meter = m
	}
}

func NewExecution(flow *Flow, gateway Gateway, navigator Navigator, opts ...Option) (*Execution, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway cannot be nil")
	}
	if navigator == nil {
		return nil, fmt.Errorf("navigator cannot be nil")
	}

	sequencer, err := NewSequencer(flow)
	if err != nil {
		return nil, fmt.Errorf("invalid flow: %w", err)
	}

	e := &Execution{
		ID:        uuid.New().String(),
		Flow:      flow,
		sequencer: sequencer,
		gateway:   gateway,
		navigator: navigator,
		evaluator: NewExpressionEvaluator(),
		clock:     systemClock{},
		l:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.l = e.l.With("execution", e.ID, "flow", flow.ID)
	e.metrics = newInstruments(e.meter)
	return e, nil
}

// Start shows the first step.
func (e *Execution) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("execution %s already started", e.ID)
	}

	first := e.sequencer.First()
	ctrl, err := e.newControllerLocked(first)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.started = true
	e.state = FlowState{Current: first}
	e.active = ctrl
	e.mu.Unlock()

	e.l.InfoContext(ctx, "Flow started", "step", first)
	return e.navigator.NavigateTo(ctx, first)
}

// Controller returns the controller of the active step, or nil once the
// flow completed or was abandoned.
func (e *Execution) Controller() *Controller {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Execution) State() FlowState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Execution) Completed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Completed
}

func (e *Execution) Sequencer() *Sequencer {
	return e.sequencer
}

// Submit submits the active step.
func (e *Execution) Submit(ctx context.Context) error {
	ctrl := e.Controller()
	if ctrl == nil {
		if e.Completed() {
			return ErrFlowCompleted
		}
		return ErrStepInactive
	}
	return ctrl.Submit(ctx)
}

// Abandon tears the active step down. In-flight submissions and pending
// delayed transitions resolve into stale results.
func (e *Execution) Abandon() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.abandoned = true
	if e.active != nil {
		e.active.teardownLocked()
		e.active = nil
	}
	e.l.Info("Flow abandoned", "step", e.state.Current)
}

func (e *Execution) newControllerLocked(id StepID) (*Controller, error) {
	step, ok := e.Flow.Step(id)
	if !ok {
		return nil, definitionError(id, "step not defined")
	}

	input, err := NewInput(step.Input)
	if err != nil {
		return nil, &FlowError{Code: ErrorCodeInvalidDefinition, Message: "invalid input", Step: id, Cause: err}
	}

	ctrlID := uuid.New().String()
	return &Controller{
		id:         ctrlID,
		step:       step,
		input:      input,
		gateway:    e.gateway,
		evaluator:  e.evaluator,
		l:          e.l.With("step", id, "controller", ctrlID),
		metrics:    e.metrics,
		mu:         &e.mu,
		state:      &e.state,
		phase:      PhaseIdle,
		active:     true,
		transition: e.transition,
	}, nil
}

// transition runs after a step succeeded: immediately, or after the
// transition delay for delayed steps. The delay cannot be cancelled; once it
// fires, an abandoned flow discards the navigation.
func (e *Execution) transition(ctx context.Context, from *Controller) error {
	if !from.step.Delayed || e.delay <= 0 {
		return e.advance(ctx, from)
	}

	ctx = context.WithoutCancel(ctx)
	e.l.InfoContext(ctx, "Transition scheduled",
		"from", from.step.ID,
		"to", e.sequencer.Next(from.step.ID),
		"delay", e.delay)

	e.clock.AfterFunc(e.delay, func() {
		if err := e.advance(ctx, from); err != nil && !errors.Is(err, ErrStaleResult) {
			e.l.ErrorContext(ctx, "Delayed transition failed", "from", from.step.ID, "error", err)
		}
	})
	return nil
}

func (e *Execution) advance(ctx context.Context, from *Controller) error {
	e.mu.Lock()
	if e.abandoned || e.active != from || !from.active {
		e.mu.Unlock()
		e.metrics.staleResults.Add(ctx, 1, stepAttr(from.step.ID))
		e.l.DebugContext(ctx, "Discarding stale transition", "step", from.step.ID, "controller", from.id)
		return ErrStaleResult
	}

	next := e.sequencer.Advance(from.step.ID, OutcomeSucceeded)
	var ctrl *Controller
	if next != StepTerminal {
		var err error
		if ctrl, err = e.newControllerLocked(next); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	from.handOffLocked(next)
	e.active = ctrl
	e.mu.Unlock()

	e.metrics.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from.step.ID)),
		attribute.String("to", string(next)),
	))
	e.l.InfoContext(ctx, "Step transition", "from", from.step.ID, "to", next)
	if next == StepTerminal {
		e.l.InfoContext(ctx, "Flow completed")
	}

	return e.navigator.NavigateTo(ctx, next)
}
