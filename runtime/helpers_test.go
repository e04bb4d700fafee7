package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type gatewayCall struct {
	Endpoint string
	Values   FieldValues
}

// fakeGateway records calls and replays queued outcomes, succeeding once the
// queue is empty. Setting block makes Submit wait until it is closed.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []gatewayCall
	outcomes []Outcome
	block    chan struct{}
	entered  chan struct{}
	ctxErrs  []error
}

func (g *fakeGateway) Submit(ctx context.Context, endpoint string, values FieldValues) Outcome {
	g.mu.Lock()
	g.calls = append(g.calls, gatewayCall{Endpoint: endpoint, Values: values.Clone()})
	out := SuccessOutcome(200, []byte(`{"status":"received"}`))
	if len(g.outcomes) > 0 {
		out = g.outcomes[0]
		g.outcomes = g.outcomes[1:]
	}
	block, entered := g.block, g.entered
	g.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	g.mu.Lock()
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	g.mu.Unlock()
	return out
}

// CtxErrs returns the context error each call saw when it finished.
func (g *fakeGateway) CtxErrs() []error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]error(nil), g.ctxErrs...)
}

func (g *fakeGateway) Calls() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gatewayCall(nil), g.calls...)
}

// blockNext makes the next Submit calls wait. It returns the channel that
// signals entry and the one that releases them.
func (g *fakeGateway) blockNext() (entered chan struct{}, release chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entered = make(chan struct{}, 1)
	g.block = make(chan struct{})
	return g.entered, g.block
}

type recordingNavigator struct {
	mu    sync.Mutex
	steps []StepID
}

func (n *recordingNavigator) NavigateTo(_ context.Context, step StepID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.steps = append(n.steps, step)
	return nil
}

func (n *recordingNavigator) Steps() []StepID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]StepID(nil), n.steps...)
}

type scheduled struct {
	delay time.Duration
	f     func()
}

// manualClock holds delayed transitions until Fire is called.
type manualClock struct {
	mu      sync.Mutex
	pending []scheduled
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, scheduled{delay: d, f: f})
}

func (c *manualClock) Pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p.delay)
	}
	return out
}

// Fire runs every pending function and returns how many ran.
func (c *manualClock) Fire() int {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, p := range pending {
		p.f()
	}
	return len(pending)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testFlow struct {
	exec  *Execution
	gw    *fakeGateway
	nav   *recordingNavigator
	clock *manualClock
}

func startFlow(t *testing.T, opts ...Option) *testFlow {
	t.Helper()

	flow, err := DefaultFlow()
	if err != nil {
		t.Fatalf("DefaultFlow failed: %v", err)
	}

	tf := &testFlow{
		gw:    &fakeGateway{},
		nav:   &recordingNavigator{},
		clock: &manualClock{},
	}
	base := []Option{
		WithLogger(discardLogger()),
		WithClock(tf.clock),
		WithTransitionDelay(40 * time.Second),
	}
	tf.exec, err = NewExecution(flow, tf.gw, tf.nav, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewExecution failed: %v", err)
	}
	if err := tf.exec.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return tf
}

// fillValid enters values that pass the schema of the active step.
func (tf *testFlow) fillValid(t *testing.T) *Controller {
	t.Helper()
	ctrl := tf.exec.Controller()
	if ctrl == nil {
		t.Fatal("no active controller")
	}

	var values FieldValues
	switch ctrl.Step().ID {
	case StepPrimaryCredential:
		values = FieldValues{"username": "alice", "password": "correct horse"}
	case StepPIN:
		values = FieldValues{"pin": "1234"}
	case StepOTP, StepSecondOTP:
		values = FieldValues{"otp": "123456"}
	default:
		t.Fatalf("unexpected step %s", ctrl.Step().ID)
	}
	for name, v := range values {
		if err := ctrl.SetField(name, v); err != nil {
			t.Fatalf("SetField(%s) failed: %v", name, err)
		}
	}
	return ctrl
}

// advanceTo completes steps until target is active.
func (tf *testFlow) advanceTo(t *testing.T, target StepID) {
	t.Helper()
	for i := 0; i < 8; i++ {
		if tf.exec.State().Current == target {
			return
		}
		ctrl := tf.fillValid(t)
		if err := ctrl.Submit(context.Background()); err != nil {
			t.Fatalf("Submit on %s failed: %v", ctrl.Step().ID, err)
		}
		tf.clock.Fire()
	}
	t.Fatalf("never reached %s", target)
}
