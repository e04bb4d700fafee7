package runtime

import (
	"context"
	"time"
)

// Gateway submits the values of one step to the remote endpoint.
// Implementations make exactly one call per Submit and never retry.
type Gateway interface {
	Submit(ctx context.Context, endpoint string, values FieldValues) Outcome
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, endpoint string, values FieldValues) Outcome

func (f GatewayFunc) Submit(ctx context.Context, endpoint string, values FieldValues) Outcome {
	return f(ctx, endpoint, values)
}

// Navigator shows the screen of a step. The flow only decides which step
// and when; rendering and routing belong to the implementation.
type Navigator interface {
	NavigateTo(ctx context.Context, step StepID) error
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context, step StepID) error

func (f NavigatorFunc) NavigateTo(ctx context.Context, step StepID) error {
	return f(ctx, step)
}

// Clock schedules delayed transitions. Scheduled functions cannot be cancelled.
type Clock interface {
	AfterFunc(d time.Duration, f func())
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
