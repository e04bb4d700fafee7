// Package terminal renders flow steps as terminal prompts.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/BDNK1/credflow/runtime"
)

// Runner is the terminal Navigator: every NavigateTo queues a screen and
// Run prompts for it.
type Runner struct {
	driver  PromptDriver
	out     io.Writer
	l       *slog.Logger
	screens chan runtime.StepID
}

func NewRunner(driver PromptDriver, out io.Writer, l *slog.Logger) *Runner {
	if l == nil {
		l = slog.Default()
	}
	return &Runner{
		driver:  driver,
		out:     out,
		l:       l,
		screens: make(chan runtime.StepID, 4),
	}
}

// NavigateTo implements runtime.Navigator.
func (r *Runner) NavigateTo(ctx context.Context, step runtime.StepID) error {
	select {
	case r.screens <- step:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts exec and prompts for each step until the flow completes.
// exec must use r as its navigator.
func (r *Runner) Run(ctx context.Context, exec *runtime.Execution) error {
	if err := exec.Start(ctx); err != nil {
		return fmt.Errorf("error starting flow: %w", err)
	}

	for {
		var step runtime.StepID
		select {
		case <-ctx.Done():
			exec.Abandon()
			return ctx.Err()
		case step = <-r.screens:
		}

		if step == runtime.StepTerminal {
			fmt.Fprintln(r.out, "Verification completed.")
			return nil
		}

		if err := r.runStep(ctx, exec); err != nil {
			exec.Abandon()
			return err
		}
	}
}

func (r *Runner) runStep(ctx context.Context, exec *runtime.Execution) error {
	ctrl := exec.Controller()
	if ctrl == nil {
		return runtime.ErrStepInactive
	}
	step := ctrl.Step()

	fmt.Fprintf(r.out, "\n== %s ==\n", title(step))
	if step.Prompt != "" {
		fmt.Fprintln(r.out, step.Prompt)
	}

	for {
		if err := r.collect(ctx, ctrl); err != nil {
			return err
		}

		err := ctrl.Submit(ctx)

		var (
			verr *runtime.ValidationError
			terr *runtime.TransportError
		)
		switch {
		case err == nil:
			if keys := responseKeys(ctrl.Outcome()); len(keys) > 0 {
				r.l.DebugContext(ctx, "Response received", "step", step.ID, "keys", keys)
			}
			if exec.State().Current == step.ID {
				fmt.Fprintln(r.out, "Please wait while your code is confirmed...")
			}
			return nil
		case errors.As(err, &verr):
			for _, name := range step.Schema.Fields() {
				if msg, ok := verr.Fields[name]; ok {
					fmt.Fprintf(r.out, "  %s\n", msg)
				}
			}
		case errors.As(err, &terr):
			fmt.Fprintln(r.out, terr.Message())
		case errors.Is(err, runtime.ErrSubmitDisabled):
			fmt.Fprintf(r.out, "  Please enter all %d digits.\n", step.Input.Length)
		default:
			return err
		}
	}
}

// collect prompts for every field of the step and hands the answers to
// the controller, which applies the input rules of the step kind.
func (r *Runner) collect(ctx context.Context, ctrl *runtime.Controller) error {
	step := ctrl.Step()
	current := ctrl.Values()

	for _, field := range step.Input.Fields {
		cfg := PromptConfig{Message: label(field) + ":"}

		var (
			value string
			err   error
		)
		if field.Secret {
			value, err = r.driver.Password(ctx, cfg)
		} else {
			if step.Input.Kind == runtime.InputText {
				cfg.Default = current[field.Name]
			}
			value, err = r.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}

		if err := ctrl.SetField(field.Name, value); err != nil {
			return err
		}
	}

	r.l.DebugContext(ctx, "Input collected", "step", step.ID, "can_submit", ctrl.CanSubmit())
	return nil
}

// responseKeys lists the top-level keys of a JSON object response. The
// values are not read.
func responseKeys(out runtime.Outcome) []string {
	if out.JSON == nil {
		return nil
	}
	children := out.JSON.ChildrenMap()
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func title(step runtime.Step) string {
	if step.Title != "" {
		return step.Title
	}
	return string(step.ID)
}

func label(field runtime.FieldSpec) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}
