package terminal

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	surveyterm "github.com/AlecAivazis/survey/v2/terminal"
)

// ErrInterrupted is returned when the user aborts a prompt with Ctrl+C.
var ErrInterrupted = errors.New("prompt interrupted")

// PromptConfig configures a single line prompt.
type PromptConfig struct {
	Message string
	Default string
	Help    string
}

// PromptDriver abstracts the terminal so the runner can be tested without one.
type PromptDriver interface {
	Input(ctx context.Context, cfg PromptConfig) (string, error)
	Password(ctx context.Context, cfg PromptConfig) (string, error)
}

type surveyDriver struct {
	opts []survey.AskOpt
}

// NewSurveyDriver returns a PromptDriver backed by survey.
func NewSurveyDriver(opts ...survey.AskOpt) PromptDriver {
	return &surveyDriver{opts: opts}
}

func (d *surveyDriver) Input(ctx context.Context, cfg PromptConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prompt := &survey.Input{
		Message: cfg.Message,
		Default: cfg.Default,
		Help:    cfg.Help,
	}
	var out string
	if err := survey.AskOne(prompt, &out, d.opts...); err != nil {
		return "", translate(err)
	}
	return out, nil
}

func (d *surveyDriver) Password(ctx context.Context, cfg PromptConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prompt := &survey.Password{
		Message: cfg.Message,
		Help:    cfg.Help,
	}
	var out string
	if err := survey.AskOne(prompt, &out, d.opts...); err != nil {
		return "", translate(err)
	}
	return out, nil
}

func translate(err error) error {
	if errors.Is(err, surveyterm.InterruptErr) {
		return ErrInterrupted
	}
	return err
}
