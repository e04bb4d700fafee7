package runtime

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed flows/default.yaml
var defaultFlowYAML []byte

// App holds the loaded configuration and flow definition and creates one
// Execution per session.
type App struct {
	Config    *Config
	Flow      *Flow
	evaluator *ExpressionEvaluator
}

// NewApp loads cfg.FlowFile, or the built-in flow when it is empty.
func NewApp(cfg *Config) (*App, error) {
	evaluator := NewExpressionEvaluator()

	var (
		flow *Flow
		err  error
	)
	if cfg.FlowFile != "" {
		flow, err = LoadFlow(cfg.FlowFile, evaluator)
	} else {
		flow, err = parseFlow(defaultFlowYAML, evaluator)
	}
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Flow:      flow,
		evaluator: evaluator,
	}, nil
}

// NewExecution creates a fresh traversal wired with the app's settings.
func (a *App) NewExecution(gateway Gateway, navigator Navigator, opts ...Option) (*Execution, error) {
	base := []Option{
		WithEvaluator(a.evaluator),
		WithTransitionDelay(a.Config.TransitionDelay),
	}
	return NewExecution(a.Flow, gateway, navigator, append(base, opts...)...)
}

// DefaultFlow returns the built-in four-step flow.
func DefaultFlow() (*Flow, error) {
	return parseFlow(defaultFlowYAML, NewExpressionEvaluator())
}

// LoadFlow reads and checks a YAML flow definition.
func LoadFlow(file string, evaluator *ExpressionEvaluator) (*Flow, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}
	return parseFlow(data, evaluator)
}

// ParseFlow decodes and checks a YAML flow definition.
func ParseFlow(data []byte) (*Flow, error) {
	return parseFlow(data, NewExpressionEvaluator())
}

func parseFlow(data []byte, evaluator *ExpressionEvaluator) (*Flow, error) {
	var flow Flow
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("error unmarshalling YAML: %w", err)
	}
	if err := checkFlow(&flow, evaluator); err != nil {
		return nil, err
	}
	return &flow, nil
}

func checkFlow(flow *Flow, evaluator *ExpressionEvaluator) error {
	if flow.ID == "" {
		return definitionError("", "flow id is required")
	}
	if _, err := NewSequencer(flow); err != nil {
		return &FlowError{Code: ErrorCodeInvalidDefinition, Message: "invalid step order", Cause: err}
	}

	for i := range flow.Steps {
		step := &flow.Steps[i]

		if step.Endpoint == "" {
			return definitionError(step.ID, "endpoint is required")
		}
		if !strings.HasPrefix(step.Endpoint, "/") {
			step.Endpoint = "/" + step.Endpoint
		}

		if _, err := NewInput(step.Input); err != nil {
			return &FlowError{Code: ErrorCodeInvalidDefinition, Message: "invalid input", Step: step.ID, Cause: err}
		}

		if err := step.Schema.Compile(); err != nil {
			return &FlowError{Code: ErrorCodeInvalidDefinition, Message: "invalid schema", Step: step.ID, Cause: err}
		}

		declared := make(map[string]bool, len(step.Input.Fields))
		for _, name := range step.Input.FieldNames() {
			declared[name] = true
		}
		for _, name := range step.Schema.Fields() {
			if !declared[name] {
				return definitionError(step.ID, "schema field %q is not an input field", name)
			}
		}

		if step.EnableWhen != "" {
			if err := evaluator.Check(step.EnableWhen); err != nil {
				return &FlowError{Code: ErrorCodeInvalidDefinition, Message: "invalid enableWhen", Step: step.ID, Cause: err}
			}
		}
	}
	return nil
}
