package runtime

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExpressionEvaluator evaluates enableWhen pre-checks with expr-lang.
// Compiled programs are cached per expression.
type ExpressionEvaluator struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{programs: make(map[string]*vm.Program)}
}

// Check compiles expression without running it, so broken definitions fail
// at load time.
func (e *ExpressionEvaluator) Check(expression string) error {
	_, err := e.program(expression)
	return err
}

// Enabled runs expression against env and requires a boolean result.
func (e *ExpressionEvaluator) Enabled(expression string, env map[string]any) (bool, error) {
	program, err := e.program(expression)
	if err != nil {
		return false, err
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("error evaluating %q: %w", expression, err)
	}

	enabled, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q evaluated to %T, expected boolean", expression, result)
	}
	return enabled, nil
}

func (e *ExpressionEvaluator) program(expression string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.programs[expression]; ok {
		return p, nil
	}

	// digits() counts the digit characters of a value
	digitsFn := expr.Function(
		"digits",
		func(params ...any) (any, error) {
			s, ok := params[0].(string)
			if !ok {
				return 0, fmt.Errorf("digits() expects a string, got %T", params[0])
			}
			n := 0
			for _, r := range s {
				if r >= '0' && r <= '9' {
					n++
				}
			}
			return n, nil
		},
		new(func(string) int),
	)

	program, err := expr.Compile(expression,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
		digitsFn,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}
	e.programs[expression] = program
	return program, nil
}

// precheckEnv exposes the field values (keys passed through FormatKey) plus
// the input readiness to an enableWhen expression.
func precheckEnv(in Input) map[string]any {
	values := in.Values()
	env := make(map[string]any, len(values)+2)
	for k, v := range values {
		env[FormatKey(k)] = v
	}
	env["complete"] = in.Ready()

	filled := 0
	if d, ok := in.(*DigitInput); ok {
		for _, s := range d.Slots() {
			if s != "" {
				filled++
			}
		}
	}
	env["filled"] = filled
	return env
}
