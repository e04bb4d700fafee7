package runtime

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// EnvVarSpec is a parsed config value that may reference the environment.
type EnvVarSpec struct {
	// VarName is the environment variable name (e.g., "CREDFLOW_BASE_URL")
	VarName string

	HasDefault   bool
	DefaultValue string

	// IsLiteral is set for plain values that reference no variable
	IsLiteral    bool
	LiteralValue string
}

// envVarPattern matches ${VAR} and ${VAR:default} syntax
var envVarPattern = regexp.MustCompile(`^\$\{([A-Z_][A-Z0-9_]*)(:[^}]*)?\}$`)

// ParseEnvVar parses a config value that may contain environment variable syntax.
//
// Supported formats:
//   - ${VAR}         - Required environment variable
//   - ${VAR:default} - Optional environment variable with default
//   - literal        - Plain literal value
func ParseEnvVar(value string) *EnvVarSpec {
	matches := envVarPattern.FindStringSubmatch(value)
	if matches == nil {
		return &EnvVarSpec{
			IsLiteral:    true,
			LiteralValue: value,
		}
	}

	spec := &EnvVarSpec{
		VarName:    matches[1],
		HasDefault: matches[2] != "",
	}
	if spec.HasDefault {
		spec.DefaultValue = strings.TrimPrefix(matches[2], ":")
	}
	return spec
}

// Resolve returns the value in the current environment.
func (s *EnvVarSpec) Resolve() (string, error) {
	if s.IsLiteral {
		return s.LiteralValue, nil
	}
	if v, ok := os.LookupEnv(s.VarName); ok {
		return v, nil
	}
	if s.HasDefault {
		return s.DefaultValue, nil
	}
	return "", fmt.Errorf("required environment variable not set: %s", s.VarName)
}

// ResolveEnvValues returns a copy of raw with every string value resolved
// through ParseEnvVar. Non-string values are copied unchanged.
func ResolveEnvValues(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		resolved, err := ParseEnvVar(s).Resolve()
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}
