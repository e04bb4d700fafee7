package runtime

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Package-level validator instance, shared by config validation and tag rules
var validate *validator.Validate

func init() {
	validate = validator.New()

	registerCustomValidators()
}

// Config is the client configuration. Only the base URL is required.
type Config struct {
	BaseURL         string        `yaml:"base_url" validate:"required,url_format"`
	Timeout         time.Duration `yaml:"timeout" default:"30s" validate:"gte=1s"`
	TransitionDelay time.Duration `yaml:"transition_delay" default:"40s" validate:"gte=0s"`
	Debug           bool          `yaml:"debug"`
	FlowFile        string        `yaml:"flow_file"`
}

// LoadConfig reads path (optional, may be empty) and applies overrides on
// top of it. Values of the form ${VAR} or ${VAR:default} are resolved from
// the environment.
func LoadConfig(path string, overrides map[string]any) (*Config, error) {
	raw := make(map[string]any)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("error unmarshalling config: %w", err)
		}
		// an empty document or a bare null leaves raw nil
		if raw == nil {
			raw = make(map[string]any)
		}
	}

	for k, v := range overrides {
		raw[k] = v
	}

	resolved, err := ResolveEnvValues(raw)
	if err != nil {
		return nil, &FlowError{Code: ErrorCodeInvalidConfig, Message: "environment expansion failed", Cause: err}
	}

	var cfg Config
	if err := InitializeConfig(&cfg, resolved); err != nil {
		return nil, &FlowError{Code: ErrorCodeInvalidConfig, Message: "config rejected", Cause: err}
	}
	return &cfg, nil
}

// InitializeConfig runs defaults → value merging → validation on config,
// which must be a pointer to a struct with yaml/default/validate tags.
func InitializeConfig(config any, rawValues map[string]any) error {
	if err := ApplyDefaults(config); err != nil {
		slog.Error("Config: failed to apply defaults",
			"config_type", reflect.TypeOf(config).String(),
			"error", err)
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	if len(rawValues) > 0 {
		if err := mapToStructFromYAML(rawValues, config); err != nil {
			slog.Error("Config: failed to apply config values",
				"config_type", reflect.TypeOf(config).String(),
				"keys", mapKeys(rawValues),
				"error", err)
			return fmt.Errorf("failed to apply config values: %w", err)
		}
	}

	configValue := reflect.ValueOf(config)
	if configValue.Kind() == reflect.Ptr {
		configValue = configValue.Elem()
	}

	if err := validateConfig(configValue.Interface()); err != nil {
		slog.Error("Config validation failed",
			"config_type", reflect.TypeOf(config).String(),
			"error", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

func registerCustomValidators() {
	// url_format validates URL structure
	validate.RegisterValidation("url_format", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		u, err := url.Parse(s)
		return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	})
}

func ApplyDefaults(config any) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := defaults.Set(config); err != nil {
		return fmt.Errorf("failed to apply default values: %w", err)
	}

	return nil
}

func validateConfig(config any) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validate.Struct(config); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, fieldErr := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"field '%s' failed validation: %s (rule: %s)",
					fieldErr.Field(),
					fieldErr.Error(),
					fieldErr.Tag(),
				))
			}
			return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errMessages, "\n  - "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// mapToStructFromYAML decodes m into target using yaml tags. Durations
// may be given as strings ("40s") or integers (nanoseconds).
func mapToStructFromYAML(m map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("failed to decode map to struct: %w", err)
	}

	return nil
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
