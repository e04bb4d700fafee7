package runtime

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type URLValidatorConfig struct {
	URL string `validate:"url_format"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestApplyDefaults_Config(t *testing.T) {
	var cfg Config

	if err := ApplyDefaults(&cfg); err != nil {
		t.Fatalf("ApplyDefaults failed: %v", err)
	}

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected Timeout=30s, got %v", cfg.Timeout)
	}
	if cfg.TransitionDelay != 40*time.Second {
		t.Errorf("Expected TransitionDelay=40s, got %v", cfg.TransitionDelay)
	}
	if cfg.BaseURL != "" {
		t.Errorf("Expected empty BaseURL, got '%s'", cfg.BaseURL)
	}
}

func TestApplyDefaults_Nil(t *testing.T) {
	if err := ApplyDefaults(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestURLFormatValidator(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://verify.example.com", true},
		{"http://localhost:8080", true},
		{"http://127.0.0.1:9000/base", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"https://", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validateConfig(URLValidatorConfig{URL: tt.url})
			if tt.valid && err != nil {
				t.Errorf("Expected %q to be valid, got: %v", tt.url, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected %q to be invalid", tt.url)
			}
		})
	}
}

func TestInitializeConfig_MergesRawValues(t *testing.T) {
	var cfg Config
	raw := map[string]any{
		"base_url":         "https://verify.example.com",
		"timeout":          "5s",
		"transition_delay": "0s",
		"debug":            true,
	}

	if err := InitializeConfig(&cfg, raw); err != nil {
		t.Fatalf("InitializeConfig failed: %v", err)
	}

	if cfg.BaseURL != "https://verify.example.com" {
		t.Errorf("Expected BaseURL from raw values, got '%s'", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Expected Timeout=5s, got %v", cfg.Timeout)
	}
	// an explicit zero wins over the default
	if cfg.TransitionDelay != 0 {
		t.Errorf("Expected TransitionDelay=0, got %v", cfg.TransitionDelay)
	}
	if !cfg.Debug {
		t.Error("Expected Debug=true")
	}
}

func TestInitializeConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr string
	}{
		{
			name:    "missing base url",
			raw:     map[string]any{},
			wantErr: "BaseURL",
		},
		{
			name:    "base url without scheme",
			raw:     map[string]any{"base_url": "verify.example.com"},
			wantErr: "url_format",
		},
		{
			name:    "timeout below minimum",
			raw:     map[string]any{"base_url": "https://verify.example.com", "timeout": "10ms"},
			wantErr: "Timeout",
		},
		{
			name:    "unknown key",
			raw:     map[string]any{"base_url": "https://verify.example.com", "retries": 3},
			wantErr: "retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			err := InitializeConfig(&cfg, tt.raw)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_FileAndOverrides(t *testing.T) {
	path := writeConfig(t, `
base_url: https://file.example.com
timeout: 10s
transition_delay: 2s
`)

	cfg, err := LoadConfig(path, map[string]any{"base_url": "http://localhost:9000"})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "http://localhost:9000" {
		t.Errorf("Expected override to win, got '%s'", cfg.BaseURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Expected Timeout=10s, got %v", cfg.Timeout)
	}
	if cfg.TransitionDelay != 2*time.Second {
		t.Errorf("Expected TransitionDelay=2s, got %v", cfg.TransitionDelay)
	}
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("CREDFLOW_TEST_BASE_URL", "https://env.example.com")
	path := writeConfig(t, "base_url: ${CREDFLOW_TEST_BASE_URL}\ntimeout: ${CREDFLOW_TEST_TIMEOUT:15s}\n")

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "https://env.example.com" {
		t.Errorf("Expected BaseURL from env, got '%s'", cfg.BaseURL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Expected Timeout default 15s, got %v", cfg.Timeout)
	}
}

func TestLoadConfig_MissingEnvVar(t *testing.T) {
	path := writeConfig(t, "base_url: ${CREDFLOW_TEST_UNSET_VAR}\n")

	_, err := LoadConfig(path, nil)
	if err == nil {
		t.Fatal("Expected error for unset variable")
	}

	var flowErr *FlowError
	if !errors.As(err, &flowErr) {
		t.Fatalf("Expected *FlowError, got %T", err)
	}
	if flowErr.Code != ErrorCodeInvalidConfig {
		t.Errorf("Expected code %s, got %s", ErrorCodeInvalidConfig, flowErr.Code)
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := LoadConfig("", map[string]any{"base_url": "https://verify.example.com"})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.TransitionDelay != 40*time.Second {
		t.Errorf("Expected default TransitionDelay=40s, got %v", cfg.TransitionDelay)
	}
}

func TestLoadConfig_UnreadableFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadConfig_NullDocument(t *testing.T) {
	for _, content := range []string{"~\n", "null\n", ""} {
		t.Run(strings.TrimSpace(content), func(t *testing.T) {
			path := writeConfig(t, content)

			cfg, err := LoadConfig(path, map[string]any{"base_url": "https://verify.example.com"})
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.BaseURL != "https://verify.example.com" {
				t.Errorf("Expected BaseURL from override, got '%s'", cfg.BaseURL)
			}
			if cfg.Timeout != 30*time.Second {
				t.Errorf("Expected default Timeout=30s, got %v", cfg.Timeout)
			}
		})
	}
}
