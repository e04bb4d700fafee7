package cmd

import (
	"fmt"

	"github.com/BDNK1/credflow/cli/internal/security"
	"github.com/BDNK1/credflow/runtime"
)

// loadConfig merges the config file with the command line overrides. A
// relative flow_file is resolved against the config file's directory.
func loadConfig() (*runtime.Config, error) {
	overrides := make(map[string]any)
	if baseURL != "" {
		overrides["base_url"] = baseURL
	}
	if debug {
		overrides["debug"] = true
	}

	cfg, err := runtime.LoadConfig(configPath, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flowFile, err := security.ResolveFlowFile(configPath, cfg.FlowFile)
	if err != nil {
		return nil, fmt.Errorf("invalid flow_file: %w", err)
	}
	cfg.FlowFile = flowFile
	return cfg, nil
}
