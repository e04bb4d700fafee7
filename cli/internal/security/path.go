// Package security checks file references taken from configuration.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveFlowFile resolves a flow definition path named in a config file.
// Relative paths are taken from the config file's directory and may not
// leave it:
//
//	config:  /etc/credflow/credflow.yaml
//	flow:    flows/bank.yaml          -> /etc/credflow/flows/bank.yaml
//	flow:    ../../home/me/flow.yaml  -> rejected
//
// Absolute paths are used as given. The resolved path must name a regular file.
func ResolveFlowFile(configPath, flowFile string) (string, error) {
	if flowFile == "" {
		return "", nil
	}

	target := flowFile
	if !filepath.IsAbs(flowFile) {
		base := "."
		if configPath != "" {
			base = filepath.Dir(configPath)
		}
		target = filepath.Join(base, flowFile)
		if err := ValidatePathWithinBoundary(base, target); err != nil {
			return "", err
		}
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve flow file %q: %w", flowFile, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("flow file %q: %w", flowFile, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("flow file %q is not a regular file", flowFile)
	}
	return abs, nil
}

// ValidatePathWithinBoundary ensures that targetPath is within or equal to
// boundaryPath once both are made absolute.
func ValidatePathWithinBoundary(boundaryPath, targetPath string) error {
	absBoundary, err := filepath.Abs(boundaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve boundary path %q: %w", boundaryPath, err)
	}

	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return fmt.Errorf("failed to resolve target path %q: %w", targetPath, err)
	}

	rel, err := filepath.Rel(absBoundary, absTarget)
	if err != nil {
		return fmt.Errorf("invalid path relationship between %q and %q: %w", absBoundary, absTarget, err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %q escapes boundary %q", targetPath, boundaryPath)
	}

	return nil
}
