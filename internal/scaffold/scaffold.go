// Package scaffold creates a new .wreckit/ directory: config.json, the
// per-phase prompt templates, and the items directory. Unlike the
// teacher's scaffold package — which calls out to an AI agent to
// generate a project-specific workflow config, falling back to a fixed
// template only when that call fails — wreckit's pipeline and config
// schema are fixed by spec §4.7/§6, so there is nothing project-specific
// for an agent to invent. Init always writes the deterministic template,
// grounded on the teacher's fallback.go path.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jorge-barreto/wreckit/internal/ux"
)

// Init creates a new .wreckit/ directory with the default config,
// prompt templates, and items directory. It fails if .wreckit already
// exists in targetDir.
func Init(targetDir string) error {
	wreckitDir := filepath.Join(targetDir, ".wreckit")
	if _, err := os.Stat(wreckitDir); err == nil {
		return fmt.Errorf(".wreckit directory already exists in %s", targetDir)
	}

	return writeDefaultConfig(targetDir)
}

// printSuccess prints the initialization success message and file list.
func printSuccess(written []string) {
	fmt.Printf("\n%s%s  ✓ Initialized .wreckit/ directory%s\n\n", ux.Bold, ux.Green, ux.Reset)
	fmt.Printf("  Created:\n")
	for _, path := range written {
		fmt.Printf("    %s%s%s\n", ux.Cyan, path, ux.Reset)
	}
	fmt.Printf("\n  %sCustomize .wreckit/config.json and the prompt templates for your project.%s\n", ux.Dim, ux.Reset)
	fmt.Printf("\n  Next: %swreckit add \"<item title>\"%s\n\n", ux.Cyan, ux.Reset)
}
