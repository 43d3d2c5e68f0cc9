//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// binary returns the path of the built CLI.
func binary() string { return filepath.Join(binDir, binName) }

// Windows prints the extraction windows for the documents in $DOCS (default input/documents.yaml).
func Windows() error {
	mg.Deps(Build)
	return sh.RunV(binary(), "windows", docsFile())
}

// Extract runs extraction over $DOCS, with optional retrieved context in $RETRIEVED.
func Extract() error {
	mg.Deps(Build)
	args := []string{"extract", docsFile()}
	if rc := os.Getenv("RETRIEVED"); rc != "" {
		args = append(args, "--retrieved", rc)
	}
	return sh.RunV(binary(), args...)
}

// Audit lists stored warnings and failure records.
func Audit() error {
	mg.Deps(Build)
	return sh.RunV(binary(), "audit")
}

// Export writes the stored graph to graph/export.yaml.
func Export() error {
	mg.Deps(Build)
	return sh.RunV(binary(), "export", "--format", "yaml")
}

func docsFile() string {
	if f := os.Getenv("DOCS"); f != "" {
		return f
	}
	f := filepath.Join("input", "documents.yaml")
	if _, err := os.Stat(f); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s not found; set DOCS\n", f)
	}
	return f
}
