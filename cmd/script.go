package main

import (
	"fmt"
	"os"
)

// readScript loads a workflow script from disk, wrapping the error with
// the path so a missing/unreadable file is obvious from the CLI output
// alone.
func readScript(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return content, nil
}
