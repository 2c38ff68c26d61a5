// Package probe answers whether a target already exists outside the
// current run, the collaborator the scheduler's dangling-target check
// needs but that spec.md leaves as an external interface.
package probe

import "os"

// FileProbe reports whether a target already exists.
type FileProbe interface {
	Exists(target string) bool
}

// OSFileProbe answers file targets via os.Stat. Named targets (anything
// that isn't a filesystem path) are never considered pre-existing.
type OSFileProbe struct{}

// Exists implements FileProbe.
func (OSFileProbe) Exists(target string) bool {
	_, err := os.Stat(target)
	return err == nil
}
