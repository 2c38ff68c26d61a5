// Package workflow materialises the sections produced by internal/dsl
// into a single runnable Workflow: selecting the sections that belong to
// a requested workflow name (resolving wildcard headers and auxiliary
// sections along the way) and sorting them into execution order.
package workflow

import (
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"

	"github.com/pgcudahy/sos/internal/dsl"
)

// DuplicateSectionError is returned when two sections claim the same
// (workflow, index) slot — ordering within a workflow must be unambiguous.
type DuplicateSectionError struct {
	Workflow string
	Index    int
}

func (e *DuplicateSectionError) Error() string {
	return fmt.Sprintf("workflow: section index %d is defined more than once in workflow %q", e.Index, e.Workflow)
}

// Workflow is one materialised pipeline: a global section of constants, an
// optional parameters section, the ordered indexed sections that make up
// its body, and the auxiliary (unindexed) sections available to satisfy
// on-demand targets.
type Workflow struct {
	Name              string
	GlobalSection     *dsl.Section
	ParametersSection *dsl.Section
	Sections          []*dsl.Section
	// Indices holds each Sections[i]'s body index, in the same order.
	Indices           []int
	AuxiliarySections []*dsl.Section
}

// Names returns the set of workflow names a parsed script defines: every
// distinct, non-wildcard name attached to an indexed section header.
func Names(sections []*dsl.Section) []string {
	seen := map[string]bool{}
	var names []string
	for _, sect := range sections {
		for _, n := range sect.Names {
			if n.Index == nil || containsStar(n.Name) {
				continue
			}
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		}
	}
	return names
}

// Select builds the Workflow named workflowName out of sections, mirroring
// SoS_Workflow's partitioning: the global section and parameters section
// are singletons shared by every workflow; a section whose header has no
// index is auxiliary (available on demand, not part of the main body); a
// section whose wildcard name matches workflowName joins the body just as
// one whose name matches workflowName exactly does. Sections are not
// modified: a wildcard section keeps its own Names, and callers name its
// steps after Workflow.Name.
// Sections are finally sorted by index, and a duplicate index is an error.
func Select(sections []*dsl.Section, workflowName string) (*Workflow, error) {
	wf := &Workflow{Name: workflowName}

	type indexed struct {
		sect  *dsl.Section
		index int
	}
	var body []indexed

	for _, sect := range sections {
		switch {
		case sect.IsGlobal:
			wf.GlobalSection = sect
			continue
		case sect.IsParameters:
			wf.ParametersSection = sect
			continue
		}
		for _, n := range sect.Names {
			if n.Index == nil {
				wf.AuxiliarySections = append(wf.AuxiliarySections, sect)
				continue
			}
			if matchesWildcard(n.Name, workflowName) {
				body = append(body, indexed{sect: sect, index: *n.Index})
			} else if n.Name == workflowName {
				body = append(body, indexed{sect: sect, index: *n.Index})
			}
		}
	}

	indices := lo.Map(body, func(item indexed, _ int) int { return item.index })
	if dup, ok := firstDuplicate(indices); ok {
		return nil, &DuplicateSectionError{Workflow: workflowName, Index: dup}
	}

	sort.SliceStable(body, func(i, j int) bool { return body[i].index < body[j].index })
	wf.Sections = lo.Map(body, func(item indexed, _ int) *dsl.Section { return item.sect })
	wf.Indices = lo.Map(body, func(item indexed, _ int) int { return item.index })
	return wf, nil
}

func firstDuplicate(indices []int) (int, bool) {
	seen := map[int]bool{}
	for _, i := range indices {
		if seen[i] {
			return i, true
		}
		seen[i] = true
	}
	return 0, false
}

func containsStar(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] == '*' {
			return true
		}
	}
	return false
}

// matchesWildcard reports whether a section-header name containing '*'
// matches the requested workflow name, using shell-style glob semantics
// rather than the bare substring test the original implementation used.
func matchesWildcard(pattern, workflowName string) bool {
	if !containsStar(pattern) {
		return false
	}
	ok, err := doublestar.Match(pattern, workflowName)
	return err == nil && ok
}
