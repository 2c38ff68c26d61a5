// Package dsl implements the line-oriented script parser and its
// expression-completeness helper (ExprStack): turning raw script text into
// an ordered slice of Section values that internal/workflow can later
// materialise into a runnable workflow.
package dsl

// lastKind tracks what kind of item a Section most recently committed,
// mirroring SoS_Step.last_line's tri-state ('=', ':', '!') plus the empty
// state. It is what lets Extend route an indented continuation line to the
// right accumulator without re-deriving it from content.
type lastKind int

const (
	kindNone lastKind = iota
	kindAssignment
	kindDirective
	kindStatement
)

// StepName is one (name, index) pair parsed from a section header such as
// `[align_10,filter_10]`. Index is nil for auxiliary sections (no trailing
// _index and no bare numeric header).
type StepName struct {
	Name  string
	Index *int
}

// Assignment is a `key = value` item inside a section.
type Assignment struct {
	Key   string
	Value string
}

// Directive is a `name: value` item (input/output/depends).
type Directive struct {
	Name  string
	Value string
}

// Parameter is one entry of a `[parameters]` section: its name, default
// value expression, and the accumulated comment that preceded it.
type Parameter struct {
	Name    string
	Default string
	Comment string
}

// Section is the Go counterpart of SoS_Step: one `[...]` block of a
// script, or the implicit global/parameters section.
type Section struct {
	Names   []StepName
	Options map[string]string

	Comment      string
	Parameters   []Parameter
	Assignments  []Assignment
	Directives   []Directive
	Statements   []string
	IsGlobal     bool
	IsParameters bool

	lastKind lastKind
}

// NewSection builds a Section for the given header names/options. Pass
// isParameters=true only for the reserved `[parameters]` section name.
func NewSection(names []StepName, options map[string]string, isParameters bool) *Section {
	if options == nil {
		options = map[string]string{}
	}
	return &Section{Names: names, Options: options, IsParameters: isParameters}
}

// NewGlobalSection builds the implicit section holding assignments that
// appear before any `[...]` header.
func NewGlobalSection() *Section {
	return &Section{Options: map[string]string{}, IsGlobal: true}
}

// Empty reports whether the section has accumulated any content yet; a
// comment alone does not count, matching SoS_Step.empty().
func (s *Section) Empty() bool { return s.lastKind == kindNone }

// Extend routes a continuation line (one that starts with whitespace, or
// one the expression stack judged incomplete) to whichever accumulator
// last committed an item.
func (s *Section) Extend(line string) {
	switch s.lastKind {
	case kindDirective:
		s.AddDirective("", line)
	case kindAssignment:
		s.AddAssignment("", line)
	default:
		s.AddStatement(line)
	}
}

// AddComment appends a line of comment text, trimming the leading '#'.
func (s *Section) AddComment(line string) {
	trimmed := line
	for len(trimmed) > 0 && trimmed[0] == '#' {
		trimmed = trimmed[1:]
	}
	s.Comment += " " + trimRightSpace(trimLeftSpace(trimmed))
}

// AddAssignment records a `key = value` item, or — when key is empty —
// appends value onto the most recently opened assignment/parameter as a
// continuation line.
func (s *Section) AddAssignment(key, value string) {
	if key == "" {
		if s.IsParameters {
			last := len(s.Parameters) - 1
			s.Parameters[last].Default += value
		} else {
			last := len(s.Assignments) - 1
			s.Assignments[last].Value += value
		}
		return
	}
	if s.IsParameters {
		s.Parameters = append(s.Parameters, Parameter{Name: key, Default: value, Comment: s.Comment})
		s.Comment = ""
	} else {
		s.Assignments = append(s.Assignments, Assignment{Key: key, Value: value})
	}
	s.lastKind = kindAssignment
}

// AddDirective records a `name: value` item, or appends a continuation
// line onto the most recently opened directive when name is empty.
func (s *Section) AddDirective(name, value string) {
	if name == "" {
		last := len(s.Directives) - 1
		s.Directives[last].Value += value
		return
	}
	s.Directives = append(s.Directives, Directive{Name: name, Value: value})
	s.lastKind = kindDirective
}

// AddStatement appends a line to the step's action block.
func (s *Section) AddStatement(line string) {
	s.Statements = append(s.Statements, line)
	s.lastKind = kindStatement
}

func trimLeftSpace(s string) string {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return s[i:]
}

func trimRightSpace(s string) string {
	i := len(s)
	for i > 0 && isSpace(s[i-1]) {
		i--
	}
	return s[:i]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
