// Package eval backs the expression compile/eval external interface named
// by the script parser and parameter binder: it judges whether a partial
// line of script text is a complete expression, and evaluates complete
// expressions against a set of named bindings.
package eval

import "github.com/pgcudahy/sos/internal/digraph"

// Mode selects the grammar an expression is checked against, mirroring
// ExprStack's three categories in the parser.
type Mode int

const (
	// ModeExpression is a single value expression (the right-hand side of
	// an assignment or a parameter default).
	ModeExpression Mode = iota
	// ModeDirective is a comma-separated argument list, as if it were the
	// argument list of a function call (an input/output/depends value).
	ModeDirective
	// ModeStatements is an arbitrary block of step-action statements.
	ModeStatements
)

// Evaluator judges completeness of, and evaluates, script expressions.
// Compile must return a non-nil error whenever text is not yet a complete,
// well-formed expression for the given mode — the parser uses that signal
// to decide whether to keep reading continuation lines.
type Evaluator interface {
	Compile(text string, mode Mode) error
	Eval(text string, bindings map[string]digraph.Value) (digraph.Value, error)
}
