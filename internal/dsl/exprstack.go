package dsl

import (
	"fmt"
	"strings"

	"github.com/pgcudahy/sos/internal/eval"
)

// Category mirrors ExprStack's three value kinds from the original parser.
type Category int

const (
	CategoryNone Category = iota
	CategoryExpression
	CategoryDirective
	CategoryStatements
)

func (c Category) evalMode() eval.Mode {
	switch c {
	case CategoryDirective:
		return eval.ModeDirective
	case CategoryStatements:
		return eval.ModeStatements
	default:
		return eval.ModeExpression
	}
}

// ExprStack tracks a value (an assignment's right-hand side, a directive's
// argument list, or a step's action body) that may span several lines: the
// parser keeps pushing lines onto it until IsValid reports the
// accumulated text is a complete value for its Category.
type ExprStack struct {
	category Category
	values   []string
	evaluator eval.Evaluator
}

// NewExprStack builds an empty stack backed by the given evaluator, which
// judges completeness via Evaluator.Compile.
func NewExprStack(evaluator eval.Evaluator) *ExprStack {
	return &ExprStack{evaluator: evaluator}
}

// Clear resets the stack to empty, matching ExprStack.clear().
func (s *ExprStack) Clear() {
	s.category = CategoryNone
	s.values = nil
}

// Set opens the stack with expr as its first line. It panics if the stack
// already holds values — callers must Clear before Set, exactly as the
// original enforces, to guarantee every value gets its validity checked.
func (s *ExprStack) Set(expr string, category Category) {
	if len(s.values) != 0 {
		panic("dsl: ExprStack.Set called before Clear on a non-empty stack")
	}
	s.values = []string{expr}
	s.category = category
}

// Push appends a continuation line onto an already-open stack.
func (s *ExprStack) Push(value string) {
	if s.category == CategoryNone {
		panic("dsl: ExprStack.Push called before Set")
	}
	s.values = append(s.values, value)
}

// IsValid reports whether the accumulated text is a complete value of its
// category. An empty stack is trivially valid (there is nothing pending).
func (s *ExprStack) IsValid() bool {
	if len(s.values) == 0 {
		return true
	}
	joined := strings.Join(s.values, "")
	if s.category == CategoryDirective && strings.HasSuffix(strings.TrimSpace(s.values[len(s.values)-1]), ",") {
		// A trailing comma is syntactically valid as a function call
		// argument list, but we want it to force another line of input.
		return false
	}
	err := s.evaluator.Compile(joined, s.category.evalMode())
	return err == nil
}

// Text returns the accumulated, joined value text.
func (s *ExprStack) Text() string { return strings.Join(s.values, "") }

// CategoryOf returns the stack's current category.
func (s *ExprStack) CategoryOf() Category { return s.category }

func (c Category) String() string {
	switch c {
	case CategoryExpression:
		return "expression"
	case CategoryDirective:
		return "directive"
	case CategoryStatements:
		return "statements"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}
