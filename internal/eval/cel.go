package eval

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"

	"github.com/pgcudahy/sos/internal/digraph"
)

// CELEvaluator implements Evaluator on top of google/cel-go. ModeExpression
// and ModeDirective are judged by the real CEL parser (syntax only, so an
// identifier that is bound only at Eval time does not make text
// incomplete) and evaluated by real CEL compilation;
// ModeStatements covers opaque step-action text (shell/script bodies handed
// to the executor verbatim) which CEL cannot parse as an expression, so
// completeness there is judged by delimiter balance instead — see
// balancedDelimiters.
type CELEvaluator struct {
	env *cel.Env
}

// NewCELEvaluator builds an evaluator whose environment accepts any
// variable name referenced in bindings at Eval time (CEL requires declared
// identifiers, so the environment is rebuilt per-call from the caller's
// binding set).
func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("eval: building base CEL environment: %w", err)
	}
	return &CELEvaluator{env: env}, nil
}

func (e *CELEvaluator) Compile(text string, mode Mode) error {
	switch mode {
	case ModeExpression:
		_, iss := e.env.Parse(text)
		if iss != nil && iss.Err() != nil {
			return iss.Err()
		}
		return nil
	case ModeDirective:
		if strings.HasSuffix(strings.TrimSpace(text), ",") {
			return fmt.Errorf("eval: trailing comma forces continuation")
		}
		wrapped := "[" + text + "]"
		_, iss := e.env.Parse(wrapped)
		if iss != nil && iss.Err() != nil {
			return iss.Err()
		}
		return nil
	case ModeStatements:
		if !balancedDelimiters(text) {
			return fmt.Errorf("eval: unbalanced delimiters in statement block")
		}
		return nil
	default:
		return fmt.Errorf("eval: unknown mode %d", mode)
	}
}

// Eval compiles and evaluates text under ModeExpression semantics with the
// given bindings declared as CEL variables of type dyn. It is used for
// directive arguments and parameter defaults, never for ModeStatements
// (action bodies are opaque to the evaluator; see internal/executor).
func (e *CELEvaluator) Eval(text string, bindings map[string]digraph.Value) (digraph.Value, error) {
	opts := make([]cel.EnvOption, 0, len(bindings))
	for name := range bindings {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := e.env.Extend(opts...)
	if err != nil {
		return digraph.Value{}, fmt.Errorf("eval: extending environment: %w", err)
	}
	ast, iss := env.Compile(text)
	if iss != nil && iss.Err() != nil {
		return digraph.Value{}, fmt.Errorf("eval: compiling %q: %w", text, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return digraph.Value{}, fmt.Errorf("eval: building program for %q: %w", text, err)
	}
	vars := make(map[string]any, len(bindings))
	for name, v := range bindings {
		vars[name] = toCEL(v)
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return digraph.Value{}, fmt.Errorf("eval: evaluating %q: %w", text, err)
	}
	return fromCEL(out)
}

func toCEL(v digraph.Value) any {
	switch v.Kind() {
	case digraph.KindStr:
		s, _ := v.AsStr()
		return s
	case digraph.KindInt:
		i, _ := v.AsInt()
		return i
	case digraph.KindFloat:
		f, _ := v.AsFloat()
		return f
	case digraph.KindBool:
		b, _ := v.AsBool()
		return b
	case digraph.KindList:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toCEL(item)
		}
		return out
	case digraph.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = toCEL(item)
		}
		return out
	default:
		return nil
	}
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func fromCEL(val ref.Val) (digraph.Value, error) {
	native, err := val.ConvertToNative(anyType)
	if err != nil {
		return valueFromGo(val.Value())
	}
	return valueFromGo(native)
}

func valueFromGo(v any) (digraph.Value, error) {
	switch t := v.(type) {
	case string:
		return digraph.Str(t), nil
	case int64:
		return digraph.Int(t), nil
	case int:
		return digraph.Int(int64(t)), nil
	case float64:
		return digraph.Float(t), nil
	case bool:
		return digraph.Bool(t), nil
	case []any:
		items := make([]digraph.Value, len(t))
		for i, item := range t {
			dv, err := valueFromGo(item)
			if err != nil {
				return digraph.Value{}, err
			}
			items[i] = dv
		}
		return digraph.List(items...), nil
	case map[string]any:
		m := make(map[string]digraph.Value, len(t))
		for k, item := range t {
			dv, err := valueFromGo(item)
			if err != nil {
				return digraph.Value{}, err
			}
			m[k] = dv
		}
		return digraph.Map(m), nil
	default:
		return digraph.Str(fmt.Sprintf("%v", t)), nil
	}
}

// balancedDelimiters reports whether every paren/bracket/brace and quote in
// text is balanced, the same coarse signal the original parser effectively
// relies on for statement continuation before handing the block to a real
// tokenizer. Good enough to decide "keep reading" without parsing an
// arbitrary scripting language.
func balancedDelimiters(text string) bool {
	var stack []byte
	inSingle, inDouble := false, false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, c)
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 {
				return false
			}
			top := stack[len(stack)-1]
			if (c == ')' && top != '(') || (c == ']' && top != '[') || (c == '}' && top != '{') {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0 && !inSingle && !inDouble
}
