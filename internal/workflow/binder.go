package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgcudahy/sos/internal/digraph"
	"github.com/pgcudahy/sos/internal/dsl"
	"github.com/pgcudahy/sos/internal/eval"
)

// ArgumentError is returned when a `--name value` override cannot be
// coerced into the type inferred from the parameter's default expression.
type ArgumentError struct {
	Parameter string
	Value     string
	Want      digraph.ValueKind
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("workflow: parameter %q expects a %s value, got %q", e.Parameter, e.Want, e.Value)
}

// Binder evaluates a workflow's parameters section into a name->Value
// table, using each parameter's default expression to infer its type and
// overriding defaults with values supplied on the command line.
type Binder struct {
	evaluator eval.Evaluator
}

// NewBinder builds a Binder backed by evaluator.
func NewBinder(evaluator eval.Evaluator) *Binder {
	return &Binder{evaluator: evaluator}
}

// Defaults evaluates every parameter's default expression and returns the
// resulting name->Value table, establishing the type each parameter is
// expected to carry. globals seeds the symbol table each default is
// evaluated against, so a later parameter's default may reference an
// already-evaluated global assignment (or an earlier parameter in the
// same section, since out accumulates as it goes).
func (b *Binder) Defaults(params *dsl.Section, globals map[string]digraph.Value) (map[string]digraph.Value, error) {
	out := map[string]digraph.Value{}
	for name, v := range globals {
		out[name] = v
	}
	if params == nil {
		return out, nil
	}
	for _, p := range params.Parameters {
		v, err := b.evaluator.Eval(p.Default, out)
		if err != nil {
			return nil, fmt.Errorf("workflow: incorrect default value for parameter %q: %w", p.Name, err)
		}
		out[p.Name] = v
	}
	return out, nil
}

// BindFlags registers one cobra flag per parameter on fs, seeded with the
// default inferred by Defaults, and returns a function that — once cobra
// has parsed argv — produces the final bound table by reading back
// whatever value ended up in each flag (default or CLI override). globals
// is threaded through to Defaults so defaults expressed in terms of a
// global assignment resolve the same way here as they do in Defaults.
func (b *Binder) BindFlags(params *dsl.Section, globals map[string]digraph.Value, fs *cobra.Command) (func() (map[string]digraph.Value, error), error) {
	defaults, err := b.Defaults(params, globals)
	if err != nil {
		return nil, err
	}
	if params == nil {
		return func() (map[string]digraph.Value, error) { return map[string]digraph.Value{}, nil }, nil
	}

	type binding struct {
		name string
		kind digraph.ValueKind
	}
	var bindings []binding

	for _, p := range params.Parameters {
		def := defaults[p.Name]
		flagName := flagNameFor(p.Name)
		switch def.Kind() {
		case digraph.KindInt:
			i, _ := def.AsInt()
			fs.Flags().Int64(flagName, i, strings.TrimSpace(p.Comment))
		case digraph.KindFloat:
			f, _ := def.AsFloat()
			fs.Flags().Float64(flagName, f, strings.TrimSpace(p.Comment))
		case digraph.KindBool:
			bv, _ := def.AsBool()
			fs.Flags().Bool(flagName, bv, strings.TrimSpace(p.Comment))
		case digraph.KindList:
			items, _ := def.AsList()
			fs.Flags().StringArray(flagName, stringsOf(items), strings.TrimSpace(p.Comment))
		default:
			s, _ := def.AsStr()
			fs.Flags().String(flagName, s, strings.TrimSpace(p.Comment))
		}
		bindings = append(bindings, binding{name: p.Name, kind: def.Kind()})
	}

	resolve := func() (map[string]digraph.Value, error) {
		out := map[string]digraph.Value{}
		for _, bd := range bindings {
			flagName := flagNameFor(bd.name)
			switch bd.kind {
			case digraph.KindInt:
				i, err := fs.Flags().GetInt64(flagName)
				if err != nil {
					return nil, &ArgumentError{Parameter: bd.name, Want: digraph.KindInt}
				}
				out[bd.name] = digraph.Int(i)
			case digraph.KindFloat:
				f, err := fs.Flags().GetFloat64(flagName)
				if err != nil {
					return nil, &ArgumentError{Parameter: bd.name, Want: digraph.KindFloat}
				}
				out[bd.name] = digraph.Float(f)
			case digraph.KindBool:
				bv, err := fs.Flags().GetBool(flagName)
				if err != nil {
					return nil, &ArgumentError{Parameter: bd.name, Want: digraph.KindBool}
				}
				out[bd.name] = digraph.Bool(bv)
			case digraph.KindList:
				items, err := fs.Flags().GetStringArray(flagName)
				if err != nil {
					return nil, &ArgumentError{Parameter: bd.name, Want: digraph.KindList}
				}
				vals := make([]digraph.Value, len(items))
				for i, s := range items {
					vals[i] = digraph.Str(s)
				}
				out[bd.name] = digraph.List(vals...)
			default:
				s, err := fs.Flags().GetString(flagName)
				if err != nil {
					return nil, &ArgumentError{Parameter: bd.name, Want: digraph.KindStr}
				}
				out[bd.name] = digraph.Str(s)
			}
		}
		return out, nil
	}
	return resolve, nil
}

// ParseOverride applies a raw `name=value` command-line override onto
// bindings, type-checking value against the kind already present for name
// (established by Defaults). This is the non-cobra path used by `sos run
// --param k=v` where the parameter set isn't known until the script is
// parsed and is passed as repeated flag occurrences rather than dedicated
// per-parameter flags.
func ParseOverride(bindings map[string]digraph.Value, raw string) error {
	name, value, ok := strings.Cut(raw, "=")
	if !ok {
		return fmt.Errorf("workflow: malformed --param %q, expected name=value", raw)
	}
	current, known := bindings[name]
	if !known {
		bindings[name] = digraph.Str(value)
		return nil
	}
	switch current.Kind() {
	case digraph.KindInt:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return &ArgumentError{Parameter: name, Value: value, Want: digraph.KindInt}
		}
		bindings[name] = digraph.Int(i)
	case digraph.KindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &ArgumentError{Parameter: name, Value: value, Want: digraph.KindFloat}
		}
		bindings[name] = digraph.Float(f)
	case digraph.KindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &ArgumentError{Parameter: name, Value: value, Want: digraph.KindBool}
		}
		bindings[name] = digraph.Bool(b)
	default:
		bindings[name] = digraph.Str(value)
	}
	return nil
}

func flagNameFor(param string) string { return strings.ReplaceAll(param, "_", "-") }

func stringsOf(items []digraph.Value) []string {
	out := make([]string, len(items))
	for i, v := range items {
		out[i] = v.String()
	}
	return out
}
