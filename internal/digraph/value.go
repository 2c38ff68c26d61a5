package digraph

import "fmt"

// ValueKind distinguishes the concrete shape held by a Value.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindStr
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindStr:
		return "str"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "none"
	}
}

// Value is the dynamically typed result of evaluating a directive argument
// or a parameter default: Str | Int | Float | Bool | List<Value> |
// Map<string, Value>. It is the Go-native counterpart of the untyped
// Python values an SoS expression can produce.
type Value struct {
	kind ValueKind
	str  string
	i    int64
	f    float64
	b    bool
	list []Value
	m    map[string]Value
}

func Str(s string) Value   { return Value{kind: KindStr, str: s} }
func Int(i int64) Value    { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value    { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsStr() (string, bool)  { return v.str, v.kind == KindStr }
func (v Value) AsInt() (int64, bool)   { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) AsBool() (bool, bool)   { return v.b, v.kind == KindBool }
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// String renders v for logs, debug dumps and as a fallback environment
// variable value when passed to a shell executor.
func (v Value) String() string {
	switch v.kind {
	case KindStr:
		return v.str
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindList:
		out := "["
		for i, item := range v.list {
			if i > 0 {
				out += ", "
			}
			out += item.String()
		}
		return out + "]"
	case KindMap:
		out := "{"
		first := true
		for k, item := range v.m {
			if !first {
				out += ", "
			}
			first = false
			out += k + ": " + item.String()
		}
		return out + "}"
	default:
		return "<none>"
	}
}
