package orchestrator

import "github.com/aescanero/classflow/pkg/domain"

// Results holds the outcome of every task that succeeded, keyed by task id
// and then by attribute. The only attribute recorded today is "result".
type Results map[string]map[string]any

// Record stores the result of a succeeded task.
func (r Results) Record(taskID string, result any) {
	r[taskID] = map[string]any{"result": result}
}

// lookup resolves a reference. Unknown tasks and attributes yield nil.
func (r Results) lookup(ref domain.Reference) any {
	attrs, ok := r[ref.TaskID]
	if !ok {
		return nil
	}
	return attrs[ref.Attribute]
}

// Value is a compiled task input: a literal, a reference, or a container
// of values.
type Value interface {
	Resolve(completed Results) any
}

// Literal is a value that passes through resolution unchanged.
type Literal struct {
	V any
}

// Resolve returns a copy of the literal.
func (l Literal) Resolve(Results) any {
	return domain.CloneValue(l.V)
}

// Ref is a whole-string placeholder.
type Ref struct {
	domain.Reference
}

// Resolve returns a copy of the referenced attribute, or nil.
func (r Ref) Resolve(completed Results) any {
	return domain.CloneValue(completed.lookup(r.Reference))
}

// MapValue resolves its entries element-wise.
type MapValue map[string]Value

// Resolve returns a new map with every entry resolved.
func (m MapValue) Resolve(completed Results) any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Resolve(completed)
	}
	return out
}

// ListValue resolves its items element-wise.
type ListValue []Value

// Resolve returns a new slice with every item resolved.
func (l ListValue) Resolve(completed Results) any {
	out := make([]any, len(l))
	for i, v := range l {
		out[i] = v.Resolve(completed)
	}
	return out
}

// Compile turns a JSON-compatible input into a Value tree. A string is a
// reference only if the whole string is a placeholder.
func Compile(input any) Value {
	switch v := input.(type) {
	case string:
		if ref, ok := domain.ParseReference(v); ok {
			return Ref{Reference: ref}
		}
		return Literal{V: v}
	case map[string]any:
		m := make(MapValue, len(v))
		for k, item := range v {
			m[k] = Compile(item)
		}
		return m
	case map[string]string:
		m := make(MapValue, len(v))
		for k, item := range v {
			m[k] = Compile(item)
		}
		return m
	case []any:
		l := make(ListValue, len(v))
		for i, item := range v {
			l[i] = Compile(item)
		}
		return l
	case []string:
		l := make(ListValue, len(v))
		for i, item := range v {
			l[i] = Compile(item)
		}
		return l
	case []map[string]any:
		l := make(ListValue, len(v))
		for i, item := range v {
			l[i] = Compile(item)
		}
		return l
	default:
		return Literal{V: v}
	}
}

// ResolveInput substitutes every placeholder in input with the referenced
// result. The input is never modified.
func ResolveInput(input any, completed Results) any {
	return Compile(input).Resolve(completed)
}
