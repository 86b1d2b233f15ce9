package docmail

import (
	"fmt"
	"slices"
)

// fieldDef binds one named attribute of an entity T to typed accessors.
type fieldDef[T any] struct {
	name string
	get  func(*T) any
	set  func(*T, any) error
}

// fieldTable is the fixed set of attributes an entity exposes.
type fieldTable[T any] []fieldDef[T]

func (t fieldTable[T]) lookup(name string) (fieldDef[T], error) {
	i := slices.IndexFunc(t, func(f fieldDef[T]) bool { return f.name == name })
	if i < 0 {
		return fieldDef[T]{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return t[i], nil
}

func (t fieldTable[T]) set(e *T, name string, v any) error {
	f, err := t.lookup(name)
	if err != nil {
		return err
	}
	return f.set(e, v)
}

func (t fieldTable[T]) get(e *T, name string) (any, bool) {
	f, err := t.lookup(name)
	if err != nil {
		return nil, false
	}
	return f.get(e), true
}

// reset copies the named attribute from defaults into e.
func (t fieldTable[T]) reset(e, defaults *T, name string) error {
	f, err := t.lookup(name)
	if err != nil {
		return err
	}
	return f.set(e, f.get(defaults))
}

func (t fieldTable[T]) names() []string {
	out := make([]string, len(t))
	for i, f := range t {
		out[i] = f.name
	}
	return out
}

func (t fieldTable[T]) params(e *T) Params {
	p := make(Params, len(t))
	for _, f := range t {
		p[f.name] = f.get(e)
	}
	return p
}

func typedField[T, V any](name string, ptr func(*T) *V) fieldDef[T] {
	return fieldDef[T]{
		name: name,
		get:  func(e *T) any { return *ptr(e) },
		set: func(e *T, v any) error {
			tv, ok := v.(V)
			if !ok {
				return fmt.Errorf("%w: %s expects %T, got %T", ErrInvalidValue, name, *new(V), v)
			}
			*ptr(e) = tv
			return nil
		},
	}
}

func stringField[T any](name string, ptr func(*T) *string) fieldDef[T] {
	return typedField(name, ptr)
}

func boolField[T any](name string, ptr func(*T) *bool) fieldDef[T] {
	return typedField(name, ptr)
}

// intField also accepts the integer kinds JSON and config decoders produce.
func intField[T any](name string, ptr func(*T) *int) fieldDef[T] {
	f := typedField(name, ptr)
	strict := f.set
	f.set = func(e *T, v any) error {
		switch n := v.(type) {
		case int64:
			v = int(n)
		case int32:
			v = int(n)
		case float64:
			if n != float64(int(n)) {
				return fmt.Errorf("%w: %s expects a whole number, got %v", ErrInvalidValue, name, n)
			}
			v = int(n)
		}
		return strict(e, v)
	}
	return f
}
