package record

import "sort"

type field[T any] struct {
	get func(*T) any
	set func(*T, any) bool
}

// FieldTable maps field api names of a statically schemed entity to its
// named getters and setters.
type FieldTable[T any] struct {
	fields map[string]field[T]
}

func NewFieldTable[T any]() *FieldTable[T] {
	return &FieldTable[T]{fields: make(map[string]field[T])}
}

func (ft *FieldTable[T]) Add(name string, get func(*T) any, set func(*T, any) bool) *FieldTable[T] {
	ft.fields[name] = field[T]{get: get, set: set}
	return ft
}

func (ft *FieldTable[T]) Get(entity *T, name string) (any, bool) {
	f, ok := ft.fields[name]
	if !ok {
		return nil, false
	}
	return f.get(entity), true
}

func (ft *FieldTable[T]) Set(entity *T, name string, value any) bool {
	f, ok := ft.fields[name]
	if !ok || f.set == nil {
		return false
	}
	return f.set(entity, value)
}

func (ft *FieldTable[T]) Names() []string {
	names := make([]string, 0, len(ft.fields))
	for name := range ft.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ft *FieldTable[T]) All(entity *T) map[string]any {
	out := make(map[string]any, len(ft.fields))
	for name, f := range ft.fields {
		out[name] = f.get(entity)
	}
	return out
}
