// Package record gives the flow engine one way to read and write fields on
// both the shelter's fixed entities (pets, tasks, events) and tenant defined
// custom objects whose fields live in attribute/value rows.
package record

import "errors"

var ErrUnknownObject = errors.New("unknown object api name")

type Record interface {
	ObjectApiName() string
	GetId() int64
	SetId(id int64)
	GetOrganizationId() int64
	// GetField reports false when the field is not part of the record's schema.
	GetField(name string) (any, bool)
	// SetField reports false, leaving the record untouched, when the field is
	// unknown or the value cannot be stored in it.
	SetField(name string, value any) bool
	Fields() map[string]any
}

// Ref is the lightweight pointer to a record carried by jobs and execution input.
func Ref(r Record) (string, int64) {
	if r == nil {
		return "", 0
	}
	return r.ObjectApiName(), r.GetId()
}
