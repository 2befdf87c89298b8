package record

import (
	"fmt"

	"github.com/spf13/cast"
)

type FieldType string

const (
	FIELD_TEXT    FieldType = "text"
	FIELD_NUMBER  FieldType = "number"
	FIELD_BOOLEAN FieldType = "boolean"
	FIELD_DATE    FieldType = "date"
)

type CustomField struct {
	Id        int64     `json:"id"`
	ApiName   string    `json:"apiName"`
	Label     string    `json:"label"`
	FieldType FieldType `json:"fieldType"`
}

// Coerce converts v into the Go type stored for the field's type.
func (f CustomField) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.FieldType {
	case FIELD_TEXT:
		return cast.ToStringE(v)
	case FIELD_NUMBER:
		return cast.ToFloat64E(v)
	case FIELD_BOOLEAN:
		return cast.ToBoolE(v)
	case FIELD_DATE:
		return cast.ToTimeE(v)
	}
	return nil, fmt.Errorf("field %s has unsupported type %q", f.ApiName, f.FieldType)
}

type CustomObject struct {
	Id             int64         `json:"id"`
	OrganizationId int64         `json:"organizationId"`
	ApiName        string        `json:"apiName"`
	Label          string        `json:"label"`
	Fields         []CustomField `json:"fields"`
}

func (o *CustomObject) Field(apiName string) (CustomField, bool) {
	for _, f := range o.Fields {
		if f.ApiName == apiName {
			return f, true
		}
	}
	return CustomField{}, false
}

// DynamicRecord is one row of a custom object. Values are keyed by field api
// name and only fields defined on the object are accepted.
type DynamicRecord struct {
	Id             int64
	OrganizationId int64
	Object         *CustomObject
	values         map[string]any
	dirty          map[string]bool
}

var _ Record = new(DynamicRecord)

func NewDynamicRecord(object *CustomObject, organizationId int64) *DynamicRecord {
	return &DynamicRecord{
		OrganizationId: organizationId,
		Object:         object,
		values:         make(map[string]any),
		dirty:          make(map[string]bool),
	}
}

func (r *DynamicRecord) ObjectApiName() string    { return r.Object.ApiName }
func (r *DynamicRecord) GetId() int64             { return r.Id }
func (r *DynamicRecord) SetId(id int64)           { r.Id = id }
func (r *DynamicRecord) GetOrganizationId() int64 { return r.OrganizationId }

func (r *DynamicRecord) GetField(name string) (any, bool) {
	if name == "id" {
		return r.Id, true
	}
	if _, ok := r.Object.Field(name); !ok {
		return nil, false
	}
	return r.values[name], true
}

func (r *DynamicRecord) SetField(name string, value any) bool {
	f, ok := r.Object.Field(name)
	if !ok {
		return false
	}
	coerced, err := f.Coerce(value)
	if err != nil {
		return false
	}
	r.values[name] = coerced
	r.dirty[name] = true
	return true
}

// Load sets a value read from storage without marking it dirty.
func (r *DynamicRecord) Load(name string, value any) {
	r.values[name] = value
}

func (r *DynamicRecord) Dirty() []CustomField {
	var out []CustomField
	for _, f := range r.Object.Fields {
		if r.dirty[f.ApiName] {
			out = append(out, f)
		}
	}
	return out
}

func (r *DynamicRecord) ClearDirty() {
	r.dirty = make(map[string]bool)
}

func (r *DynamicRecord) Fields() map[string]any {
	out := make(map[string]any, len(r.Object.Fields)+1)
	for _, f := range r.Object.Fields {
		out[f.ApiName] = r.values[f.ApiName]
	}
	out["id"] = r.Id
	return out
}
