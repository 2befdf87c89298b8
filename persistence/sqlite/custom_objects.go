package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/record"
)

// SaveCustomObject inserts or replaces a tenant's custom object definition
// together with its fields. Existing fields keep their ids.
func (s *Store) SaveCustomObject(ctx context.Context, object *record.CustomObject) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO custom_objects (organization_id, api_name, label) VALUES (?, ?, ?)
		ON CONFLICT (organization_id, api_name) DO UPDATE SET label = excluded.label
		RETURNING id`, object.OrganizationId, object.ApiName, object.Label).Scan(&object.Id)
	if err != nil {
		return storageError("save custom object", err)
	}
	for i := range object.Fields {
		f := &object.Fields[i]
		err = tx.QueryRowContext(ctx, `
			INSERT INTO custom_fields (custom_object_id, api_name, label, field_type) VALUES (?, ?, ?, ?)
			ON CONFLICT (custom_object_id, api_name) DO UPDATE SET label = excluded.label, field_type = excluded.field_type
			RETURNING id`, object.Id, f.ApiName, f.Label, string(f.FieldType)).Scan(&f.Id)
		if err != nil {
			return storageError("save custom field", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageError("commit", err)
	}
	return nil
}

func (s *Store) GetCustomObject(ctx context.Context, organizationId int64, apiName string) (*record.CustomObject, error) {
	return loadCustomObject(ctx, s.db, organizationId, apiName)
}

func loadCustomObject(ctx context.Context, q querier, organizationId int64, apiName string) (*record.CustomObject, error) {
	object := &record.CustomObject{OrganizationId: organizationId, ApiName: apiName}
	err := q.QueryRowContext(ctx, "SELECT id, label FROM custom_objects WHERE organization_id = ? AND api_name = ?",
		organizationId, apiName).Scan(&object.Id, &object.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrUnknownObject
	}
	if err != nil {
		return nil, storageError("load custom object", err)
	}
	rows, err := q.QueryContext(ctx, "SELECT id, api_name, label, field_type FROM custom_fields WHERE custom_object_id = ? ORDER BY id", object.Id)
	if err != nil {
		return nil, storageError("load custom fields", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f record.CustomField
		var fieldType string
		if err := rows.Scan(&f.Id, &f.ApiName, &f.Label, &fieldType); err != nil {
			return nil, storageError("scan custom field", err)
		}
		f.FieldType = record.FieldType(fieldType)
		object.Fields = append(object.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("load custom fields", err)
	}
	return object, nil
}

// customType stores records of one custom object as a custom_records row plus
// one typed custom_values row per set field.
type customType struct {
	object *record.CustomObject
}

func (ct *customType) New(organizationId int64) record.Record {
	return record.NewDynamicRecord(ct.object, organizationId)
}

func (ct *customType) Find(ctx context.Context, q querier, organizationId int64, id int64) (record.Record, error) {
	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM custom_records WHERE id = ? AND organization_id = ? AND custom_object_id = ?",
		id, organizationId, ct.object.Id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, storageError("find custom record", err)
	}
	rec := record.NewDynamicRecord(ct.object, organizationId)
	rec.SetId(id)

	rows, err := q.QueryContext(ctx, `
		SELECT f.api_name, f.field_type, v.text_value, v.number_value, v.boolean_value, v.date_value
		FROM custom_values v JOIN custom_fields f ON f.id = v.custom_field_id
		WHERE v.custom_record_id = ?`, id)
	if err != nil {
		return nil, storageError("load custom values", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			apiName, fieldType string
			text               sql.NullString
			number             sql.NullFloat64
			boolean            sql.NullBool
			date               sql.NullTime
		)
		if err := rows.Scan(&apiName, &fieldType, &text, &number, &boolean, &date); err != nil {
			return nil, storageError("scan custom value", err)
		}
		switch record.FieldType(fieldType) {
		case record.FIELD_TEXT:
			rec.Load(apiName, nullable(text.Valid, text.String))
		case record.FIELD_NUMBER:
			rec.Load(apiName, nullable(number.Valid, number.Float64))
		case record.FIELD_BOOLEAN:
			rec.Load(apiName, nullable(boolean.Valid, boolean.Bool))
		case record.FIELD_DATE:
			rec.Load(apiName, nullable(date.Valid, date.Time))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("load custom values", err)
	}
	return rec, nil
}

func nullable[T any](valid bool, v T) any {
	if !valid {
		return nil
	}
	return v
}

func (ct *customType) Save(ctx context.Context, q querier, rec record.Record) error {
	dyn, ok := rec.(*record.DynamicRecord)
	if !ok {
		return fmt.Errorf("record of type %s cannot be saved as custom object %s", rec.ObjectApiName(), ct.object.ApiName)
	}
	if dyn.GetId() == 0 {
		res, err := q.ExecContext(ctx, "INSERT INTO custom_records (organization_id, custom_object_id) VALUES (?, ?)",
			dyn.GetOrganizationId(), ct.object.Id)
		if err != nil {
			return storageError("insert custom record", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return storageError("insert custom record", err)
		}
		dyn.SetId(id)
	}
	for _, f := range dyn.Dirty() {
		v, _ := dyn.GetField(f.ApiName)
		var text, number, boolean, date any
		switch f.FieldType {
		case record.FIELD_TEXT:
			text = v
		case record.FIELD_NUMBER:
			number = v
		case record.FIELD_BOOLEAN:
			boolean = v
		case record.FIELD_DATE:
			if t, ok := v.(time.Time); ok {
				date = t
			}
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO custom_values (custom_record_id, custom_field_id, text_value, number_value, boolean_value, date_value)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (custom_record_id, custom_field_id) DO UPDATE SET
				text_value = excluded.text_value, number_value = excluded.number_value,
				boolean_value = excluded.boolean_value, date_value = excluded.date_value`,
			dyn.GetId(), f.Id, text, number, boolean, date)
		if err != nil {
			return storageError("save custom value", err)
		}
	}
	dyn.ClearDirty()
	return nil
}

func (ct *customType) Delete(ctx context.Context, q querier, rec record.Record) error {
	_, err := q.ExecContext(ctx, "DELETE FROM custom_records WHERE id = ? AND organization_id = ? AND custom_object_id = ?",
		rec.GetId(), rec.GetOrganizationId(), ct.object.Id)
	if err != nil {
		return storageError("delete custom record", err)
	}
	return nil
}
