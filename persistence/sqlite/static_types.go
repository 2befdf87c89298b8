package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/record"
)

// staticType maps one fixed entity onto its table. columns excludes id and
// organization_id; values and scan must list the struct fields in the same order.
type staticType[T any] struct {
	table   string
	columns []string
	newFn   func(organizationId int64) *T
	asT     func(record.Record) (*T, bool)
	values  func(*T) []any
	scan    func(*T) []any
}

func (st *staticType[T]) New(organizationId int64) record.Record {
	return any(st.newFn(organizationId)).(record.Record)
}

func (st *staticType[T]) Find(ctx context.Context, q querier, organizationId int64, id int64) (record.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? AND organization_id = ?", strings.Join(st.columns, ", "), st.table)
	entity := st.newFn(organizationId)
	err := q.QueryRowContext(ctx, query, id, organizationId).Scan(st.scan(entity)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, storageError("find "+st.table, err)
	}
	rec := any(entity).(record.Record)
	rec.SetId(id)
	return rec, nil
}

func (st *staticType[T]) Save(ctx context.Context, q querier, rec record.Record) error {
	entity, ok := st.asT(rec)
	if !ok {
		return fmt.Errorf("record of type %s cannot be saved as %s", rec.ObjectApiName(), st.table)
	}
	values := st.values(entity)
	if rec.GetId() == 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(st.columns)+1), ", ")
		query := fmt.Sprintf("INSERT INTO %s (organization_id, %s) VALUES (%s)", st.table, strings.Join(st.columns, ", "), placeholders)
		res, err := q.ExecContext(ctx, query, append([]any{rec.GetOrganizationId()}, values...)...)
		if err != nil {
			return storageError("insert "+st.table, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return storageError("insert "+st.table, err)
		}
		rec.SetId(id)
		return nil
	}
	sets := make([]string, len(st.columns))
	for i, c := range st.columns {
		sets[i] = c + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND organization_id = ?", st.table, strings.Join(sets, ", "))
	res, err := q.ExecContext(ctx, query, append(values, rec.GetId(), rec.GetOrganizationId())...)
	if err != nil {
		return storageError("update "+st.table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (st *staticType[T]) Delete(ctx context.Context, q querier, rec record.Record) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND organization_id = ?", st.table)
	if _, err := q.ExecContext(ctx, query, rec.GetId(), rec.GetOrganizationId()); err != nil {
		return storageError("delete "+st.table, err)
	}
	return nil
}

var petType = &staticType[record.Pet]{
	table:   record.PETS,
	columns: []string{"name", "species", "breed", "sex", "status", "age_months", "weight", "microchip", "intake_date", "notes"},
	newFn:   func(org int64) *record.Pet { return &record.Pet{OrganizationId: org} },
	asT: func(r record.Record) (*record.Pet, bool) {
		p, ok := r.(*record.Pet)
		return p, ok
	},
	values: func(p *record.Pet) []any {
		return []any{p.Name, p.Species, p.Breed, p.Sex, p.Status, p.AgeMonths, p.Weight, p.Microchip, p.IntakeDate, p.Notes}
	},
	scan: func(p *record.Pet) []any {
		return []any{&p.Name, &p.Species, &p.Breed, &p.Sex, &p.Status, &p.AgeMonths, &p.Weight, &p.Microchip, &p.IntakeDate, &p.Notes}
	},
}

var taskType = &staticType[record.Task]{
	table:   record.TASKS,
	columns: []string{"title", "description", "status", "priority", "due_date", "assignee_id", "pet_id"},
	newFn:   func(org int64) *record.Task { return &record.Task{OrganizationId: org} },
	asT: func(r record.Record) (*record.Task, bool) {
		t, ok := r.(*record.Task)
		return t, ok
	},
	values: func(t *record.Task) []any {
		return []any{t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.AssigneeId, t.PetId}
	},
	scan: func(t *record.Task) []any {
		return []any{&t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.AssigneeId, &t.PetId}
	},
}

var eventType = &staticType[record.Event]{
	table:   record.EVENTS,
	columns: []string{"title", "event_type", "location", "starts_at", "ends_at", "pet_id"},
	newFn:   func(org int64) *record.Event { return &record.Event{OrganizationId: org} },
	asT: func(r record.Record) (*record.Event, bool) {
		e, ok := r.(*record.Event)
		return e, ok
	},
	values: func(e *record.Event) []any {
		return []any{e.Title, e.EventType, e.Location, e.StartsAt, e.EndsAt, e.PetId}
	},
	scan: func(e *record.Event) []any {
		return []any{&e.Title, &e.EventType, &e.Location, &e.StartsAt, &e.EndsAt, &e.PetId}
	},
}
