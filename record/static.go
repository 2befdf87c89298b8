package record

import "time"

const (
	PETS   = "pets"
	TASKS  = "tasks"
	EVENTS = "events"
)

type Pet struct {
	Id             int64
	OrganizationId int64
	Name           string
	Species        string
	Breed          string
	Sex            string
	Status         string
	AgeMonths      int64
	Weight         float64
	Microchip      string
	IntakeDate     *time.Time
	Notes          string
}

var PetFields = NewFieldTable[Pet]().
	Add("name", func(p *Pet) any { return p.Name }, func(p *Pet, v any) bool { return setString(&p.Name, v) }).
	Add("species", func(p *Pet) any { return p.Species }, func(p *Pet, v any) bool { return setString(&p.Species, v) }).
	Add("breed", func(p *Pet) any { return p.Breed }, func(p *Pet, v any) bool { return setString(&p.Breed, v) }).
	Add("sex", func(p *Pet) any { return p.Sex }, func(p *Pet, v any) bool { return setString(&p.Sex, v) }).
	Add("status", func(p *Pet) any { return p.Status }, func(p *Pet, v any) bool { return setString(&p.Status, v) }).
	Add("age_months", func(p *Pet) any { return p.AgeMonths }, func(p *Pet, v any) bool { return setInt(&p.AgeMonths, v) }).
	Add("weight", func(p *Pet) any { return p.Weight }, func(p *Pet, v any) bool { return setFloat(&p.Weight, v) }).
	Add("microchip", func(p *Pet) any { return p.Microchip }, func(p *Pet, v any) bool { return setString(&p.Microchip, v) }).
	Add("intake_date", func(p *Pet) any { return optionalTime(p.IntakeDate) }, func(p *Pet, v any) bool { return setOptionalTime(&p.IntakeDate, v) }).
	Add("notes", func(p *Pet) any { return p.Notes }, func(p *Pet, v any) bool { return setString(&p.Notes, v) }).
	Add("id", func(p *Pet) any { return p.Id }, nil)

var _ Record = new(Pet)

func (p *Pet) ObjectApiName() string            { return PETS }
func (p *Pet) GetId() int64                     { return p.Id }
func (p *Pet) SetId(id int64)                   { p.Id = id }
func (p *Pet) GetOrganizationId() int64         { return p.OrganizationId }
func (p *Pet) GetField(name string) (any, bool) { return PetFields.Get(p, name) }
func (p *Pet) SetField(name string, v any) bool { return PetFields.Set(p, name, v) }
func (p *Pet) Fields() map[string]any           { return PetFields.All(p) }

type Task struct {
	Id             int64
	OrganizationId int64
	Title          string
	Description    string
	Status         string
	Priority       string
	DueDate        *time.Time
	AssigneeId     *int64
	PetId          *int64
}

var TaskFields = NewFieldTable[Task]().
	Add("title", func(t *Task) any { return t.Title }, func(t *Task, v any) bool { return setString(&t.Title, v) }).
	Add("description", func(t *Task) any { return t.Description }, func(t *Task, v any) bool { return setString(&t.Description, v) }).
	Add("status", func(t *Task) any { return t.Status }, func(t *Task, v any) bool { return setString(&t.Status, v) }).
	Add("priority", func(t *Task) any { return t.Priority }, func(t *Task, v any) bool { return setString(&t.Priority, v) }).
	Add("due_date", func(t *Task) any { return optionalTime(t.DueDate) }, func(t *Task, v any) bool { return setOptionalTime(&t.DueDate, v) }).
	Add("assignee_id", func(t *Task) any { return optionalInt(t.AssigneeId) }, func(t *Task, v any) bool { return setOptionalInt(&t.AssigneeId, v) }).
	Add("pet_id", func(t *Task) any { return optionalInt(t.PetId) }, func(t *Task, v any) bool { return setOptionalInt(&t.PetId, v) }).
	Add("id", func(t *Task) any { return t.Id }, nil)

var _ Record = new(Task)

func (t *Task) ObjectApiName() string            { return TASKS }
func (t *Task) GetId() int64                     { return t.Id }
func (t *Task) SetId(id int64)                   { t.Id = id }
func (t *Task) GetOrganizationId() int64         { return t.OrganizationId }
func (t *Task) GetField(name string) (any, bool) { return TaskFields.Get(t, name) }
func (t *Task) SetField(name string, v any) bool { return TaskFields.Set(t, name, v) }
func (t *Task) Fields() map[string]any           { return TaskFields.All(t) }

type Event struct {
	Id             int64
	OrganizationId int64
	Title          string
	EventType      string
	Location       string
	StartsAt       *time.Time
	EndsAt         *time.Time
	PetId          *int64
}

var EventFields = NewFieldTable[Event]().
	Add("title", func(e *Event) any { return e.Title }, func(e *Event, v any) bool { return setString(&e.Title, v) }).
	Add("event_type", func(e *Event) any { return e.EventType }, func(e *Event, v any) bool { return setString(&e.EventType, v) }).
	Add("location", func(e *Event) any { return e.Location }, func(e *Event, v any) bool { return setString(&e.Location, v) }).
	Add("starts_at", func(e *Event) any { return optionalTime(e.StartsAt) }, func(e *Event, v any) bool { return setOptionalTime(&e.StartsAt, v) }).
	Add("ends_at", func(e *Event) any { return optionalTime(e.EndsAt) }, func(e *Event, v any) bool { return setOptionalTime(&e.EndsAt, v) }).
	Add("pet_id", func(e *Event) any { return optionalInt(e.PetId) }, func(e *Event, v any) bool { return setOptionalInt(&e.PetId, v) }).
	Add("id", func(e *Event) any { return e.Id }, nil)

var _ Record = new(Event)

func (e *Event) ObjectApiName() string            { return EVENTS }
func (e *Event) GetId() int64                     { return e.Id }
func (e *Event) SetId(id int64)                   { e.Id = id }
func (e *Event) GetOrganizationId() int64         { return e.OrganizationId }
func (e *Event) GetField(name string) (any, bool) { return EventFields.Get(e, name) }
func (e *Event) SetField(name string, v any) bool { return EventFields.Set(e, name, v) }
func (e *Event) Fields() map[string]any           { return EventFields.All(e) }
