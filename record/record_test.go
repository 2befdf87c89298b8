package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStaticRecordFields(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"set and get coerced values": testPetSetAndGet,
		"rejected value is ignored":  testPetRejectedValue,
		"id is read only":            testPetIdReadOnly,
		"unknown field":              testPetUnknownField,
		"optional fields take nil":   testTaskOptionalFields,
	} {
		t.Run(scenario, fn)
	}
}

func testPetSetAndGet(t *testing.T) {
	p := &Pet{Id: 7, OrganizationId: 1}
	require.True(t, p.SetField("name", "Rex"))
	require.True(t, p.SetField("age_months", "14"))
	require.True(t, p.SetField("weight", 12))
	require.True(t, p.SetField("intake_date", "2024-03-01"))

	name, ok := p.GetField("name")
	require.True(t, ok)
	require.Equal(t, "Rex", name)
	require.Equal(t, int64(14), p.AgeMonths)
	require.Equal(t, 12.0, p.Weight)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.IntakeDate.UTC())

	fields := p.Fields()
	require.Equal(t, int64(7), fields["id"])
	require.Equal(t, "Rex", fields["name"])
	require.Equal(t, PETS, p.ObjectApiName())
}

func testPetRejectedValue(t *testing.T) {
	p := &Pet{AgeMonths: 3}
	require.False(t, p.SetField("age_months", "three"))
	require.Equal(t, int64(3), p.AgeMonths)
}

func testPetIdReadOnly(t *testing.T) {
	p := &Pet{Id: 5}
	require.False(t, p.SetField("id", 9))
	require.Equal(t, int64(5), p.Id)
}

func testPetUnknownField(t *testing.T) {
	p := &Pet{}
	_, ok := p.GetField("owner")
	require.False(t, ok)
	require.False(t, p.SetField("owner", "Ann"))
}

func testTaskOptionalFields(t *testing.T) {
	task := &Task{}
	require.True(t, task.SetField("pet_id", 4))
	require.Equal(t, int64(4), *task.PetId)

	v, ok := task.GetField("pet_id")
	require.True(t, ok)
	require.Equal(t, int64(4), v)

	require.True(t, task.SetField("pet_id", nil))
	require.Nil(t, task.PetId)
	v, _ = task.GetField("pet_id")
	require.Nil(t, v)
}

func fosterHome() *CustomObject {
	return &CustomObject{
		Id:             1,
		OrganizationId: 1,
		ApiName:        "foster_home",
		Label:          "Foster home",
		Fields: []CustomField{
			{ApiName: "family", FieldType: FIELD_TEXT},
			{ApiName: "capacity", FieldType: FIELD_NUMBER},
			{ApiName: "active", FieldType: FIELD_BOOLEAN},
			{ApiName: "approved_on", FieldType: FIELD_DATE},
		},
	}
}

func TestDynamicRecord(t *testing.T) {
	rec := NewDynamicRecord(fosterHome(), 1)
	rec.SetId(3)

	require.True(t, rec.SetField("capacity", "4"))
	require.True(t, rec.SetField("active", true))
	require.False(t, rec.SetField("active", "sometimes"))
	require.False(t, rec.SetField("rooms", 2))

	capacity, ok := rec.GetField("capacity")
	require.True(t, ok)
	require.Equal(t, 4.0, capacity)

	family, ok := rec.GetField("family")
	require.True(t, ok)
	require.Nil(t, family)

	_, ok = rec.GetField("rooms")
	require.False(t, ok)

	id, ok := rec.GetField("id")
	require.True(t, ok)
	require.Equal(t, int64(3), id)

	dirty := rec.Dirty()
	require.Len(t, dirty, 2)
	require.Equal(t, "capacity", dirty[0].ApiName)
	require.Equal(t, "active", dirty[1].ApiName)

	rec.ClearDirty()
	rec.Load("family", "Lopez")
	require.Empty(t, rec.Dirty())
	require.Equal(t, "Lopez", rec.Fields()["family"])
	require.Equal(t, "foster_home", rec.ObjectApiName())
}

func TestCustomFieldCoerce(t *testing.T) {
	for name, tc := range map[string]struct {
		field   CustomField
		in      any
		want    any
		wantErr bool
	}{
		"text from number":  {CustomField{ApiName: "a", FieldType: FIELD_TEXT}, 12, "12", false},
		"number from text":  {CustomField{ApiName: "a", FieldType: FIELD_NUMBER}, "2.5", 2.5, false},
		"number from words": {CustomField{ApiName: "a", FieldType: FIELD_NUMBER}, "many", nil, true},
		"boolean":           {CustomField{ApiName: "a", FieldType: FIELD_BOOLEAN}, "true", true, false},
		"nil stays nil":     {CustomField{ApiName: "a", FieldType: FIELD_NUMBER}, nil, nil, false},
		"unsupported type":  {CustomField{ApiName: "a", FieldType: "picklist"}, "x", nil, true},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := tc.field.Coerce(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRef(t *testing.T) {
	apiName, id := Ref(&Event{Id: 9})
	require.Equal(t, EVENTS, apiName)
	require.Equal(t, int64(9), id)

	apiName, id = Ref(nil)
	require.Empty(t, apiName)
	require.Zero(t, id)
}
