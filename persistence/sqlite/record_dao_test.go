package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/record"
	"github.com/stretchr/testify/require"
)

func TestRecordDao(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, s *Store){
		"static record round trip":           testStaticRoundTrip,
		"static record update and delete":    testStaticUpdateDelete,
		"records are scoped to organization": testTenantScope,
		"custom record round trip":           testCustomRoundTrip,
		"unknown object api name":            testUnknownObject,
		"transaction rolls back on error":    testRunInTxRollback,
		"transaction commits on success":     testRunInTxCommit,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, createTestStore(t))
		})
	}
}

func testStaticRoundTrip(t *testing.T, s *Store) {
	ctx := context.Background()
	records := s.Records()
	rec, err := records.New(ctx, 1, record.PETS)
	require.NoError(t, err)
	require.True(t, rec.SetField("name", "Biscuit"))
	require.True(t, rec.SetField("age_months", "14"))
	require.True(t, rec.SetField("intake_date", "2024-03-01"))
	require.NoError(t, records.Save(ctx, rec))
	require.NotZero(t, rec.GetId())

	found, err := records.Find(ctx, 1, record.PETS, rec.GetId())
	require.NoError(t, err)
	pet := found.(*record.Pet)
	require.Equal(t, "Biscuit", pet.Name)
	require.Equal(t, int64(14), pet.AgeMonths)
	require.NotNil(t, pet.IntakeDate)
	require.True(t, pet.IntakeDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func testStaticUpdateDelete(t *testing.T, s *Store) {
	ctx := context.Background()
	records := s.Records()
	task := &record.Task{OrganizationId: 1, Title: "Vaccinate"}
	require.NoError(t, records.Save(ctx, task))

	require.True(t, task.SetField("status", "done"))
	require.True(t, task.SetField("pet_id", 9))
	require.NoError(t, records.Save(ctx, task))

	found, err := records.Find(ctx, 1, record.TASKS, task.Id)
	require.NoError(t, err)
	status, _ := found.GetField("status")
	petId, _ := found.GetField("pet_id")
	require.Equal(t, "done", status)
	require.Equal(t, int64(9), petId)

	require.NoError(t, records.Delete(ctx, found))
	_, err = records.Find(ctx, 1, record.TASKS, task.Id)
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func testTenantScope(t *testing.T, s *Store) {
	ctx := context.Background()
	records := s.Records()
	pet := &record.Pet{OrganizationId: 1, Name: "Rex"}
	require.NoError(t, records.Save(ctx, pet))

	_, err := records.Find(ctx, 2, record.PETS, pet.Id)
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func testCustomRoundTrip(t *testing.T, s *Store) {
	ctx := context.Background()
	createTestCustomObject(t, s, 1)
	records := s.Records()

	rec, err := records.New(ctx, 1, "foster_home")
	require.NoError(t, err)
	require.Equal(t, "foster_home", rec.ObjectApiName())
	require.True(t, rec.SetField("address", "12 Elm St"))
	require.True(t, rec.SetField("capacity", "3"))
	require.True(t, rec.SetField("approved", true))
	require.False(t, rec.SetField("color", "blue"))
	require.NoError(t, records.Save(ctx, rec))

	found, err := records.Find(ctx, 1, "foster_home", rec.GetId())
	require.NoError(t, err)
	address, ok := found.GetField("address")
	require.True(t, ok)
	require.Equal(t, "12 Elm St", address)
	capacity, _ := found.GetField("capacity")
	require.Equal(t, float64(3), capacity)
	approved, _ := found.GetField("approved")
	require.Equal(t, true, approved)
	approvedOn, ok := found.GetField("approved_on")
	require.True(t, ok)
	require.Nil(t, approvedOn)

	require.True(t, found.SetField("capacity", 5))
	require.NoError(t, records.Save(ctx, found))
	again, err := records.Find(ctx, 1, "foster_home", rec.GetId())
	require.NoError(t, err)
	capacity, _ = again.GetField("capacity")
	require.Equal(t, float64(5), capacity)
	address, _ = again.GetField("address")
	require.Equal(t, "12 Elm St", address)

	require.NoError(t, records.Delete(ctx, again))
	_, err = records.Find(ctx, 1, "foster_home", rec.GetId())
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func testUnknownObject(t *testing.T, s *Store) {
	ctx := context.Background()
	createTestCustomObject(t, s, 1)

	_, err := s.Records().New(ctx, 1, "spaceship")
	require.ErrorIs(t, err, record.ErrUnknownObject)

	_, err = s.Records().Find(ctx, 2, "foster_home", 1)
	require.ErrorIs(t, err, record.ErrUnknownObject)
}

func testRunInTxRollback(t *testing.T, s *Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	var id int64
	err := s.Records().RunInTx(ctx, func(tx persistence.RecordStorage) error {
		pet := &record.Pet{OrganizationId: 1, Name: "Ghost"}
		if err := tx.Save(ctx, pet); err != nil {
			return err
		}
		id = pet.Id
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NotZero(t, id)

	_, err = s.Records().Find(ctx, 1, record.PETS, id)
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func testRunInTxCommit(t *testing.T, s *Store) {
	ctx := context.Background()
	createTestCustomObject(t, s, 1)
	var petId, homeId int64
	err := s.Records().RunInTx(ctx, func(tx persistence.RecordStorage) error {
		pet := &record.Pet{OrganizationId: 1, Name: "Kept"}
		if err := tx.Save(ctx, pet); err != nil {
			return err
		}
		petId = pet.Id
		home, err := tx.New(ctx, 1, "foster_home")
		if err != nil {
			return err
		}
		home.SetField("address", "1 Main")
		if err := tx.Save(ctx, home); err != nil {
			return err
		}
		homeId = home.GetId()
		return tx.RunInTx(ctx, func(nested persistence.RecordStorage) error {
			_, err := nested.Find(ctx, 1, record.PETS, petId)
			return err
		})
	})
	require.NoError(t, err)

	_, err = s.Records().Find(ctx, 1, record.PETS, petId)
	require.NoError(t, err)
	_, err = s.Records().Find(ctx, 1, "foster_home", homeId)
	require.NoError(t, err)
}
