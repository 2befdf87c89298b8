package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/record"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestFlow(t *testing.T, s *Store, organizationId int64, active bool, withTrigger bool) *model.Flow {
	t.Helper()
	flow := &model.Flow{
		OrganizationId: organizationId,
		Name:           "intake follow-up",
		Active:         active,
		Blocks: []model.Block{
			{Id: "assign", Kind: model.BLOCK_ASSIGNMENT, Name: "Assign", Config: json.RawMessage(`{"assignments":[]}`)},
		},
	}
	if withTrigger {
		flow.Blocks = append(flow.Blocks, model.Block{
			Id: "start", Kind: model.BLOCK_TRIGGER, Name: "Start", Config: json.RawMessage(`{"objectApiName":"pets","conditions":[]}`),
		})
		flow.Connections = []model.Connection{{From: "start", To: "assign"}}
	}
	require.NoError(t, s.SaveFlow(context.Background(), flow))
	return flow
}

func createTestCustomObject(t *testing.T, s *Store, organizationId int64) *record.CustomObject {
	t.Helper()
	object := &record.CustomObject{
		OrganizationId: organizationId,
		ApiName:        "foster_home",
		Label:          "Foster Home",
		Fields: []record.CustomField{
			{ApiName: "address", Label: "Address", FieldType: record.FIELD_TEXT},
			{ApiName: "capacity", Label: "Capacity", FieldType: record.FIELD_NUMBER},
			{ApiName: "approved", Label: "Approved", FieldType: record.FIELD_BOOLEAN},
			{ApiName: "approved_on", Label: "Approved On", FieldType: record.FIELD_DATE},
		},
	}
	require.NoError(t, s.SaveCustomObject(context.Background(), object))
	return object
}
