package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func assertGolden(t *testing.T, name string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

func at(seconds int) time.Time {
	return time.Date(2024, 3, 1, 9, 30, seconds, 0, time.UTC)
}

func TestPersistedShapes(t *testing.T) {
	ready := "ready"
	jobId := int64(7)
	started, completed := at(1), at(2)

	tests := map[string]any{
		"block": Block{Id: "hold", Kind: BLOCK_WAIT, Name: "Hold", Config: json.RawMessage(`{"durationSeconds":60}`)},
		"connections": []Connection{
			{From: "check", To: "adopt", Label: &ready},
			{From: "adopt", To: "notify"},
		},
		"job": Job{
			Id:                7,
			FlowId:            3,
			OrganizationId:    1,
			Status:            JOB_COMPLETED,
			ExternalJobId:     "job-handle-1",
			StartedAt:         &started,
			CompletedAt:       &completed,
			RetryCount:        1,
			TriggerRecordType: "pets",
			TriggerRecordId:   42,
			TriggerData:       &TriggerData{RecordId: 42, RecordType: "pets", TriggeredAt: at(0)},
			CreatedAt:         at(0),
			UpdatedAt:         at(2),
		},
		"execution_failed": ExecutionRecord{
			Id:             11,
			FlowId:         3,
			OrganizationId: 1,
			JobId:          &jobId,
			ExecutionType:  EXECUTION_TRIGGER,
			Status:         EXECUTION_FAILED,
			StartedAt:      started,
			CompletedAt:    &completed,
			InputData:      ExecutionInput{TriggerRecord: &RecordRef{Type: "pets", Id: 42}, Variables: map[string]any{}},
			ErrorData: &ExecutionError{
				Message:   "block boom (create_record): unknown object api name",
				Class:     "errors.errorString",
				Backtrace: []string{"flow/interpreter.go:120 in flow.(*Interpreter).invoke"},
			},
		},
		"execution_completed": ExecutionRecord{
			Id:             12,
			FlowId:         3,
			OrganizationId: 1,
			ExecutionType:  EXECUTION_MANUAL,
			Status:         EXECUTION_COMPLETED,
			StartedAt:      started,
			CompletedAt:    &completed,
			InputData:      ExecutionInput{Variables: map[string]any{}},
			OutputData: &ExecutionOutput{
				Success:     true,
				CompletedAt: completed,
				Steps:       3,
				Variables:   map[string]any{"fee": 75, "adopted": true},
			},
		},
	}
	for name, v := range tests {
		t.Run(name, func(t *testing.T) {
			assertGolden(t, name, v)
		})
	}
}
