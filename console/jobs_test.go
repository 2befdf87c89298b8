package console

import (
	"testing"
	"time"

	"github.com/shelterly/automation/model"
	"github.com/stretchr/testify/require"
)

func TestJobRows(t *testing.T) {
	created := time.Date(2024, 4, 2, 15, 4, 5, 0, time.UTC)
	rows := JobRows([]*model.Job{
		{Id: 9, FlowId: 2, Status: model.JOB_FAILED, RetryCount: 2, TriggerRecordType: "pets", TriggerRecordId: 5,
			CreatedAt: created, ErrorMessage: "errors.errorString: boom\nflow/interpreter.go:10"},
		{Id: 10, FlowId: 2, Status: model.JOB_QUEUED, CreatedAt: created},
	})
	require.Equal(t, [][]string{
		{"9", "2", "failed", "2", "pets#5", "2024-04-02T15:04:05Z", "errors.errorString: boom"},
		{"10", "2", "queued", "0", "-", "2024-04-02T15:04:05Z", ""},
	}, rows)
}

func TestRenderJobs(t *testing.T) {
	out := RenderJobs([]*model.Job{{Id: 9, FlowId: 2, Status: model.JOB_COMPLETED}})
	require.Contains(t, out, "STATUS")
	require.Contains(t, out, "completed")
}
