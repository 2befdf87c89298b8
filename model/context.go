package model

import "github.com/shelterly/automation/record"

// ExecutionContext is the state of one run. It is created when the run starts,
// handed by pointer to every block and dropped when the run ends.
type ExecutionContext struct {
	OrganizationId int64
	TriggerRecord  record.Record
	Variables      map[string]any
}

func NewExecutionContext(organizationId int64, triggerRecord record.Record) *ExecutionContext {
	return &ExecutionContext{
		OrganizationId: organizationId,
		TriggerRecord:  triggerRecord,
		Variables:      make(map[string]any),
	}
}
