package model

import "time"

type ExecutionType string

const (
	EXECUTION_TRIGGER ExecutionType = "trigger"
	EXECUTION_MANUAL  ExecutionType = "manual"
)

type ExecutionStatus string

const (
	EXECUTION_RUNNING   ExecutionStatus = "running"
	EXECUTION_COMPLETED ExecutionStatus = "completed"
	EXECUTION_FAILED    ExecutionStatus = "failed"
)

type RecordRef struct {
	Type string `json:"type"`
	Id   int64  `json:"id"`
}

type ExecutionInput struct {
	TriggerRecord *RecordRef     `json:"triggerRecord"`
	Variables     map[string]any `json:"variables"`
}

type ExecutionOutput struct {
	Success     bool           `json:"success"`
	CompletedAt time.Time      `json:"completedAt"`
	Steps       int            `json:"steps"`
	Variables   map[string]any `json:"variables"`
}

type ExecutionError struct {
	Message   string   `json:"message"`
	Class     string   `json:"class"`
	Backtrace []string `json:"backtrace"`
}

type ExecutionRecord struct {
	Id             int64            `json:"id"`
	FlowId         int64            `json:"flowId"`
	OrganizationId int64            `json:"organizationId"`
	JobId          *int64           `json:"jobId"`
	ExecutionType  ExecutionType    `json:"executionType"`
	Status         ExecutionStatus  `json:"status"`
	StartedAt      time.Time        `json:"startedAt"`
	CompletedAt    *time.Time       `json:"completedAt"`
	InputData      ExecutionInput   `json:"inputData"`
	OutputData     *ExecutionOutput `json:"outputData"`
	ErrorData      *ExecutionError  `json:"errorData"`
}
