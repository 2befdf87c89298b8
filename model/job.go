package model

import (
	"errors"
	"fmt"
	"time"
)

type JobStatus string

const (
	JOB_PENDING   JobStatus = "pending"
	JOB_QUEUED    JobStatus = "queued"
	JOB_RUNNING   JobStatus = "running"
	JOB_COMPLETED JobStatus = "completed"
	JOB_FAILED    JobStatus = "failed"
	JOB_CANCELLED JobStatus = "cancelled"
)

var ErrIllegalTransition = errors.New("illegal job status transition")

var jobTransitions = map[JobStatus][]JobStatus{
	JOB_PENDING: {JOB_QUEUED, JOB_CANCELLED},
	JOB_QUEUED:  {JOB_RUNNING, JOB_CANCELLED},
	JOB_RUNNING: {JOB_RUNNING, JOB_COMPLETED, JOB_FAILED, JOB_CANCELLED},
}

func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s JobStatus) Terminal() bool {
	return s == JOB_COMPLETED || s == JOB_FAILED || s == JOB_CANCELLED
}

type TriggerData struct {
	RecordId    int64     `json:"recordId"`
	RecordType  string    `json:"recordType"`
	TriggeredAt time.Time `json:"triggeredAt"`
}

type Job struct {
	Id                int64        `json:"id"`
	FlowId            int64        `json:"flowId"`
	OrganizationId    int64        `json:"organizationId"`
	Status            JobStatus    `json:"status"`
	ExternalJobId     string       `json:"externalJobId"`
	ErrorMessage      string       `json:"errorMessage"`
	StartedAt         *time.Time   `json:"startedAt"`
	CompletedAt       *time.Time   `json:"completedAt"`
	RetryCount        int          `json:"retryCount"`
	TriggerRecordType string       `json:"triggerRecordType"`
	TriggerRecordId   int64        `json:"triggerRecordId"`
	TriggerData       *TriggerData `json:"triggerData"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

func (j *Job) TransitionTo(next JobStatus, at time.Time) error {
	if !j.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: job %d %s -> %s", ErrIllegalTransition, j.Id, j.Status, next)
	}
	switch next {
	case JOB_RUNNING:
		if j.StartedAt == nil {
			j.StartedAt = &at
		}
	case JOB_COMPLETED, JOB_FAILED, JOB_CANCELLED:
		j.CompletedAt = &at
	}
	j.Status = next
	j.UpdatedAt = at
	return nil
}

// JobMessage is what travels through the queue; the job row stays the source of truth.
type JobMessage struct {
	JobId    int64  `json:"jobId"`
	Attempt  int    `json:"attempt"`
	HandleId string `json:"handleId"`
}
