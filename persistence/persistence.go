package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/record"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

var ErrNotFound = errors.New("not found")

type RecordStorage interface {
	New(ctx context.Context, organizationId int64, objectApiName string) (record.Record, error)
	// Find returns ErrNotFound when no record of that type and id exists for the tenant.
	Find(ctx context.Context, organizationId int64, objectApiName string, id int64) (record.Record, error)
	Save(ctx context.Context, rec record.Record) error
	Delete(ctx context.Context, rec record.Record) error
	// RunInTx hands fn a RecordStorage bound to one transaction, committed when
	// fn returns nil and rolled back otherwise. Called on storage that is
	// already transactional it runs fn in the enclosing transaction.
	RunInTx(ctx context.Context, fn func(RecordStorage) error) error
}

type FlowStorage interface {
	SaveFlow(ctx context.Context, flow *model.Flow) error
	GetFlow(ctx context.Context, id int64) (*model.Flow, error)
	ListTriggerableFlows(ctx context.Context, organizationId int64) ([]*model.Flow, error)
}

type JobStorage interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	// UpdateJob writes job only while its stored status is still from and
	// returns model.ErrIllegalTransition when the job has moved on.
	UpdateJob(ctx context.Context, job *model.Job, from model.JobStatus) error
	SetExternalJobId(ctx context.Context, id int64, handle string) error
	IncrementRetryCount(ctx context.Context, id int64) error
	ListJobs(ctx context.Context, organizationId int64, limit int) ([]*model.Job, error)
}

type ExecutionStorage interface {
	CreateExecution(ctx context.Context, exec *model.ExecutionRecord) error
	UpdateExecution(ctx context.Context, exec *model.ExecutionRecord) error
	GetExecution(ctx context.Context, id int64) (*model.ExecutionRecord, error)
	GetExecutionByJob(ctx context.Context, jobId int64) (*model.ExecutionRecord, error)
}

type Queue interface {
	// Push returns the queue's handle for the message; it may be empty.
	Push(ctx context.Context, queueName string, key string, message []byte) (string, error)
	Pop(ctx context.Context, queueName string, batchSize int) ([]string, error)
}

type DelayQueue interface {
	PushWithDelay(ctx context.Context, queueName string, key string, delay time.Duration, message []byte) error
	// Pop returns and removes the messages whose delay has elapsed.
	Pop(ctx context.Context, queueName string) ([]string, error)
}
