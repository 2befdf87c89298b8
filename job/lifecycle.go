// Package job turns a pending job into a queued unit of work and tracks the
// outcome of every attempt to run it.
package job

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/shelterly/automation/engine"
	"github.com/shelterly/automation/flow"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/metric"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/util"
	"go.uber.org/zap"
)

const JOB_QUEUE = "flow_jobs"

var ErrJobInFlight = errors.New("job is being performed")

// AttemptError is returned by Perform when an attempt failed. Final is set
// when no attempt is left and the job has been marked failed.
type AttemptError struct {
	JobId   int64
	Attempt int
	Final   bool
	Err     error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("job %d attempt %d failed: %v", e.JobId, e.Attempt, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

type Lifecycle struct {
	jobs        persistence.JobStorage
	flows       persistence.FlowStorage
	executions  persistence.ExecutionStorage
	queue       persistence.Queue
	runner      *engine.Runner
	metrics     *metric.Metrics
	encDec      util.EncoderDecoder[model.JobMessage]
	maxAttempts int
	inFlight    sync.Map
}

func NewLifecycle(jobs persistence.JobStorage, flows persistence.FlowStorage, executions persistence.ExecutionStorage,
	queue persistence.Queue, runner *engine.Runner, metrics *metric.Metrics, maxAttempts int) *Lifecycle {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Lifecycle{
		jobs:        jobs,
		flows:       flows,
		executions:  executions,
		queue:       queue,
		runner:      runner,
		metrics:     metrics,
		encDec:      util.NewJsonEncoderDecoder[model.JobMessage](),
		maxAttempts: maxAttempts,
	}
}

func (l *Lifecycle) MaxAttempts() int {
	return l.maxAttempts
}

// Enqueue stores job when it is new, pushes its first attempt onto the job
// queue and marks it queued with the queue's handle. The job stays pending
// when the push fails.
func (l *Lifecycle) Enqueue(ctx context.Context, job *model.Job) error {
	now := l.runner.Now()
	if job.Id == 0 {
		job.Status = model.JOB_PENDING
		job.CreatedAt = now
		job.UpdatedAt = now
		if err := l.jobs.CreateJob(ctx, job); err != nil {
			return err
		}
	}
	handle, err := l.Push(ctx, job, model.JobMessage{JobId: job.Id, Attempt: 1})
	if err != nil {
		return err
	}
	from := job.Status
	if err := job.TransitionTo(model.JOB_QUEUED, now); err != nil {
		return err
	}
	job.ExternalJobId = handle
	err = l.jobs.UpdateJob(ctx, job, from)
	if !errors.Is(err, model.ErrIllegalTransition) {
		return err
	}
	// A worker took the message before queued was written and has already
	// moved the job on; only the handle is left to record.
	if err := l.jobs.SetExternalJobId(ctx, job.Id, handle); err != nil {
		return err
	}
	current, err := l.jobs.GetJob(ctx, job.Id)
	if err != nil {
		return err
	}
	*job = *current
	return nil
}

// Push puts one attempt of job on the job queue and returns the handle, which
// may be empty.
func (l *Lifecycle) Push(ctx context.Context, job *model.Job, msg model.JobMessage) (string, error) {
	data, err := l.encDec.Encode(msg)
	if err != nil {
		return "", err
	}
	handle, err := l.queue.Push(ctx, JOB_QUEUE, strconv.FormatInt(job.FlowId, 10), data)
	if err != nil {
		logger.Error("error pushing job to queue", zap.Int64("job", job.Id), zap.Error(err))
		return "", err
	}
	return handle, nil
}

func (l *Lifecycle) DecodeMessage(data []byte) (*model.JobMessage, error) {
	return l.encDec.Decode(data)
}

// Perform runs one attempt of the job named by msg. Jobs already in a
// terminal status and unknown jobs are skipped. Every failure of the attempt
// is returned as an *AttemptError.
func (l *Lifecycle) Perform(ctx context.Context, msg model.JobMessage) error {
	if _, busy := l.inFlight.LoadOrStore(msg.JobId, struct{}{}); busy {
		return fmt.Errorf("job %d: %w", msg.JobId, ErrJobInFlight)
	}
	defer l.inFlight.Delete(msg.JobId)

	job, err := l.jobs.GetJob(ctx, msg.JobId)
	if errors.Is(err, persistence.ErrNotFound) {
		logger.Warn("dropping message of unknown job", zap.Int64("job", msg.JobId))
		return nil
	}
	if err != nil {
		return l.fail(ctx, nil, "", nil, msg, fmt.Errorf("load job %d: %w", msg.JobId, err))
	}
	if job.Status.Terminal() {
		logger.Info("skipping job in terminal status", zap.Int64("job", job.Id), zap.String("status", string(job.Status)))
		return nil
	}

	stored := job.Status
	now := l.runner.Now()
	if job.Status == model.JOB_PENDING {
		// the message overtook the enqueuer's queued write
		if err := job.TransitionTo(model.JOB_QUEUED, now); err != nil {
			return l.fail(ctx, job, stored, nil, msg, err)
		}
	}
	if err := job.TransitionTo(model.JOB_RUNNING, now); err != nil {
		return l.fail(ctx, job, stored, nil, msg, err)
	}
	if err := l.jobs.UpdateJob(ctx, job, stored); err != nil {
		return l.fail(ctx, job, stored, nil, msg, err)
	}
	stored = job.Status
	logger.Info("performing job", zap.Int64("job", job.Id), zap.Int64("flow", job.FlowId), zap.Int("attempt", msg.Attempt))

	exec, err := l.execution(ctx, job)
	if err != nil {
		return l.fail(ctx, job, stored, nil, msg, err)
	}
	f, err := l.flows.GetFlow(ctx, job.FlowId)
	if err != nil {
		return l.fail(ctx, job, stored, exec, msg, fmt.Errorf("load flow %d: %w", job.FlowId, err))
	}

	execCtx := model.NewExecutionContext(job.OrganizationId, l.runner.LoadTriggerRecord(ctx, job.OrganizationId, exec.InputData.TriggerRecord))
	result, err := l.runner.Execute(ctx, f, execCtx)
	if err != nil {
		return l.fail(ctx, job, stored, exec, msg, err)
	}
	if err := l.runner.Complete(ctx, exec, result); err != nil {
		return l.fail(ctx, job, stored, exec, msg, err)
	}
	finished := *job
	status := model.JOB_COMPLETED
	if !result.Success {
		status = model.JOB_FAILED
		finished.ErrorMessage = "NoTrigger: " + result.Error
	}
	if err := finished.TransitionTo(status, l.runner.Now()); err != nil {
		return l.fail(ctx, job, stored, exec, msg, err)
	}
	if err := l.jobs.UpdateJob(ctx, &finished, stored); err != nil {
		return l.fail(ctx, job, stored, exec, msg, err)
	}
	*job = finished
	l.metrics.RecordJobFinished(string(status))
	return nil
}

// execution returns the job's execution record, creating it on the first
// attempt. Later attempts reuse it so a job has exactly one.
func (l *Lifecycle) execution(ctx context.Context, job *model.Job) (*model.ExecutionRecord, error) {
	exec, err := l.executions.GetExecutionByJob(ctx, job.Id)
	if err == nil {
		return exec, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return nil, err
	}
	jobId := job.Id
	exec = &model.ExecutionRecord{
		FlowId:         job.FlowId,
		OrganizationId: job.OrganizationId,
		JobId:          &jobId,
		ExecutionType:  model.EXECUTION_TRIGGER,
		InputData:      model.ExecutionInput{TriggerRecord: triggerRef(job)},
	}
	if err := l.runner.Begin(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

func triggerRef(job *model.Job) *model.RecordRef {
	if job.TriggerRecordType == "" {
		return nil
	}
	return &model.RecordRef{Type: job.TriggerRecordType, Id: job.TriggerRecordId}
}

// fail records a failed attempt. Only the final attempt marks the job and its
// execution record failed; earlier ones leave the job running with the latest
// error message. stored is the job's status as last written, job is nil when
// it could not be loaded.
func (l *Lifecycle) fail(ctx context.Context, job *model.Job, stored model.JobStatus, exec *model.ExecutionRecord,
	msg model.JobMessage, runErr error) error {
	final := msg.Attempt >= l.maxAttempts
	logger.Error("job attempt failed", zap.Int64("job", msg.JobId), zap.Int("attempt", msg.Attempt), zap.Bool("final", final), zap.Error(runErr))
	attemptErr := &AttemptError{JobId: msg.JobId, Attempt: msg.Attempt, Final: final, Err: runErr}
	if job == nil {
		return attemptErr
	}

	failed := *job
	now := l.runner.Now()
	failed.ErrorMessage = FormatErrorMessage(runErr)
	failed.UpdatedAt = now
	if final {
		if err := failed.TransitionTo(model.JOB_FAILED, now); err != nil {
			logger.Error("job can not be marked failed", zap.Int64("job", job.Id), zap.Error(err))
		}
		if exec != nil {
			if err := l.runner.Fail(ctx, exec, runErr); err != nil {
				logger.Error("error recording failed execution", zap.Int64("job", job.Id), zap.Error(err))
			}
		}
	}
	if err := l.jobs.UpdateJob(ctx, &failed, stored); err != nil {
		logger.Error("error recording failed attempt", zap.Int64("job", job.Id), zap.Error(err))
		return attemptErr
	}
	*job = failed
	if failed.Status == model.JOB_FAILED {
		l.metrics.RecordJobFinished(string(model.JOB_FAILED))
	}
	return attemptErr
}

// Cancel marks a job cancelled. A job whose attempt is running right now
// cannot be cancelled, nor can one that left its status meanwhile.
func (l *Lifecycle) Cancel(ctx context.Context, jobId int64) (*model.Job, error) {
	if _, busy := l.inFlight.Load(jobId); busy {
		return nil, fmt.Errorf("job %d: %w", jobId, ErrJobInFlight)
	}
	job, err := l.jobs.GetJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	stored := job.Status
	if err := job.TransitionTo(model.JOB_CANCELLED, l.runner.Now()); err != nil {
		return nil, err
	}
	if err := l.jobs.UpdateJob(ctx, job, stored); err != nil {
		return nil, err
	}
	l.metrics.RecordJobFinished(string(model.JOB_CANCELLED))
	return job, nil
}

// FormatErrorMessage renders err as "Class: message" followed by at most ten
// stack frames, one per line.
func FormatErrorMessage(err error) string {
	class, message, stack := flow.Describe(err, flow.JOB_MESSAGE_FRAMES)
	var sb strings.Builder
	sb.WriteString(class)
	sb.WriteString(": ")
	sb.WriteString(message)
	for _, frame := range stack {
		sb.WriteString("\n")
		sb.WriteString(frame)
	}
	return sb.String()
}

// RecordRetry counts a re-attempt that is about to be scheduled for jobId.
func (l *Lifecycle) RecordRetry(ctx context.Context, jobId int64) error {
	l.metrics.RecordJobRetry()
	return l.jobs.IncrementRetryCount(ctx, jobId)
}
