package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shelterly/automation/flow"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/metric"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/record"
	"go.uber.org/zap"
)

// Runner owns what every run does regardless of how it started: binding the
// trigger record, keeping the execution record and running the interpreter.
type Runner struct {
	interpreter   *flow.Interpreter
	records       persistence.RecordStorage
	executions    persistence.ExecutionStorage
	metrics       *metric.Metrics
	transactional bool
	clock         func() time.Time
}

func NewRunner(interpreter *flow.Interpreter, records persistence.RecordStorage, executions persistence.ExecutionStorage,
	metrics *metric.Metrics, transactional bool) *Runner {
	return &Runner{
		interpreter:   interpreter,
		records:       records,
		executions:    executions,
		metrics:       metrics,
		transactional: transactional,
		clock:         time.Now,
	}
}

// WithClock replaces the time source used for execution record timestamps.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

func (r *Runner) Now() time.Time {
	return r.clock().UTC()
}

// LoadTriggerRecord returns the record ref points at, or nil when there is no
// ref or the record cannot be loaded.
func (r *Runner) LoadTriggerRecord(ctx context.Context, organizationId int64, ref *model.RecordRef) record.Record {
	if ref == nil || ref.Type == "" {
		return nil
	}
	rec, err := r.records.Find(ctx, organizationId, ref.Type, ref.Id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.Info("trigger record not found, running without it", zap.String("type", ref.Type), zap.Int64("id", ref.Id))
		} else {
			logger.Error("error loading trigger record, running without it", zap.String("type", ref.Type), zap.Int64("id", ref.Id), zap.Error(err))
		}
		return nil
	}
	return rec
}

// Begin persists exec in running state.
func (r *Runner) Begin(ctx context.Context, exec *model.ExecutionRecord) error {
	exec.Status = model.EXECUTION_RUNNING
	exec.StartedAt = r.Now()
	if exec.InputData.Variables == nil {
		exec.InputData.Variables = map[string]any{}
	}
	return r.executions.CreateExecution(ctx, exec)
}

// Execute runs the interpreter. With transactional runs every record write of
// the run commits or rolls back together.
func (r *Runner) Execute(ctx context.Context, f *model.Flow, execCtx *model.ExecutionContext) (*flow.Result, error) {
	if !r.transactional {
		return r.interpreter.Execute(ctx, f, execCtx, r.records)
	}
	var result *flow.Result
	err := r.records.RunInTx(ctx, func(tx persistence.RecordStorage) error {
		var err error
		result, err = r.interpreter.Execute(ctx, f, execCtx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Complete records the end of a run that returned a result. A result without
// success (a flow with no trigger block) is recorded as failed.
func (r *Runner) Complete(ctx context.Context, exec *model.ExecutionRecord, result *flow.Result) error {
	completedAt := r.Now()
	exec.CompletedAt = &completedAt
	if !result.Success {
		exec.Status = model.EXECUTION_FAILED
		exec.ErrorData = &model.ExecutionError{Message: result.Error, Class: "NoTrigger", Backtrace: []string{}}
	} else {
		exec.Status = model.EXECUTION_COMPLETED
		exec.OutputData = &model.ExecutionOutput{
			Success:     true,
			CompletedAt: result.CompletedAt.UTC(),
			Steps:       result.Steps,
			Variables:   result.Variables,
		}
	}
	r.metrics.RecordRun(string(exec.ExecutionType), string(exec.Status), completedAt.Sub(exec.StartedAt))
	return r.executions.UpdateExecution(ctx, exec)
}

// Fail records err as the end of the run.
func (r *Runner) Fail(ctx context.Context, exec *model.ExecutionRecord, err error) error {
	completedAt := r.Now()
	class, message, stack := flow.Describe(err, flow.EXECUTION_RECORD_FRAMES)
	exec.Status = model.EXECUTION_FAILED
	exec.CompletedAt = &completedAt
	exec.ErrorData = &model.ExecutionError{Message: message, Class: class, Backtrace: stack}
	r.metrics.RecordRun(string(exec.ExecutionType), string(exec.Status), completedAt.Sub(exec.StartedAt))
	return r.executions.UpdateExecution(ctx, exec)
}
