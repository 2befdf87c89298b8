// Package engine runs flows. Engine is the manual entry point; Runner is the
// part shared with queued jobs.
package engine

import (
	"context"
	"fmt"

	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"go.uber.org/zap"
)

type Engine struct {
	flows  persistence.FlowStorage
	runner *Runner
}

func NewEngine(flows persistence.FlowStorage, runner *Runner) *Engine {
	return &Engine{flows: flows, runner: runner}
}

// ExecuteFlow runs a flow synchronously, without a job, recording a manual
// execution. The returned execution record is in its final state; a run error
// is also returned.
func (e *Engine) ExecuteFlow(ctx context.Context, flowId int64, ref *model.RecordRef) (*model.ExecutionRecord, error) {
	f, err := e.flows.GetFlow(ctx, flowId)
	if err != nil {
		return nil, fmt.Errorf("load flow %d: %w", flowId, err)
	}
	exec := &model.ExecutionRecord{
		FlowId:         f.Id,
		OrganizationId: f.OrganizationId,
		ExecutionType:  model.EXECUTION_MANUAL,
		InputData:      model.ExecutionInput{TriggerRecord: ref},
	}
	if err := e.runner.Begin(ctx, exec); err != nil {
		return nil, err
	}
	logger.Info("manual flow run started", zap.Int64("flow", f.Id), zap.Int64("execution", exec.Id))

	execCtx := model.NewExecutionContext(f.OrganizationId, e.runner.LoadTriggerRecord(ctx, f.OrganizationId, ref))
	result, runErr := e.runner.Execute(ctx, f, execCtx)
	if runErr != nil {
		logger.Error("manual flow run failed", zap.Int64("flow", f.Id), zap.Int64("execution", exec.Id), zap.Error(runErr))
		if err := e.runner.Fail(ctx, exec, runErr); err != nil {
			return exec, err
		}
		return exec, runErr
	}
	if err := e.runner.Complete(ctx, exec, result); err != nil {
		return exec, err
	}
	return exec, nil
}
