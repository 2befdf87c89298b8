// Package trigger decides which flows a record mutation starts and turns each
// of them into a queued job.
package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shelterly/automation/condition"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/metric"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/record"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

type Mutation string

const (
	MUTATION_CREATED Mutation = "created"
	MUTATION_UPDATED Mutation = "updated"
)

func (m Mutation) Valid() bool {
	return m == MUTATION_CREATED || m == MUTATION_UPDATED
}

type FlowSource interface {
	TriggerableFlows(ctx context.Context, organizationId int64) ([]*model.Flow, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job *model.Job) error
}

type Evaluator struct {
	flows   FlowSource
	jobs    Enqueuer
	metrics *metric.Metrics
	clock   func() time.Time
}

func NewEvaluator(flows FlowSource, jobs Enqueuer, metrics *metric.Metrics) *Evaluator {
	return &Evaluator{
		flows:   flows,
		jobs:    jobs,
		metrics: metrics,
		clock:   time.Now,
	}
}

// OnRecordMutated enqueues one job for every active flow of the tenant whose
// trigger matches rec. A flow that fails does not stop the others; its error
// is part of the combined error returned with the jobs that were enqueued.
func (e *Evaluator) OnRecordMutated(ctx context.Context, rec record.Record, organizationId int64, mutation Mutation) ([]*model.Job, error) {
	if rec == nil {
		return nil, nil
	}
	flows, err := e.flows.TriggerableFlows(ctx, organizationId)
	if err != nil {
		return nil, fmt.Errorf("list triggerable flows of organization %d: %w", organizationId, err)
	}
	var jobs []*model.Job
	var errs error
	for _, f := range flows {
		job, err := e.evaluate(ctx, f, rec, organizationId, mutation)
		if err != nil {
			logger.Error("error evaluating flow trigger", zap.Int64("flow", f.Id), zap.String("object", rec.ObjectApiName()),
				zap.Int64("record", rec.GetId()), zap.Error(err))
			e.metrics.RecordTriggerError()
			errs = multierr.Append(errs, fmt.Errorf("flow %d: %w", f.Id, err))
			continue
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, errs
}

func (e *Evaluator) evaluate(ctx context.Context, f *model.Flow, rec record.Record, organizationId int64, mutation Mutation) (*model.Job, error) {
	fires, err := Matches(f, rec, mutation)
	if err != nil || !fires {
		return nil, err
	}
	recordType, recordId := record.Ref(rec)
	job := &model.Job{
		FlowId:            f.Id,
		OrganizationId:    organizationId,
		TriggerRecordType: recordType,
		TriggerRecordId:   recordId,
		TriggerData: &model.TriggerData{
			RecordId:    recordId,
			RecordType:  recordType,
			TriggeredAt: e.clock().UTC(),
		},
	}
	if err := e.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	e.metrics.RecordJobCreated(recordType)
	logger.Info("flow triggered", zap.Int64("flow", f.Id), zap.Int64("job", job.Id), zap.String("object", recordType),
		zap.Int64("record", recordId), zap.String("mutation", string(mutation)))
	return job, nil
}

// Matches reports whether f's trigger fires for a mutation of rec.
func Matches(f *model.Flow, rec record.Record, mutation Mutation) (bool, error) {
	if !f.Active {
		return false, nil
	}
	trigger, ok := f.TriggerBlock()
	if !ok || len(trigger.Config) == 0 {
		return false, nil
	}
	var cfg model.TriggerConfig
	if err := json.Unmarshal(trigger.Config, &cfg); err != nil {
		return false, fmt.Errorf("decode trigger config of block %s: %w", trigger.Id, err)
	}
	if cfg.ObjectApiName != rec.ObjectApiName() {
		return false, nil
	}
	if len(cfg.Events) > 0 && !slices.Contains(cfg.Events, string(mutation)) {
		return false, nil
	}
	return condition.All(cfg.Conditions, rec, nil), nil
}
