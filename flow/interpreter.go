// Package flow walks a flow's block graph from its trigger block.
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/shelterly/automation/analytics"
	"github.com/shelterly/automation/block"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"go.uber.org/zap"
)

const DEFAULT_MAX_STEPS = 1000

type Interpreter struct {
	registry  *block.Registry
	collector analytics.FlowDataCollector
	maxSteps  int
	clock     func() time.Time
}

func NewInterpreter(registry *block.Registry, collector analytics.FlowDataCollector, maxSteps int) *Interpreter {
	if collector == nil {
		collector = analytics.NopDataCollector{}
	}
	if maxSteps <= 0 {
		maxSteps = DEFAULT_MAX_STEPS
	}
	return &Interpreter{
		registry:  registry,
		collector: collector,
		maxSteps:  maxSteps,
		clock:     time.Now,
	}
}

type run struct {
	env   *block.Env
	steps int
	path  map[string]bool
}

// Execute runs flow from its trigger block with records as the storage for
// every side effect. A flow without a trigger block yields an unsuccessful
// result and no error.
func (in *Interpreter) Execute(ctx context.Context, flow *model.Flow, exec *model.ExecutionContext, records persistence.RecordStorage) (*Result, error) {
	trigger, ok := flow.TriggerBlock()
	if !ok {
		return &Result{Success: false, Error: NO_TRIGGER}, nil
	}
	r := &run{
		env: &block.Env{
			Flow:    flow,
			Exec:    exec,
			Records: records,
			Intents: in.collector,
		},
		path: make(map[string]bool),
	}
	if err := in.executeBlock(ctx, r, trigger); err != nil {
		return nil, err
	}
	return &Result{
		Success:     true,
		CompletedAt: in.clock(),
		Steps:       r.steps,
		Variables:   exec.Variables,
	}, nil
}

func (in *Interpreter) executeBlock(ctx context.Context, r *run, b *model.Block) error {
	if r.path[b.Id] {
		return &CycleError{BlockId: b.Id}
	}
	r.steps++
	if r.steps > in.maxSteps {
		return &StepsExceededError{Limit: in.maxSteps}
	}
	r.path[b.Id] = true
	defer delete(r.path, b.Id)

	handler, ok := in.registry.Get(b.Kind)
	if !ok {
		logger.Warn("unknown block kind, continuing", zap.Int64("flow", r.env.Flow.Id), zap.String("block", b.Id), zap.String("kind", string(b.Kind)))
		return in.executeNextBlocks(ctx, r, b, block.Unlabeled)
	}
	next, err := in.invoke(ctx, r, handler, b)
	if err != nil {
		in.collector.RecordBlockFailure(r.env.Flow.Id, b.Id, string(b.Kind), err.Error())
		return err
	}
	in.collector.RecordBlockSuccess(r.env.Flow.Id, b.Id, string(b.Kind))
	return in.executeNextBlocks(ctx, r, b, next)
}

// invoke runs the handler and turns both returned errors and panics into a
// BlockError.
func (in *Interpreter) invoke(ctx context.Context, r *run, handler block.Handler, b *model.Block) (next block.Next, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("block panicked", zap.String("block", b.Id), zap.Any("panic", p))
			err = newBlockError(b, &PanicError{Value: p}, 2)
		}
	}()
	next, err = handler.Execute(ctx, r.env, b)
	if err != nil {
		return next, newBlockError(b, err, 1)
	}
	return next, nil
}

// executeNextBlocks follows the connections leaving b: the ones carrying
// next's label when it is labeled, the unlabeled ones otherwise.
func (in *Interpreter) executeNextBlocks(ctx context.Context, r *run, b *model.Block, next block.Next) error {
	for _, c := range r.env.Flow.Outgoing(b.Id) {
		if next.Labeled {
			if !c.HasLabel(next.Label) {
				continue
			}
		} else if c.Labeled() {
			continue
		}
		target, ok := r.env.Flow.Block(c.To)
		if !ok {
			return fmt.Errorf("connection from %s points at missing block %s", c.From, c.To)
		}
		if err := in.executeBlock(ctx, r, target); err != nil {
			return err
		}
	}
	return nil
}
