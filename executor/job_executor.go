package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/shelterly/automation/config"
	"github.com/shelterly/automation/job"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/util"
	"go.uber.org/zap"
)

var _ Executor = new(JobExecutor)

// JobExecutor polls the job queue and performs each attempt on a pool of
// workers. A failed attempt that is not the last one goes to the retry delay
// queue.
type JobExecutor struct {
	lifecycle  *job.Lifecycle
	queue      persistence.Queue
	delayQueue persistence.DelayQueue
	policy     RetryPolicy
	conf       config.ExecutorConfig
	encDec     util.EncoderDecoder[model.JobMessage]
	workers    []*util.Worker
	tw         *util.TickWorker
	wg         *sync.WaitGroup
	stop       chan struct{}
	next       int
}

func NewJobExecutor(lifecycle *job.Lifecycle, queue persistence.Queue, delayQueue persistence.DelayQueue,
	policy RetryPolicy, conf config.ExecutorConfig, wg *sync.WaitGroup) *JobExecutor {
	if conf.Workers <= 0 {
		conf.Workers = 1
	}
	if conf.BatchSize <= 0 {
		conf.BatchSize = 1
	}
	return &JobExecutor{
		lifecycle:  lifecycle,
		queue:      queue,
		delayQueue: delayQueue,
		policy:     policy,
		conf:       conf,
		encDec:     util.NewJsonEncoderDecoder[model.JobMessage](),
		wg:         wg,
		stop:       make(chan struct{}),
	}
}

func (ex *JobExecutor) Name() string {
	return "job-executor"
}

func (ex *JobExecutor) handler(task util.Task) error {
	msg, ok := task.(model.JobMessage)
	if !ok {
		return fmt.Errorf("can not handle task of type %T", task)
	}
	return ex.perform(context.Background(), msg)
}

func (ex *JobExecutor) perform(ctx context.Context, msg model.JobMessage) error {
	err := ex.lifecycle.Perform(ctx, msg)
	if err == nil {
		return nil
	}
	if errors.Is(err, job.ErrJobInFlight) {
		logger.Info("dropping duplicate job message", zap.Int64("job", msg.JobId), zap.Int("attempt", msg.Attempt))
		return nil
	}
	var attemptErr *job.AttemptError
	if errors.As(err, &attemptErr) {
		if attemptErr.Final {
			return err
		}
	} else if msg.Attempt >= ex.lifecycle.MaxAttempts() {
		return err
	} else {
		logger.Error("job attempt failed", zap.Int64("job", msg.JobId), zap.Int("attempt", msg.Attempt), zap.Error(err))
	}
	return ex.scheduleRetry(ctx, msg)
}

func (ex *JobExecutor) scheduleRetry(ctx context.Context, msg model.JobMessage) error {
	next := model.JobMessage{JobId: msg.JobId, Attempt: msg.Attempt + 1, HandleId: msg.HandleId}
	data, err := ex.encDec.Encode(next)
	if err != nil {
		return err
	}
	if err := ex.lifecycle.RecordRetry(ctx, msg.JobId); err != nil {
		logger.Error("error counting job retry", zap.Int64("job", msg.JobId), zap.Error(err))
	}
	delay := ex.policy.Delay(msg.Attempt)
	key := strconv.FormatInt(msg.JobId, 10)
	err = ex.policy.retryPush(func() error {
		return ex.delayQueue.PushWithDelay(ctx, RETRY_QUEUE, key, delay, data)
	})
	if err != nil {
		return fmt.Errorf("schedule retry of job %d: %w", msg.JobId, err)
	}
	logger.Info("job retry scheduled", zap.Int64("job", msg.JobId), zap.Int("attempt", next.Attempt), zap.Duration("delay", delay))
	return nil
}

// poll pops one batch from the job queue and spreads it over the workers.
func (ex *JobExecutor) poll() {
	res, err := ex.queue.Pop(context.Background(), job.JOB_QUEUE, ex.conf.BatchSize)
	if err != nil {
		logger.Error("error while polling job queue", zap.Error(err))
		return
	}
	for _, r := range res {
		msg, err := ex.encDec.Decode([]byte(r))
		if err != nil {
			logger.Error("can not decode job message", zap.String("message", r), zap.Error(err))
			continue
		}
		ex.workers[ex.next%len(ex.workers)].Sender() <- *msg
		ex.next++
	}
}

func (ex *JobExecutor) Start() error {
	for i := 0; i < ex.conf.Workers; i++ {
		w := util.NewWorker(fmt.Sprintf("job-worker-%d", i), ex.wg, ex.handler, ex.conf.BatchSize)
		w.Start()
		ex.workers = append(ex.workers, w)
	}
	ex.tw = util.NewTickWorker("job-poller", ex.conf.PollInterval, ex.stop, ex.poll, ex.wg)
	ex.tw.Start()
	logger.Info("job executor started", zap.Int("workers", ex.conf.Workers))
	return nil
}

// Stop waits for the poller to finish its batch before stopping the workers,
// so every message already popped is handed to a worker and handled.
func (ex *JobExecutor) Stop() error {
	if ex.tw != nil {
		ex.tw.Stop()
	}
	for _, w := range ex.workers {
		w.Stop()
	}
	return nil
}
