package executor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shelterly/automation/job"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/util"
	"go.uber.org/zap"
)

var _ Executor = new(RetryExecutor)

// RetryExecutor moves retries whose delay has passed back onto the job queue.
type RetryExecutor struct {
	queue        persistence.Queue
	delayQueue   persistence.DelayQueue
	pollInterval time.Duration
	encDec       util.EncoderDecoder[model.JobMessage]
	wg           *sync.WaitGroup
	stop         chan struct{}
	tw           *util.TickWorker
}

func NewRetryExecutor(queue persistence.Queue, delayQueue persistence.DelayQueue, pollInterval time.Duration, wg *sync.WaitGroup) *RetryExecutor {
	return &RetryExecutor{
		queue:        queue,
		delayQueue:   delayQueue,
		pollInterval: pollInterval,
		encDec:       util.NewJsonEncoderDecoder[model.JobMessage](),
		wg:           wg,
		stop:         make(chan struct{}),
	}
}

func (ex *RetryExecutor) Name() string {
	return "retry-executor"
}

func (ex *RetryExecutor) poll() {
	ctx := context.Background()
	res, err := ex.delayQueue.Pop(ctx, RETRY_QUEUE)
	if err != nil {
		logger.Error("error while polling retry queue", zap.Error(err))
		return
	}
	for _, r := range res {
		msg, err := ex.encDec.Decode([]byte(r))
		if err != nil {
			logger.Error("can not decode job message", zap.String("message", r), zap.Error(err))
			continue
		}
		key := strconv.FormatInt(msg.JobId, 10)
		if _, err := ex.queue.Push(ctx, job.JOB_QUEUE, key, []byte(r)); err != nil {
			logger.Error("error requeueing job retry, putting it back", zap.Int64("job", msg.JobId), zap.Error(err))
			if err := ex.delayQueue.PushWithDelay(ctx, RETRY_QUEUE, key, ex.pollInterval, []byte(r)); err != nil {
				logger.Error("job retry lost", zap.Int64("job", msg.JobId), zap.Error(err))
			}
		}
	}
}

func (ex *RetryExecutor) Start() error {
	ex.tw = util.NewTickWorker("retry-poller", ex.pollInterval, ex.stop, ex.poll, ex.wg)
	ex.tw.Start()
	logger.Info("retry executor started")
	return nil
}

func (ex *RetryExecutor) Stop() error {
	if ex.tw != nil {
		ex.tw.Stop()
	}
	return nil
}
