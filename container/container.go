package container

import (
	"fmt"
	"io"

	"github.com/shelterly/automation/analytics"
	"github.com/shelterly/automation/block"
	"github.com/shelterly/automation/cache"
	"github.com/shelterly/automation/config"
	"github.com/shelterly/automation/engine"
	"github.com/shelterly/automation/executor"
	"github.com/shelterly/automation/flow"
	"github.com/shelterly/automation/job"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/metric"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/persistence/memory"
	rd "github.com/shelterly/automation/persistence/redis"
	"github.com/shelterly/automation/persistence/sqlite"
	"github.com/shelterly/automation/trigger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DIContainer builds the engine's collaborators once from the config and
// hands them out to the agent, the http server and the cli commands.
type DIContainer struct {
	initialized bool
	store       *sqlite.Store
	queue       persistence.Queue
	delayQueue  persistence.DelayQueue
	collector   analytics.FlowDataCollector
	metrics     *metric.Metrics
	flowCache   *cache.FlowCache
	engine      *engine.Engine
	lifecycle   *job.Lifecycle
	evaluator   *trigger.Evaluator
	retryPolicy executor.RetryPolicy
	closers     []io.Closer
}

func NewDiContainer() *DIContainer {
	return &DIContainer{}
}

func (d *DIContainer) Init(conf config.Config) error {
	switch conf.StorageType {
	case config.STORAGE_TYPE_SQLITE:
		store, err := sqlite.Open(conf.SqliteConfig.Path)
		if err != nil {
			return err
		}
		d.store = store
		d.closers = append(d.closers, store)
	default:
		return fmt.Errorf("unknown storage type %q", conf.StorageType)
	}

	switch conf.QueueType {
	case config.QUEUE_TYPE_REDIS:
		rdConf := rd.Config{
			Addrs:          conf.RedisQueueConfig.Addrs,
			Namespace:      conf.RedisQueueConfig.Namespace,
			PartitionCount: conf.RedisQueueConfig.PartitionCount,
			Password:       conf.RedisQueueConfig.Password,
		}
		queue := rd.NewRedisQueue(rdConf)
		delayQueue := rd.NewRedisDelayQueue(rdConf)
		d.queue, d.delayQueue = queue, delayQueue
		d.closers = append(d.closers, queue, delayQueue)
	case config.QUEUE_TYPE_MEMORY:
		d.queue = memory.NewQueue()
		d.delayQueue = memory.NewDelayQueue()
	default:
		d.Close()
		return fmt.Errorf("unknown queue type %q", conf.QueueType)
	}

	collector, err := analytics.NewDataCollector(conf.AnalyticsConfig)
	if err != nil {
		d.Close()
		return err
	}
	if closer, ok := collector.(io.Closer); ok {
		d.closers = append(d.closers, closer)
	}
	d.metrics = metric.NewMetrics()
	d.collector = metric.NewBlockCollector(collector, d.metrics)

	interpreter := flow.NewInterpreter(block.DefaultRegistry(), d.collector, conf.EngineConfig.MaxSteps)
	runner := engine.NewRunner(interpreter, d.store.Records(), d.store, d.metrics, conf.EngineConfig.TransactionalRuns)
	d.engine = engine.NewEngine(d.store, runner)
	d.lifecycle = job.NewLifecycle(d.store, d.store, d.store, d.queue, runner, d.metrics, conf.RetryConfig.MaxAttempts)
	d.flowCache = cache.NewFlowCache(d.store, conf.FlowCacheDuration)
	d.evaluator = trigger.NewEvaluator(d.flowCache, d.lifecycle, d.metrics)
	d.retryPolicy = executor.NewRetryPolicy(conf.RetryConfig)
	d.initialized = true
	logger.Info("container initialized", zap.String("storage", string(conf.StorageType)), zap.String("queue", string(conf.QueueType)),
		zap.Bool("transactionalRuns", conf.EngineConfig.TransactionalRuns))
	return nil
}

func (d *DIContainer) mustBeInitialized() {
	if !d.initialized {
		panic("container not initialized")
	}
}

func (d *DIContainer) GetStore() *sqlite.Store {
	d.mustBeInitialized()
	return d.store
}

func (d *DIContainer) GetQueue() persistence.Queue {
	d.mustBeInitialized()
	return d.queue
}

func (d *DIContainer) GetDelayQueue() persistence.DelayQueue {
	d.mustBeInitialized()
	return d.delayQueue
}

func (d *DIContainer) GetMetrics() *metric.Metrics {
	d.mustBeInitialized()
	return d.metrics
}

func (d *DIContainer) GetFlowCache() *cache.FlowCache {
	d.mustBeInitialized()
	return d.flowCache
}

func (d *DIContainer) GetEngine() *engine.Engine {
	d.mustBeInitialized()
	return d.engine
}

func (d *DIContainer) GetLifecycle() *job.Lifecycle {
	d.mustBeInitialized()
	return d.lifecycle
}

func (d *DIContainer) GetEvaluator() *trigger.Evaluator {
	d.mustBeInitialized()
	return d.evaluator
}

func (d *DIContainer) GetRetryPolicy() executor.RetryPolicy {
	d.mustBeInitialized()
	return d.retryPolicy
}

// Close releases storage, queue clients and the analytics file in reverse
// order of creation.
func (d *DIContainer) Close() error {
	var errs error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, d.closers[i].Close())
	}
	d.closers = nil
	return errs
}
