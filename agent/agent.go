package agent

import (
	"sync"

	"github.com/shelterly/automation/config"
	"github.com/shelterly/automation/container"
	"github.com/shelterly/automation/executor"
	"github.com/shelterly/automation/logger"
	"github.com/shelterly/automation/rest"
	"go.uber.org/zap"
)

type Agent struct {
	Config       config.Config
	container    *container.DIContainer
	httpServer   *rest.Server
	executors    []executor.Executor
	shutdown     bool
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config: config,
	}
	setup := []func() error{
		a.setupContainer,
		a.setupExecutors,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			if a.container != nil {
				a.container.Close()
			}
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupContainer() error {
	a.container = container.NewDiContainer()
	return a.container.Init(a.Config)
}

func (a *Agent) setupExecutors() error {
	c := a.container
	a.executors = []executor.Executor{
		executor.NewJobExecutor(c.GetLifecycle(), c.GetQueue(), c.GetDelayQueue(), c.GetRetryPolicy(), a.Config.ExecutorConfig, &a.wg),
		executor.NewRetryExecutor(c.GetQueue(), c.GetDelayQueue(), a.Config.ExecutorConfig.PollInterval, &a.wg),
	}
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.container)
	return err
}

func (a *Agent) Start() error {
	for _, ex := range a.executors {
		if err := ex.Start(); err != nil {
			return err
		}
		logger.Info("executor started", zap.String("name", ex.Name()))
	}
	go func() {
		if err := a.httpServer.Start(); err != nil {
			logger.Error("http server failed", zap.Error(err))
			_ = a.Shutdown()
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{a.httpServer.Stop}
	for _, ex := range a.executors {
		shutdown = append(shutdown, ex.Stop)
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return a.container.Close()
}
