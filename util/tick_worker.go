package util

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/shelterly/automation/logger"
	"go.uber.org/zap"
)

// TickWorker calls fn every interval until stopped. Stop returns once a call
// to fn that was under way has finished.
type TickWorker struct {
	stop         chan struct{}
	done         chan struct{}
	tickInterval time.Duration
	wg           *sync.WaitGroup
	name         string
	fn           func()
	running      atomic.Bool
	started      atomic.Bool
	once         sync.Once
}

func NewTickWorker(name string, interval time.Duration, stop chan struct{}, fn func(), wg *sync.WaitGroup) *TickWorker {
	return &TickWorker{
		stop:         stop,
		done:         make(chan struct{}),
		tickInterval: interval,
		wg:           wg,
		fn:           fn,
		name:         name,
	}
}

func (tw *TickWorker) Start() {
	if !tw.started.CompareAndSwap(false, true) {
		return
	}
	ticker := time.NewTicker(tw.tickInterval)
	tw.running.Store(true)
	tw.wg.Add(1)
	go func() {
		defer tw.wg.Done()
		defer close(tw.done)
		defer tw.running.Store(false)
		for {
			select {
			case <-ticker.C:
				tw.fn()
			case <-tw.stop:
				logger.Info("stopping tick worker", zap.String("worker", tw.name))
				ticker.Stop()
				return
			}
		}
	}()
	logger.Info("tick worker started", zap.String("worker", tw.name), zap.Duration("interval", tw.tickInterval))
}

func (tw *TickWorker) Stop() {
	tw.once.Do(func() { close(tw.stop) })
	if tw.started.Load() {
		<-tw.done
	}
}

func (tw *TickWorker) IsRunning() bool {
	return tw.running.Load()
}
