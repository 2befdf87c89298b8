// Package memory holds process local queues used by single node runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shelterly/automation/persistence"
)

type Queue struct {
	mu     sync.Mutex
	queues map[string][]string
}

var _ persistence.Queue = new(Queue)

func NewQueue() *Queue {
	return &Queue{queues: make(map[string][]string)}
}

func (q *Queue) Push(_ context.Context, queueName string, _ string, message []byte) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[queueName] = append(q.queues[queueName], string(message))
	return uuid.NewString(), nil
}

func (q *Queue) Pop(_ context.Context, queueName string, batchSize int) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[queueName]
	if batchSize > len(items) {
		batchSize = len(items)
	}
	out := append([]string(nil), items[:batchSize]...)
	q.queues[queueName] = items[batchSize:]
	return out, nil
}

func (q *Queue) Len(queueName string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[queueName])
}

type delayed struct {
	due     time.Time
	message string
}

type DelayQueue struct {
	mu     sync.Mutex
	queues map[string][]delayed
	now    func() time.Time
}

var _ persistence.DelayQueue = new(DelayQueue)

func NewDelayQueue() *DelayQueue {
	return &DelayQueue{queues: make(map[string][]delayed), now: time.Now}
}

// WithClock replaces the time source; tests use it to expire delays without sleeping.
func (q *DelayQueue) WithClock(now func() time.Time) *DelayQueue {
	q.now = now
	return q
}

func (q *DelayQueue) PushWithDelay(_ context.Context, queueName string, _ string, delay time.Duration, message []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := append(q.queues[queueName], delayed{due: q.now().Add(delay), message: string(message)})
	sort.SliceStable(items, func(i, j int) bool { return items[i].due.Before(items[j].due) })
	q.queues[queueName] = items
	return nil
}

func (q *DelayQueue) Pop(_ context.Context, queueName string) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	items := q.queues[queueName]
	n := 0
	for n < len(items) && !items[n].due.After(now) {
		n++
	}
	out := make([]string, 0, n)
	for _, d := range items[:n] {
		out = append(out, d.message)
	}
	q.queues[queueName] = items[n:]
	return out, nil
}

func (q *DelayQueue) Len(queueName string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[queueName])
}
