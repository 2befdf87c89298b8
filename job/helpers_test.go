package job

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shelterly/automation/block"
	"github.com/shelterly/automation/engine"
	"github.com/shelterly/automation/flow"
	"github.com/shelterly/automation/metric"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/persistence/memory"
	"github.com/shelterly/automation/persistence/sqlite"
	"github.com/shelterly/automation/record"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store     *sqlite.Store
	queue     *memory.Queue
	metrics   *metric.Metrics
	lifecycle *Lifecycle
}

type storage struct {
	jobs       persistence.JobStorage
	executions persistence.ExecutionStorage
}

func newFixture(t *testing.T, queue persistence.Queue) *fixture {
	return newFixtureWith(t, queue, nil)
}

// newFixtureWith lets wrap put its own job and execution storage in front of
// the sqlite store.
func newFixtureWith(t *testing.T, queue persistence.Queue, wrap func(*sqlite.Store) storage) *fixture {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "job.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	mq := memory.NewQueue()
	if queue == nil {
		queue = mq
	}
	st := storage{jobs: s, executions: s}
	if wrap != nil {
		st = wrap(s)
	}
	m := metric.NewMetrics()
	interpreter := flow.NewInterpreter(block.DefaultRegistry(), nil, 0)
	runner := engine.NewRunner(interpreter, s.Records(), st.executions, m, true).WithClock(func() time.Time { return now })
	return &fixture{
		store:     s,
		queue:     mq,
		metrics:   m,
		lifecycle: NewLifecycle(st.jobs, s, st.executions, queue, runner, m, 3),
	}
}

func (f *fixture) saveFlow(t *testing.T, blocks ...model.Block) *model.Flow {
	t.Helper()
	fl := &model.Flow{OrganizationId: 1, Name: "job test", Active: true, Blocks: blocks}
	for i := 1; i < len(blocks); i++ {
		fl.Connections = append(fl.Connections, model.Connection{From: blocks[i-1].Id, To: blocks[i].Id})
	}
	require.NoError(t, f.store.SaveFlow(context.Background(), fl))
	return fl
}

func (f *fixture) enqueue(t *testing.T, fl *model.Flow, rec record.Record) *model.Job {
	t.Helper()
	j := &model.Job{FlowId: fl.Id, OrganizationId: fl.OrganizationId}
	if rec != nil {
		j.TriggerRecordType, j.TriggerRecordId = record.Ref(rec)
		j.TriggerData = &model.TriggerData{RecordId: rec.GetId(), RecordType: rec.ObjectApiName(), TriggeredAt: now}
	}
	require.NoError(t, f.lifecycle.Enqueue(context.Background(), j))
	return j
}

func (f *fixture) job(t *testing.T, id int64) *model.Job {
	t.Helper()
	j, err := f.store.GetJob(context.Background(), id)
	require.NoError(t, err)
	return j
}

func (f *fixture) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.store.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func blk(id string, kind model.BlockKind, config string) model.Block {
	b := model.Block{Id: id, Kind: kind, Name: id}
	if config != "" {
		b.Config = json.RawMessage(config)
	}
	return b
}

func trigger() model.Block {
	return blk("start", model.BLOCK_TRIGGER, `{"objectApiName":"pets","conditions":[]}`)
}

type unavailableQueue struct{}

func (unavailableQueue) Push(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("queue unavailable")
}

func (unavailableQueue) Pop(context.Context, string, int) ([]string, error) {
	return nil, nil
}

type handlelessQueue struct{}

func (handlelessQueue) Push(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

func (handlelessQueue) Pop(context.Context, string, int) ([]string, error) {
	return nil, nil
}

// flakyJobs fails the first getFailures loads and runs afterGet once, right
// after the next successful load.
type flakyJobs struct {
	*sqlite.Store
	getFailures int
	afterGet    func(job *model.Job)
}

func (s *flakyJobs) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	if s.getFailures > 0 {
		s.getFailures--
		return nil, persistence.StorageLayerError{Message: "database is locked"}
	}
	job, err := s.Store.GetJob(ctx, id)
	if err == nil && s.afterGet != nil {
		hook := s.afterGet
		s.afterGet = nil
		hook(job)
	}
	return job, err
}

type flakyExecutions struct {
	*sqlite.Store
	updateFailures int
}

func (s *flakyExecutions) UpdateExecution(ctx context.Context, exec *model.ExecutionRecord) error {
	if s.updateFailures > 0 {
		s.updateFailures--
		return persistence.StorageLayerError{Message: "database is locked"}
	}
	return s.Store.UpdateExecution(ctx, exec)
}

// eagerQueue performs every pushed message before Push returns, the way a
// fast worker can pick a message up before the enqueuer continues.
type eagerQueue struct {
	*memory.Queue
	lifecycle  *Lifecycle
	performErr error
}

func (q *eagerQueue) Push(ctx context.Context, queueName string, key string, message []byte) (string, error) {
	handle, err := q.Queue.Push(ctx, queueName, key, message)
	if err != nil {
		return "", err
	}
	msg, err := q.lifecycle.DecodeMessage(message)
	if err != nil {
		return "", err
	}
	if _, err := q.Queue.Pop(ctx, queueName, 1); err != nil {
		return "", err
	}
	q.performErr = q.lifecycle.Perform(ctx, *msg)
	return handle, nil
}
