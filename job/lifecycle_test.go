package job

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shelterly/automation/model"
	"github.com/shelterly/automation/persistence"
	"github.com/shelterly/automation/persistence/memory"
	"github.com/shelterly/automation/persistence/sqlite"
	"github.com/shelterly/automation/record"
	"github.com/stretchr/testify/require"
)

func TestEnqueue(t *testing.T) {
	tests := map[string]func(t *testing.T){
		"new job is stored queued with handle": func(t *testing.T) {
			f := newFixture(t, nil)
			fl := f.saveFlow(t, trigger())
			j := f.enqueue(t, fl, nil)

			require.NotZero(t, j.Id)
			stored := f.job(t, j.Id)
			require.Equal(t, model.JOB_QUEUED, stored.Status)
			require.NotEmpty(t, stored.ExternalJobId)
			require.Equal(t, 1, f.queue.Len(JOB_QUEUE))

			popped, err := f.queue.Pop(context.Background(), JOB_QUEUE, 1)
			require.NoError(t, err)
			msg, err := f.lifecycle.DecodeMessage([]byte(popped[0]))
			require.NoError(t, err)
			require.Equal(t, j.Id, msg.JobId)
			require.Equal(t, 1, msg.Attempt)
		},
		"empty handle is tolerated": func(t *testing.T) {
			f := newFixture(t, handlelessQueue{})
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)
			stored := f.job(t, j.Id)
			require.Equal(t, model.JOB_QUEUED, stored.Status)
			require.Empty(t, stored.ExternalJobId)
		},
		"push failure leaves job pending": func(t *testing.T) {
			f := newFixture(t, unavailableQueue{})
			fl := f.saveFlow(t, trigger())
			j := &model.Job{FlowId: fl.Id, OrganizationId: 1}
			require.Error(t, f.lifecycle.Enqueue(context.Background(), j))
			require.Equal(t, model.JOB_PENDING, f.job(t, j.Id).Status)
		},
	}
	for name, fn := range tests {
		t.Run(name, fn)
	}
}

func TestPerformCompletesJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	pet := &record.Pet{OrganizationId: 1, Name: "Biscuit", Status: "available"}
	require.NoError(t, f.store.Records().Save(ctx, pet))
	fl := f.saveFlow(t,
		trigger(),
		blk("check", model.BLOCK_DECISION, `{"outcomes":[{"label":"available","conditions":[{"field":"status","operator":"equals","value":"available"}]}]}`),
	)
	j := f.enqueue(t, fl, pet)

	require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 1}))

	stored := f.job(t, j.Id)
	require.Equal(t, model.JOB_COMPLETED, stored.Status)
	require.NotNil(t, stored.StartedAt)
	require.NotNil(t, stored.CompletedAt)
	require.Empty(t, stored.ErrorMessage)

	exec, err := f.store.GetExecutionByJob(ctx, j.Id)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_COMPLETED, exec.Status)
	require.Equal(t, model.EXECUTION_TRIGGER, exec.ExecutionType)
	require.Equal(t, j.Id, *exec.JobId)
	require.Equal(t, record.PETS, exec.InputData.TriggerRecord.Type)
	require.Equal(t, pet.Id, exec.InputData.TriggerRecord.Id)
	require.Equal(t, 2, exec.OutputData.Steps)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JobsFinished.WithLabelValues("completed")))
}

func TestPerformRetriesUntilFinalAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	fl := f.saveFlow(t,
		trigger(),
		blk("boom", model.BLOCK_CREATE_RECORD, `{"objectApiName":"spaceships","fieldMappings":{}}`),
	)
	j := f.enqueue(t, fl, nil)

	for attempt := 1; attempt <= 3; attempt++ {
		err := f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: attempt})
		var attemptErr *AttemptError
		require.True(t, errors.As(err, &attemptErr))
		require.Equal(t, attempt, attemptErr.Attempt)
		require.Equal(t, attempt == 3, attemptErr.Final)
		require.ErrorIs(t, err, record.ErrUnknownObject)

		stored := f.job(t, j.Id)
		require.True(t, strings.HasPrefix(stored.ErrorMessage, "errors.errorString: "))
		if attempt < 3 {
			require.Equal(t, model.JOB_RUNNING, stored.Status)
			require.NoError(t, f.lifecycle.RecordRetry(ctx, j.Id))
		} else {
			require.Equal(t, model.JOB_FAILED, stored.Status)
			require.Equal(t, 2, stored.RetryCount)
		}
	}

	require.Equal(t, 1, f.countRows(t, "flow_executions"))
	exec, err := f.store.GetExecutionByJob(ctx, j.Id)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_FAILED, exec.Status)
	require.Equal(t, "errors.errorString", exec.ErrorData.Class)
	require.NotEmpty(t, exec.ErrorData.Backtrace)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.JobsFinished.WithLabelValues("failed")))
	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.JobRetries))

	lines := strings.Split(f.job(t, j.Id).ErrorMessage, "\n")
	require.LessOrEqual(t, len(lines)-1, 10)
}

func TestPerformWithoutTriggerFailsAtOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	fl := f.saveFlow(t, blk("mark", model.BLOCK_ASSIGNMENT, `{"assignments":[]}`))
	j := f.enqueue(t, fl, nil)

	require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 1}))
	stored := f.job(t, j.Id)
	require.Equal(t, model.JOB_FAILED, stored.Status)
	require.Equal(t, "NoTrigger: no trigger", stored.ErrorMessage)

	exec, err := f.store.GetExecutionByJob(ctx, j.Id)
	require.NoError(t, err)
	require.Equal(t, model.EXECUTION_FAILED, exec.Status)
	require.Equal(t, "NoTrigger", exec.ErrorData.Class)
}

func TestPerformSkipsTerminalJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	j := f.enqueue(t, f.saveFlow(t, trigger()), nil)
	_, err := f.lifecycle.Cancel(ctx, j.Id)
	require.NoError(t, err)

	require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 1}))
	require.Equal(t, model.JOB_CANCELLED, f.job(t, j.Id).Status)
	require.Equal(t, 0, f.countRows(t, "flow_executions"))
}

func TestCancel(t *testing.T) {
	tests := map[string]func(t *testing.T){
		"queued job is cancelled": func(t *testing.T) {
			f := newFixture(t, nil)
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)
			cancelled, err := f.lifecycle.Cancel(context.Background(), j.Id)
			require.NoError(t, err)
			require.Equal(t, model.JOB_CANCELLED, cancelled.Status)
			require.NotNil(t, cancelled.CompletedAt)
		},
		"completed job stays completed": func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, nil)
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)
			require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 1}))
			_, err := f.lifecycle.Cancel(ctx, j.Id)
			require.ErrorIs(t, err, model.ErrIllegalTransition)
			require.Equal(t, model.JOB_COMPLETED, f.job(t, j.Id).Status)
		},
		"job in flight cannot be cancelled": func(t *testing.T) {
			f := newFixture(t, nil)
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)
			f.lifecycle.inFlight.Store(j.Id, struct{}{})
			_, err := f.lifecycle.Cancel(context.Background(), j.Id)
			require.ErrorIs(t, err, ErrJobInFlight)
			require.Equal(t, model.JOB_QUEUED, f.job(t, j.Id).Status)
		},
		"unknown job": func(t *testing.T) {
			f := newFixture(t, nil)
			_, err := f.lifecycle.Cancel(context.Background(), 42)
			require.Error(t, err)
		},
	}
	for name, fn := range tests {
		t.Run(name, fn)
	}
}

func TestFormatErrorMessage(t *testing.T) {
	msg := FormatErrorMessage(errors.New("disk full"))
	lines := strings.Split(msg, "\n")
	require.Equal(t, "errors.errorString: disk full", lines[0])
	require.LessOrEqual(t, len(lines)-1, 10)
}

func TestEnqueueOvertakenByWorker(t *testing.T) {
	q := &eagerQueue{Queue: memory.NewQueue()}
	f := newFixture(t, q)
	q.lifecycle = f.lifecycle

	j := f.enqueue(t, f.saveFlow(t, trigger()), nil)

	require.NoError(t, q.performErr)
	stored := f.job(t, j.Id)
	require.Equal(t, model.JOB_COMPLETED, stored.Status)
	require.NotEmpty(t, stored.ExternalJobId)
	require.Equal(t, model.JOB_COMPLETED, j.Status)
	require.Equal(t, stored.ExternalJobId, j.ExternalJobId)
}

func TestPerformRetriesStorageFailures(t *testing.T) {
	ctx := context.Background()
	tests := map[string]func(t *testing.T){
		"execution record write fails once": func(t *testing.T) {
			executions := &flakyExecutions{updateFailures: 1}
			f := newFixtureWith(t, nil, func(s *sqlite.Store) storage {
				executions.Store = s
				return storage{jobs: s, executions: executions}
			})
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)

			err := f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 1})
			var attemptErr *AttemptError
			require.True(t, errors.As(err, &attemptErr))
			require.False(t, attemptErr.Final)
			var storageErr persistence.StorageLayerError
			require.ErrorAs(t, err, &storageErr)
			stored := f.job(t, j.Id)
			require.Equal(t, model.JOB_RUNNING, stored.Status)
			require.Contains(t, stored.ErrorMessage, "database is locked")

			require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 2}))
			require.Equal(t, model.JOB_COMPLETED, f.job(t, j.Id).Status)
			require.Equal(t, 1, f.countRows(t, "flow_executions"))
			exec, err := f.store.GetExecutionByJob(ctx, j.Id)
			require.NoError(t, err)
			require.Equal(t, model.EXECUTION_COMPLETED, exec.Status)
		},
		"job load fails once": func(t *testing.T) {
			jobs := &flakyJobs{}
			f := newFixtureWith(t, nil, func(s *sqlite.Store) storage {
				jobs.Store = s
				return storage{jobs: jobs, executions: s}
			})
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)
			jobs.getFailures = 1

			err := f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 1})
			var attemptErr *AttemptError
			require.True(t, errors.As(err, &attemptErr))
			require.False(t, attemptErr.Final)
			require.Equal(t, model.JOB_QUEUED, f.job(t, j.Id).Status)

			require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 2}))
			require.Equal(t, model.JOB_COMPLETED, f.job(t, j.Id).Status)
		},
		"final attempt marks job failed": func(t *testing.T) {
			executions := &flakyExecutions{updateFailures: 10}
			f := newFixtureWith(t, nil, func(s *sqlite.Store) storage {
				executions.Store = s
				return storage{jobs: s, executions: executions}
			})
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)

			err := f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 3})
			var attemptErr *AttemptError
			require.True(t, errors.As(err, &attemptErr))
			require.True(t, attemptErr.Final)
			stored := f.job(t, j.Id)
			require.Equal(t, model.JOB_FAILED, stored.Status)
			require.NotNil(t, stored.CompletedAt)
		},
		"unknown job is dropped": func(t *testing.T) {
			f := newFixture(t, nil)
			require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: 404, Attempt: 1}))
		},
	}
	for name, fn := range tests {
		t.Run(name, fn)
	}
}

func TestCancelAndPerformDoNotOverwriteEachOther(t *testing.T) {
	ctx := context.Background()
	tests := map[string]func(t *testing.T){
		"cancel lands after perform loaded the job": func(t *testing.T) {
			jobs := &flakyJobs{}
			f := newFixtureWith(t, nil, func(s *sqlite.Store) storage {
				jobs.Store = s
				return storage{jobs: jobs, executions: s}
			})
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)
			jobs.afterGet = func(loaded *model.Job) {
				cancelled := *loaded
				require.NoError(t, cancelled.TransitionTo(model.JOB_CANCELLED, now))
				require.NoError(t, f.store.UpdateJob(ctx, &cancelled, loaded.Status))
			}

			err := f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 1})
			require.ErrorIs(t, err, model.ErrIllegalTransition)
			require.Equal(t, model.JOB_CANCELLED, f.job(t, j.Id).Status)
			require.Equal(t, 0, f.countRows(t, "flow_executions"))

			require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 2}))
			require.Equal(t, model.JOB_CANCELLED, f.job(t, j.Id).Status)
		},
		"perform finishes after cancel loaded the job": func(t *testing.T) {
			jobs := &flakyJobs{}
			f := newFixtureWith(t, nil, func(s *sqlite.Store) storage {
				jobs.Store = s
				return storage{jobs: jobs, executions: s}
			})
			j := f.enqueue(t, f.saveFlow(t, trigger()), nil)
			jobs.afterGet = func(*model.Job) {
				require.NoError(t, f.lifecycle.Perform(ctx, model.JobMessage{JobId: j.Id, Attempt: 1}))
			}

			_, err := f.lifecycle.Cancel(ctx, j.Id)
			require.ErrorIs(t, err, model.ErrIllegalTransition)
			require.Equal(t, model.JOB_COMPLETED, f.job(t, j.Id).Status)
		},
	}
	for name, fn := range tests {
		t.Run(name, fn)
	}
}
