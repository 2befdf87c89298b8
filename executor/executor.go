// Package executor moves job attempts from the queues to the job lifecycle.
package executor

type Executor interface {
	Start() error
	Stop() error
	Name() string
}

const RETRY_QUEUE = "flow_job_retries"
