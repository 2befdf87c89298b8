package executor

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shelterly/automation/config"
)

const pushRetries = 3

// RetryPolicy spaces out the attempts of a failing job.
type RetryPolicy struct {
	conf config.RetryConfig
}

func NewRetryPolicy(conf config.RetryConfig) RetryPolicy {
	return RetryPolicy{conf: conf}
}

func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.conf.InitialInterval
	b.MaxInterval = p.conf.MaxInterval
	b.Multiplier = p.conf.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delay is the wait before the attempt that follows the failed attempt
// number attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	b := p.newBackOff()
	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// retryPush retries a queue write a few times with a constant pause.
func (p RetryPolicy) retryPush(push func() error) error {
	return backoff.Retry(push, backoff.WithMaxRetries(backoff.NewConstantBackOff(p.conf.InitialInterval/4), pushRetries))
}
