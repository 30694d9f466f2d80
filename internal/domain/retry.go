package domain

import "time"

// RetryPolicy drives the failed -> pending backoff schedule.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Delay returns base * 2^retryCount capped at MaxDelay.
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := p.BaseDelay
	for i := 0; i < retryCount; i++ {
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			break
		}
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Exhausted reports whether retryCount has reached the dead-letter threshold.
func (p RetryPolicy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}

// FailureOutcome is the state an article lands in after a failed enrichment.
type FailureOutcome struct {
	Status       Status
	RetryCount   int
	ScheduledFor *time.Time
}

// DeadLetter describes an article that exhausted its retries.
type DeadLetter struct {
	ArticleID  int64
	Title      string
	URL        string
	Source     string
	RetryCount int
	LastError  string
}
