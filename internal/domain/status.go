package domain

import "fmt"

// Status enumerates the article lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
	StatusDead       Status = "dead"
)

// AllStatuses lists every lifecycle state in pipeline order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusProcessed, StatusFailed, StatusDead}
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Terminal reports whether no further transition can leave the state.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusDead
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusProcessed, StatusFailed, StatusDead, StatusPending},
	StatusFailed:     {StatusPending},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
// processing -> pending is only taken by the recovery sweep.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
