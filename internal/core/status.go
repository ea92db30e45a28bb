package core

import (
	"fmt"
	"strings"
)

const (
	StatusPending  Status = "pending"
	StatusInReview Status = "in_review"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Status is the approval state of an expense.
type Status string

// transitions lists, for each state, the states it may move to.
var transitions = map[Status][]Status{
	StatusPending:  {StatusInReview, StatusApproved, StatusRejected},
	StatusInReview: {StatusApproved, StatusRejected, StatusPending},
	StatusApproved: {StatusRejected, StatusPending},
	StatusRejected: {StatusPending, StatusInReview},
}

// ParseStatus validates s against the enumerated states.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving from s to target is allowed.
// Staying in the same state is not a transition and returns false.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// AllStatuses returns the enumerated states in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusInReview, StatusApproved, StatusRejected}
}
