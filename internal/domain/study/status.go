package study

// SessionStatus is the review workflow state of a session.
type SessionStatus string

const (
	StatusProposed SessionStatus = "proposed"
	StatusAccepted SessionStatus = "accepted"
	StatusRejected SessionStatus = "rejected"
)

var SessionStatuses = []SessionStatus{StatusProposed, StatusAccepted, StatusRejected}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusProposed, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

var allowedTransitions = map[SessionStatus]map[SessionStatus]bool{
	StatusProposed: {StatusAccepted: true, StatusRejected: true},
	StatusAccepted: {StatusRejected: true},
	StatusRejected: {StatusAccepted: true},
}

// CanTransition reports whether from -> to is allowed. Same-state moves are
// allowed and are no-ops; nothing ever returns to proposed.
func CanTransition(from, to SessionStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	return allowedTransitions[from][to]
}

type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanArchived PlanStatus = "archived"
)

func (s PlanStatus) Valid() bool {
	return s == PlanActive || s == PlanArchived
}
