package entities

import "fmt"

// IntentStatus represents the status of a transaction intent
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusCompleted IntentStatus = "completed"
	IntentStatusFailed    IntentStatus = "failed"
)

// ValidIntentStatuses contains all valid intent statuses
var ValidIntentStatuses = map[IntentStatus]bool{
	IntentStatusPending:   true,
	IntentStatusCompleted: true,
	IntentStatusFailed:    true,
}

// ValidIntentTransitions defines allowed status transitions. Status is
// monotonic: once terminal, an intent never moves again.
var ValidIntentTransitions = map[IntentStatus][]IntentStatus{
	IntentStatusPending:   {IntentStatusCompleted, IntentStatusFailed},
	IntentStatusCompleted: {}, // Terminal state
	IntentStatusFailed:    {}, // Terminal state
}

// IsValid checks if the status is a valid intent status
func (s IntentStatus) IsValid() bool {
	return ValidIntentStatuses[s]
}

// CanTransitionTo checks if transition to new status is allowed
func (s IntentStatus) CanTransitionTo(newStatus IntentStatus) bool {
	allowed, exists := ValidIntentTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s IntentStatus) IsTerminal() bool {
	return s == IntentStatusCompleted || s == IntentStatusFailed
}

// IsPending returns true if the intent is still awaiting verification
func (s IntentStatus) IsPending() bool {
	return s == IntentStatusPending
}

// ValidateTransition validates and returns error if transition is invalid
func (s IntentStatus) ValidateTransition(newStatus IntentStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("invalid intent status: %s", newStatus)
	}
	if !s.CanTransitionTo(newStatus) {
		return fmt.Errorf("invalid status transition from %s to %s", s, newStatus)
	}
	return nil
}

// Intent tracking constants
const (
	// IntentTimeoutMinutes is how long a pending intent is tracked before
	// it is failed by the deadline or the reaper
	IntentTimeoutMinutes = 30

	// IntentPollIntervalSeconds is the default oracle probe cadence
	IntentPollIntervalSeconds = 30
)
