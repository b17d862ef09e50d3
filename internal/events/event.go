// internal/events/event.go
package events

import "context"

// Event types published to the notification queue.
const (
	LoanCreated       = "LOAN_CREATED"
	LoanCollected     = "LOAN_COLLECTED"
	LoanReturned      = "LOAN_RETURNED"
	WaitlistAvailable = "WAITLIST_AVAILABLE"
)

// Event is an immutable fact published after a state change commits. The JSON
// shape is the contract with the notification consumer.
type Event struct {
	Event              string `json:"event"`
	LoanID             string `json:"loanId,omitempty"`
	DeviceModelID      string `json:"deviceModelId,omitempty"`
	Contact            string `json:"contact"`
	ExpectedReturnDate string `json:"expectedReturnDate,omitempty"`
}

// Publisher emits domain events to the notification queue. Implementations are
// best-effort: a returned error means the event was dropped, never that the
// originating transaction should fail.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
