// internal/loans/service.go
package loans

import (
	"context"

	"github.com/google/uuid"
)

// Service is the reservation/return coordination engine. Callers supply a
// verified user identity and contact address; authentication and role checks
// happen upstream.
type Service interface {
	// Reserve consumes one unit of the device model's stock and creates a
	// RESERVED loan for the user. Exactly one of two concurrent calls can take
	// the last available unit.
	Reserve(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*Reservation, error)

	// MarkCollected advances a RESERVED loan to COLLECTED.
	MarkCollected(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	// Return closes the loan, restores the unit to stock and notifies every
	// waitlisted subscriber for the device model.
	Return(ctx context.Context, loanID uuid.UUID) error

	// Subscribe adds the user to the device model's waitlist. Repeat
	// subscriptions return the existing entry with alreadySubscribed = true.
	Subscribe(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (entry *WaitlistEntry, alreadySubscribed bool, err error)

	// ListWaitlist returns the user's subscriptions joined with current
	// availability, newest first.
	ListWaitlist(ctx context.Context, userID string) ([]WaitlistItem, error)

	// ListLoans returns the user's loans, newest first. An empty userID lists
	// all loans (staff view; role enforcement is the transport's concern).
	ListLoans(ctx context.Context, userID string) ([]LoanItem, error)
}
