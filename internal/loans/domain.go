// internal/loans/domain.go
package loans

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Loan statuses. A loan only ever moves forward through these.
const (
	StatusReserved  = "RESERVED"
	StatusCollected = "COLLECTED"
	StatusReturned  = "RETURNED"
)

// LoanDuration is the fixed loan policy: every reservation is expected back
// two days after it is created.
const LoanDuration = 48 * time.Hour

var (
	ErrDeviceNotFound         = errors.New("device not found")
	ErrOutOfStock             = errors.New("device out of stock")
	ErrLoanNotFound           = errors.New("loan not found")
	ErrInvalidStateTransition = errors.New("loan not found or not in RESERVED state")
	ErrAlreadyReturned        = errors.New("device already returned")
	ErrRateLimited            = errors.New("rate limit exceeded")
)

// Loan ties one user to one unit of one device model for a single
// reservation-to-return lifecycle.
type Loan struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             string     `json:"user_id"`
	DeviceModelID      uuid.UUID  `json:"device_model_id"`
	Contact            string     `json:"contact"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ReturnedAt         *time.Time `json:"returned_at,omitempty"`
}

// Reservation is the result of a successful Reserve call.
type Reservation struct {
	LoanID             uuid.UUID `json:"loan_id"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
}

// WaitlistEntry is a standing request to be notified when a device model
// regains stock. At most one entry exists per (user, device model) pair.
type WaitlistEntry struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"user_id"`
	DeviceModelID uuid.UUID `json:"device_model_id"`
	Contact       string    `json:"contact"`
	CreatedAt     time.Time `json:"created_at"`
}

// WaitlistItem is a waitlist entry joined with the device's current state for
// user-facing listings.
type WaitlistItem struct {
	ID                uuid.UUID `json:"id"`
	DeviceModelID     uuid.UUID `json:"device_model_id"`
	DeviceName        string    `json:"device_name"`
	QuantityAvailable int       `json:"quantity_available"`
	CreatedAt         time.Time `json:"created_at"`
}

// LoanItem is a loan joined with its device name for listings.
type LoanItem struct {
	ID                 uuid.UUID `json:"id"`
	UserID             string    `json:"user_id,omitempty"`
	DeviceName         string    `json:"device_name"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
}

func statusRank(status string) int {
	switch status {
	case StatusReserved:
		return 0
	case StatusCollected:
		return 1
	case StatusReturned:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether a loan may move between the two statuses.
// Transitions are strictly forward; RETURNED is terminal. A RESERVED loan may
// be returned without collection (the borrower never picked it up).
func CanTransition(from, to string) bool {
	f, t := statusRank(from), statusRank(to)
	return f >= 0 && t >= 0 && t > f
}
