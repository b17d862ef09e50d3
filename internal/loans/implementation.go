// internal/loans/implementation.go
package loans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"campusloan/internal/events"
)

const uniqueViolation = "23505"

// service implements the Service interface over a transactional store.
type service struct {
	db         *sql.DB
	publisher  events.Publisher
	logger     *zap.Logger
	tracer     trace.Tracer
	subLimiter *rate.Limiter

	inventory InventoryLedger
	loans     LoanStore
	waitlist  WaitlistStore

	now func() time.Time
}

// NewService creates the coordination engine. The publisher is best-effort:
// its failures are logged, never propagated to callers.
func NewService(db *sql.DB, publisher events.Publisher, logger *zap.Logger) Service {
	return &service{
		db:         db,
		publisher:  publisher,
		logger:     logger,
		tracer:     otel.Tracer("campusloan/loans"),
		subLimiter: rate.NewLimiter(rate.Every(time.Second), 50),
		now:        time.Now,
	}
}

// Reserve runs the reservation as one atomic transaction: lock the inventory
// row, check and decrement stock, create the loan, clear the user's waitlist
// entry. Nothing is visible until commit; LOAN_CREATED is published after.
func (s *service) Reserve(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "loans.reserve",
		trace.WithAttributes(attribute.String("device.model_id", deviceModelID.String())),
	)
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The row lock is the sole serialization point for this device model:
	// concurrent reservers block here until the holder's transaction ends.
	qty, err := s.inventory.QuantityForUpdate(ctx, tx, deviceModelID)
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		span.SetAttributes(attribute.Bool("out_of_stock", true))
		return nil, ErrOutOfStock
	}

	if err := s.inventory.Adjust(ctx, tx, deviceModelID, -1); err != nil {
		return nil, err
	}

	now := s.now()
	loan := &Loan{
		ID:                 uuid.New(),
		UserID:             userID,
		DeviceModelID:      deviceModelID,
		Contact:            contact,
		Status:             StatusReserved,
		CreatedAt:          now,
		ExpectedReturnDate: now.Add(LoanDuration),
	}
	if err := s.loans.Insert(ctx, tx, loan); err != nil {
		return nil, err
	}

	// Reserving implicitly unsubscribes the user from this model's waitlist.
	if err := s.waitlist.Delete(ctx, tx, userID, deviceModelID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}

	s.publish(ctx, events.Event{
		Event:              events.LoanCreated,
		LoanID:             loan.ID.String(),
		DeviceModelID:      deviceModelID.String(),
		Contact:            contact,
		ExpectedReturnDate: loan.ExpectedReturnDate.UTC().Format(time.RFC3339),
	})

	s.logger.Info("reservation created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("user_id", userID),
		zap.String("device_model_id", deviceModelID.String()),
	)

	return &Reservation{LoanID: loan.ID, ExpectedReturnDate: loan.ExpectedReturnDate}, nil
}

// MarkCollected advances a RESERVED loan to COLLECTED with a single
// conditional write, so a duplicate collection request cannot double-apply.
func (s *service) MarkCollected(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "loans.collect",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	loan, err := s.loans.Transition(ctx, s.db, loanID, StatusReserved, StatusCollected)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Event:   events.LoanCollected,
		LoanID:  loanID.String(),
		Contact: loan.Contact,
	})

	s.logger.Info("loan collected", zap.String("loan_id", loanID.String()))
	return loan, nil
}

// Return closes the loan and restores the unit to stock in one transaction,
// so a crash between the status flip and the increment is unobservable. The
// waitlist is scanned inside the same transaction and notified after commit.
func (s *service) Return(ctx context.Context, loanID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "loans.return",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := s.loans.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return err
	}
	if loan.Status == StatusReturned {
		return ErrAlreadyReturned
	}

	if err := s.loans.MarkReturned(ctx, tx, loanID, s.now()); err != nil {
		return err
	}

	if err := s.inventory.Adjust(ctx, tx, loan.DeviceModelID, 1); err != nil {
		return err
	}

	// FIFO scan: every subscriber is notified, earliest first. Entries are not
	// deleted here; reservation remains first-come-first-served at reservation
	// time, and a successful reservation clears the winner's entry.
	waiters, err := s.waitlist.ScanByDevice(ctx, tx, loan.DeviceModelID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit return: %w", err)
	}

	s.publish(ctx, events.Event{
		Event:   events.LoanReturned,
		LoanID:  loanID.String(),
		Contact: loan.Contact,
	})
	for _, w := range waiters {
		s.publish(ctx, events.Event{
			Event:         events.WaitlistAvailable,
			DeviceModelID: loan.DeviceModelID.String(),
			Contact:       w.Contact,
		})
	}

	s.logger.Info("loan returned",
		zap.String("loan_id", loanID.String()),
		zap.Int("waitlist_notified", len(waiters)),
	)
	return nil
}

// Subscribe adds the user to the device model's waitlist, idempotently.
func (s *service) Subscribe(ctx context.Context, userID string, deviceModelID uuid.UUID, contact string) (*WaitlistEntry, bool, error) {
	if !s.subLimiter.Allow() {
		return nil, false, ErrRateLimited
	}

	existing, err := s.waitlist.Find(ctx, s.db, userID, deviceModelID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	entry := &WaitlistEntry{
		ID:            uuid.New(),
		UserID:        userID,
		DeviceModelID: deviceModelID,
		Contact:       contact,
		CreatedAt:     s.now(),
	}
	if err := s.waitlist.Insert(ctx, s.db, entry); err != nil {
		// A concurrent subscription for the same pair can win the race between
		// Find and Insert; the unique constraint makes the loser idempotent too.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			existing, findErr := s.waitlist.Find(ctx, s.db, userID, deviceModelID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, true, nil
		}
		return nil, false, err
	}

	s.logger.Info("waitlist subscription created",
		zap.String("waitlist_id", entry.ID.String()),
		zap.String("user_id", userID),
	)
	return entry, false, nil
}

func (s *service) ListWaitlist(ctx context.Context, userID string) ([]WaitlistItem, error) {
	return s.waitlist.ListByUser(ctx, s.db, userID)
}

func (s *service) ListLoans(ctx context.Context, userID string) ([]LoanItem, error) {
	return s.loans.List(ctx, s.db, userID)
}

// publish emits a domain event after commit. Delivery is best-effort: a
// failure is logged and swallowed so the committed transaction stands.
func (s *service) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event", ev.Event),
			zap.Error(err),
		)
	}
}
