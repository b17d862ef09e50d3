// internal/loans/stores.go
package loans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dbtx is the querying surface shared by *sql.DB and *sql.Tx. Store methods
// take it as a parameter so the coordinators decide the transaction boundary.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InventoryLedger holds one row per device model with its non-negative
// available-quantity counter. The counter is only ever mutated through Adjust
// inside a transaction that holds the row lock.
type InventoryLedger struct{}

// QuantityForUpdate locks the device's inventory row and returns the available
// quantity. The lock is held until the surrounding transaction ends, which is
// the sole serialization point preventing over-selling.
func (InventoryLedger) QuantityForUpdate(ctx context.Context, q dbtx, modelID uuid.UUID) (int, error) {
	var qty int
	err := q.QueryRowContext(ctx,
		`SELECT quantity_available FROM devices WHERE model_id = $1 FOR UPDATE`,
		modelID,
	).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrDeviceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock inventory row: %w", err)
	}
	return qty, nil
}

// Adjust shifts the device's available quantity by delta.
func (InventoryLedger) Adjust(ctx context.Context, q dbtx, modelID uuid.UUID, delta int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE devices SET quantity_available = quantity_available + $1 WHERE model_id = $2`,
		delta, modelID,
	)
	if err != nil {
		return fmt.Errorf("adjust inventory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust inventory: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// LoanStore persists loan lifecycle records. Loans are created once, advanced
// through conditional writes and never deleted.
type LoanStore struct{}

func (LoanStore) Insert(ctx context.Context, q dbtx, loan *Loan) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO loans (id, user_id, device_model_id, contact, status, created_at, expected_return_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, loan.ID, loan.UserID, loan.DeviceModelID, loan.Contact, loan.Status, loan.CreatedAt, loan.ExpectedReturnDate)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// GetForUpdate locks the loan row and returns it.
func (LoanStore) GetForUpdate(ctx context.Context, q dbtx, id uuid.UUID) (*Loan, error) {
	loan := &Loan{}
	var returnedAt sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, device_model_id, contact, status, created_at, expected_return_date, returned_at
		FROM loans
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&loan.ID,
		&loan.UserID,
		&loan.DeviceModelID,
		&loan.Contact,
		&loan.Status,
		&loan.CreatedAt,
		&loan.ExpectedReturnDate,
		&returnedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock loan row: %w", err)
	}
	if returnedAt.Valid {
		loan.ReturnedAt = &returnedAt.Time
	}
	return loan, nil
}

// Transition advances the loan from one status to another in a single
// conditional write. A concurrent duplicate request observes zero rows
// affected and gets ErrInvalidStateTransition instead of double-applying.
func (LoanStore) Transition(ctx context.Context, q dbtx, id uuid.UUID, from, to string) (*Loan, error) {
	loan := &Loan{}
	var returnedAt sql.NullTime
	err := q.QueryRowContext(ctx, `
		UPDATE loans SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING id, user_id, device_model_id, contact, status, created_at, expected_return_date, returned_at
	`, to, id, from).Scan(
		&loan.ID,
		&loan.UserID,
		&loan.DeviceModelID,
		&loan.Contact,
		&loan.Status,
		&loan.CreatedAt,
		&loan.ExpectedReturnDate,
		&returnedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidStateTransition
	}
	if err != nil {
		return nil, fmt.Errorf("transition loan: %w", err)
	}
	if returnedAt.Valid {
		loan.ReturnedAt = &returnedAt.Time
	}
	return loan, nil
}

// MarkReturned flips the loan to RETURNED and stamps the return time. The
// caller must hold the row lock via GetForUpdate.
func (LoanStore) MarkReturned(ctx context.Context, q dbtx, id uuid.UUID, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE loans SET status = $1, returned_at = $2 WHERE id = $3`,
		StatusReturned, at, id,
	)
	if err != nil {
		return fmt.Errorf("mark loan returned: %w", err)
	}
	return nil
}

// List returns loans joined with device names, newest first. An empty userID
// returns every loan.
func (LoanStore) List(ctx context.Context, q dbtx, userID string) ([]LoanItem, error) {
	query := `
		SELECT l.id, l.user_id, d.name, l.status, l.created_at, l.expected_return_date
		FROM loans l
		JOIN devices d ON l.device_model_id = d.model_id
	`
	args := []any{}
	if userID != "" {
		query += ` WHERE l.user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY l.created_at DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	items := []LoanItem{}
	for rows.Next() {
		var item LoanItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.DeviceName, &item.Status, &item.CreatedAt, &item.ExpectedReturnDate); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// WaitlistStore holds per-(user, device model) subscription rows. It is the
// sole mutator of the waitlist table.
type WaitlistStore struct{}

// Find returns the user's entry for the device model, or nil if none exists.
func (WaitlistStore) Find(ctx context.Context, q dbtx, userID string, modelID uuid.UUID) (*WaitlistEntry, error) {
	entry := &WaitlistEntry{}
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, device_model_id, contact, created_at
		FROM waitlist
		WHERE user_id = $1 AND device_model_id = $2
	`, userID, modelID).Scan(&entry.ID, &entry.UserID, &entry.DeviceModelID, &entry.Contact, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find waitlist entry: %w", err)
	}
	return entry, nil
}

func (WaitlistStore) Insert(ctx context.Context, q dbtx, entry *WaitlistEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO waitlist (id, user_id, device_model_id, contact, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.UserID, entry.DeviceModelID, entry.Contact, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	return nil
}

// Delete removes the user's entry for the device model, if any.
func (WaitlistStore) Delete(ctx context.Context, q dbtx, userID string, modelID uuid.UUID) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM waitlist WHERE user_id = $1 AND device_model_id = $2`,
		userID, modelID,
	)
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	return nil
}

// ScanByDevice returns every entry for the device model, earliest subscriber
// first.
func (WaitlistStore) ScanByDevice(ctx context.Context, q dbtx, modelID uuid.UUID) ([]WaitlistEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, device_model_id, contact, created_at
		FROM waitlist
		WHERE device_model_id = $1
		ORDER BY created_at ASC
	`, modelID)
	if err != nil {
		return nil, fmt.Errorf("scan waitlist: %w", err)
	}
	defer rows.Close()

	entries := []WaitlistEntry{}
	for rows.Next() {
		var entry WaitlistEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.DeviceModelID, &entry.Contact, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListByUser returns the user's subscriptions joined with device availability,
// newest first.
func (WaitlistStore) ListByUser(ctx context.Context, q dbtx, userID string) ([]WaitlistItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT w.id, w.device_model_id, d.name, d.quantity_available, w.created_at
		FROM waitlist w
		JOIN devices d ON w.device_model_id = d.model_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	items := []WaitlistItem{}
	for rows.Next() {
		var item WaitlistItem
		if err := rows.Scan(&item.ID, &item.DeviceModelID, &item.DeviceName, &item.QuantityAvailable, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan waitlist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
