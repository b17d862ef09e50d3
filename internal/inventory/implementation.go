// internal/inventory/implementation.go
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// service implements the Service interface.
type service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService creates a new device catalog service instance.
func NewService(db *sql.DB, logger *zap.Logger) Service {
	return &service{db: db, logger: logger}
}

const deviceColumns = `model_id, name, brand, category, quantity_available, created_at, updated_at`

func scanDevice(row interface{ Scan(...any) error }) (*Device, error) {
	d := &Device{}
	err := row.Scan(&d.ModelID, &d.Name, &d.Brand, &d.Category, &d.QuantityAvailable, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDevices returns catalog entries matching the filter, ordered by model id.
func (s *service) ListDevices(ctx context.Context, filter Filter) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices`
	args := []any{}
	conditions := []string{}

	if filter.Brand != "" {
		args = append(args, filter.Brand)
		conditions = append(conditions, fmt.Sprintf("brand = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY model_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (s *service) GetDevice(ctx context.Context, modelID uuid.UUID) (*Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE model_id = $1`, modelID)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

func (s *service) AddDevice(ctx context.Context, name, brand, category string, quantity int) (*Device, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO devices (model_id, name, brand, category, quantity_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+deviceColumns,
		uuid.New(), name, brand, category, quantity)
	d, err := scanDevice(row)
	if err != nil {
		return nil, fmt.Errorf("add device: %w", err)
	}

	s.logger.Info("device added",
		zap.String("model_id", d.ModelID.String()),
		zap.String("name", d.Name),
		zap.Int("quantity", d.QuantityAvailable),
	)
	return d, nil
}

func (s *service) UpdateQuantity(ctx context.Context, modelID uuid.UUID, quantity int) (*Device, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE devices SET quantity_available = $1, updated_at = NOW()
		WHERE model_id = $2
		RETURNING `+deviceColumns,
		quantity, modelID)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update device: %w", err)
	}
	return d, nil
}

func (s *service) RemoveDevice(ctx context.Context, modelID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE model_id = $1`, modelID)
	if err != nil {
		return fmt.Errorf("remove device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove device: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}

	s.logger.Info("device removed", zap.String("model_id", modelID.String()))
	return nil
}
