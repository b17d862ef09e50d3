// internal/inventory/service.go
package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the device catalog service.
type Service interface {
	ListDevices(ctx context.Context, filter Filter) ([]Device, error)
	GetDevice(ctx context.Context, modelID uuid.UUID) (*Device, error)
	AddDevice(ctx context.Context, name, brand, category string, quantity int) (*Device, error)
	UpdateQuantity(ctx context.Context, modelID uuid.UUID, quantity int) (*Device, error)
	RemoveDevice(ctx context.Context, modelID uuid.UUID) error
}
