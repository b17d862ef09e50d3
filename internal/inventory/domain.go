// internal/inventory/domain.go
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrDeviceNotFound = errors.New("device not found")

// Device is a catalog entry for one loanable device model and its current
// stock counter. Stock is consumed and restored only by the loan coordinators;
// catalog mutations here are plain CRUD.
type Device struct {
	ModelID           uuid.UUID `json:"model_id"`
	Name              string    `json:"name"`
	Brand             string    `json:"brand"`
	Category          string    `json:"category"`
	QuantityAvailable int       `json:"quantity_available"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Filter narrows a device listing. Zero values match everything.
type Filter struct {
	Brand    string
	Category string
	Name     string
}
