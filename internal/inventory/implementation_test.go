// internal/inventory/implementation_test.go
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestDB connects to a PostgreSQL database for testing. It skips the test
// if the connection cannot be established.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	envOr := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("PGHOST", "localhost"), envOr("PGPORT", "5432"),
		envOr("PGUSER", "user"), envOr("PGPASSWORD", "password"), envOr("PGDATABASE", "testdb"))

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS devices (
			model_id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			quantity_available INT NOT NULL CHECK (quantity_available >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t testing.TB) (Service, *sql.DB) {
	db := setupTestDB(t)
	return NewService(db, zap.NewNop()), db
}

func TestAddAndGetDevice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.AddDevice(ctx, "ThinkPad X1", "Lenovo", "Laptop", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, added.QuantityAvailable)

	got, err := svc.GetDevice(ctx, added.ModelID)
	require.NoError(t, err)
	assert.Equal(t, "ThinkPad X1", got.Name)
	assert.Equal(t, "Lenovo", got.Brand)
}

func TestGetDeviceNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetDevice(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestListDevicesFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	marker := uuid.New().String()[:8]
	_, err := svc.AddDevice(ctx, "iPad Air "+marker, "Apple", "Tablet", 3)
	require.NoError(t, err)
	_, err = svc.AddDevice(ctx, "Galaxy Tab "+marker, "Samsung", "Tablet", 2)
	require.NoError(t, err)

	byBrand, err := svc.ListDevices(ctx, Filter{Brand: "Samsung", Name: marker})
	require.NoError(t, err)
	require.Len(t, byBrand, 1)
	assert.Equal(t, "Samsung", byBrand[0].Brand)

	// Name matching is case-insensitive and partial.
	byName, err := svc.ListDevices(ctx, Filter{Name: "galaxy tab " + marker})
	require.NoError(t, err)
	require.Len(t, byName, 1)

	byCategory, err := svc.ListDevices(ctx, Filter{Category: "Tablet", Name: marker})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)
}

func TestUpdateQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.AddDevice(ctx, "Pixel 9", "Google", "Phone", 1)
	require.NoError(t, err)

	updated, err := svc.UpdateQuantity(ctx, added.ModelID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.QuantityAvailable)

	_, err = svc.UpdateQuantity(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestRemoveDevice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.AddDevice(ctx, "Surface Go", "Microsoft", "Tablet", 2)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveDevice(ctx, added.ModelID))
	_, err = svc.GetDevice(ctx, added.ModelID)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	assert.ErrorIs(t, svc.RemoveDevice(ctx, added.ModelID), ErrDeviceNotFound)
}
