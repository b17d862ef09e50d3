// cmd/inventory/main.go
package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"campusloan/internal/config"
	"campusloan/internal/inventory"
	"campusloan/internal/middleware"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "inventory-service"))

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	svc := inventory.NewService(db, logger)
	handler := inventory.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(logger))

	r.Get("/devices", handler.HandleListDevices)
	r.Post("/devices", handler.HandleAddDevice)
	r.Get("/devices/{id}", handler.HandleGetDevice)
	r.Put("/devices/{id}", handler.HandleUpdateDevice)
	r.Delete("/devices/{id}", handler.HandleRemoveDevice)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	logger.Info("inventory service listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
