// cmd/loans/main.go
package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"campusloan/internal/config"
	"campusloan/internal/events"
	"campusloan/internal/loans"
	"campusloan/internal/middleware"
	"campusloan/internal/telemetry"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "loan-service"))

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	shutdown, err := telemetry.Setup(context.Background(), "loan-service", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	publisher := events.NewAMQPPublisher(cfg.AMQPURL, logger)
	publisher.Start()
	defer publisher.Shutdown()

	svc := loans.NewService(db, publisher, logger)
	handler := loans.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(logger))

	r.Post("/reservations", handler.HandleReserve)
	r.Post("/collect", handler.HandleCollect)
	r.Post("/returns", handler.HandleReturn)
	r.Post("/waitlist", handler.HandleSubscribe)
	r.Get("/waitlist", handler.HandleListWaitlist)
	r.Get("/loans", handler.HandleListLoans)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	logger.Info("loan service listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
