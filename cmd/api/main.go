// cmd/api/main.go
package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"campusloan/internal/config"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "api-gateway"))

	inventoryURL, err := url.Parse(cfg.InventoryServiceURL)
	if err != nil {
		logger.Fatal("invalid inventory service URL", zap.Error(err))
	}
	loanURL, err := url.Parse(cfg.LoanServiceURL)
	if err != nil {
		logger.Fatal("invalid loan service URL", zap.Error(err))
	}

	inventoryProxy := httputil.NewSingleHostReverseProxy(inventoryURL)
	loanProxy := httputil.NewSingleHostReverseProxy(loanURL)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/devices", http.StripPrefix("/api/v1", inventoryProxy))
	mux.Handle("/api/v1/devices/", http.StripPrefix("/api/v1", inventoryProxy))
	for _, path := range []string{"/api/v1/reservations", "/api/v1/collect", "/api/v1/returns", "/api/v1/waitlist", "/api/v1/loans"} {
		mux.Handle(path, http.StripPrefix("/api/v1", loanProxy))
	}

	logger.Info("api gateway listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
