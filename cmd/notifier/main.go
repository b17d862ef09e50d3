// cmd/notifier/main.go
package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"campusloan/internal/config"
	"campusloan/internal/notifier"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("service", "notification-service"))

	sender := &notifier.LogSender{Logger: logger}
	consumer := notifier.NewConsumer(cfg.AMQPURL, sender, logger)
	consumer.Start()

	logger.Info("notification service started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	consumer.Shutdown()
}
