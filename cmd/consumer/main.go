// Command consumer appends booking events from RabbitMQ to the booking log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/place-reservation/internal/config"
	"github.com/iliyamo/place-reservation/internal/logging"
	"github.com/iliyamo/place-reservation/internal/queue"
)

func main() {
	_ = godotenv.Load()
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	logging.Init("booking-consumer", env)

	logPath := os.Getenv("BOOKING_LOG_PATH")
	if logPath == "" {
		logPath = "logs/booking.log"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := queue.StartBookingConsumer(ctx, config.AMQPURL(), logPath)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("booking consumer")
	}
	log.Info().Msg("booking consumer stopped")
}
