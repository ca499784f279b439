package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shelterbook/internal/bookings/events"
	"shelterbook/pkg/config"
	"shelterbook/pkg/kafka"
	kafka_config "shelterbook/pkg/kafka/config"
	kafka_middleware "shelterbook/pkg/kafka/middleware"
	"shelterbook/pkg/logger"
)

const (
	ServiceName     = "booking-events"
	metricsInterval = time.Minute
)

func main() {
	cfg := config.Load(ServiceName)

	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kcfg.Enabled() {
		cfg.Log.Fatal("Kafka brokers must be configured for the booking events consumer")
	}

	consumer, err := kafka.NewConsumer(
		kcfg,
		kcfg.BookingEventsTopic,
		kcfg.ConsumerGroupID,
		kcfg.BookingEventsDLQ,
		handleBookingEvent(cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kcfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportMetrics(ctx, cfg.Log)

	cfg.Log.Info("Consuming booking events", "topic", kcfg.BookingEventsTopic, "group", kcfg.ConsumerGroupID)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	kafka_middleware.GetMetrics().LogMetrics(cfg.Log)
	cfg.Log.Info("Booking events consumer stopped")
}

// handleBookingEvent records booking lifecycle events. Malformed payloads are
// permanent failures and go straight to the dead letter topic.
func handleBookingEvent(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event events.BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("invalid booking event payload", err)
		}

		switch msg.GetEventType() {
		case events.EventBookingConfirmed, events.EventBookingCancelled:
		default:
			log.Warn("Ignoring unknown booking event", "event_type", msg.GetEventType(), "event_id", msg.GetEventID())
			return nil
		}

		log.Info("Booking event received",
			"event_type", msg.GetEventType(),
			"event_id", msg.GetEventID(),
			"booking_id", event.BookingID,
			"shelter_id", event.ShelterID,
			"status", event.Status,
		)
		return nil
	}
}

func reportMetrics(ctx context.Context, log *logger.Logger) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kafka_middleware.GetMetrics().LogMetrics(log)
		}
	}
}
