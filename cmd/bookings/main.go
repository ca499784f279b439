package main

import (
	"shelterbook/internal/bookings/events"
	"shelterbook/internal/bookings/handler"
	"shelterbook/internal/bookings/repository"
	"shelterbook/internal/bookings/service"
	"shelterbook/internal/bookings/validator"
	shelterrepo "shelterbook/internal/shelters/repository"
	"shelterbook/pkg/app"
	"shelterbook/pkg/config"
	"shelterbook/pkg/kafka"
	kafka_config "shelterbook/pkg/kafka/config"
	kafka_middleware "shelterbook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	publisher, closePublisher := initPublisher(cfg)
	serverApp.OnShutdown(closePublisher)

	bookingService := initServices(cfg, publisher)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

// initPublisher connects the booking event producer. Without configured
// brokers events are dropped.
func initPublisher(cfg *config.Config) (events.Publisher, func()) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kcfg.Enabled() {
		cfg.Log.Warn("Kafka brokers not configured, booking events disabled")
		return events.NewNoopPublisher(), func() {}
	}

	producer, err := kafka.NewProducer(kcfg, kcfg.BookingEventsTopic, kcfg.BookingEventsDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kcfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	cfg.Log.Info("Booking events enabled", "topic", kcfg.BookingEventsTopic, "brokers", kcfg.Brokers)
	return events.NewKafkaPublisher(producer), func() {
		kafka_middleware.GetMetrics().LogMetrics(cfg.Log)
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	shelterRepo := shelterrepo.NewMongoShelterRepository(cfg)
	bookingService := service.NewBookingService(
		bookingRepo,
		shelterRepo,
		publisher,
		bookingValidator,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
