package main

import (
	bookingrepo "shelterbook/internal/bookings/repository"
	"shelterbook/internal/shelters/handler"
	"shelterbook/internal/shelters/repository"
	"shelterbook/internal/shelters/service"
	"shelterbook/internal/shelters/validator"
	"shelterbook/pkg/app"
	"shelterbook/pkg/config"
)

const ServiceName = "shelters"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Shelters service")
	shelterService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewShelterHandler(shelterService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.ShelterService {
	shelterValidator := validator.NewShelterValidator(cfg.Log)
	shelterRepo := repository.NewMongoShelterRepository(cfg)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	shelterService := service.NewShelterService(
		shelterRepo,
		bookingRepo,
		shelterValidator,
		cfg,
	)

	cfg.Log.Info("Shelter service initialized", "database", cfg.MongoDatabaseName)
	return shelterService
}
