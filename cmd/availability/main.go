package main

import (
	availabilityhandler "orari/internal/availability/handler"
	availabilityservice "orari/internal/availability/service"
	"orari/internal/availability/resolver"
	"orari/internal/availability/slots"
	bookinghandler "orari/internal/bookings/handler"
	"orari/internal/bookings/overlap"
	bookingrepository "orari/internal/bookings/repository"
	bookingservice "orari/internal/bookings/service"
	bookingvalidator "orari/internal/bookings/validator"
	directoryrepository "orari/internal/directory/repository"
	freezerepository "orari/internal/freezes/repository"
	freezeservice "orari/internal/freezes/service"
	windowhandler "orari/internal/windows/handler"
	windowrepository "orari/internal/windows/repository"
	windowservice "orari/internal/windows/service"
	windowvalidator "orari/internal/windows/validator"
	"orari/pkg/app"
	"orari/pkg/config"
	"orari/pkg/contracts"
	"orari/pkg/events"
)

const ServiceName = "availability"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Availability service")
	handlers := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handlers...)
	serverApp.Run()
}

func initServices(cfg *config.Config) []contracts.Handler {
	orgRepo := directoryrepository.NewMongoOrganizationRepository(cfg)
	serviceRepo := directoryrepository.NewMongoServiceRepository(cfg)
	windowRepo := windowrepository.NewMongoWindowRepository(cfg)
	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)
	lockRepo := bookingrepository.NewBookingLockRepository(cfg)
	freezeRepo := freezerepository.NewMongoFreezeRepository(cfg)

	freezes := freezeservice.NewFreezeService(freezeRepo, windowRepo, bookingRepo, cfg.Log)
	dayResolver := resolver.New(windowRepo, bookingRepo, freezes, serviceRepo, cfg.Log)
	detector := overlap.New(bookingRepo, serviceRepo, cfg.Log)
	generator := slots.New(dayResolver, bookingRepo, serviceRepo, config.MinCallerStepMin, cfg.Log)

	notify, audit := bookingSinks(cfg)

	availabilitySvc := availabilityservice.NewAvailabilityService(generator, orgRepo, serviceRepo, cfg)
	bookingSvc := bookingservice.NewBookingService(
		bookingRepo,
		lockRepo,
		bookingvalidator.NewBookingValidator(cfg.Log),
		dayResolver,
		detector,
		orgRepo,
		serviceRepo,
		freezes,
		notify,
		audit,
		cfg,
	)
	windowSvc := windowservice.NewWindowService(
		windowRepo,
		windowvalidator.NewWindowValidator(cfg.Log),
		windowvalidator.NewPartitionValidator(windowRepo, serviceRepo, cfg.Log),
		orgRepo,
		serviceRepo,
		cfg,
	)

	cfg.Log.Info("Availability service initialized", "database", cfg.MongoDatabaseName)
	return []contracts.Handler{
		availabilityhandler.NewAvailabilityHandler(availabilitySvc, cfg.Log),
		bookinghandler.NewBookingHandler(bookingSvc, cfg.Log),
		windowhandler.NewWindowHandler(windowSvc, cfg.Log),
	}
}

// bookingSinks picks Kafka when brokers are configured, otherwise events
// are dropped and the service runs standalone.
func bookingSinks(cfg *config.Config) (events.NotificationSink, events.AuditSink) {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Warn("No Kafka brokers configured, booking events disabled")
		return events.NoopSink{}, events.NoopSink{}
	}

	producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.BookingEventsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	sink := events.NewKafkaSink(producer, ServiceName, cfg.Log)
	return sink, sink
}
