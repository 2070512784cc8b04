package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightengine/api"
	"github.com/Domenick1991/flightengine/config"
	"github.com/Domenick1991/flightengine/internal/bootstrap"
	"github.com/Domenick1991/flightengine/internal/cache"
	"github.com/Domenick1991/flightengine/internal/kafka"
	"github.com/Domenick1991/flightengine/internal/service/booking"
	"github.com/Domenick1991/flightengine/internal/service/flights"
	"github.com/Domenick1991/flightengine/internal/service/schedule"
	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer storage.Close()

	checks := map[string]api.HealthCheck{}
	if storage.Ping != nil {
		checks["postgres"] = storage.Ping
	}

	var flightOpts []flights.FlightServiceOption
	var bookingOpts []booking.BookingServiceOption
	var scheduleOpts []schedule.ScheduleServiceOption

	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Search.CacheTTL())
		defer redisCache.Close()
		checks["redis"] = redisCache.Ping

		if cfg.Search.CacheTTLSeconds > 0 {
			flightOpts = append(flightOpts, flights.WithCache(redisCache))
		}
		bookingOpts = append(bookingOpts, booking.WithCache(redisCache))
		scheduleOpts = append(scheduleOpts, schedule.WithSearchInvalidator(redisCache))
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		checks["kafka"] = producer.CheckConnection

		bookingOpts = append(bookingOpts,
			booking.WithProducer(producer, cfg.Kafka.BookingTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
		scheduleOpts = append(scheduleOpts, schedule.WithProducer(producer, cfg.Kafka.ScheduleEventsTopic))
	}

	flightService := flights.NewFlightService(storage.Catalog, storage.Schedules, flightOpts...)
	bookingService := booking.NewBookingService(
		storage.Catalog,
		storage.Schedules,
		storage.Tickets,
		cfg.Booking.LockTTL(),
		cfg.Booking.TransactionTimeout(),
		bookingOpts...,
	)
	scheduleService := schedule.NewScheduleService(storage.Catalog, storage.Schedules, scheduleOpts...)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterConfig{
		RateLimit:  cfg.HTTP.RateLimit,
		RateBurst:  cfg.HTTP.RateBurst,
		SwaggerDir: cfg.HTTP.SwaggerDir,
		Checks:     checks,
	},
		api.NewFlightHandler(flightService),
		api.NewBookingHandler(bookingService),
		api.NewScheduleHandler(scheduleService),
	)

	if err := bootstrap.Run(ctx, cfg, router, checks); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
