package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightengine/config"
	"github.com/Domenick1991/flightengine/internal/bootstrap"
	"github.com/Domenick1991/flightengine/internal/cache"
	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/email"
	"github.com/Domenick1991/flightengine/internal/kafka"
	"github.com/Domenick1991/flightengine/internal/service/schedule"
	kafkaGo "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

const (
	publishAttempts = 3
	handlerAttempts = 3
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
	if !cfg.Kafka.Enabled() {
		log.Fatalf("worker needs kafka.brokers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer storage.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	opts := []schedule.ScheduleServiceOption{
		schedule.WithProducer(kafka.Retrying{Producer: producer, Attempts: publishAttempts}, cfg.Kafka.ScheduleEventsTopic),
	}
	if cfg.Redis.Enabled() {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Search.CacheTTL())
		defer redisCache.Close()
		opts = append(opts, schedule.WithSearchInvalidator(redisCache))
	}
	scheduleService := schedule.NewScheduleService(storage.Catalog, storage.Schedules, opts...)
	emailSender := email.NewSender()

	retries := kafka.WithHandlerRetries(handlerAttempts, time.Second)
	notifications := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, retries)
	defer notifications.Close()
	feeds := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ScheduleFeedTopic, retries)
	defer feeds.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifications.Consume(gctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return kafka.Permanent(fmt.Errorf("decode booking event: %w", err))
			}
			if err := emailSender.Send(ctx, event); err != nil {
				return fmt.Errorf("send confirmation for %s: %w", event.Reference, err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return feeds.Consume(gctx, func(ctx context.Context, msg kafkaGo.Message) error {
			result, err := scheduleService.ImportChanges(ctx, string(msg.Value))
			if errors.Is(err, domain.ErrEmptyFeed) {
				return kafka.Permanent(err)
			}
			if err != nil {
				return fmt.Errorf("import schedule feed: %w", err)
			}
			log.Printf("imported schedule feed key=%s batch=%s", msg.Key, result.BatchID)
			return nil
		})
	})

	log.Printf("worker consuming %s and %s", cfg.Kafka.NotificationsTopic, cfg.Kafka.ScheduleFeedTopic)
	if err := g.Wait(); err != nil {
		log.Printf("consumer stopped: %v", err)
	}
	log.Printf("worker shut down")
}
