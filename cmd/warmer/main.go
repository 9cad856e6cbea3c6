// kafka consumer that pulls warm tasks and fetches every CDN variant
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ds124wfegd/WB_L3/imgpipe/config"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/database"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/kafka"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/warmer"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logger := logrus.WithField("app", "imgpipe-warmer")

	if err := run(logger); err != nil {
		logger.WithError(err).Error("warm consumer stopped")
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run(logger *logrus.Entry) error {
	cfg := loadConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	repo, closeRepo, _ := database.NewWarmRepository(ctx, cfg.Redis, logger)
	defer func() {
		if err := closeRepo(); err != nil {
			logger.WithError(err).Error("error occured on redis closing")
		}
	}()

	w := warmer.NewWarmer(nil, repo, warmer.Config{
		Workers: cfg.Warmer.Workers,
		Timeout: cfg.Warmer.Timeout,
	}, logger)

	return warmer.StartConsumer(ctx, warmer.ConsumerConfig{
		Brokers:       kafka.SplitBrokers(cfg.Kafka.Brokers),
		Topic:         cfg.Kafka.Topic,
		GroupID:       cfg.Kafka.GroupID,
		TasksInFlight: cfg.Warmer.TasksInFlight,
	}, w, logger)
}

// loadConfig reads config/config.yaml and falls back to plain env variables
// when the file is not shipped with the worker image.
func loadConfig(logger *logrus.Entry) *config.Config {
	v, err := config.LoadConfig()
	if err == nil {
		var cfg *config.Config
		if cfg, err = config.ParseConfig(v); err == nil {
			return cfg
		}
	}
	logger.WithError(err).Warn("config file unavailable, using env")

	return &config.Config{
		Kafka: config.KafkaConfig{
			Brokers: config.GetEnv("KAFKA_BROKERS", "localhost:9094"),
			Topic:   config.GetEnv("KAFKA_TOPIC", kafka.DefaultTopic),
			GroupID: config.GetEnv("KAFKA_GROUP_ID", "imgpipe-warmer"),
		},
		Redis: config.RedisConfig{
			Addr: config.GetEnv("REDIS_ADDR", ""),
		},
		Warmer: config.WarmerConfig{
			Workers: config.GetEnvInt("WARMER_WORKERS", warmer.DefaultWorkers),
		},
	}
}
