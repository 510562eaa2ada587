package main

import (
	"context"
	"fmt"
	"time"

	"stockgen/config"
	"stockgen/internal/memorystore"
	"stockgen/internal/pricing"
	"stockgen/internal/stream"
	"stockgen/pkg/messaging"
	kafkapub "stockgen/pkg/messaging/kafka"
	"stockgen/pkg/storage/postgres"
	"stockgen/pkg/storage/redisstore"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// managedStore is a pricing.Store that owns a connection.
type managedStore interface {
	pricing.Store
	IsHealthy(ctx context.Context) bool
	Close() error
}

// managedPublisher is a pricing.Publisher that may buffer.
type managedPublisher interface {
	pricing.Publisher
	Close() error
}

type memoryStore struct{ *memorystore.MemoryPriceStore }

func (memoryStore) IsHealthy(context.Context) bool { return true }
func (memoryStore) Close() error                   { return nil }

type postgresStore struct {
	*postgres.PriceStore
	client *postgres.PostgresClient
}

func (s postgresStore) IsHealthy(ctx context.Context) bool { return s.client.IsHealthy(ctx) }

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (managedStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		log.Info("using in-memory store")
		return memoryStore{memorystore.NewPriceStore()}, nil

	case "redis":
		s, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using redis store", zap.String("addr", cfg.Redis.Addr))
		return s, nil

	case "postgres":
		client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.App.Env)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres store",
			zap.String("host", cfg.Postgres.Host),
			zap.String("dbname", cfg.Postgres.DBName),
		)
		return postgresStore{PriceStore: postgres.NewPriceStore(client), client: client}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

type nopCloser struct{ pricing.Publisher }

func (nopCloser) Close() error { return nil }

type teeCloser struct {
	*messaging.Tee
	primary managedPublisher
}

func (t teeCloser) Close() error { return t.primary.Close() }

func openPublisher(ctx context.Context, cfg *config.Config, hub *stream.Hub, log *zap.Logger) (managedPublisher, error) {
	var primary managedPublisher

	switch cfg.Publisher.Backend {
	case "log":
		primary = nopCloser{messaging.NewLogPublisher(log)}

	case "kafka":
		if cfg.Kafka.CreateTopic {
			creator := kafkapub.NewTopicCreator(&kafkapub.KafkaDialer{Dialer: &kafka.Dialer{Timeout: 10 * time.Second}}, log)
			creator.Ensure(ctx, cfg.Kafka.Brokers, kafkapub.TopicConfig{
				Name:              cfg.Generator.Channel,
				Partitions:        cfg.Kafka.Partitions,
				ReplicationFactor: cfg.Kafka.ReplicationFactor,
			})
		}
		writer := kafkapub.NewWriter(kafkapub.WriterConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxAttempts:  cfg.Kafka.MaxAttempts,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		primary = kafkapub.NewPublisher(writer, log)
		log.Info("using kafka publisher", zap.Strings("brokers", cfg.Kafka.Brokers))

	default:
		return nil, fmt.Errorf("unknown publisher backend %q", cfg.Publisher.Backend)
	}

	if !cfg.Publisher.WebsocketMirror {
		return primary, nil
	}
	return teeCloser{Tee: messaging.NewTee(log, primary, hub), primary: primary}, nil
}
