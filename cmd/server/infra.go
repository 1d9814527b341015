package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	attendanceservice "rollcall/internal/attendance/service"
	attendancestore "rollcall/internal/attendance/store"
	enrollmentservice "rollcall/internal/enrollment/service"
	enrollmentstore "rollcall/internal/enrollment/store"
	identityservice "rollcall/internal/identity/service"
	identitystore "rollcall/internal/identity/store"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/kafka"
	"rollcall/internal/platform/postgres"
	platformredis "rollcall/internal/platform/redis"
	ratelimit "rollcall/internal/ratelimit/middleware"
	"rollcall/internal/ratelimit/store/bucket"
	sessionservice "rollcall/internal/session/service"
	sessionstore "rollcall/internal/session/store"
	"rollcall/internal/token"
	tokenstore "rollcall/internal/token/store"
	"rollcall/pkg/platform/audit"
	"rollcall/pkg/platform/audit/outbox"
	auditmemory "rollcall/pkg/platform/audit/store/memory"
	auditpostgres "rollcall/pkg/platform/audit/store/postgres"
)

// infra holds the storage backends selected by configuration. Without a
// database URL every store is in memory and dev mode is on.
type infra struct {
	dev bool

	sessions    sessionservice.Store
	secrets     token.SecretStore
	records     attendanceservice.Store
	enrollments enrollmentservice.Store
	principals  identityservice.Store
	auditStore  audit.Store
	buckets     ratelimit.BucketStore
	relay       *outbox.Relay

	db       *sql.DB
	redis    *platformredis.Client
	producer *kafka.Producer
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}

	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory stores")
		in.dev = true
		in.sessions = sessionstore.NewInMemory()
		in.records = attendancestore.NewInMemory()
		in.enrollments = enrollmentstore.NewInMemory()
		in.principals = identitystore.NewInMemory()
		in.auditStore = auditmemory.NewInMemoryStore()
	} else {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		in.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			in.Close()
			return nil, err
		}
		in.sessions = sessionstore.NewPostgres(db)
		in.records = attendancestore.NewPostgres(db)
		in.enrollments = enrollmentstore.NewPostgres(db)
		in.principals = identitystore.NewPostgres(db)
		in.auditStore = auditpostgres.New(db)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if redisClient != nil {
		in.redis = redisClient
		in.secrets = tokenstore.NewRedis(redisClient.Client)
		in.buckets = bucket.NewRedisBucketStore(redisClient.Client)
	} else {
		in.secrets = tokenstore.NewInMemory()
		in.buckets = bucket.NewInMemoryBucketStore()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		if in.db == nil {
			log.Warn("kafka brokers set without a database, audit relay disabled")
			return in, nil
		}
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, kafka.WithLogger(log))
		if err != nil {
			in.Close()
			return nil, err
		}
		in.producer = producer
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := producer.EnsureTopic(ensureCtx, 3, 1); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		in.relay = outbox.NewRelay(in.db, producer,
			outbox.WithInterval(cfg.Kafka.PollInterval),
			outbox.WithBatchSize(cfg.Kafka.BatchSize),
			outbox.WithLogger(log),
		)
	}
	return in, nil
}

// Health pings the external backends in use.
func (in *infra) Health(ctx context.Context) error {
	var errs []error
	if in.db != nil {
		errs = append(errs, in.db.PingContext(ctx))
	}
	if in.redis != nil {
		errs = append(errs, in.redis.Health(ctx))
	}
	return errors.Join(errs...)
}

func (in *infra) Close() {
	if in.producer != nil {
		in.producer.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}
