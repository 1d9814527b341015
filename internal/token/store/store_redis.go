package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"rollcall/internal/token/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

var (
	getSecretDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollcall_token_secret_get_duration_ms",
		Help:    "Latency of session secret lookups in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})
)

const (
	secretKeyPrefix = "rollcall:secret:"

	// defaultTTL bounds how long a secret of a session that never closed
	// cleanly survives in Redis. The session row stays authoritative.
	defaultTTL = 24 * time.Hour
)

// Redis shares session secrets across instances. SET replaces the value in a
// single command, so concurrent readers observe one complete secret.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*Redis)

func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

type redisSecret struct {
	Value    string    `json:"value"`
	IssuedAt time.Time `json:"issued_at"`
}

func (r *Redis) Put(ctx context.Context, secret models.Secret) error {
	payload, err := json.Marshal(redisSecret{Value: secret.Value, IssuedAt: secret.IssuedAt})
	if err != nil {
		return fmt.Errorf("marshal secret: %w", err)
	}
	return r.client.Set(ctx, secretKeyPrefix+secret.SessionID.String(), payload, r.ttl).Err()
}

// PutIfAbsent uses SET NX. When the key exists the stored value is returned.
func (r *Redis) PutIfAbsent(ctx context.Context, secret models.Secret) (models.Secret, error) {
	payload, err := json.Marshal(redisSecret{Value: secret.Value, IssuedAt: secret.IssuedAt})
	if err != nil {
		return models.Secret{}, fmt.Errorf("marshal secret: %w", err)
	}
	set, err := r.client.SetNX(ctx, secretKeyPrefix+secret.SessionID.String(), payload, r.ttl).Result()
	if err != nil {
		return models.Secret{}, fmt.Errorf("set secret if absent: %w", err)
	}
	if set {
		return secret, nil
	}
	current, err := r.Get(ctx, secret.SessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return secret, nil
	}
	return current, err
}

func (r *Redis) Get(ctx context.Context, sessionID id.SessionID) (models.Secret, error) {
	start := time.Now()
	defer func() {
		getSecretDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := r.client.Get(ctx, secretKeyPrefix+sessionID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Secret{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Secret{}, fmt.Errorf("get secret: %w", err)
	}
	var stored redisSecret
	if err := json.Unmarshal(raw, &stored); err != nil {
		return models.Secret{}, fmt.Errorf("unmarshal secret: %w", err)
	}
	return models.Secret{SessionID: sessionID, Value: stored.Value, IssuedAt: stored.IssuedAt}, nil
}

func (r *Redis) Delete(ctx context.Context, sessionID id.SessionID) error {
	n, err := r.client.Del(ctx, secretKeyPrefix+sessionID.String()).Result()
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
