package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rollcall/internal/ratelimit/models"
)

const redisKeyPrefix = "rollcall:ratelimit:"

// slidingWindowScript trims the sorted set to the window, admits the attempt
// when there is room and reports the oldest surviving score. Running it as
// one script keeps check-and-add atomic across instances.
//
// KEYS[1] bucket, ARGV: now_us, window_us, limit, member
// Returns {allowed, count, oldest_us}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, math.ceil(window / 1000))
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if oldest[2] then
  oldestScore = tonumber(oldest[2])
end
return {allowed, count, oldestScore}
`)

// RedisBucketStore implements the sliding window over a Redis sorted set
// scored by attempt time in microseconds.
type RedisBucketStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisBucketStore(client *redis.Client) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := s.now()
	res, err := slidingWindowScript.Run(ctx, s.client, []string{redisKeyPrefix + key},
		now.UnixMicro(),
		window.Microseconds(),
		limit,
		strconv.FormatInt(now.UnixMicro(), 10)+"-"+uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("sliding window script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("sliding window script: unexpected reply of %d values", len(res))
	}

	resetAt := time.UnixMicro(res[2]).Add(window)
	count := int(res[1])
	if res[0] == 1 {
		return &models.Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - count,
			ResetAt:   resetAt,
		}, nil
	}
	return &models.Result{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: models.RetryAfterSeconds(now, resetAt),
	}, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}
