package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

const KEY_LOCK_PREFIX = "lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds a lock as a key with a random token and a ttl. A holder that
// dies without releasing blocks others for at most ttl.
type RedisLocker struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, pollInterval: 25 * time.Millisecond}
}

func (r *RedisLocker) Lock(c context.Context, key string) (func(), error) {
	c, span := inOtel.Tracer.Start(c, "RedisLocker Lock")
	defer span.End()

	lockKey := KEY_LOCK_PREFIX + key
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RedisLocker Lock").
		Str(constants.KEY_PROCESS, "acquiring lock").
		Str(constants.KEY_LOCK_KEY, lockKey).
		Logger()

	token := uuid.NewString()
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	logger.Trace().Msg("acquiring lock")
	for {
		ok, err := r.client.SetNX(c, lockKey, token, r.ttl).Result()
		if err != nil && c.Err() != nil {
			err = fmt.Errorf("failed acquiring lock with error=%w: %w", inErrors.ErrLockNotAcquired, err)
			inOtel.RecordError(err, span)
			logger.Warn().Err(err).Msg(err.Error())
			return nil, err
		}
		if err != nil {
			err = fmt.Errorf("failed acquiring lock with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-c.Done():
			err = fmt.Errorf("failed acquiring lock with error=%w: %w", inErrors.ErrLockNotAcquired, c.Err())
			inOtel.RecordError(err, span)
			logger.Warn().Err(err).Msg(err.Error())
			return nil, err
		case <-ticker.C:
		}
	}
	logger.Trace().Msg("acquired lock")

	released := false
	return func() {
		if released {
			return
		}
		released = true
		err := releaseScript.Run(context.WithoutCancel(c), r.client, []string{lockKey}, token).Err()
		if err != nil {
			err = fmt.Errorf("failed releasing lock with error=%w", err)
			logger.Warn().Err(err).Msg(err.Error())
		}
	}, nil
}
