package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisLockerAgainstRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	c := context.Background()

	redisContainer, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisContainer.Terminate(context.Background()) })

	connStr, err := redisContainer.ConnectionString(c)
	require.NoError(t, err)
	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	// two lockers sharing one redis stand in for two cart service replicas
	replicas := []Locker{NewRedisLocker(client, 5*time.Second), NewRedisLocker(client, 5*time.Second)}
	counter := 0
	wg := sync.WaitGroup{}
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := replicas[i%2].Lock(c, "cart:shared")
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			current := counter
			time.Sleep(time.Millisecond)
			counter = current + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)

	exists, err := client.Exists(c, KEY_LOCK_PREFIX+"cart:shared").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
