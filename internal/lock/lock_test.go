package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
)

func lockers(t *testing.T) map[string]Locker {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Locker{
		"keyed mutex":  NewKeyedMutex(),
		"redis locker": NewRedisLocker(client, 5*time.Second),
	}
}

func TestLockerSerializesSameKey(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			c := context.Background()
			counter := 0
			wg := sync.WaitGroup{}
			for range 50 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					release, err := locker.Lock(c, "cart:user")
					if !assert.NoError(t, err) {
						return
					}
					defer release()
					current := counter
					time.Sleep(time.Microsecond)
					counter = current + 1
				}()
			}
			wg.Wait()
			assert.Equal(t, 50, counter)
		})
	}
}

func TestLockerDifferentKeysDoNotBlock(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			c, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			releaseA, err := locker.Lock(c, "cart:a")
			require.NoError(t, err)
			defer releaseA()

			releaseB, err := locker.Lock(c, "cart:b")
			require.NoError(t, err)
			releaseB()
		})
	}
}

func TestLockerHonorsContext(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			release, err := locker.Lock(context.Background(), "cart:busy")
			require.NoError(t, err)
			defer release()

			c, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err = locker.Lock(c, "cart:busy")
			require.Error(t, err)
		})
	}
}

func TestKeyedMutexDropsIdleEntries(t *testing.T) {
	k := NewKeyedMutex()
	release, err := k.Lock(context.Background(), "cart:x")
	require.NoError(t, err)
	assert.Equal(t, 1, k.size())
	release()
	release()
	assert.Equal(t, 0, k.size())
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	locker := NewRedisLocker(client, time.Second)

	release, err := locker.Lock(context.Background(), "cart:y")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set(KEY_LOCK_PREFIX+"cart:y", "someone-else"))

	release()
	value, err := mr.Get(KEY_LOCK_PREFIX + "cart:y")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value, "release must not delete a lock it no longer owns")

	c, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(c, "cart:y")
	assert.ErrorIs(t, err, inErrors.ErrLockNotAcquired)
}
