package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/providers"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex(0)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Lock(context.Background(), "room-a")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				current := atomic.LoadInt32(&maxInside)
				if n <= current || atomic.CompareAndSwapInt32(&maxInside, current, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, m.size())
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex(time.Second)

	releaseA, err := m.Lock(context.Background(), "room-a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := m.Lock(context.Background(), "room-b")
	require.NoError(t, err)
	releaseB()
}

func TestKeyedMutex_WaitTimeout(t *testing.T) {
	m := NewKeyedMutex(20 * time.Millisecond)

	release, err := m.Lock(context.Background(), "room-a")
	require.NoError(t, err)

	_, err = m.Lock(context.Background(), "room-a")
	assert.ErrorIs(t, err, providers.ErrLockTimeout)

	release()
	assert.Equal(t, 0, m.size())
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	m := NewKeyedMutex(0)

	release, err := m.Lock(context.Background(), "room-a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Lock(ctx, "room-a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyedMutex_ReleaseIsIdempotent(t *testing.T) {
	m := NewKeyedMutex(time.Second)

	release, err := m.Lock(context.Background(), "room-a")
	require.NoError(t, err)
	release()
	release()

	again, err := m.Lock(context.Background(), "room-a")
	require.NoError(t, err)
	again()
}
