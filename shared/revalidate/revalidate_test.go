package revalidate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher_PublishesPaths(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "cache:invalidate")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(rdb, "cache:invalidate")
	require.NoError(t, pub.Invalidate(ctx, []string{"/", "/blog", "/blog/hello"}))

	select {
	case msg := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, []string{"/", "/blog", "/blog/hello"}, got.Paths)
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation received")
	}
}

func TestRedisPublisher_BackendError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	err := NewRedisPublisher(rdb, "cache:invalidate").Invalidate(context.Background(), []string{"/"})
	assert.Error(t, err)
}

type stubTarget struct {
	calls int
	err   error
}

func (s *stubTarget) Invalidate(context.Context, []string) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	ok := &stubTarget{}
	failing := &stubTarget{err: boom}

	err := Multi{failing, ok, LogInvalidator{}}.Invalidate(context.Background(), []string{"/"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, failing.calls)
	assert.NoError(t, Multi{ok}.Invalidate(context.Background(), nil))
}
