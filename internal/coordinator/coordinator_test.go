package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Lights map[int]int
}

// countingRefresher counts refresh requests.
type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func TestUpdateNotifiesListeners(t *testing.T) {
	c := New[snapshot]("test", nil, Options{})
	defer c.Close()

	var calls []string
	removeA := c.AddListener(func() { calls = append(calls, "a") })
	c.AddListener(func() { calls = append(calls, "b") })

	c.Update(snapshot{Lights: map[int]int{0: 1}})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, 1, c.Data().Lights[0])
	assert.True(t, c.LastUpdateSuccess())
	assert.False(t, c.LastUpdate().IsZero())

	removeA()
	calls = nil
	c.Update(snapshot{})
	assert.Equal(t, []string{"b"}, calls)
}

func TestSetErrorKeepsSnapshot(t *testing.T) {
	c := New[snapshot]("test", nil, Options{})
	defer c.Close()

	c.Update(snapshot{Lights: map[int]int{2: 0}})

	notified := 0
	c.AddListener(func() { notified++ })

	boom := errors.New("vendor unreachable")
	c.SetError(boom)

	assert.False(t, c.LastUpdateSuccess())
	assert.ErrorIs(t, c.LastError(), boom)
	assert.Contains(t, c.Data().Lights, 2)
	assert.Equal(t, 1, notified)

	c.Update(snapshot{})
	assert.True(t, c.LastUpdateSuccess())
	assert.NoError(t, c.LastError())
}

func TestWaitReady(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := New[snapshot]("ok", nil, Options{})
		go c.Update(snapshot{})
		require.NoError(t, c.WaitReady(context.Background()))
	})

	t.Run("first update failed", func(t *testing.T) {
		c := New[snapshot]("bad", nil, Options{})
		c.SetError(errors.New("auth failed"))
		assert.ErrorIs(t, c.WaitReady(context.Background()), ErrNotReady)
	})

	t.Run("context done", func(t *testing.T) {
		c := New[snapshot]("slow", nil, Options{})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, c.WaitReady(ctx), context.DeadlineExceeded)
	})
}

func TestRefreshBypassesDebounce(t *testing.T) {
	r := &countingRefresher{}
	c := New[snapshot]("test", r, Options{Cooldown: time.Hour})
	defer c.Close()

	for range 3 {
		require.NoError(t, c.Refresh(context.Background()))
	}
	assert.Equal(t, int32(3), r.calls.Load())
}

func TestRefreshError(t *testing.T) {
	boom := errors.New("publish failed")
	c := New[snapshot]("test", &countingRefresher{err: boom}, Options{Cooldown: -1})
	defer c.Close()

	assert.ErrorIs(t, c.Refresh(context.Background()), boom)
	assert.ErrorIs(t, c.RequestRefresh(context.Background()), boom)
}

func TestRequestRefreshDebounced(t *testing.T) {
	r := &countingRefresher{}
	c := New[snapshot]("test", r, Options{Cooldown: 50 * time.Millisecond})
	defer c.Close()

	ctx := context.Background()
	for range 5 {
		require.NoError(t, c.RequestRefresh(ctx))
	}
	assert.Equal(t, int32(1), r.calls.Load(), "first call runs immediately, the rest are coalesced")

	assert.Eventually(t, func() bool { return r.calls.Load() == 2 }, time.Second, 5*time.Millisecond,
		"one trailing refresh after the cooldown")

	// No further calls were made, so nothing else fires.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(2), r.calls.Load())
}

func TestRequestRefreshNoDebounce(t *testing.T) {
	r := &countingRefresher{}
	c := New[snapshot]("test", r, Options{Cooldown: -1})
	defer c.Close()

	for range 3 {
		require.NoError(t, c.RequestRefresh(context.Background()))
	}
	assert.Equal(t, int32(3), r.calls.Load())
}

func TestCloseCancelsTrailingRefresh(t *testing.T) {
	r := &countingRefresher{}
	c := New[snapshot]("test", r, Options{Cooldown: 30 * time.Millisecond})

	ctx := context.Background()
	require.NoError(t, c.RequestRefresh(ctx))
	require.NoError(t, c.RequestRefresh(ctx))
	c.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), r.calls.Load())
	assert.ErrorIs(t, c.RequestRefresh(ctx), ErrClosed)
}

func TestRefresherFunc(t *testing.T) {
	called := false
	c := New[snapshot]("test", RefresherFunc(func(context.Context) error {
		called = true
		return nil
	}), Options{})
	defer c.Close()

	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, called)
	assert.Equal(t, "test", c.Name())
}
