package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/pkg/logger"
)

type countingChannel struct {
	mu    sync.Mutex
	calls int
}

func (c *countingChannel) Name() model.ChannelName { return model.ChannelEmail }

func (c *countingChannel) Send(_ context.Context, _ model.Event, _ []model.Recipient, _ map[string]interface{}, _ model.Meta) (*model.DeliveryReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &model.DeliveryReport{Sent: 1}, nil
}

func (c *countingChannel) Verify(_ context.Context) error { return nil }

func (c *countingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestDispatcherDeliversQueuedWork(t *testing.T) {
	ch := &countingChannel{}
	svc := NewService(true, logger.Nop())
	svc.RegisterChannel(ch)

	d := NewDispatcher(svc, 16, 2, nil, logger.Nop())
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		ok := d.Dispatch(model.EventUserWelcome, payloadWith(someRecipient()))
		require.True(t, ok)
	}
	d.Close()

	assert.Equal(t, 5, ch.count())
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	svc := NewService(true, logger.Nop())
	d := NewDispatcher(svc, 1, 1, nil, logger.Nop())
	// Workers never started: the queue holds one job, the rest must drop.

	assert.True(t, d.Dispatch(model.EventUserWelcome, payloadWith(someRecipient())))
	assert.False(t, d.Dispatch(model.EventUserWelcome, payloadWith(someRecipient())))
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	svc := NewService(true, logger.Nop())
	d := NewDispatcher(svc, 4, 1, nil, logger.Nop())
	d.Start(context.Background())

	d.Close()
	assert.NotPanics(t, func() { d.Close() })
}

func TestDispatcherSurvivesFailingDispatch(t *testing.T) {
	// An unknown event key produces an error result; the worker must log it
	// and keep draining.
	ch := &countingChannel{}
	svc := NewService(true, logger.Nop())
	svc.RegisterChannel(ch)

	d := NewDispatcher(svc, 16, 1, nil, logger.Nop())
	d.Start(context.Background())

	require.True(t, d.Dispatch(model.EventKey("BOGUS"), payloadWith(someRecipient())))
	require.True(t, d.Dispatch(model.EventUserWelcome, payloadWith(someRecipient())))
	d.Close()

	assert.Equal(t, 1, ch.count())
}

func TestDispatcherDrainsQueueOnClose(t *testing.T) {
	// Jobs accepted before shutdown must be delivered even when the outer
	// context has already been cancelled.
	ch := &countingChannel{}
	svc := NewService(true, logger.Nop())
	svc.RegisterChannel(ch)

	d := NewDispatcher(svc, 16, 1, nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for i := 0; i < 3; i++ {
		require.True(t, d.Dispatch(model.EventUserWelcome, payloadWith(someRecipient())))
	}
	cancel()

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not drain after close")
	}
	assert.Equal(t, 3, ch.count())
}
