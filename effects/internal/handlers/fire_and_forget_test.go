package handlers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/on-the-ground/managed_ive_go/effects/internal/handlers"
	effectmodel "github.com/on-the-ground/managed_ive_go/effects/internal/model"
	"github.com/stretchr/testify/assert"
)

type textPayload string

func (p textPayload) PartitionKey() string { return string(p) }

func TestFireAndForgetHandler_BasicExecution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan textPayload, 1)

	handler := handlers.NewFireAndForgetHandler(
		ctx,
		effectmodel.NewEffectScopeConfig(10, 1),
		func(ctx context.Context, msg textPayload) {
			received <- msg
		},
		func() {}, // no-op teardown
	)
	defer handler.Close()

	assert.True(t, handler.FireAndForgetEffect(ctx, "hello"))

	select {
	case msg := <-received:
		assert.Equal(t, textPayload("hello"), msg)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for handler")
	}
}

func TestFireAndForgetHandler_CancelledCallerContext(t *testing.T) {
	handler := handlers.NewFireAndForgetHandler(
		context.Background(),
		effectmodel.NewEffectScopeConfig(0, 1),
		func(ctx context.Context, msg textPayload) {},
		func() {},
	)
	defer handler.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// buffer of one still has room, but a cancelled caller must not block or enqueue
	// when the select picks ctx.Done; either outcome is fine as long as it returns
	done := make(chan struct{})
	go func() {
		handler.FireAndForgetEffect(ctx, "maybe")
		handler.FireAndForgetEffect(ctx, "maybe")
		handler.FireAndForgetEffect(ctx, "maybe")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send with a cancelled context blocked")
	}
}

func TestFireAndForgetHandler_CloseDrainsThenTearsDown(t *testing.T) {
	var (
		mu       sync.Mutex
		received []textPayload
		order    []string
	)

	block := make(chan struct{})
	handler := handlers.NewFireAndForgetHandler(
		context.Background(),
		effectmodel.NewEffectScopeConfig(10, 1),
		func(ctx context.Context, msg textPayload) {
			<-block
			mu.Lock()
			received = append(received, msg)
			order = append(order, "handle")
			mu.Unlock()
		},
		func() {
			mu.Lock()
			order = append(order, "teardown")
			mu.Unlock()
		},
	)

	for _, msg := range []textPayload{"a", "b", "c"} {
		assert.True(t, handler.FireAndForgetEffect(context.Background(), msg))
	}
	close(block)

	handler.Close()
	handler.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []textPayload{"a", "b", "c"}, received)
	assert.Equal(t, "teardown", order[len(order)-1])
	assert.Len(t, order, 4, "teardown must run exactly once")
}

func TestFireAndForgetHandler_RejectsAfterClose(t *testing.T) {
	handler := handlers.NewFireAndForgetHandler(
		context.Background(),
		effectmodel.NewEffectScopeConfig(1, 2),
		func(ctx context.Context, msg textPayload) {},
		func() {},
	)
	handler.Close()

	assert.False(t, handler.FireAndForgetEffect(context.Background(), "late"))
}
