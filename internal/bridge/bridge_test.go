package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallRoundTrip(t *testing.T) {
	ch := NewLocal(nil)
	ch.Handle(KindResolve, func(payload any) (any, error) {
		return payload.(int) * 2, nil
	})

	var got Response
	id := ch.Call(KindResolve, 21, func(resp Response) { got = resp })

	require.NotEmpty(t, id)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, KindResolve, got.Kind)
	assert.Equal(t, 42, got.Payload)
	assert.Empty(t, got.Err)
	assert.Zero(t, ch.PendingCount())
}

func TestCallHandlerError(t *testing.T) {
	ch := NewLocal(nil)
	ch.Handle(KindResolve, func(any) (any, error) {
		return nil, errors.New("boom")
	})

	var got Response
	ch.Call(KindResolve, nil, func(resp Response) { got = resp })
	assert.Equal(t, "boom", got.Err)
	assert.Nil(t, got.Payload)
}

func TestCallUnknownKind(t *testing.T) {
	ch := NewLocal(nil)

	var got Response
	ch.Call(KindResolveStack, nil, func(resp Response) { got = resp })
	assert.Contains(t, got.Err, "no handler")
}

func TestDeliverUnknownIDDropped(t *testing.T) {
	ch := NewLocal(nil)
	ch.Deliver(Response{ID: "nobody-waiting"})
	assert.Zero(t, ch.PendingCount())
}

func TestDeliverOnlyOnce(t *testing.T) {
	ch := NewLocal(nil)
	ch.Handle(KindResolve, func(any) (any, error) { return "ok", nil })

	calls := 0
	id := ch.Call(KindResolve, nil, func(Response) { calls++ })

	// A second delivery for an already-answered id is a no-op.
	ch.Deliver(Response{ID: id, Kind: KindResolve})
	assert.Equal(t, 1, calls)
}

func TestDeferredScheduler(t *testing.T) {
	var queue []func()
	ch := NewLocal(func(fn func()) { queue = append(queue, fn) })
	ch.Handle(KindResolve, func(any) (any, error) { return "later", nil })

	delivered := false
	ch.Call(KindResolve, nil, func(Response) { delivered = true })

	assert.False(t, delivered)
	assert.Equal(t, 1, ch.PendingCount())

	require.Len(t, queue, 1)
	queue[0]()
	assert.True(t, delivered)
	assert.Zero(t, ch.PendingCount())
}
