package event

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	err    error
	calls  int
	closed bool
}

func (p *flakyPublisher) Publish(ctx context.Context, msg Message) error {
	p.calls++
	return p.err
}

func (p *flakyPublisher) Close() error {
	p.closed = true
	return nil
}

func TestBreakerPublisher_OpensAfterFailures(t *testing.T) {
	next := &flakyPublisher{err: errors.New("broker unreachable")}
	p := NewBreakerPublisher(next, NewCircuitBreaker("test"))
	msg := Message{ID: "01J0000000000000000000000", Topic: "order.created", Key: "1", Payload: []byte(`{}`)}

	for i := 0; i < 3; i++ {
		assert.EqualError(t, p.Publish(context.Background(), msg), "broker unreachable")
	}

	// 開いた後はブローカーまで行かない
	err := p.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, next.calls)

	require.NoError(t, p.Close())
	assert.True(t, next.closed)
}

func TestBreakerPublisher_PassesThrough(t *testing.T) {
	next := &flakyPublisher{}
	p := NewBreakerPublisher(next, NewCircuitBreaker("ok"))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Publish(context.Background(), Message{ID: "x", Topic: "order.cancelled"}))
	}
	assert.Equal(t, 5, next.calls)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher()
	require.NoError(t, p.Publish(context.Background(), Message{ID: "x", Topic: "order.created", Key: "7", Payload: []byte(`{"order_id":7}`)}))
	require.NoError(t, p.Close())
}
