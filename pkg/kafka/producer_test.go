package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type writerMock struct {
	failures int
	calls    int
	messages []kafka.Message
	closed   bool
}

func (w *writerMock) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("leader not available")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *writerMock) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w *writerMock) *Producer {
	p := newProducer(w, "kudos.events")
	p.backoff = time.Millisecond
	return p
}

func TestProduceRetries(t *testing.T) {
	w := &writerMock{failures: 2}
	p := newTestProducer(w)

	require.NoError(t, p.ProduceJSON(context.Background(), []byte("1"), map[string]any{"type": "RewardClaimed"}))
	require.Equal(t, 3, w.calls)
	require.Len(t, w.messages, 1)
	require.Equal(t, []byte("1"), w.messages[0].Key)
	require.JSONEq(t, `{"type":"RewardClaimed"}`, string(w.messages[0].Value))
}

func TestProduceGivesUp(t *testing.T) {
	w := &writerMock{failures: 10}
	p := newTestProducer(w)

	err := p.Produce(context.Background(), nil, []byte("x"))
	require.Error(t, err)
	require.Equal(t, 3, w.calls)
}

func TestClose(t *testing.T) {
	w := &writerMock{}
	require.NoError(t, newTestProducer(w).Close())
	require.True(t, w.closed)

	var p *Producer
	require.NoError(t, p.Close())
}
