package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestSendCopiesHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w}

	err := p.Send(context.Background(), Message{
		Topic:   "t",
		Key:     "k",
		Value:   []byte(`{}`),
		Headers: map[string]string{"event_type": "OptionPriced"},
	})
	require.NoError(t, err)
	require.Len(t, w.written[0].Headers, 1)
	assert.Equal(t, "event_type", w.written[0].Headers[0].Key)
	assert.Equal(t, "OptionPriced", string(w.written[0].Headers[0].Value))
}

func TestSendPropagatesWriterError(t *testing.T) {
	p := &KafkaProducer{writer: &fakeWriter{err: errors.New("broker down")}}
	assert.EqualError(t, p.Send(context.Background(), Message{Topic: "t"}), "broker down")
}

func TestSendNothing(t *testing.T) {
	w := &fakeWriter{err: errors.New("must not be called")}
	p := &KafkaProducer{writer: w}
	assert.NoError(t, p.Send(context.Background()))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
