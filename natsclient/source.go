package natsclient

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/grillworks/smokewatch/errors"
)

// pollInterval bounds how long a fetch waits before rechecking the context
const pollInterval = time.Second

// StreamSource delivers messages from a durable JetStream consumer one at a
// time. Next blocks until a message arrives, the context is cancelled, or the
// stream becomes unavailable.
type StreamSource struct {
	consumer jetstream.Consumer
	stream   string
	subject  string
}

// NewStreamSource creates a durable pull consumer on the named stream,
// filtered to the given subject. The stream must already exist.
func (m *Client) NewStreamSource(ctx context.Context, streamName, subject, durable string) (*StreamSource, error) {
	stream, err := m.GetStream(ctx, streamName)
	if err != nil {
		return nil, err
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		m.recordFailure()
		return nil, errors.WrapTransient(err, "Client", "NewStreamSource", "create consumer")
	}

	m.resetCircuit()

	return &StreamSource{
		consumer: consumer,
		stream:   streamName,
		subject:  subject,
	}, nil
}

// Next returns the payload of the next message on the stream. It blocks
// until a message is available. A cancelled context returns ctx.Err();
// a broken consumer returns errors.ErrStreamUnavailable.
func (s *StreamSource) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := s.consumer.Next(jetstream.FetchMaxWait(pollInterval))
		if err != nil {
			if stderrors.Is(err, nats.ErrTimeout) || stderrors.Is(err, jetstream.ErrNoMessages) {
				continue
			}
			return nil, errors.WrapFatal(err, "StreamSource", "Next", "fetch message")
		}

		// A failed ack means a possible redelivery, which the rolling
		// window tolerates.
		_ = msg.Ack()

		return msg.Data(), nil
	}
}

// Stream returns the stream name this source consumes from
func (s *StreamSource) Stream() string {
	return s.stream
}

// Subject returns the filter subject this source consumes
func (s *StreamSource) Subject() string {
	return s.subject
}
