package bus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns the in-memory pub/sub shared by the core, the refresher
// and the UI.
func New() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, Logger(log.Logger))
}

// Consume subscribes to topic and hands every decoded envelope to fn
// until ctx is done. Undecodable messages are logged and acked.
func Consume(ctx context.Context, sub message.Subscriber, topic string, fn func(Envelope) error) error {
	msgs, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			env, err := Decode(msg)
			if err != nil {
				log.Warn().Err(err).Str("bus_topic", topic).Msg("dropping message")
				msg.Ack()
				continue
			}
			if err := fn(env); err != nil {
				log.Warn().Err(err).Str("bus_topic", topic).Str("type", env.Type).Msg("handle event")
			}
			msg.Ack()
		}
	}
}

type zerologAdapter struct {
	l zerolog.Logger
}

// Logger adapts a zerolog logger to watermill's logging interface.
func Logger(l zerolog.Logger) watermill.LoggerAdapter {
	return zerologAdapter{l: l.With().Str("component", "watermill").Logger()}
}

func (z zerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	z.l.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

func (z zerologAdapter) Info(msg string, fields watermill.LogFields) {
	z.l.Info().Fields(map[string]any(fields)).Msg(msg)
}

func (z zerologAdapter) Debug(msg string, fields watermill.LogFields) {
	z.l.Debug().Fields(map[string]any(fields)).Msg(msg)
}

func (z zerologAdapter) Trace(msg string, fields watermill.LogFields) {
	z.l.Trace().Fields(map[string]any(fields)).Msg(msg)
}

func (z zerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return zerologAdapter{l: z.l.With().Fields(map[string]any(fields)).Logger()}
}
