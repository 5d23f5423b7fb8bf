package bus

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type sample struct {
	View string `json:"view"`
	Page int    `json:"page"`
}

func TestPublishConsume(t *testing.T) {
	ps := New()
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Envelope, 1)
	done := make(chan error, 1)
	go func() {
		done <- Consume(ctx, ps, TopicRefresh, func(env Envelope) error {
			select {
			case got <- env:
			default:
			}
			return nil
		})
	}()

	var env Envelope
	require.Eventually(t, func() bool {
		if err := Publish(ps, TopicRefresh, TypeRefreshRequested, sample{View: "machines", Page: 2}); err != nil {
			return false
		}
		select {
		case env = <-got:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, TypeRefreshRequested, env.Type)
	var s sample
	require.NoError(t, env.DecodeData(&s))
	require.Equal(t, sample{View: "machines", Page: 2}, s)

	cancel()
	require.NoError(t, <-done)
}

func TestEnvelope(t *testing.T) {
	env, err := NewEnvelope(TypeConnectionChanged, nil)
	require.NoError(t, err)
	require.Empty(t, env.Data)
	require.Error(t, env.DecodeData(&sample{}))

	_, err = NewEnvelope(TypeTransportError, func() {})
	require.Error(t, err)

	require.Error(t, Publish(nil, TopicEvents, TypeTransportError, nil))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Logger(zerolog.New(&buf)).With(watermill.LogFields{"topic": "x"})
	l.Info("subscribed", watermill.LogFields{"n": 1})
	require.Contains(t, buf.String(), `"topic":"x"`)
	require.Contains(t, buf.String(), `"component":"watermill"`)
	require.Contains(t, buf.String(), `"message":"subscribed"`)
}
