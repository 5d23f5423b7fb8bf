package transport

import (
	"testing"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"sse":       Stream,
		" SSE ":     Stream,
		"websocket": Broker,
		"stomp":     Broker,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseMode("carrier-pigeon")
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestMode_OtherAndName(t *testing.T) {
	require.Equal(t, Stream, Broker.Other())
	require.Equal(t, Broker, Stream.Other())
	require.Equal(t, "SSE", Stream.Name())
	require.Equal(t, "WebSocket", Broker.Name())
}

func TestInbound(t *testing.T) {
	_, ok := Inbound(Stream, topic.Inspection, []byte("stream_open"))
	require.False(t, ok)

	_, ok = Inbound(Broker, topic.SoatRunt, []byte(`{"type":"stream_open"}`))
	require.False(t, ok)

	p, ok := Inbound(Stream, topic.Inspection, []byte("{not json"))
	require.True(t, ok)
	require.True(t, p.Malformed)
	require.Equal(t, "{not json", p.Text)

	p, ok = Inbound(Broker, topic.OilChange, []byte(`{"message":"Cambio de aceite"}`))
	require.True(t, ok)
	require.Equal(t, "Cambio de aceite", p.String("message"))
}

func TestTracker(t *testing.T) {
	var tr Tracker
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	tr.Opened(at)
	tr.Message()
	tr.Message()
	st := tr.Snapshot()
	require.True(t, st.Connected)
	require.Equal(t, at, st.ConnectTime)
	require.Equal(t, 2, st.MessageCount)

	tr.Lost(errors.New("hiccup"), false)
	st = tr.Snapshot()
	require.True(t, st.Connected)
	require.Equal(t, "hiccup", st.LastError)

	tr.Lost(errors.New("socket closed"), true)
	require.Equal(t, 1, tr.Reconnecting())
	require.Equal(t, 2, tr.Reconnecting())
	st = tr.Snapshot()
	require.False(t, st.Connected)
	require.True(t, st.Reconnecting)
	require.True(t, st.ConnectTime.IsZero())

	tr.Opened(at)
	st = tr.Snapshot()
	require.Empty(t, st.LastError)
	require.Equal(t, 2, st.ReconnectAttempts)

	tr.Failed(errors.New("gave up"))
	st = tr.Snapshot()
	require.True(t, st.Failed)
	require.False(t, st.Connected)
	require.False(t, st.Reconnecting)

	tr.Closed()
	require.Equal(t, 2, tr.Snapshot().MessageCount)
}
