// Package transport defines the lifecycle contract shared by the
// event-stream and socket-broker adapters.
package transport

import (
	"strings"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Mode string

const (
	Stream Mode = "sse"
	Broker Mode = "websocket"
)

var ErrUnknownMode = errors.New("unknown transport mode")

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sse", "stream":
		return Stream, nil
	case "websocket", "ws", "stomp", "broker":
		return Broker, nil
	}
	return "", errors.Wrapf(ErrUnknownMode, "%q", s)
}

// Other is the fallback partner of m.
func (m Mode) Other() Mode {
	if m == Broker {
		return Stream
	}
	return Broker
}

// Name is the human label shown in status panels.
func (m Mode) Name() string {
	switch m {
	case Stream:
		return "SSE"
	case Broker:
		return "WebSocket"
	default:
		return string(m)
	}
}

// Handler receives adapter lifecycle events. Adapters call it from
// their own goroutines, never while holding their own locks and never
// from inside Connect or Disconnect.
type Handler interface {
	Opened(a Adapter)
	Message(a Adapter, t topic.Topic, p topic.Payload)
	// Error reports a transient failure. Stream adapters keep retrying
	// on their own; broker adapters follow it with a reconnect attempt
	// or with Failed.
	Error(a Adapter, err error)
	// Failed reports that the adapter gave up for good.
	Failed(a Adapter, err error)
}

type Adapter interface {
	Mode() Mode
	// Connect starts connecting and returns immediately. Callers must
	// Disconnect before connecting again.
	Connect(token string)
	// Disconnect closes every subscription and the underlying
	// connection. It is a no-op on a closed adapter.
	Disconnect()
	Status() Status
}

// Factory builds an unconnected adapter for mode.
type Factory func(mode Mode, h Handler) (Adapter, error)

// Inbound decodes a raw topic body. It reports false for the ready
// sentinel, which must not reach the handler. Malformed bodies are
// logged and passed on as opaque text.
func Inbound(m Mode, t topic.Topic, raw []byte) (topic.Payload, bool) {
	p := topic.Decode(raw)
	if p.IsSentinel() {
		log.Debug().Str("mode", string(m)).Str("topic", string(t)).Msg("channel ready")
		return p, false
	}
	if p.Malformed {
		log.Warn().Str("mode", string(m)).Str("topic", string(t)).Str("raw", p.Raw).Msg("malformed message payload, using raw text")
	}
	return p, true
}
