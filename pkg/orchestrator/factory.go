package orchestrator

import (
	"net/http"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/clock"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport/broker"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport/stream"
	"github.com/pkg/errors"
)

type AdapterOptions struct {
	BaseURL           string
	HTTPClient        *http.Client
	Clock             clock.Clock
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Heartbeat         time.Duration
}

// Adapters builds the stream and broker adapters against one backend.
func Adapters(opts AdapterOptions) transport.Factory {
	return func(mode transport.Mode, h transport.Handler) (transport.Adapter, error) {
		if opts.BaseURL == "" {
			return nil, errors.New("missing base url")
		}
		switch mode {
		case transport.Stream:
			return stream.New(stream.Options{
				BaseURL:    opts.BaseURL,
				HTTPClient: opts.HTTPClient,
				Clock:      opts.Clock,
			}, h), nil
		case transport.Broker:
			return broker.New(broker.Options{
				BaseURL:           opts.BaseURL,
				HTTPClient:        opts.HTTPClient,
				Clock:             opts.Clock,
				ReconnectAttempts: opts.ReconnectAttempts,
				ReconnectDelay:    opts.ReconnectDelay,
				Heartbeat:         opts.Heartbeat,
			}, h), nil
		}
		return nil, errors.Wrapf(transport.ErrUnknownMode, "%q", mode)
	}
}
