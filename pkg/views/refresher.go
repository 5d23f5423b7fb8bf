package views

import (
	"context"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Fetcher loads a view's listing and reports how many rows came back.
type Fetcher interface {
	FetchView(ctx context.Context, v View, p Page) (int, error)
}

// Result is published on the events topic after every refetch.
type Result struct {
	View  View      `json:"view"`
	Page  Page      `json:"page"`
	Rows  int       `json:"rows"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// Refresher consumes refresh requests one at a time.
type Refresher struct {
	Sub     message.Subscriber
	Pub     message.Publisher
	Fetcher Fetcher
	Timeout time.Duration
}

func (r *Refresher) Run(ctx context.Context) error {
	if r.Sub == nil {
		return errors.New("missing Subscriber")
	}
	if r.Fetcher == nil {
		return errors.New("missing Fetcher")
	}
	if r.Timeout <= 0 {
		r.Timeout = 30 * time.Second
	}
	return bus.Consume(ctx, r.Sub, bus.TopicRefresh, func(env bus.Envelope) error {
		if env.Type != bus.TypeRefreshRequested {
			return nil
		}
		var req Request
		if err := env.DecodeData(&req); err != nil {
			return err
		}
		r.refresh(ctx, req)
		return nil
	})
}

func (r *Refresher) refresh(ctx context.Context, req Request) {
	fctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	rows, err := r.Fetcher.FetchView(fctx, req.View, req.Page)
	res := Result{View: req.View, Page: req.Page, Rows: rows, At: time.Now()}
	if err != nil {
		res.Error = err.Error()
		log.Warn().Err(err).Str("view", string(req.View)).Msg("refresh failed")
	} else {
		log.Debug().Str("view", string(req.View)).Int("rows", rows).Msg("view refreshed")
	}
	if r.Pub == nil {
		return
	}
	if err := bus.Publish(r.Pub, bus.TopicEvents, bus.TypeRefreshCompleted, res); err != nil {
		log.Warn().Err(err).Msg("publish refresh result")
	}
}
