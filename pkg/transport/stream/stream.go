// Package stream is the event-stream transport: one long-lived SSE
// request per topic, retried by the client itself after every error.
package stream

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/clock"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/r3labs/sse/v2"
	"github.com/rs/zerolog/log"
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Clock      clock.Clock
	// NewBackOff builds the retry policy of one stream. It must never
	// return backoff.Stop; the adapter stops it on Disconnect.
	NewBackOff func() backoff.BackOff
}

type Adapter struct {
	opts    Options
	handler transport.Handler
	tracker transport.Tracker

	mu     sync.Mutex
	cancel context.CancelFunc
	open   map[topic.Topic]bool
}

var _ transport.Adapter = (*Adapter)(nil)

func New(opts Options, h transport.Handler) *Adapter {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = DefaultBackOff
	}
	return &Adapter{opts: opts, handler: h}
}

// DefaultBackOff retries forever, from 1s up to 30s between attempts.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func (a *Adapter) Mode() transport.Mode { return transport.Stream }

func (a *Adapter) Status() transport.Status { return a.tracker.Snapshot() }

// URL is the endpoint of topic t for token.
func URL(baseURL string, t topic.Topic, token string) string {
	p, _ := t.Profile()
	return strings.TrimRight(baseURL, "/") + p.StreamPath + "?token=" + url.QueryEscape(token)
}

func (a *Adapter) Connect(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		log.Warn().Str("mode", string(transport.Stream)).Msg("connect called on a connected adapter, ignoring")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.open = map[topic.Topic]bool{}
	a.tracker.SetReconnecting(false)

	for _, t := range topic.All {
		go a.run(ctx, t, URL(a.opts.BaseURL, t, token))
	}
	log.Info().Str("mode", string(transport.Stream)).Str("base_url", a.opts.BaseURL).Msg("opening event streams")
}

func (a *Adapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return
	}
	a.cancel()
	a.cancel = nil
	a.open = nil
	a.tracker.Closed()
	log.Info().Str("mode", string(transport.Stream)).Msg("event streams closed")
}

func (a *Adapter) run(ctx context.Context, t topic.Topic, endpoint string) {
	c := sse.NewClient(endpoint)
	c.Connection = a.opts.HTTPClient
	c.ReconnectStrategy = backoff.WithContext(a.opts.NewBackOff(), ctx)
	c.ReconnectNotify = func(err error, next time.Duration) {
		a.streamError(ctx, t, err, next)
	}
	c.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return errors.Errorf("stream %s: %s", t, resp.Status)
		}
		a.streamUp(ctx, t)
		return nil
	}

	for {
		err := c.SubscribeRawWithContext(ctx, func(ev *sse.Event) {
			a.deliver(ctx, t, ev.Data)
		})
		if ctx.Err() != nil {
			return
		}
		// The client returns nil when the server ends the stream.
		a.streamError(ctx, t, errors.Wrapf(errOrEOF(err), "stream %s ended", t), 0)
		b := a.opts.NewBackOff()
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = time.Second
		}
		done := make(chan struct{})
		timer := a.opts.Clock.AfterFunc(wait, func() { close(done) })
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-done:
		}
	}
}

var errStreamClosed = errors.New("closed by server")

func errOrEOF(err error) error {
	if err == nil {
		return errStreamClosed
	}
	return err
}

// live reports whether ctx still belongs to the connected session.
func (a *Adapter) live(ctx context.Context) bool {
	return ctx.Err() == nil
}

func (a *Adapter) streamUp(ctx context.Context, t topic.Topic) {
	a.mu.Lock()
	if !a.live(ctx) || a.open == nil {
		a.mu.Unlock()
		return
	}
	first := len(a.open) == 0
	a.open[t] = true
	all := len(a.open) == len(topic.All)
	if first {
		a.tracker.Opened(a.opts.Clock.Now())
	}
	if all {
		a.tracker.SetReconnecting(false)
	}
	a.mu.Unlock()

	log.Debug().Str("mode", string(transport.Stream)).Str("topic", string(t)).Msg("stream open")
	if first {
		a.handler.Opened(a)
	}
}

// streamError never closes anything: the client keeps retrying and the
// adapter stays connected while any other stream is open.
func (a *Adapter) streamError(ctx context.Context, t topic.Topic, err error, next time.Duration) {
	a.mu.Lock()
	if !a.live(ctx) || a.open == nil {
		a.mu.Unlock()
		return
	}
	delete(a.open, t)
	a.tracker.Lost(err, len(a.open) == 0)
	a.tracker.SetReconnecting(true)
	a.mu.Unlock()

	log.Warn().Err(err).Str("mode", string(transport.Stream)).Str("topic", string(t)).Dur("retry_in", next).Msg("event stream error, retrying")
	a.handler.Error(a, err)
}

func (a *Adapter) deliver(ctx context.Context, t topic.Topic, raw []byte) {
	if !a.live(ctx) {
		return
	}
	a.tracker.Message()
	p, ok := transport.Inbound(transport.Stream, t, raw)
	if !ok {
		return
	}
	a.handler.Message(a, t, p)
}
