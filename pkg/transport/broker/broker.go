// Package broker is the socket-broker transport: STOMP 1.2 over a
// WebSocket. The socket does not heal on its own, so the adapter
// redials with a fixed delay a bounded number of times and then
// reports permanent failure.
package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/clock"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	SocketPath = "/ws/websocket"

	// ConnectionDestination carries server-side connection status. It is
	// logged and never routed.
	ConnectionDestination = "/topic/notifications/connection"
	PingDestination       = "/app/ping"
	PingClient            = "frontend"

	DefaultReconnectAttempts = 3
	DefaultReconnectDelay    = 5 * time.Second
	DefaultHeartbeat         = 30 * time.Second

	teardownTimeout = 2 * time.Second
)

var stompSubprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}

var (
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	errSubscriptionClosed = errors.New("subscription closed")
)

type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	Clock             clock.Clock
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Heartbeat         time.Duration
}

type Adapter struct {
	opts    Options
	handler transport.Handler
	tracker transport.Tracker

	mu      sync.Mutex
	token   string
	active  bool
	sess    *session
	retry   *clock.Timer
	backoff backoff.BackOff
}

// session is one dial attempt and, once the handshake succeeds, the
// live connection. A session is current while it is a.sess; callbacks
// from any other session are dropped.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	ping   *clock.Timer // guarded by Adapter.mu

	mu     sync.Mutex
	closed bool
	ws     *websocket.Conn
	conn   *stomp.Conn
	subs   []*stomp.Subscription
}

var _ transport.Adapter = (*Adapter)(nil)

func New(opts Options, h transport.Handler) *Adapter {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = DefaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	return &Adapter{opts: opts, handler: h}
}

func (a *Adapter) Mode() transport.Mode { return transport.Broker }

func (a *Adapter) Status() transport.Status { return a.tracker.Snapshot() }

// SocketURL maps the HTTP base URL to the broker's WebSocket endpoint.
func SocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/api/v1") + SocketPath
	return u.String(), nil
}

type route struct {
	dest  string
	topic topic.Topic
}

func routes() []route {
	out := make([]route, 0, len(topic.All)+1)
	for _, t := range topic.All {
		p, _ := t.Profile()
		out = append(out, route{dest: p.Destination, topic: t})
	}
	return append(out, route{dest: ConnectionDestination})
}

func (a *Adapter) Connect(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active {
		log.Warn().Str("mode", string(transport.Broker)).Msg("connect called on a connected adapter, ignoring")
		return
	}
	a.active = true
	a.token = token
	a.backoff = backoff.WithMaxRetries(backoff.NewConstantBackOff(a.opts.ReconnectDelay), uint64(a.opts.ReconnectAttempts))
	s := a.newSessionLocked()
	go a.dial(s)
}

func (a *Adapter) newSessionLocked() *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{ctx: ctx, cancel: cancel}
	a.sess = s
	return s
}

// Disconnect unsubscribes, sends DISCONNECT and closes the socket. The
// STOMP goodbye is bounded so a dead peer cannot stall it.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return
	}
	a.active = false
	s := a.sess
	a.sess = nil
	if s != nil {
		s.ping.Stop()
	}
	a.retry.Stop()
	a.retry = nil
	a.tracker.Closed()
	a.mu.Unlock()

	if s != nil {
		s.teardown()
	}
	log.Info().Str("mode", string(transport.Broker)).Msg("broker connection closed")
}

func (a *Adapter) current(s *session) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess == s
}

func (a *Adapter) dial(s *session) {
	endpoint, err := SocketURL(a.opts.BaseURL)
	if err != nil {
		a.lost(s, err)
		return
	}
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()

	ws, _, err := websocket.Dial(s.ctx, endpoint, &websocket.DialOptions{
		HTTPClient:   a.opts.HTTPClient,
		Subprotocols: stompSubprotocols,
	})
	if err != nil {
		a.lost(s, errors.Wrap(err, "dial broker socket"))
		return
	}
	if !s.attach(ws, nil, nil) {
		return
	}

	host := "/"
	if u, err := url.Parse(endpoint); err == nil {
		host = u.Hostname()
	}
	conn, err := stomp.Connect(websocket.NetConn(s.ctx, ws, websocket.MessageText),
		stomp.ConnOpt.Host(host),
		stomp.ConnOpt.HeartBeat(0, 0),
		stomp.ConnOpt.Header("Authorization", "Bearer "+token),
	)
	if err != nil {
		a.lost(s, errors.Wrap(err, "stomp handshake"))
		return
	}

	rs := routes()
	subs := make([]*stomp.Subscription, 0, len(rs))
	for _, r := range rs {
		sub, err := conn.Subscribe(r.dest, stomp.AckAuto)
		if err != nil {
			_ = conn.MustDisconnect()
			a.lost(s, errors.Wrapf(err, "subscribe %s", r.dest))
			return
		}
		subs = append(subs, sub)
	}
	if !s.attach(ws, conn, subs) {
		return
	}

	a.mu.Lock()
	if a.sess != s {
		a.mu.Unlock()
		go s.teardown()
		return
	}
	a.backoff.Reset()
	a.tracker.Opened(a.opts.Clock.Now())
	a.schedulePingLocked(s)
	a.mu.Unlock()

	log.Info().Str("mode", string(transport.Broker)).Str("url", endpoint).Msg("broker connected")
	a.handler.Opened(a)

	for i, sub := range subs {
		go a.read(s, rs[i], sub)
	}
}

func (a *Adapter) read(s *session, r route, sub *stomp.Subscription) {
	for msg := range sub.C {
		if msg.Err != nil {
			a.lost(s, errors.Wrapf(msg.Err, "receive %s", r.dest))
			return
		}
		if !a.current(s) {
			return
		}
		a.tracker.Message()
		if r.topic == "" {
			log.Debug().Str("destination", r.dest).Str("raw", string(msg.Body)).Msg("broker connection status")
			continue
		}
		p, ok := transport.Inbound(transport.Broker, r.topic, msg.Body)
		if !ok {
			continue
		}
		a.handler.Message(a, r.topic, p)
	}
	a.lost(s, errors.Wrapf(errSubscriptionClosed, "receive %s", r.dest))
}

func (a *Adapter) schedulePingLocked(s *session) {
	s.ping = a.opts.Clock.AfterFunc(a.opts.Heartbeat, func() { a.ping(s) })
}

type pingBody struct {
	Timestamp int64  `json:"timestamp"`
	Client    string `json:"client"`
}

func (a *Adapter) ping(s *session) {
	a.mu.Lock()
	if a.sess != s {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	conn := s.stompConn()
	body, err := json.Marshal(pingBody{Timestamp: a.opts.Clock.Now().UnixMilli(), Client: PingClient})
	if err != nil {
		log.Error().Err(err).Msg("marshal ping")
		return
	}
	if err := conn.Send(PingDestination, "application/json", body); err != nil {
		a.lost(s, errors.Wrap(err, "send ping"))
		return
	}
	log.Debug().Str("destination", PingDestination).Msg("ping sent")

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == s {
		a.schedulePingLocked(s)
	}
}

// lost handles the end of session s. Only the first report for the
// current session counts.
func (a *Adapter) lost(s *session, err error) {
	a.mu.Lock()
	if a.sess != s {
		a.mu.Unlock()
		return
	}
	a.sess = nil
	s.ping.Stop()
	a.tracker.Lost(err, true)

	next := a.backoff.NextBackOff()
	failed := next == backoff.Stop
	attempt := 0
	if failed {
		err = errors.Wrap(ErrReconnectExhausted, err.Error())
		a.tracker.Failed(err)
	} else {
		attempt = a.tracker.Reconnecting()
		a.retry = a.opts.Clock.AfterFunc(next, a.reconnect)
	}
	a.mu.Unlock()

	go s.teardown()

	if failed {
		log.Error().Err(err).Str("mode", string(transport.Broker)).Msg("broker connection failed permanently")
		a.handler.Error(a, err)
		a.handler.Failed(a, err)
		return
	}
	log.Warn().Err(err).Str("mode", string(transport.Broker)).Int("attempt", attempt).Dur("retry_in", next).Msg("broker connection lost, reconnecting")
	a.handler.Error(a, err)
}

func (a *Adapter) reconnect() {
	a.mu.Lock()
	if !a.active || a.sess != nil {
		a.mu.Unlock()
		return
	}
	a.retry = nil
	s := a.newSessionLocked()
	a.mu.Unlock()
	go a.dial(s)
}

// attach records what dial has built so far. It reports false, after
// closing the pieces, when the session was torn down meanwhile.
func (s *session) attach(ws *websocket.Conn, conn *stomp.Conn, subs []*stomp.Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if conn != nil {
			_ = conn.MustDisconnect()
		}
		_ = ws.CloseNow()
		return false
	}
	s.ws, s.conn, s.subs = ws, conn, subs
	return true
}

func (s *session) stompConn() *stomp.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *session) teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	ws, conn, subs := s.ws, s.conn, s.subs
	s.mu.Unlock()

	if conn != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			for _, sub := range subs {
				_ = sub.Unsubscribe()
			}
			_ = conn.Disconnect()
		}()
		select {
		case <-done:
		case <-time.After(teardownTimeout):
			log.Debug().Msg("broker goodbye timed out")
		}
		_ = conn.MustDisconnect()
	}
	s.cancel()
	if ws != nil {
		_ = ws.CloseNow()
	}
}
