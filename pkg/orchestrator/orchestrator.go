// Package orchestrator owns the single live notification transport of
// a session. It routes topic messages to the inbox, the chime and the
// view dispatcher, watches connection health and falls back from the
// broker to the event stream once.
package orchestrator

import (
	"sync"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/clock"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/session"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultHealthInterval = 10 * time.Second

// Inbox is where user-visible notifications go.
type Inbox interface {
	Add(n notify.Notification) bool
}

// Sound is the chime. Activate primes it; Play must not block long.
type Sound interface {
	Activate()
	Play()
}

type Options struct {
	// Mode is the preferred transport, used by DisconnectAll's reset.
	Mode           transport.Mode
	AutoFallback   bool
	HealthInterval time.Duration

	Credentials session.CredentialProvider
	Factory     transport.Factory
	Inbox       Inbox
	Sound       Sound
	Views       views.Dispatcher
	// Publisher is optional; state changes and notifications are
	// mirrored to bus.TopicEvents when set.
	Publisher message.Publisher
	Clock     clock.Clock
}

type Orchestrator struct {
	opts Options

	mu                sync.Mutex
	mode              transport.Mode
	current           transport.Adapter
	monitor           *monitor
	autoFallback      bool
	fallbackAttempted bool
	degraded          bool
	failures          int
	reason            string

	// routeMu serializes message handling across adapter goroutines.
	routeMu sync.Mutex
	lastID  int64
}

// Info describes the active transport.
type Info struct {
	Mode              transport.Mode   `json:"mode"`
	ServiceName       string           `json:"serviceName"`
	Active            bool             `json:"active"`
	Connected         bool             `json:"connected"`
	AutoFallback      bool             `json:"autoFallback"`
	FallbackAttempted bool             `json:"fallbackAttempted"`
	Degraded          bool             `json:"degraded"`
	Failures          int              `json:"failures"`
	Reason            string           `json:"reason,omitempty"`
	Status            transport.Status `json:"status"`
}

type TransportError struct {
	Mode  transport.Mode `json:"mode"`
	Error string         `json:"error"`
	Fatal bool           `json:"fatal"`
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Factory == nil {
		return nil, errors.New("missing Factory")
	}
	if opts.Credentials == nil {
		return nil, errors.New("missing Credentials")
	}
	if opts.Mode == "" {
		opts.Mode = transport.Broker
	}
	mode, err := transport.ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = DefaultHealthInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Orchestrator{
		opts:         opts,
		mode:         opts.Mode,
		autoFallback: opts.AutoFallback,
	}, nil
}

// Initialize connects mode for the current session. Without a token it
// does nothing: that is the normal state before login.
func (o *Orchestrator) Initialize(mode transport.Mode) {
	token, ok := o.opts.Credentials.Token()
	if !ok {
		log.Debug().Msg("no session token, notifications not started")
		return
	}

	if mode == "" {
		mode = o.opts.Mode
	}
	mode, err := transport.ParseMode(string(mode))
	if err != nil {
		log.Warn().Err(err).Msg("notifications not started")
		return
	}
	o.mu.Lock()
	o.disconnectLocked()
	o.mode = mode
	o.fallbackAttempted = false
	o.degraded = false
	o.reason = "initialized"
	o.connectLocked(token)
	info := o.infoLocked()
	o.mu.Unlock()
	o.waitRoutes()

	log.Info().Str("mode", string(mode)).Msg("notifications initialized")
	if o.opts.Sound != nil {
		o.opts.Sound.Activate()
	}
	o.publish(bus.TypeConnectionChanged, info)
}

// SwitchMode replaces the active transport. Switching to the active
// mode is a no-op. A manual switch re-arms the one-shot fallback.
func (o *Orchestrator) SwitchMode(mode transport.Mode) {
	mode, err := transport.ParseMode(string(mode))
	if err != nil {
		log.Warn().Err(err).Msg("transport not switched")
		return
	}
	o.mu.Lock()
	if mode == o.mode {
		o.mu.Unlock()
		log.Debug().Str("mode", string(mode)).Msg("already on requested transport")
		return
	}
	prev := o.mode
	o.disconnectLocked()
	o.mode = mode
	o.fallbackAttempted = false
	o.degraded = false
	o.reason = "switched from " + prev.Name()
	if token, ok := o.opts.Credentials.Token(); ok {
		o.connectLocked(token)
	}
	info := o.infoLocked()
	o.mu.Unlock()
	o.waitRoutes()

	log.Info().Str("from", string(prev)).Str("mode", string(mode)).Msg("transport switched")
	o.publish(bus.TypeConnectionChanged, info)
}

// HandleDisconnection reacts to the active transport going down.
func (o *Orchestrator) HandleDisconnection() {
	o.mu.Lock()
	o.handleDownLocked("disconnected")
	info := o.infoLocked()
	o.mu.Unlock()
	o.waitRoutes()
	o.publish(bus.TypeConnectionChanged, info)
}

// HandleServiceError is HandleDisconnection for errors raised while
// building or activating a transport.
func (o *Orchestrator) HandleServiceError(err error) {
	log.Warn().Err(err).Msg("notification service error")
	o.mu.Lock()
	o.handleDownLocked(errText(err))
	info := o.infoLocked()
	o.mu.Unlock()
	o.waitRoutes()
	o.publish(bus.TypeConnectionChanged, info)
}

// DisconnectAll tears down the transport and resets every flag. Safe
// at any point; Initialize may follow.
func (o *Orchestrator) DisconnectAll() {
	o.mu.Lock()
	o.disconnectLocked()
	o.mode = o.opts.Mode
	o.autoFallback = o.opts.AutoFallback
	o.fallbackAttempted = false
	o.degraded = false
	o.failures = 0
	o.reason = "disconnected"
	info := o.infoLocked()
	o.mu.Unlock()
	o.waitRoutes()

	log.Info().Msg("notifications disconnected")
	o.publish(bus.TypeConnectionChanged, info)
}

// ForceReconnect rebuilds the active transport. The fallback latch is
// kept.
func (o *Orchestrator) ForceReconnect() {
	token, ok := o.opts.Credentials.Token()
	if !ok {
		log.Warn().Msg("cannot reconnect without a session token")
		return
	}
	o.mu.Lock()
	o.disconnectLocked()
	o.degraded = false
	o.reason = "forced reconnect"
	o.connectLocked(token)
	info := o.infoLocked()
	o.mu.Unlock()
	o.waitRoutes()

	log.Info().Str("mode", string(info.Mode)).Msg("forced reconnect")
	o.publish(bus.TypeConnectionChanged, info)
}

func (o *Orchestrator) EnableAutoFallback() {
	o.setAutoFallback(true)
}

func (o *Orchestrator) DisableAutoFallback() {
	o.setAutoFallback(false)
}

func (o *Orchestrator) setAutoFallback(v bool) {
	o.mu.Lock()
	o.autoFallback = v
	info := o.infoLocked()
	o.mu.Unlock()
	log.Info().Bool("auto_fallback", v).Msg("auto fallback changed")
	o.publish(bus.TypeConnectionChanged, info)
}

func (o *Orchestrator) Info() Info {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.infoLocked()
}

func (o *Orchestrator) infoLocked() Info {
	info := Info{
		Mode:              o.mode,
		ServiceName:       o.mode.Name(),
		Active:            o.current != nil,
		AutoFallback:      o.autoFallback,
		FallbackAttempted: o.fallbackAttempted,
		Degraded:          o.degraded,
		Failures:          o.failures,
		Reason:            o.reason,
	}
	if o.current != nil {
		info.Status = o.current.Status()
		info.Connected = info.Status.Connected
	}
	return info
}

func (o *Orchestrator) connectLocked(token string) {
	a, err := o.opts.Factory(o.mode, handler{o: o})
	if err != nil {
		log.Error().Err(err).Str("mode", string(o.mode)).Msg("build transport")
		o.handleDownLocked(errText(err))
		return
	}
	o.current = a
	a.Connect(token)
	o.monitor = startMonitor(o, a)
	log.Info().Str("mode", string(o.mode)).Msg("transport connecting")
}

func (o *Orchestrator) disconnectLocked() {
	o.monitor.stop()
	o.monitor = nil
	if o.current == nil {
		return
	}
	a := o.current
	o.current = nil
	a.Disconnect()
}

// handleDownLocked applies the disconnection policy: one automatic
// fallback from the broker to the stream per session, otherwise count
// the failure and stay degraded until something reconnects.
func (o *Orchestrator) handleDownLocked(reason string) {
	o.failures++
	o.reason = reason
	if o.mode == transport.Broker && o.autoFallback && !o.fallbackAttempted {
		log.Warn().Str("reason", reason).Str("from", string(o.mode)).Str("mode", string(transport.Stream)).Msg("falling back to event stream")
		o.fallbackAttempted = true
		o.disconnectLocked()
		o.mode = transport.Stream
		o.reason = "fallback: " + reason
		token, ok := o.opts.Credentials.Token()
		if !ok {
			o.degraded = true
			return
		}
		o.connectLocked(token)
		return
	}
	o.degraded = true
	log.Error().Str("reason", reason).Str("mode", string(o.mode)).Int("failures", o.failures).Msg("notification channel degraded")
}

// waitRoutes returns once no message from a replaced adapter is still
// being routed. Called without o.mu.
func (o *Orchestrator) waitRoutes() {
	o.routeMu.Lock()
	//nolint:staticcheck // SA2001
	o.routeMu.Unlock()
}

func (o *Orchestrator) isCurrent(a transport.Adapter) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return a == o.current
}

func (o *Orchestrator) publish(typ string, data any) {
	if o.opts.Publisher == nil {
		return
	}
	if err := bus.Publish(o.opts.Publisher, bus.TopicEvents, typ, data); err != nil {
		log.Warn().Err(err).Str("type", typ).Msg("publish event")
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
