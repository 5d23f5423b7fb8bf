package orchestrator

import (
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/rs/zerolog/log"
)

// handler receives adapter callbacks. Callbacks from an adapter that is
// no longer current are dropped.
type handler struct {
	o *Orchestrator
}

var _ transport.Handler = handler{}

func (h handler) Opened(a transport.Adapter) {
	o := h.o
	o.mu.Lock()
	if a != o.current {
		o.mu.Unlock()
		return
	}
	o.degraded = false
	o.reason = "connected"
	if o.monitor != nil {
		o.monitor.observe(true)
	}
	info := o.infoLocked()
	o.mu.Unlock()

	log.Info().Str("mode", string(a.Mode())).Msg("notification channel connected")
	o.publish(bus.TypeConnectionChanged, info)
}

func (h handler) Message(a transport.Adapter, t topic.Topic, p topic.Payload) {
	o := h.o
	if p.IsSentinel() {
		return
	}
	o.routeMu.Lock()
	defer o.routeMu.Unlock()
	// checked under routeMu so waitRoutes covers every message that
	// passed it
	if !o.isCurrent(a) {
		log.Debug().Str("mode", string(a.Mode())).Str("topic", string(t)).Msg("dropping message from stale transport")
		return
	}
	o.route(t, p)
}

func (h handler) Error(a transport.Adapter, err error) {
	o := h.o
	if !o.isCurrent(a) {
		return
	}
	log.Warn().Err(err).Str("mode", string(a.Mode())).Msg("transient transport error")
	o.publish(bus.TypeTransportError, TransportError{Mode: a.Mode(), Error: errText(err)})
}

// Failed is a disconnection the adapter will not recover from. It
// shares the monitor's transition latch so one outage is handled once.
func (h handler) Failed(a transport.Adapter, err error) {
	o := h.o
	o.mu.Lock()
	if a != o.current {
		o.mu.Unlock()
		return
	}
	down := o.monitor == nil || o.monitor.observe(false)
	if down {
		o.handleDownLocked(errText(err))
	}
	info := o.infoLocked()
	o.mu.Unlock()

	log.Error().Err(err).Str("mode", string(a.Mode())).Msg("transport failed")
	o.publish(bus.TypeTransportError, TransportError{Mode: a.Mode(), Error: errText(err), Fatal: true})
	if down {
		o.publish(bus.TypeConnectionChanged, info)
	}
}
