package orchestrator

import (
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/clock"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
)

// monitor polls one adapter's connection status and reports each
// connected->disconnected transition once. It starts out assuming the
// adapter is connected so a connect that never completes is caught by
// the first poll. All fields are guarded by Orchestrator.mu.
type monitor struct {
	o       *Orchestrator
	adapter transport.Adapter
	timer   *clock.Timer
	stopped bool

	lastConnected bool
}

func startMonitor(o *Orchestrator, a transport.Adapter) *monitor {
	m := &monitor{o: o, adapter: a, lastConnected: true}
	m.timer = o.opts.Clock.AfterFunc(o.opts.HealthInterval, m.check)
	return m
}

func (m *monitor) stop() {
	if m == nil {
		return
	}
	m.stopped = true
	m.timer.Stop()
}

// observe records a sample and reports whether it is a new transition
// to disconnected.
func (m *monitor) observe(connected bool) bool {
	down := m.lastConnected && !connected
	m.lastConnected = connected
	return down
}

func (m *monitor) check() {
	o := m.o
	o.mu.Lock()
	if m.stopped || o.monitor != m || o.current != m.adapter {
		o.mu.Unlock()
		return
	}

	down := m.observe(m.adapter.Status().Connected)
	if down {
		o.handleDownLocked("health check: " + o.mode.Name() + " not connected")
	}
	if !m.stopped && o.monitor == m {
		m.timer = o.opts.Clock.AfterFunc(o.opts.HealthInterval, m.check)
	}
	info := o.infoLocked()
	o.mu.Unlock()

	if down {
		o.publish(bus.TypeConnectionChanged, info)
	}
}
