package views

import (
	"sync"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/clock"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/session"
	"github.com/rs/zerolog/log"
)

const DefaultAutoRefreshInterval = time.Minute

// AutoRefresher reloads the dashboard on a fixed interval while it is
// enabled, a session exists and the dashboard is the visible view.
type AutoRefresher struct {
	dispatcher  Dispatcher
	credentials session.CredentialProvider
	clock       clock.Clock
	interval    time.Duration

	mu      sync.Mutex
	enabled bool
	timer   *clock.Timer
}

func NewAutoRefresher(d Dispatcher, creds session.CredentialProvider, clk clock.Clock, interval time.Duration) *AutoRefresher {
	if clk == nil {
		clk = clock.Real()
	}
	if interval <= 0 {
		interval = DefaultAutoRefreshInterval
	}
	return &AutoRefresher{dispatcher: d, credentials: creds, clock: clk, interval: interval, enabled: true}
}

// Start (re)arms the timer.
func (a *AutoRefresher) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timer.Stop()
	a.timer = a.clock.AfterFunc(a.interval, a.tick)
}

func (a *AutoRefresher) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timer.Stop()
	a.timer = nil
}

func (a *AutoRefresher) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *AutoRefresher) SetEnabled(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = v
}

// Toggle flips the enabled flag and returns the new value.
func (a *AutoRefresher) Toggle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = !a.enabled
	return a.enabled
}

func (a *AutoRefresher) tick() {
	a.mu.Lock()
	if a.timer == nil {
		a.mu.Unlock()
		return
	}
	enabled := a.enabled
	a.timer = a.clock.AfterFunc(a.interval, a.tick)
	a.mu.Unlock()

	if !enabled {
		return
	}
	if _, ok := a.credentials.Token(); !ok {
		return
	}
	if a.dispatcher.CurrentView() != Dashboard {
		log.Trace().Msg("auto refresh skipped, dashboard not visible")
		return
	}
	log.Debug().Str("view", string(Dashboard)).Msg("auto refresh")
	a.dispatcher.Refresh(Dashboard)
}
