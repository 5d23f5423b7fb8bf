package orchestrator

import (
	"sync"
	"testing"
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/clock"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/session"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/topic"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/transport"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	mode    transport.Mode
	handler transport.Handler

	mu          sync.Mutex
	token       string
	connected   bool
	connects    int
	disconnects int
}

func (a *fakeAdapter) Mode() transport.Mode { return a.mode }

func (a *fakeAdapter) Connect(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.connects++
}

func (a *fakeAdapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	a.disconnects++
}

func (a *fakeAdapter) Status() transport.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return transport.Status{Connected: a.connected}
}

func (a *fakeAdapter) setConnected(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = v
}

// open simulates the connection completing.
func (a *fakeAdapter) open() {
	a.setConnected(true)
	a.handler.Opened(a)
}

func (a *fakeAdapter) send(t topic.Topic, raw string) {
	a.handler.Message(a, t, topic.Decode([]byte(raw)))
}

func (a *fakeAdapter) closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disconnects > 0
}

type fakeFactory struct {
	mu       sync.Mutex
	adapters []*fakeAdapter
	fail     map[transport.Mode]error
	// overlap is set when an adapter is built while an earlier one is
	// still open.
	overlap bool
}

func (f *fakeFactory) build(mode transport.Mode, h transport.Handler) (transport.Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[mode]; err != nil {
		return nil, err
	}
	for _, a := range f.adapters {
		if !a.closed() {
			f.overlap = true
		}
	}
	a := &fakeAdapter{mode: mode, handler: h}
	f.adapters = append(f.adapters, a)
	return a, nil
}

func (f *fakeFactory) all() []*fakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeAdapter{}, f.adapters...)
}

func (f *fakeFactory) last(t *testing.T) *fakeAdapter {
	all := f.all()
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

type fakeSound struct {
	mu          sync.Mutex
	activations int
	plays       int
}

func (s *fakeSound) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activations++
}

func (s *fakeSound) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
}

func (s *fakeSound) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activations, s.plays
}

type fakeViews struct {
	mu        sync.Mutex
	current   views.View
	refreshed []views.View
	// one-shot: the next CurrentView signals entered and blocks on gate
	entered chan struct{}
	gate    chan struct{}
}

func (v *fakeViews) CurrentView() views.View {
	v.mu.Lock()
	entered, gate := v.entered, v.gate
	v.entered, v.gate = nil, nil
	current := v.current
	v.mu.Unlock()

	if gate != nil {
		close(entered)
		<-gate
	}
	return current
}

// hold parks the next CurrentView call until release is closed.
func (v *fakeViews) hold() (entered <-chan struct{}, release chan struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entered = make(chan struct{})
	v.gate = make(chan struct{})
	return v.entered, v.gate
}

func (v *fakeViews) Refresh(view views.View) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.refreshed = append(v.refreshed, view)
}

func (v *fakeViews) show(view views.View) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = view
}

func (v *fakeViews) taken() []views.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.refreshed
	v.refreshed = nil
	return out
}

type fixture struct {
	o       *Orchestrator
	clk     *clock.FakeClock
	factory *fakeFactory
	inbox   *notify.Inbox
	sound   *fakeSound
	views   *fakeViews
}

var epoch = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()
	inbox, err := notify.Open(session.NewMemoryStore())
	require.NoError(t, err)

	f := &fixture{
		clk:     clock.Fake(epoch),
		factory: &fakeFactory{},
		inbox:   inbox,
		sound:   &fakeSound{},
		views:   &fakeViews{current: views.Dashboard},
	}
	f.o, err = New(Options{
		Mode:         transport.Broker,
		AutoFallback: true,
		Credentials:  session.StaticToken(token),
		Factory:      f.factory.build,
		Inbox:        f.inbox,
		Sound:        f.sound,
		Views:        f.views,
		Clock:        f.clk,
	})
	require.NoError(t, err)
	return f
}
